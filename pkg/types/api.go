package types

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat      ErrKind = iota // malformed headers/signatures (e.g., bad "regf")
	ErrKindCorrupt                    // structural corruption (bad sizes/offsets/tags)
	ErrKindUnsupported                // valid feature we don't support (yet)
	ErrKindNotFound                   // missing key/value/path
	ErrKindType                       // requested decode doesn't match value RegType
	ErrKindState                      // invalid operation for current state
	ErrKindLog                        // transaction log authentication/ordering failure
	ErrKindIO                         // underlying source I/O failure
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by implementations.
var (
	// ErrNotHive indicates the file lacks a valid "regf" header.
	ErrNotHive = &Error{Kind: ErrKindFormat, Msg: "not a registry hive (bad regf header)"}
	// ErrCorrupt indicates non-recoverable structural inconsistency.
	ErrCorrupt = &Error{Kind: ErrKindCorrupt, Msg: "corrupt hive structure"}
	// ErrUnsupported indicates a recognized but unsupported feature/variant.
	ErrUnsupported = &Error{Kind: ErrKindUnsupported, Msg: "unsupported hive feature"}
	// ErrNotFound indicates a missing key/value/path.
	ErrNotFound = &Error{Kind: ErrKindNotFound, Msg: "not found"}
	// ErrTypeMismatch indicates the requested decode doesn't match the value type.
	ErrTypeMismatch = &Error{Kind: ErrKindType, Msg: "registry value has different type"}
	// ErrReadonly indicates a mutation was attempted on a read-only handle.
	ErrReadonly = &Error{Kind: ErrKindState, Msg: "reader is read-only"}
	// ErrLogSequence indicates a transaction log entry's sequence number broke
	// the expected S, S+1, S+2... chain.
	ErrLogSequence = &Error{Kind: ErrKindLog, Msg: "transaction log sequence mismatch"}
	// ErrLogAuth indicates a transaction log entry failed Marvin32 authentication.
	ErrLogAuth = &Error{Kind: ErrKindLog, Msg: "transaction log entry failed authentication"}
)

// -----------------------------------------------------------------------------
// Core Identifiers & Metadata
// -----------------------------------------------------------------------------

// NodeID and ValueID are small, copyable handles referring to NK/VK records.
// Implementations encode absolute offsets (relative to the hive bins data)
// into the handle, keeping traversals allocation-light.
type (
	NodeID  uint32
	ValueID uint32
)

// Offset is a cell offset relative to the start of the hive bins data
// (i.e., relative to data_offset, not to byte 0 of the file).
type Offset uint32

// RegType enumerates Windows registry value types.
// (The numbers align with Windows definitions.)
type RegType uint32

const (
	REG_NONE                       RegType = 0
	REG_SZ                         RegType = 1
	REG_EXPAND_SZ                  RegType = 2
	REG_BINARY                     RegType = 3
	REG_DWORD                      RegType = 4
	REG_DWORD_LE                   RegType = 4 // alias for clarity
	REG_DWORD_BE                   RegType = 5
	REG_LINK                       RegType = 6
	REG_MULTI_SZ                   RegType = 7
	REG_RESOURCE_LIST              RegType = 8
	REG_FULL_RESOURCE_DESCRIPTOR   RegType = 9
	REG_RESOURCE_REQUIREMENTS_LIST RegType = 10
	REG_QWORD                      RegType = 11
)

// String implements the Stringer interface for RegType.
func (t RegType) String() string {
	switch t {
	case REG_NONE:
		return "REG_NONE"
	case REG_SZ:
		return "REG_SZ"
	case REG_EXPAND_SZ:
		return "REG_EXPAND_SZ"
	case REG_BINARY:
		return "REG_BINARY"
	case REG_DWORD:
		return "REG_DWORD"
	case REG_DWORD_BE:
		return "REG_DWORD_BE"
	case REG_LINK:
		return "REG_LINK"
	case REG_MULTI_SZ:
		return "REG_MULTI_SZ"
	case REG_QWORD:
		return "REG_QWORD"
	default:
		// Format as signed int32 to match hivex (shows negative values for invalid types)
		return fmt.Sprintf("UNKNOWN_TYPE_%d", int32(t))
	}
}

// ValueMeta describes a value without forcing data decoding or allocation.
// Implementations fill this from the VK header only.
type ValueMeta struct {
	Name           string  // value name ("" for default/unnamed)
	Type           RegType // declared registry type
	Size           int     // logical payload size (from VK)
	Inline         bool    // true if VK embeds data inline
	NameCompressed bool    // true if name is stored in compressed (Windows-1252) format
	NameRaw        []byte  // original encoded name bytes
}

// KeyMeta exposes cheap NK-level information useful for listings and planning.
type KeyMeta struct {
	Name           string    // key name as UTF-8 (decoded lazily)
	LastWrite      time.Time // NK timestamp if present
	SubkeyN        int       // number of subkeys (from list)
	ValueN         int       // number of values
	HasSecDesc     bool      // whether an SK record is associated
	NameCompressed bool      // true if name is stored in compressed (Windows-1252) format
	NameRaw        []byte    // original encoded name bytes
}

// KeyDetail exposes detailed NK record metadata for inspection/forensics.
type KeyDetail struct {
	KeyMeta
	Flags              uint16 // NK flags (compressed name, root key, etc.)
	ParentOffset       uint32 // Cell offset of parent NK
	SubkeyListOffset   uint32 // Cell offset of subkey list
	ValueListOffset    uint32 // Cell offset of value list
	SecurityOffset     uint32 // Cell offset of security descriptor (SK)
	ClassNameOffset    uint32 // Cell offset of class name
	MaxNameLength      uint32 // Maximum subkey name length
	MaxClassLength     uint32 // Maximum class length
	MaxValueNameLength uint32 // Maximum value name length
	MaxValueDataLength uint32 // Maximum value data length
	ClassName          string // Class name (if present)
}

// HiveInfo exposes registry hive header (REGF) metadata.
type HiveInfo struct {
	PrimarySequence   uint32    // Primary sequence number (for atomicity checks)
	SecondarySequence uint32    // Secondary sequence number
	LastWrite         time.Time // Last write timestamp
	MajorVersion      uint32    // Format major version
	MinorVersion      uint32    // Format minor version
	Type              uint32    // 0 = primary, 1 = alternate
	RootCellOffset    uint32    // Offset of root NK record
	HiveBinsDataSize  uint32    // Total size of HBIN data
	ClusteringFactor  uint32    // Clustering factor (rarely used)
}

// IsDirty reports whether the two header sequence numbers disagree, meaning
// the hive was not cleanly flushed and a transaction log may hold newer data.
func (i HiveInfo) IsDirty() bool {
	return i.PrimarySequence != i.SecondarySequence
}

// -----------------------------------------------------------------------------
// Open Options & Read Options
// -----------------------------------------------------------------------------

// ParseMode selects how a hive's base block and root cell are located.
type ParseMode int

const (
	// ParseModeNormalWithBaseBlock reads and validates the 4096-byte base
	// block, taking the root cell offset and data_offset from it.
	ParseModeNormalWithBaseBlock ParseMode = iota
	// ParseModeNormal skips base-block validation but still requires a
	// caller-supplied root cell offset; data_offset defaults to 0x1000.
	ParseModeNormal
	// ParseModeRaw treats the entire source as bare hive-bins data with no
	// base block at all; the caller locates the root cell separately
	// (e.g., via the recovered-tree builder).
	ParseModeRaw
)

// OpenOptions controls safety/performance tradeoffs for constructing a Reader.
type OpenOptions struct {
	// ZeroCopy allows returned slices to alias the underlying mapped buffer
	// when safe. Callers must treat these as read-only and must not retain
	// them after Close.
	ZeroCopy bool

	// Tolerant enables best-effort traversal on mild inconsistencies where
	// recovery is possible (bounds are still enforced).
	Tolerant bool

	// MaxCellSize guards against absurd/malicious cell sizes.
	// Zero selects a conservative default (64 MiB).
	MaxCellSize int

	// Strict narrows accepted minor versions to {5} instead of the default
	// superset {3,4,5,6}.
	Strict bool

	// CollectDiagnostics enables passive diagnostic collection during normal
	// operations. Issues encountered during traversal are recorded and can
	// be retrieved via GetDiagnostics().
	CollectDiagnostics bool

	// Mode selects how the root cell and data offset are located.
	Mode ParseMode

	// RootOffset is the root cell offset to use when Mode is ParseModeNormal.
	RootOffset Offset
}

// ReadOptions let callers request per-call behavior (e.g., forced copying).
type ReadOptions struct {
	// CopyData forces a heap copy even if ZeroCopy is enabled globally.
	CopyData bool
}

// -----------------------------------------------------------------------------
// Byte source & progress
// -----------------------------------------------------------------------------

// Source is the minimal random-access contract a hive/log byte provider must
// satisfy. *os.File, an mmap'd region, and bytes.Reader all implement it.
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
	Size() int64
}

// ProgressFunc receives a monotonically increasing byte position as a linear
// scan progresses. A nil ProgressFunc is always safe to call through
// NoProgress.
type ProgressFunc func(pos uint64)

// NoProgress is a no-op ProgressFunc.
func NoProgress(uint64) {}

// -----------------------------------------------------------------------------
// Read-Only API (high-performance navigation & decoding)
// -----------------------------------------------------------------------------

// Reader is a high-level, read-only view over a registry hive.
type Reader interface {
	// Close releases resources (e.g., unmaps the file). After Close, any
	// previously returned zero-copy slices are invalid.
	Close() error

	// Info returns hive header metadata (version, timestamps, etc).
	Info() HiveInfo

	// Root returns the root key node ID.
	Root() (NodeID, error)

	// StatKey returns cheap NK metadata (no deep decoding).
	StatKey(NodeID) (KeyMeta, error)

	// DetailKey returns full NK record metadata for inspection.
	DetailKey(NodeID) (KeyDetail, error)

	// Subkeys lists direct child keys; for very large fan-outs, prefer Scanner.
	Subkeys(NodeID) ([]NodeID, error)

	// Lookup finds a direct child key by name (case-insensitive).
	// Returns ErrNotFound if the child doesn't exist.
	Lookup(parent NodeID, childName string) (NodeID, error)

	// Values lists value handles for a key.
	Values(NodeID) ([]ValueID, error)

	// StatValue returns cheap VK metadata (no data decode).
	StatValue(ValueID) (ValueMeta, error)

	// ValueBytes returns raw value bytes, reassembling big-data (db) chains
	// when needed. If ZeroCopy is enabled and safe—and CopyData is false—the
	// returned slice aliases the backing buffer.
	ValueBytes(ValueID, ReadOptions) ([]byte, error)

	// Decoders with type checks:
	ValueString(ValueID, ReadOptions) (string, error)   // REG_SZ / REG_EXPAND_SZ
	ValueStrings(ValueID, ReadOptions) ([]string, error) // REG_MULTI_SZ
	ValueDWORD(ValueID) (uint32, error)                  // REG_DWORD (handles LE/BE)
	ValueQWORD(ValueID) (uint64, error)                  // REG_QWORD

	// Find resolves a backslash-separated path from the root.
	Find(path string) (NodeID, error)

	// Walk performs pre-order traversal starting at n. A non-nil error from
	// fn aborts the traversal.
	Walk(n NodeID, fn func(NodeID) error) error

	// Parent returns the parent node of the given node.
	// Returns ErrNotFound if the node is the root (which has no parent).
	Parent(NodeID) (NodeID, error)

	// Diagnose performs exhaustive validation of the entire hive structure,
	// collecting all issues found (not just the first error).
	Diagnose() (*DiagnosticReport, error)

	// GetDiagnostics returns diagnostics passively collected during normal
	// operations (only if OpenOptions.CollectDiagnostics was true).
	GetDiagnostics() *DiagnosticReport

	// Hivex-compatible convenience accessors, named after their libhivex/
	// hivexsh counterparts so cross-validation tooling can address either
	// implementation uniformly.
	KeyName(NodeID) (string, error)
	KeySubkeyCount(NodeID) (int, error)
	KeyValueCount(NodeID) (int, error)
	KeyTimestamp(NodeID) (time.Time, error)
	GetChild(parent NodeID, name string) (NodeID, error)
	GetValue(parent NodeID, name string) (ValueID, error)
	ValueName(ValueID) (string, error)
	ValueType(ValueID) (RegType, error)
}

// -----------------------------------------------------------------------------
// Allocation-Light Iteration (for huge fan-out trees)
// -----------------------------------------------------------------------------

// NodeIter scans subkeys without allocating large slices.
type NodeIter interface {
	Next() bool
	Err() error
	Node() NodeID
}

// ValueIter scans values on demand.
type ValueIter interface {
	Next() bool
	Err() error
	Value() ValueID
}

// Scanner constructs iterators; implementations may reuse pooled instances.
type Scanner interface {
	ScanSubkeys(NodeID) (NodeIter, error)
	ScanValues(NodeID) (ValueIter, error)
}

// -----------------------------------------------------------------------------
// Transaction-log application
// -----------------------------------------------------------------------------

// LogApplier applies transaction/redo logs to a base hive image to produce a
// normalized view reflecting unflushed writes. Common in DFIR workflows where
// the primary hive file was collected without its sibling .LOG1/.LOG2 being
// flushed first.
type LogApplier interface {
	// Apply returns a new image representing base with logs replayed on top,
	// in ascending primary-sequence-number order. Zero, one, or two logs may
	// be supplied.
	Apply(base []byte, logs ...[]byte) ([]byte, error)
}
