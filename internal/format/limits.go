package format

// Sanity limits applied while decoding NK/VK records. These guard against
// integer overflow and runaway allocation from a malformed or adversarial
// hive; real hives never come close to them. Values are generous multiples
// of what Windows itself enforces (255 chars for subkey/value names).
const (
	// MaxSubkeyCount bounds NKRecord.SubkeyCount.
	MaxSubkeyCount uint32 = 1 << 24

	// MaxValueCount bounds NKRecord.ValueCount.
	MaxValueCount uint32 = 1 << 24

	// MaxNameLen bounds NK/VK name length in bytes (compressed or UTF-16LE).
	MaxNameLen = 1 << 16

	// MaxClassLen bounds NK class-name length in bytes.
	MaxClassLen = 1 << 16

	// MaxValueDataLen bounds VKRecord's declared (non-inline) data length.
	MaxValueDataLen uint32 = 1 << 28
)
