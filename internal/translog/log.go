// Package translog implements transaction-log parsing, Marvin32
// authentication, and the two-log sequence-ordered apply step that
// synthesizes a clean hive view from a primary hive plus its companion
// .LOG1/.LOG2 files.
package translog

import (
	"fmt"

	"github.com/dfirkit/nthive/internal/format"
)

// LogFile is a parsed transaction log: its base block and every entry that
// passed Marvin32 authentication, in file order. Authentication failures
// truncate the entry stream (see ParseLogFile); they do not fail the parse.
type LogFile struct {
	BaseBlock format.LogBaseBlock
	Entries   []format.LogEntry
}

// ParseLogFile parses a transaction log file's bytes. The log base block's
// own checksum is verified and, if it fails, the log is rejected entirely
// (spec: "a log whose base block fails checksum is rejected entirely") —
// ParseLogFile returns an error in that case rather than a partial LogFile.
//
// After the base block, entries are read starting at offset 512 until a
// signature mismatch (end of the log), a framing error, or an
// authentication failure. A framing error or missing signature simply ends
// the stream (the remainder of the file is presumed to be unwritten/zeroed
// tail); an authentication failure additionally discards the failing entry
// and everything after it, per spec §4.5 point 2.
func ParseLogFile(data []byte) (*LogFile, error) {
	if len(data) < format.HeaderSize {
		return nil, fmt.Errorf("translog: %w (log file shorter than base block)", format.ErrTruncated)
	}
	if err := format.VerifyChecksum(data[:format.HeaderSize]); err != nil {
		return nil, fmt.Errorf("translog: log base block checksum: %w", err)
	}
	base, err := format.ParseLogBaseBlock(data[:format.HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("translog: %w", err)
	}

	var entries []format.LogEntry
	pos := format.LogEntryStartOffset
	for pos+format.LogEntryHeaderSize <= len(data) {
		entry, err := format.DecodeLogEntry(data[pos:])
		if err != nil {
			// End of the entry stream: either a clean signature mismatch
			// (padding/zeroed tail) or a framing error on a partial entry.
			// Either way, nothing further in this log can be trusted.
			break
		}
		if !authenticate(entry) {
			break
		}
		entries = append(entries, entry)
		pos += int(entry.Size)
	}

	return &LogFile{BaseBlock: base, Entries: entries}, nil
}
