package format

import "fmt"

// LogBaseBlock is the 4096-byte header of a transaction log file. It shares
// its on-disk layout with the primary hive's base block (see Header); the
// only semantic difference is the Type field, which must identify one of the
// log variants instead of a primary hive.
type LogBaseBlock struct {
	Header
}

// ParseLogBaseBlock validates and extracts a transaction-log base block.
// It rejects base blocks whose Type field does not identify a log variant,
// so a primary hive file cannot accidentally be ingested as a log.
func ParseLogBaseBlock(b []byte) (LogBaseBlock, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return LogBaseBlock{}, fmt.Errorf("log base block: %w", err)
	}
	if !IsLogFileType(h.Type) {
		return LogBaseBlock{}, fmt.Errorf("log base block: %w (file_type %d is not a log variant)", ErrUnsupported, h.Type)
	}
	return LogBaseBlock{Header: h}, nil
}
