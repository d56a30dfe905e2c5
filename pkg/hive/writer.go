package hive

import (
	"time"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
)

const (
	filetimeEpochDiff = 116444736000000000
	filetimeUnit      = 100
)

func timeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/filetimeUnit) + filetimeEpochDiff
}

// WriteBaseBlock serializes info into a fresh, checksummed 4096-byte REGF
// base block. It's the DFIR-repair counterpart to Open: when a primary
// hive's own base block is missing or too damaged to trust, a caller can
// reconstruct one from metadata recovered elsewhere (a RecoverTree pass,
// a sibling hive, or an examiner's own notes) and splice it back onto the
// hive-bins data.
func WriteBaseBlock(info types.HiveInfo) []byte {
	return format.WriteHeader(format.Header{
		PrimarySequence:   info.PrimarySequence,
		SecondarySequence: info.SecondarySequence,
		LastWriteRaw:      timeToFiletime(info.LastWrite),
		MajorVersion:      info.MajorVersion,
		MinorVersion:      info.MinorVersion,
		Type:              info.Type,
		RootCellOffset:    info.RootCellOffset,
		HiveBinsDataSize:  info.HiveBinsDataSize,
		ClusteringFactor:  info.ClusteringFactor,
	})
}
