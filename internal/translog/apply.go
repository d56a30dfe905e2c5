package translog

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/internal/overlay"
	"github.com/dfirkit/nthive/pkg/types"
)

// Applier implements types.LogApplier: it accepts a primary hive's raw
// bytes (base block followed by hive-bins data) and zero, one, or two
// transaction logs, and returns the byte-exact clean hive image spec §6
// calls for.
type Applier struct{}

// NewApplier constructs a translog.Applier. It carries no state; a single
// value may be reused across calls.
func NewApplier() *Applier { return &Applier{} }

var _ types.LogApplier = (*Applier)(nil)

// Apply implements spec §4.6. Logs that fail to parse (including a log
// whose own base block fails checksum verification) are rejected entirely
// and contribute nothing; they are not treated as a fatal error for the
// primary hive, matching the log-corruption recovery model in §7.
func (a *Applier) Apply(base []byte, logs ...[]byte) ([]byte, error) {
	if len(base) < format.HeaderSize {
		return nil, fmt.Errorf("translog: %w (base hive shorter than header)", format.ErrTruncated)
	}
	header, err := format.ParseHeader(base[:format.HeaderSize])
	if err != nil {
		return nil, fmt.Errorf("translog: parse base header: %w", err)
	}

	parsed := make([]*LogFile, 0, len(logs))
	for _, l := range logs {
		lf, err := ParseLogFile(l)
		if err != nil {
			continue
		}
		parsed = append(parsed, lf)
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].BaseBlock.PrimarySequence < parsed[j].BaseBlock.PrimarySequence
	})

	src := overlay.BytesSource(base)
	ov := overlay.New(src)

	sequence := header.PrimarySequence
	applied := false
	for _, lf := range parsed {
		for _, entry := range lf.Entries {
			if entry.Sequence != sequence+1 {
				break
			}
			for i, ref := range entry.Refs {
				pos := int64(format.HiveDataBase) + int64(ref.Offset)
				ov.AddBytesAt(pos, entry.Pages[i])
			}
			sequence = entry.Sequence
			applied = true
		}
	}

	out := make([]byte, len(base))
	n, err := ov.ReadAt(out, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("translog: materialize overlay: %w", err)
	}
	if n != len(out) {
		return nil, fmt.Errorf("translog: materialize overlay: short read (%d of %d bytes): %w", n, len(out), types.ErrCorrupt)
	}

	if applied {
		if err := format.SetSequenceNumber(out[:format.HeaderSize], sequence); err != nil {
			return nil, fmt.Errorf("translog: %w", err)
		}
	}
	return out, nil
}
