package hive

import "github.com/dfirkit/nthive/internal/translog"

// ApplyLogs replays zero, one, or two transaction logs onto base in
// ascending primary-sequence order and returns the resulting image, ready
// to pass to OpenBytes. It is the typical first step in a DFIR workflow
// where a hive was collected without first flushing its sibling
// .LOG1/.LOG2 files.
func ApplyLogs(base []byte, logs ...[]byte) ([]byte, error) {
	return translog.NewApplier().Apply(base, logs...)
}
