// Package hivexval provides cross-validation helpers for testing hive
// readers against the authoritative hivexsh command-line tool.
package hivexval

// Options controls validator behavior.
type Options struct {
	// UseHivexsh enables validation with the hivexsh command-line tool.
	// This is the authoritative reference implementation.
	UseHivexsh bool

	// SkipIfHivexshUnavailable skips hivexsh checks instead of failing
	// if hivexsh is not installed on the system running the tests.
	SkipIfHivexshUnavailable bool
}

// DefaultOptions returns recommended default options: exercise this
// module's own reader and skip hivexsh silently if it isn't installed.
func DefaultOptions() *Options {
	return &Options{
		UseHivexsh:               false,
		SkipIfHivexshUnavailable: true,
	}
}

// ValidationResult holds comprehensive validation results.
type ValidationResult struct {
	// StructureValid indicates the hive structure is valid.
	StructureValid bool

	// HivexshPassed indicates hivexsh validation passed (if enabled).
	HivexshPassed bool

	// KeyCount is the total number of keys in the hive.
	KeyCount int

	// ValueCount is the total number of values in the hive.
	ValueCount int

	// Errors contains validation errors.
	Errors []string

	// Warnings contains validation warnings.
	Warnings []string
}

// ComparisonResult holds cross-validation comparison results between two
// validators opened against the same hive (e.g., before/after log
// application, or two independent parses of the same bytes).
type ComparisonResult struct {
	// Match indicates whether both validators agree.
	Match bool

	// Mismatches contains differences found between the validators.
	Mismatches []Mismatch

	// NodesCompared is the number of keys compared.
	NodesCompared int

	// ValuesCompared is the number of values compared.
	ValuesCompared int
}

// Mismatch describes a difference found between two validators.
type Mismatch struct {
	// Category describes the type of mismatch.
	// Examples: "key_count", "value_type", "value_data", "key_name".
	Category string

	// Path is the registry path where the mismatch occurred.
	Path string

	// Message is a human-readable description.
	Message string

	// Expected is the value from the first validator.
	Expected interface{}

	// Actual is the value from the second validator.
	Actual interface{}
}
