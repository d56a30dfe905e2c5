package hivexval

import (
	"errors"
	"fmt"
	"os"

	"github.com/dfirkit/nthive/pkg/hive"
	"github.com/dfirkit/nthive/pkg/types"
)

// Validator wraps a hive.Reader and, optionally, the hivexsh command-line
// tool, so tests can assert on tree shape and cross-check structural
// validity against an independent implementation.
type Validator struct {
	path   string
	reader types.Reader
	opts   *Options
	data   []byte // set when opened from bytes, for hivexsh temp-file fallback
}

// New opens a validator for a hive file.
//
// If opts is nil, DefaultOptions() is used.
func New(path string, opts *Options) (*Validator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("hive file not found: %w", err)
	}

	r, err := hive.Open(path, types.OpenOptions{})
	if err != nil {
		return nil, fmt.Errorf("open hive: %w", err)
	}

	return &Validator{path: path, reader: r, opts: opts}, nil
}

// NewBytes opens a validator from an in-memory hive image.
//
// If opts is nil, DefaultOptions() is used. hivexsh validation, if
// requested, writes the bytes to a temporary file on demand.
func NewBytes(data []byte, opts *Options) (*Validator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if len(data) == 0 {
		return nil, errors.New("empty data buffer")
	}

	r, err := hive.OpenBytes(data, types.OpenOptions{})
	if err != nil {
		return nil, fmt.Errorf("open hive bytes: %w", err)
	}

	return &Validator{reader: r, opts: opts, data: data}, nil
}

// Must panics on error (for tests where failure is fatal).
func Must(v *Validator, err error) *Validator {
	if err != nil {
		panic(err)
	}
	return v
}

// Close releases the underlying reader and any temp file created for
// hivexsh validation.
func (v *Validator) Close() error {
	var err error
	if v.reader != nil {
		err = v.reader.Close()
		v.reader = nil
	}
	if v.data != nil && v.path != "" {
		if rmErr := os.Remove(v.path); rmErr != nil && !os.IsNotExist(rmErr) {
			if err == nil {
				err = rmErr
			}
		}
	}
	return err
}

// ensurePath ensures we have a file path for hivexsh, writing a temp file
// from the in-memory buffer if the validator was opened with NewBytes.
func (v *Validator) ensurePath() (string, error) {
	if v.path != "" {
		return v.path, nil
	}
	if v.data == nil {
		return "", errors.New("no path or data available")
	}

	tmpFile, err := os.CreateTemp("", "hivexval-*.hive")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(v.data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmpFile.Close()

	v.path = tmpPath
	return tmpPath, nil
}

// Validate performs comprehensive validation: structure, key/value counts,
// and (if enabled) cross-check against hivexsh.
func (v *Validator) Validate() (*ValidationResult, error) {
	result := &ValidationResult{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if err := v.ValidateStructure(); err != nil {
		result.StructureValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("structure: %v", err))
	} else {
		result.StructureValid = true
	}

	if keyCount, valueCount, err := v.CountTree(); err == nil {
		result.KeyCount = keyCount
		result.ValueCount = valueCount
	} else {
		result.Warnings = append(result.Warnings, fmt.Sprintf("count tree: %v", err))
	}

	if v.opts.UseHivexsh {
		if err := v.ValidateWithHivexsh(); err != nil {
			result.HivexshPassed = false
			result.Errors = append(result.Errors, fmt.Sprintf("hivexsh: %v", err))
		} else {
			result.HivexshPassed = true
		}
	}

	return result, nil
}

// ValidateStructure checks the hive can be opened and its root resolved.
func (v *Validator) ValidateStructure() error {
	_, err := v.Root()
	if err != nil {
		return fmt.Errorf("cannot access root: %w", err)
	}
	return nil
}
