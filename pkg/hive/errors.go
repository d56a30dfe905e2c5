package hive

import (
	"errors"
	"fmt"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
)

// wrapFormatErr translates an internal/format sentinel error into the
// pkg/types error taxonomy callers branch on, tagging it with the
// structure name that was being decoded when it failed.
func wrapFormatErr(structure string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, format.ErrSignatureMismatch):
		return &types.Error{Kind: types.ErrKindFormat, Msg: structure + ": signature mismatch", Err: err}
	case errors.Is(err, format.ErrNotFound):
		return &types.Error{Kind: types.ErrKindNotFound, Msg: structure + ": not found", Err: err}
	case errors.Is(err, format.ErrUnsupported):
		return &types.Error{Kind: types.ErrKindUnsupported, Msg: structure + ": unsupported feature", Err: err}
	case errors.Is(err, format.ErrTruncated),
		errors.Is(err, format.ErrBoundsCheck),
		errors.Is(err, format.ErrFreeCell),
		errors.Is(err, format.ErrSanityLimit),
		errors.Is(err, format.ErrIntegerOverflow),
		errors.Is(err, format.ErrInvalidSizeField):
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: structure + ": corrupt structure", Err: err}
	case errors.Is(err, format.ErrUnsupportedFileFormat):
		return &types.Error{Kind: types.ErrKindFormat, Msg: structure + ": unsupported file format", Err: err}
	default:
		return &types.Error{Kind: types.ErrKindCorrupt, Msg: structure, Err: err}
	}
}

func wrapIOErr(err error) error {
	if err == nil {
		return nil
	}
	return &types.Error{Kind: types.ErrKindIO, Msg: "hive source I/O failure", Err: err}
}

func errCorruptf(msg string, args ...interface{}) error {
	return &types.Error{Kind: types.ErrKindCorrupt, Msg: fmt.Sprintf(msg, args...)}
}

func errTypef(msg string, args ...interface{}) error {
	return &types.Error{Kind: types.ErrKindType, Msg: fmt.Sprintf(msg, args...)}
}

func errStatef(msg string, args ...interface{}) error {
	return &types.Error{Kind: types.ErrKindState, Msg: fmt.Sprintf(msg, args...)}
}
