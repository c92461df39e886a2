package splatforge

import (
	"errors"
	"fmt"

	"github.com/splatforge/splatforge/table"
)

var (
	// ErrInvalidArgument covers bad action tokens: malformed vectors,
	// unknown comparators, unsupported band counts.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutputExists is returned when the output path exists and
	// overwriting was not requested.
	ErrOutputExists = errors.New("output file already exists")
	// ErrResourceUnavailable is returned when GPU clustering is requested
	// but no device is available.
	ErrResourceUnavailable = errors.New("resource unavailable")
)

// ErrUnsupportedFormat indicates a path whose suffix maps to no codec.
type ErrUnsupportedFormat struct {
	Path string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.Path)
}

// ErrMalformedInput wraps a codec decode failure with its source path.
//
// The underlying codec error can be accessed via errors.Unwrap.
type ErrMalformedInput struct {
	Path  string
	cause error
}

func (e *ErrMalformedInput) Error() string {
	return fmt.Sprintf("malformed input %q: %v", e.Path, e.cause)
}

func (e *ErrMalformedInput) Unwrap() error { return e.cause }

// ErrMissingRequiredColumns indicates a table that is not a Gaussian set.
//
// The underlying table error can be accessed via errors.Unwrap.
type ErrMissingRequiredColumns struct {
	Path  string
	cause error
}

func (e *ErrMissingRequiredColumns) Error() string {
	return fmt.Sprintf("%q is not a gaussian splat file: %v", e.Path, e.cause)
}

func (e *ErrMissingRequiredColumns) Unwrap() error { return e.cause }

// translateError normalizes subpackage errors into the pipeline taxonomy.
func translateError(path string, err error) error {
	if err == nil {
		return nil
	}
	var missing *table.ErrMissingColumns
	if errors.As(err, &missing) {
		return &ErrMissingRequiredColumns{Path: path, cause: err}
	}
	var rest *table.ErrBadRestCount
	if errors.As(err, &rest) {
		return &ErrMissingRequiredColumns{Path: path, cause: err}
	}
	return err
}
