package usage

import (
	"errors"
	"fmt"
)

// Conversion errors.
var (
	// ErrConfigRequired is returned when Convert is called without a ConvertConfig.
	// There is no implicit default pipeline.
	ErrConfigRequired = errors.New("convert config required")

	// ErrNotAscending is returned when sample timestamps are not strictly ascending.
	ErrNotAscending = errors.New("sample timestamps must be strictly ascending")

	// ErrInvalidTimestamp is returned for NaN or infinite timestamps.
	ErrInvalidTimestamp = errors.New("invalid sample timestamp")
)

// ParamError reports an invalid or missing parameter.
type ParamError struct {
	Param   string
	Message string
	Err     error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Message)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}
