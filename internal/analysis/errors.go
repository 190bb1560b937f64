package analysis

import (
	"errors"
	"fmt"
)

// ErrNoData is wrapped by every ComputationError caused by an empty input.
var ErrNoData = errors.New("no data")

type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

func noData(op string) error {
	return &ComputationError{Op: op, Err: ErrNoData}
}

type RangeError struct {
	Start int
	End   int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range [%d, %d) for %d samples", e.Start, e.End, e.Count)
}
