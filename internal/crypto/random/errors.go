package random

import (
	"errors"
	"fmt"
)

// ErrRange is matched by every *RangeError.
var ErrRange = errors.New("value out of range")

// RangeError reports an offset or size outside the target buffer.
type RangeError struct {
	Name  string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("The value of %q is out of range. It must be >= %d && <= %d. Received %d", e.Name, e.Min, e.Max, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrRange }
