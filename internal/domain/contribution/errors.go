package contribution

import (
	"errors"
	"fmt"
)

var (
	ErrCityNotFound = errors.New("city standard not found")
	ErrNoSalaryData = errors.New("no salary data")
	ErrInvalidRule  = errors.New("invalid city rule")
)

// ComputationError wraps any fault that is neither a missing city nor missing
// salary data. Callers log it and report a generic failure.
type ComputationError struct {
	Op  string
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("contribution %s: %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

func computationError(op string, err error) error {
	return &ComputationError{Op: op, Err: err}
}
