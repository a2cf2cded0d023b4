package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NumericalInstabilityError reports NaN, Inf or out-of-range values in a
// computed result, such as class probabilities returned by a classifier.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Row       int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("pumpprep: numerical instability detected in %s at row %d. Values: [%s]",
		e.Operation, e.Row, valStr)
}

func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Int("row", e.Row).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, row int) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values, Row: row})
}

// CheckProbabilities verifies that every value in the first column of m is
// a finite number in [0, 1].
func CheckProbabilities(operation string, m interface {
	At(int, int) float64
	Dims() (int, int)
}) error {
	rows, cols := m.Dims()
	if cols == 0 {
		return nil
	}
	for i := 0; i < rows; i++ {
		v := m.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return NewNumericalInstabilityError(operation, []float64{v}, i)
		}
	}
	return nil
}

// SafeDivide returns 0 when the denominator is zero or close to zero.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}

// ClipValue clips a value to the range [lo, hi].
func ClipValue(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
