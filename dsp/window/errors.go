package window

import (
	"errors"
	"fmt"
)

// Errors returned by window functions.
var (
	ErrInvalidSize      = errors.New("window: size must be positive")
	ErrLengthMismatch   = errors.New("window: samples and coefficients differ in length")
	errEmptyCoefficient = fmt.Errorf("%w: no coefficients", ErrInvalidSize)
)

func validateLength(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return nil
}
