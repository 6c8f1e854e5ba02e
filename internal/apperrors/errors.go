package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUserNotFound      = errors.New("user not found")
	ErrTransactionFailed = errors.New("point transaction was not completed")
)

// ValidationError describes rejected domain input.
// Message names the violated bound and the values involved, it is shown to the caller as is.
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap makes errors.Is(err, ErrValidation) work for every ValidationError
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
