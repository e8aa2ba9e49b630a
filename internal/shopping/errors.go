package shopping

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a reconciliation-cycle failure for logging. Every
// failure, whatever its type, surfaces to the screen as the same single
// error message.
type ErrorType int

const (
	ErrorTypeCancelled ErrorType = iota
	ErrorTypeAuth
	ErrorTypeNetwork
	ErrorTypeUnknown
)

// ServiceError wraps a cycle failure with its classification.
type ServiceError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// classifyError buckets an error by its cause.
func classifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var serviceError *ServiceError
	if errors.As(err, &serviceError) {
		return serviceError.Type
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeCancelled
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "auth") || strings.Contains(message, "token"):
		return ErrorTypeAuth
	case strings.Contains(message, "connection") || strings.Contains(message, "network") || strings.Contains(message, "timeout"):
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}
