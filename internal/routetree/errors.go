package routetree

import (
	"fmt"

	"github.com/starford/routetree/internal/apperr"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindInvalidField         Kind = "InvalidField"
	KindRootPositionMismatch Kind = "RootPositionMismatch"
	KindRootDurationNonZero  Kind = "RootDurationNonZero"
	KindDuplicateRoot        Kind = "DuplicateRoot"
	KindNonRootCannotBeRoot  Kind = "NonRootCannotBeRoot"
	KindNonPositiveDuration  Kind = "NonPositiveDuration"
	KindDuplicateSibling     Kind = "DuplicateSibling"
	KindDanglingParent       Kind = "DanglingParent"
)

// ValidationError reports why a draft was rejected. It matches
// apperr.ErrValidation under errors.Is.
type ValidationError struct {
	Kind    Kind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return apperr.ErrValidation
}

func invalid(kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(id int64) error {
	return fmt.Errorf("route %d: %w", id, apperr.ErrNotFound)
}
