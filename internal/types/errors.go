package types

import (
	"errors"
	"fmt"
)

// Code identifies an error class surfaced to callers.
type Code string

const (
	CodeNotFound    Code = "NOT_FOUND"
	CodeAIService   Code = "AI_SERVICE_ERROR"
	CodeRateLimited Code = "RATE_LIMITED"
)

// User-visible error messages. These strings are part of the wire contract.
const (
	MsgRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	MsgAIServiceError    = "AI_SERVICE_ERROR"
	MsgTagMustBeUnique   = "TAG_MUST_BE_UNIQUE"
)

// ErrNotFound reports a missing Problem or Cell.
type ErrNotFound struct {
	Entity string
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ErrRateLimited is returned when the rate-limit gate refuses a caller.
var ErrRateLimited = errors.New(MsgRateLimitExceeded)

// ErrDuplicateTag is returned when a problem lists the same tag twice.
var ErrDuplicateTag = errors.New(MsgTagMustBeUnique)

// ErrDuplicateCell reports an attempt to create a second cell at an occupied coordinate.
type ErrDuplicateCell struct {
	ProblemID string
	Row       int
	Column    int
}

func (e ErrDuplicateCell) Error() string {
	return fmt.Sprintf("cell %s%d already exists for problem %s", ColumnLabel(e.Column), e.Row, e.ProblemID)
}
