package timetable

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSlotOutOfRange   = errors.New("lesson slot out of range")
	ErrNoSemesters      = errors.New("no semesters returned")
	ErrNoStartDate      = errors.New("semester has no start date")
	ErrTicketNotFound   = errors.New("login redirect without ticket or action")
	ErrInvalidWeekCount = errors.New("week count must be positive")
	ErrRemote           = errors.New("remote reported failure")
)

// SchemaError means a payload did not have the shape the parser relies on.
type SchemaError struct {
	Source string
	Field  string
	Err    error
}

func NewSchemaError(source, field string, err error) error {
	return &SchemaError{Source: source, Field: field, Err: err}
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: malformed payload: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: malformed field %q: %v", e.Source, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsSchemaError reports whether err was caused by a malformed payload.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
