package apperr

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is by callers and the HTTP layer.
var (
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("permission denied")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidState = errors.New("invalid state")
)

// Error carries enough context for a caller to react to a rejected request.
type Error struct {
	Kind    error
	Message string
	Field   string
	Entity  string
	ID      int64
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Unwrap lets errors.Is match the sentinel kind.
func (e *Error) Unwrap() error { return e.Kind }

// Validation reports a missing or invalid field.
func Validation(field, msg string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: msg}
}

// Missing is the common "required field" validation failure.
func Missing(fields ...string) error {
	if len(fields) == 1 {
		return &Error{Kind: ErrValidation, Field: fields[0], Message: fmt.Sprintf("required field missing: %s", fields[0])}
	}
	msg := "required fields missing:"
	for i, f := range fields {
		if i > 0 {
			msg += ","
		}
		msg += " " + f
	}
	return &Error{Kind: ErrValidation, Field: fields[0], Message: msg}
}

// Forbidden reports that the actor's role does not allow action.
func Forbidden(action string) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf("not allowed to %s", action)}
}

// NotFound reports an absent entity. id may be zero when unknown.
func NotFound(entity string, id int64) error {
	msg := entity + " not found"
	if id != 0 {
		msg = fmt.Sprintf("%s %d not found", entity, id)
	}
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id, Message: msg}
}

// NotFoundMsg is NotFound with a caller-facing message.
func NotFoundMsg(entity string, id int64, msg string) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id, Message: msg}
}

// InvalidState reports a violated state-machine precondition.
func InvalidState(msg string) error {
	return &Error{Kind: ErrInvalidState, Message: msg}
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
