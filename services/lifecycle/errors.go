package lifecycle

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrUnknownAccount   = errors.New("unknown account")
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
	ErrInvalidPassword  = errors.New("current password is incorrect")
	ErrAccountCreation  = errors.New("account could not be created")
)

// ValidationError carries every failed input field keyed by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return internal.InternalError()
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}
	return &ValidationError{Fields: fields}
}
