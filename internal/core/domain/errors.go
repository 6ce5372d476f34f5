package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is returned for any login or token failure. It
	// never says whether the username, password or token was at fault.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated means no credentials were presented at all.
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("access forbidden")
	ErrTaskNotFound    = errors.New("task not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrGroupNotFound   = errors.New("group not found")
	ErrValidation      = errors.New("validation failed")
	// ErrCreateInProgress means another request holding the same
	// Idempotency-Key has not finished creating its task yet.
	ErrCreateInProgress = errors.New("a request with this idempotency key is still in progress")
)

// ValidationError carries per-field messages for malformed input.
// errors.Is(err, ErrValidation) holds for every ValidationError.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add appends msg to the messages recorded for field.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], msg)
}

// Empty reports whether no field messages were recorded.
func (v *ValidationError) Empty() bool { return v == nil || len(v.Fields) == 0 }

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Is(target error) bool { return target == ErrValidation }
