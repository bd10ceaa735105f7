package services

import "errors"

// Errors returned by NoteService. Match them with errors.Is; wrapped causes
// are for logs only and must not reach clients.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidField      = errors.New("invalid field")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrNotFound          = errors.New("note not found")
	ErrExpired           = errors.New("note expired")
	ErrCorruptedRecord   = errors.New("corrupted record")
	ErrStorageFailure    = errors.New("storage failure")
)

// Field names reported by FieldError
const (
	FieldIV         = "iv"
	FieldCiphertext = "ciphertext"
)

// FieldError names the create field that failed its shape check
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return "invalid field: " + e.Field
}

// Is makes errors.Is(err, ErrInvalidField) match any FieldError
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidField
}
