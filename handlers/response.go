package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/johnwmail/cryptnote/internal/services"
)

// StatusForError maps a service error to the HTTP status and the message
// shown to clients. Unknown errors become a generic storage failure so no
// internal detail leaks.
func StatusForError(err error) (int, string) {
	var fe *services.FieldError
	switch {
	case errors.As(err, &fe):
		if fe.Field == services.FieldIV {
			return http.StatusUnprocessableEntity, "Invalid IV"
		}
		return http.StatusUnprocessableEntity, "Invalid ciphertext"
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid JSON"
	case errors.Is(err, services.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, "Payload too large"
	case errors.Is(err, services.ErrInvalidIdentifier):
		return http.StatusUnprocessableEntity, "Invalid ID"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrExpired):
		return http.StatusGone, "Expired"
	case errors.Is(err, services.ErrCorruptedRecord):
		return http.StatusInternalServerError, "Corrupted data"
	default:
		return http.StatusInternalServerError, "Storage failure"
	}
}

// RespondError writes {ok:false,error} for err
func RespondError(c *gin.Context, err error) {
	status, msg := StatusForError(err)
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

// NoStore marks every response as uncacheable; note bodies must not linger
// in shared caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
