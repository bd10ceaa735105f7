package upload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/johnwmail/cryptnote/config"
	"github.com/johnwmail/cryptnote/handlers"
	"github.com/johnwmail/cryptnote/internal/services"
)

// Handler handles note creation
type Handler struct {
	service *services.NoteService
	config  *config.Config
}

// NewHandler creates a new upload handler
func NewHandler(service *services.NoteService, config *config.Config) *Handler {
	return &Handler{
		service: service,
		config:  config,
	}
}

// createBody is the wire form of a create request. Pointers tell absent
// fields apart from zero values.
type createBody struct {
	IV         *string `json:"iv"`
	Ciphertext *string `json:"ciphertext"`
	Expire     *int64  `json:"expire"`
	CreatedAt  *int64  `json:"createdAt"`
}

// parseCreateRequest decodes a single strict JSON object from the body.
// Unknown fields are rejected so a decryption key sent by mistake is never
// stored.
func (h *Handler) parseCreateRequest(c *gin.Context) (services.CreateNoteRequest, error) {
	var req services.CreateNoteRequest

	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.config.BufferSize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var in createBody
	if err := dec.Decode(&in); err != nil {
		return req, decodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return req, decodeError(err)
		}
		return req, fmt.Errorf("%w: trailing data after JSON object", services.ErrInvalidRequest)
	}
	if in.IV == nil && in.Ciphertext == nil {
		return req, fmt.Errorf("%w: neither iv nor ciphertext present", services.ErrInvalidRequest)
	}

	if in.IV != nil {
		req.IV = *in.IV
	}
	if in.Ciphertext != nil {
		req.Ciphertext = *in.Ciphertext
	}
	if in.Expire != nil {
		req.Expire = *in.Expire
	}
	req.CreatedAt = in.CreatedAt
	return req, nil
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: body exceeds %d bytes", services.ErrPayloadTooLarge, maxErr.Limit)
	}
	return fmt.Errorf("%w: %w", services.ErrInvalidRequest, err)
}

// Create handles POST /api/v1/notes
func (h *Handler) Create(c *gin.Context) {
	h.create(c, http.StatusCreated)
}

// Save handles POST /save.php, which answered 200 on success
func (h *Handler) Save(c *gin.Context) {
	h.create(c, http.StatusOK)
}

func (h *Handler) create(c *gin.Context, status int) {
	req, err := h.parseCreateRequest(c)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(status, gin.H{"ok": true, "id": id})
}
