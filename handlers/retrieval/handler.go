package retrieval

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/johnwmail/cryptnote/handlers"
	"github.com/johnwmail/cryptnote/internal/services"
)

// Handler handles note retrieval
type Handler struct {
	service *services.NoteService
}

// NewHandler creates a new retrieval handler
func NewHandler(service *services.NoteService) *Handler {
	return &Handler{service: service}
}

// Get handles GET /api/v1/notes/:id
func (h *Handler) Get(c *gin.Context) {
	h.fetch(c, c.Param("id"))
}

// GetCompat handles GET /get.php?id=
func (h *Handler) GetCompat(c *gin.Context) {
	h.fetch(c, c.Query("id"))
}

func (h *Handler) fetch(c *gin.Context, id string) {
	note, err := h.service.Fetch(c.Request.Context(), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"iv":         note.IV,
		"ciphertext": note.Ciphertext,
	})
}
