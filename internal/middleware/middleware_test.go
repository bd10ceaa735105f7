package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newRouter(logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Logging(logger))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	router.GET("/gone", func(c *gin.Context) { c.Status(http.StatusGone) })
	return router
}

func TestRequestID_Generated(t *testing.T) {
	router := newRouter(zerolog.Nop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	id := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected generated UUID, got %q: %v", id, err)
	}
	if w.Body.String() != id {
		t.Errorf("handler saw %q, header has %q", w.Body.String(), id)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	router := newRouter(zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "trace-123" {
		t.Errorf("expected client id to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); len(got) > maxRequestIDLen {
		t.Errorf("oversized client id should be replaced, got %d chars", len(got))
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	router := newRouter(zerolog.New(&buf))

	req := httptest.NewRequest(http.MethodGet, "/gone", nil)
	req.Header.Set(RequestIDHeader, "abc")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["message"] != "client error" {
		t.Errorf("unexpected level/message: %v", entry)
	}
	if entry["status"] != float64(http.StatusGone) || entry["path"] != "/gone" || entry["request_id"] != "abc" {
		t.Errorf("unexpected fields: %v", entry)
	}
}
