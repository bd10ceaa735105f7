package noteid

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// RandomBytes is the amount of entropy in every identifier.
const RandomBytes = 8

// Length is the encoded length of a generated identifier.
var Length = base64.RawURLEncoding.EncodedLen(RandomBytes)

// Generator produces URL-safe identifiers that double as storage keys and
// public retrieval tokens.
type Generator struct {
	source io.Reader
}

// New creates a generator backed by crypto/rand
func New() *Generator {
	return &Generator{source: rand.Reader}
}

// NewWithSource creates a generator reading from src. Intended for tests.
func NewWithSource(src io.Reader) *Generator {
	if src == nil {
		src = rand.Reader
	}
	return &Generator{source: src}
}

// Generate draws RandomBytes bytes and encodes them as unpadded base64url
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, RandomBytes)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateWithCollisionCheck generates ids until exists reports a free one
// or maxAttempts is reached. exists is advisory; callers must still commit
// with create-only semantics.
func (g *Generator) GenerateWithCollisionCheck(maxAttempts int, exists func(string) (bool, error)) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		id, err := g.Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free identifier after %d attempts", maxAttempts)
}
