package models

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/johnwmail/cryptnote/utils"
)

// Note represents one persisted encrypted note. The server never sees the
// key that decrypts Ciphertext.
type Note struct {
	ID         string `json:"id"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	CreatedAt  int64  `json:"createdAt"` // Unix seconds
	Expire     int64  `json:"expire"`    // seconds after CreatedAt; 0 = never
}

// deadline returns CreatedAt+Expire in Unix seconds, saturated at
// math.MaxInt64 when the sum does not fit.
func (n *Note) deadline() int64 {
	if n.CreatedAt > math.MaxInt64-n.Expire {
		return math.MaxInt64
	}
	return n.CreatedAt + n.Expire
}

// ExpiresAt returns the instant after which the note is no longer readable.
// The boolean is false for notes that never expire, including those whose
// deadline lies beyond any representable time.
func (n *Note) ExpiresAt() (time.Time, bool) {
	if n.Expire <= 0 {
		return time.Time{}, false
	}
	d := n.deadline()
	if d == math.MaxInt64 {
		return time.Time{}, false
	}
	return time.Unix(d, 0), true
}

// IsExpired reports whether the note is expired at now. A note is still
// readable at exactly CreatedAt+Expire.
func (n *Note) IsExpired(now time.Time) bool {
	if n.Expire <= 0 {
		return false
	}
	return now.Unix() > n.deadline()
}

// Complete reports whether every field of a persisted note is present and
// well-formed. Anything else read back from storage is treated as corrupt.
func (n *Note) Complete() bool {
	return utils.IsValidNoteID(n.ID) &&
		utils.IsValidIV(n.IV) &&
		utils.IsValidCiphertext(n.Ciphertext) &&
		n.Expire >= 0
}

// ErrIncompleteNote is returned by DecodeNote for records with missing or
// malformed fields.
var ErrIncompleteNote = errors.New("incomplete note record")

// persistedNote mirrors Note with pointers so absent fields can be told
// apart from zero values.
type persistedNote struct {
	ID         *string `json:"id"`
	IV         *string `json:"iv"`
	Ciphertext *string `json:"ciphertext"`
	CreatedAt  *int64  `json:"createdAt"`
	Expire     *int64  `json:"expire"`
}

// Encode returns the persisted JSON form of the note.
func (n *Note) Encode() ([]byte, error) {
	return json.Marshal(n)
}

// DecodeNote parses a persisted record. Every field must be present.
func DecodeNote(data []byte) (*Note, error) {
	var p persistedNote
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == nil || p.IV == nil || p.Ciphertext == nil || p.CreatedAt == nil || p.Expire == nil {
		return nil, ErrIncompleteNote
	}
	n := &Note{
		ID:         *p.ID,
		IV:         *p.IV,
		Ciphertext: *p.Ciphertext,
		CreatedAt:  *p.CreatedAt,
		Expire:     *p.Expire,
	}
	if !n.Complete() {
		return nil, ErrIncompleteNote
	}
	return n, nil
}
