package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/johnwmail/cryptnote/config"
	"github.com/johnwmail/cryptnote/internal/metrics"
	"github.com/johnwmail/cryptnote/internal/noteid"
	"github.com/johnwmail/cryptnote/models"
	"github.com/johnwmail/cryptnote/storage"
	"github.com/johnwmail/cryptnote/utils"
)

// NoteService validates, stores and serves encrypted notes. It never
// interprets iv or ciphertext and enforces expiry on every read.
type NoteService struct {
	store   storage.BlobStore
	ids     *noteid.Generator
	now     func() time.Time
	logger  zerolog.Logger
	metrics *metrics.Metrics

	maxCiphertextSize int64
	maxClockSkew      time.Duration
	maxAttempts       int
}

// Option customises a NoteService
type Option func(*NoteService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *NoteService) { s.now = now }
}

// WithLogger replaces the global zerolog logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *NoteService) { s.logger = logger }
}

// WithMetrics records service events on m; nil disables them
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *NoteService) { s.metrics = m }
}

// WithIDGenerator replaces the crypto/rand backed generator
func WithIDGenerator(g *noteid.Generator) Option {
	return func(s *NoteService) { s.ids = g }
}

// NewNoteService creates a new note service
func NewNoteService(store storage.BlobStore, cfg *config.Config, opts ...Option) *NoteService {
	s := &NoteService{
		store:             store,
		ids:               noteid.New(),
		now:               time.Now,
		logger:            log.Logger,
		maxCiphertextSize: cfg.MaxCiphertextSize,
		maxClockSkew:      cfg.MaxClockSkew,
		maxAttempts:       cfg.MaxIDAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts < 1 {
		s.maxAttempts = 1
	}
	return s
}

// CreateNoteRequest is a decoded create request. CreatedAt is nil when the
// client did not send one.
type CreateNoteRequest struct {
	IV         string
	Ciphertext string
	Expire     int64
	CreatedAt  *int64
}

// FetchedNote is what a reader gets back; timestamps stay server-side.
type FetchedNote struct {
	IV         string
	Ciphertext string
}

// Create validates req, stores it under a fresh id and returns the id once
// the record is committed.
func (s *NoteService) Create(ctx context.Context, req CreateNoteRequest) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}

	expire := req.Expire
	if expire < 0 {
		expire = 0
	}
	note := &models.Note{
		IV:         req.IV,
		Ciphertext: req.Ciphertext,
		CreatedAt:  s.resolveCreatedAt(req.CreatedAt),
		Expire:     expire,
	}

	// Every candidate id, whether rejected by the pre-check or by the
	// create-only commit, counts against maxAttempts.
	attempts := 0
	exists := func(id string) (bool, error) {
		attempts++
		taken, err := s.store.Exists(ctx, id)
		if taken {
			s.metrics.IDCollision()
			s.logger.Warn().Str("id", id).Msg("generated note id already taken")
		}
		return taken, err
	}

	for attempts < s.maxAttempts {
		id, err := s.ids.GenerateWithCollisionCheck(s.maxAttempts-attempts, exists)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to mint note id")
			return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}

		note.ID = id
		data, err := note.Encode()
		if err != nil {
			return "", fmt.Errorf("%w: encode note: %w", ErrStorageFailure, err)
		}

		err = s.store.Put(ctx, id, data)
		if err == nil {
			s.metrics.NoteCreated()
			s.logger.Debug().Str("id", id).Int64("expire", note.Expire).Msg("note created")
			return id, nil
		}
		if errors.Is(err, storage.ErrExists) {
			s.metrics.IDCollision()
			s.logger.Warn().Str("id", id).Msg("note id claimed concurrently, retrying")
			continue
		}
		s.logger.Error().Err(err).Str("id", id).Msg("failed to store note")
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	s.logger.Error().Int("attempts", s.maxAttempts).Msg("no free note id")
	return "", fmt.Errorf("%w: no free note id after %d attempts", ErrStorageFailure, s.maxAttempts)
}

// validate runs the shape checks before the size check so a malformed
// oversized ciphertext reports the field, not the size.
func (s *NoteService) validate(req CreateNoteRequest) error {
	if !utils.IsValidIV(req.IV) {
		return &FieldError{Field: FieldIV}
	}
	if !utils.IsValidCiphertext(req.Ciphertext) {
		return &FieldError{Field: FieldCiphertext}
	}
	if int64(len(req.Ciphertext)) > s.maxCiphertextSize {
		return ErrPayloadTooLarge
	}
	return nil
}

// resolveCreatedAt accepts the client timestamp only within maxClockSkew of
// server time. A negative skew trusts the client unconditionally.
func (s *NoteService) resolveCreatedAt(client *int64) int64 {
	now := s.now().Unix()
	if client == nil {
		return now
	}
	if s.maxClockSkew < 0 {
		return *client
	}

	skew := int64(s.maxClockSkew / time.Second)
	if diff := *client - now; diff > skew || diff < -skew {
		s.logger.Debug().Int64("client", *client).Int64("server", now).Msg("createdAt outside skew window, using server time")
		return now
	}
	return *client
}

// Fetch returns the note stored under id. Expired notes are deleted on the
// way out; a failed delete is logged and counted but the caller still sees
// ErrExpired.
func (s *NoteService) Fetch(ctx context.Context, id string) (*FetchedNote, error) {
	if !utils.IsValidNoteID(id) {
		s.metrics.Fetch(metrics.OutcomeInvalidID)
		return nil, ErrInvalidIdentifier
	}

	data, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.Fetch(metrics.OutcomeNotFound)
			return nil, ErrNotFound
		}
		s.metrics.Fetch(metrics.OutcomeStorageErr)
		s.logger.Error().Err(err).Str("id", id).Msg("failed to read note")
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	note, err := models.DecodeNote(data)
	if err == nil && note.ID != id {
		err = fmt.Errorf("record id %q does not match key", note.ID)
	}
	if err != nil {
		s.metrics.Fetch(metrics.OutcomeCorrupted)
		s.logger.Error().Err(err).Str("id", id).Msg("corrupted note record")
		return nil, fmt.Errorf("%w: %w", ErrCorruptedRecord, err)
	}

	if note.IsExpired(s.now()) {
		s.metrics.Fetch(metrics.OutcomeExpired)
		if err := s.store.Delete(ctx, id); err != nil {
			s.metrics.ExpiredDeleteFailed()
			s.logger.Warn().Err(err).Str("id", id).Msg("failed to delete expired note")
		} else {
			s.metrics.ExpiredDeleted()
			s.logger.Debug().Str("id", id).Msg("expired note deleted")
		}
		return nil, ErrExpired
	}

	s.metrics.Fetch(metrics.OutcomeOK)
	return &FetchedNote{IV: note.IV, Ciphertext: note.Ciphertext}, nil
}
