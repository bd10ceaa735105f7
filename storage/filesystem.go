package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	recordExt      = ".json"
	tempPattern    = ".tmp-*"
	recordFileMode = 0o664
)

// FilesystemStore keeps one <key>.json file per record in dataDir.
type FilesystemStore struct {
	dataDir string
}

// NewFilesystemStore creates a filesystem backend rooted at dataDir,
// creating the directory if needed.
func NewFilesystemStore(dataDir string) (*FilesystemStore, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory must not be empty")
	}
	if err := os.MkdirAll(dataDir, 0o775); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FilesystemStore{dataDir: dataDir}, nil
}

// recordPath maps a key to its file. Keys that could escape dataDir or
// collide with temp files are refused.
func (s *FilesystemStore) recordPath(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(s.dataDir, key+recordExt), nil
}

// Put writes data to a temp file in the same directory and hard-links it to
// the final name. link(2) fails when the target exists, so an existing
// record is never replaced and readers only ever see complete files.
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte) error {
	target, err := s.recordPath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dataDir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if rerr := os.Remove(tmpName); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			log.Warn().Err(rerr).Str("file", tmpName).Msg("FS Put: failed to remove temp file")
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, recordFileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Link(tmpName, target); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("publish record: %w", err)
	}
	s.syncDir()
	return nil
}

// syncDir flushes the directory entry so a committed record survives a
// crash. Failure only weakens durability, not atomicity.
func (s *FilesystemStore) syncDir() {
	dir, err := os.Open(s.dataDir)
	if err != nil {
		return
	}
	defer func() { _ = dir.Close() }()
	if err := dir.Sync(); err != nil {
		log.Debug().Err(err).Str("dir", s.dataDir).Msg("FS Put: directory sync failed")
	}
}

func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.recordPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	return data, nil
}

func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	path, err := s.recordPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat record: %w", err)
	}
	return true, nil
}

func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	path, err := s.recordPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func (s *FilesystemStore) Close() error {
	return nil
}
