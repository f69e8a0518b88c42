package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// StateSchemaVersion defines the current schema version for stored files
	StateSchemaVersion = "1.0.0"
	// StateFilePermissions defines the permissions for stored files
	StateFilePermissions = 0600
	// StateDirPermissions defines the permissions for the storage directory
	StateDirPermissions = 0700
	// LockTimeout defines the maximum time to wait for a lock
	LockTimeout = 30 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("not found")

// StateMetadata contains metadata about a stored file
type StateMetadata struct {
	SchemaVersion string    `json:"schema_version"`
	Checksum      string    `json:"checksum"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StateWrapper wraps a stored payload with metadata
type StateWrapper struct {
	Metadata StateMetadata   `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// jsonFileStore writes checksummed JSON documents under one directory,
// guarding each file with a flock and replacing it atomically.
type jsonFileStore struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

func newJSONFileStore(fs afero.Fs, dir string, logger *zap.Logger) *jsonFileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &jsonFileStore{fs: fs, dir: dir, logger: logger}
}

func (s *jsonFileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *jsonFileStore) lockPath(name string) string {
	return filepath.Join(s.dir, "."+name+".lock")
}

// write persists payload under name
func (s *jsonFileStore) write(ctx context.Context, name string, payload any, createdAt time.Time) error {
	if err := s.fs.MkdirAll(s.dir, StateDirPermissions); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}
	unlock, err := s.lock(ctx, name, false)
	if err != nil {
		return err
	}
	defer unlock()
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	wrapper := StateWrapper{
		Metadata: StateMetadata{
			SchemaVersion: StateSchemaVersion,
			Checksum:      checksum(raw),
			CreatedAt:     createdAt,
			UpdatedAt:     time.Now(),
		},
		Payload: raw,
	}
	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state wrapper: %w", err)
	}
	return s.replace(s.path(name), data)
}

// read loads the payload stored under name into out
// without creating the state directory
func (s *jsonFileStore) read(ctx context.Context, name string, out any) error {
	ok, err := s.exists(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	unlock, err := s.lock(ctx, name, true)
	if err != nil {
		return err
	}
	defer unlock()
	data, err := afero.ReadFile(s.fs, s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}
	var wrapper StateWrapper
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("failed to unmarshal state wrapper: %w", err)
	}
	if wrapper.Metadata.SchemaVersion != StateSchemaVersion {
		return fmt.Errorf("incompatible schema version: expected %s, got %s",
			StateSchemaVersion, wrapper.Metadata.SchemaVersion)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, wrapper.Payload); err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}
	if wrapper.Metadata.Checksum != checksum(compact.Bytes()) {
		return fmt.Errorf("state checksum mismatch: data may be corrupted")
	}
	if err := json.Unmarshal(compact.Bytes(), out); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// remove deletes the file stored under name and its lock file
func (s *jsonFileStore) remove(ctx context.Context, name string) error {
	dirExists, err := afero.DirExists(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("failed to check state directory: %w", err)
	}
	if !dirExists {
		return nil
	}
	unlock, err := s.lock(ctx, name, false)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		unlock()
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	unlock()
	if err := s.fs.Remove(s.lockPath(name)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove lock file", zap.String("name", name), zap.Error(err))
	}
	return nil
}

func (s *jsonFileStore) exists(name string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.path(name))
	if err != nil {
		return false, fmt.Errorf("failed to check state file: %w", err)
	}
	return ok, nil
}

// replace writes data to path through a temp file and a rename
func (s *jsonFileStore) replace(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, StateFilePermissions); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		if removeErr := s.fs.Remove(tmp); removeErr != nil {
			s.logger.Warn("failed to remove temp file", zap.String("path", tmp), zap.Error(removeErr))
		}
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}

// lock acquires a shared or exclusive lock on name and returns its release
// func. The state directory must exist.
func (s *jsonFileStore) lock(ctx context.Context, name string, shared bool) (func(), error) {
	fl := flock.New(s.lockPath(name))
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	try := fl.TryLock
	if shared {
		try = fl.TryRLock
	}
	if err := acquireWithContext(lockCtx, try); err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("failed to unlock file", zap.String("name", name), zap.Error(err))
		}
	}, nil
}

// acquireWithContext polls try until it succeeds or ctx is done
func acquireWithContext(ctx context.Context, try func() (bool, error)) error {
	if locked, err := try(); err != nil || locked {
		return err
	}
	ticker := time.NewTicker(LockRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			locked, err := try()
			if err != nil {
				return err
			}
			if locked {
				return nil
			}
		}
	}
}

// checksum calculates the SHA-256 checksum of data
func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
