package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/erudika/para-client-go/internal/domain"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const latestFile = "latest.txt"

// ImportStateRepository defines the interface for managing import state
type ImportStateRepository interface {
	Save(ctx context.Context, state *domain.ImportState) error
	Load(ctx context.Context, sessionID string) (*domain.ImportState, error)
	LoadLatest(ctx context.Context) (*domain.ImportState, error)
	Delete(ctx context.Context, sessionID string) error
	Exists(ctx context.Context, sessionID string) (bool, error)
}

// JSONImportStateRepository implements ImportStateRepository using JSON file storage
type JSONImportStateRepository struct {
	store *jsonFileStore
	mu    sync.RWMutex
}

// NewJSONImportStateRepository creates a repository keeping one file per session in stateDir
func NewJSONImportStateRepository(fs afero.Fs, stateDir string, logger *zap.Logger) *JSONImportStateRepository {
	if stateDir == "" {
		stateDir = ".para-import"
	}
	return &JSONImportStateRepository{store: newJSONFileStore(fs, stateDir, logger)}
}

// Save persists the import state and points latest.txt at it
func (r *JSONImportStateRepository) Save(ctx context.Context, state *domain.ImportState) error {
	if state == nil || state.SessionID == "" {
		return fmt.Errorf("import state requires a session id")
	}
	name := stateFilename(state.SessionID)
	if err := r.store.write(ctx, name, state, state.StartedAt); err != nil {
		return err
	}
	if err := r.updateLatestLink(name); err != nil {
		return fmt.Errorf("failed to update latest link: %w", err)
	}
	return nil
}

// Load retrieves the import state of a session
func (r *JSONImportStateRepository) Load(ctx context.Context, sessionID string) (*domain.ImportState, error) {
	var state domain.ImportState
	if err := r.store.read(ctx, stateFilename(sessionID), &state); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("state not found for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}
	return &state, nil
}

// LoadLatest retrieves the most recently saved import state
func (r *JSONImportStateRepository) LoadLatest(ctx context.Context) (*domain.ImportState, error) {
	r.mu.RLock()
	data, err := afero.ReadFile(r.store.fs, r.store.path(latestFile))
	r.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no latest state found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read latest link: %w", err)
	}
	sessionID := extractSessionID(string(data))
	if sessionID == "" {
		return nil, fmt.Errorf("invalid latest link target: %s", data)
	}
	return r.Load(ctx, sessionID)
}

// Delete removes the import state of a session
func (r *JSONImportStateRepository) Delete(ctx context.Context, sessionID string) error {
	return r.store.remove(ctx, stateFilename(sessionID))
}

// Exists checks if an import state exists
func (r *JSONImportStateRepository) Exists(_ context.Context, sessionID string) (bool, error) {
	return r.store.exists(stateFilename(sessionID))
}

func (r *JSONImportStateRepository) updateLatestLink(target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.replace(r.store.path(latestFile), []byte(target))
}

func stateFilename(sessionID string) string {
	return fmt.Sprintf("import-%s.json", sessionID)
}

// extractSessionID extracts the session id from a state filename
func extractSessionID(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if !strings.HasPrefix(base, "import-") || !strings.HasSuffix(base, ".json") {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "import-"), ".json")
}
