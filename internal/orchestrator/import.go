package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/erudika/para-client-go/internal/domain"
	"github.com/erudika/para-client-go/internal/repository"
	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ObjectWriter is the part of the client an import needs.
type ObjectWriter interface {
	CreateAll(ctx context.Context, objects []*paraclient.Object) ([]*paraclient.Object, error)
	ReadAll(ctx context.Context, ids []string) ([]*paraclient.Object, error)
	DeleteAll(ctx context.Context, ids []string) error
}

// ImportConfig contains configuration for an import run.
type ImportConfig struct {
	Source         string
	BatchSize      int
	DryRun         bool
	EnableRollback bool   // Delete created objects when a batch fails
	Rollback       bool   // Delete the objects of a recorded session
	SessionID      string // Session to roll back, latest if empty
}

// ImportResult summarizes an import or a rollback.
type ImportResult struct {
	SessionID string              `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Source    string              `json:"source,omitempty" yaml:"source,omitempty"`
	Objects   int                 `json:"objects" yaml:"objects"`
	Batches   int                 `json:"batches" yaml:"batches"`
	Created   int                 `json:"created" yaml:"created"`
	Status    domain.ImportStatus `json:"status" yaml:"status"`
	DryRun    bool                `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	// Overwritten counts objects that existed before the import and were replaced
	Overwritten int `json:"overwritten" yaml:"overwritten"`
}

// ImportOrchestrator sends objects from a file to the server in batches.
type ImportOrchestrator struct {
	writer    ObjectWriter
	fs        afero.Fs
	stateRepo repository.ImportStateRepository
	logger    *zap.Logger
	appID     string
}

// NewImportOrchestrator creates a new import orchestrator. stateRepo may be
// nil, in which case sessions are not recorded.
func NewImportOrchestrator(
	writer ObjectWriter,
	fs afero.Fs,
	stateRepo repository.ImportStateRepository,
	logger *zap.Logger,
) *ImportOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportOrchestrator{
		writer:    writer,
		fs:        fs,
		stateRepo: stateRepo,
		logger:    logger,
	}
}

// WithAppID records appID in saved sessions.
func (o *ImportOrchestrator) WithAppID(appID string) *ImportOrchestrator {
	o.appID = appID
	return o
}

// Execute runs the import or, with cfg.Rollback, undoes a recorded one.
func (o *ImportOrchestrator) Execute(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	if cfg.Rollback {
		return o.performRollback(ctx, cfg.SessionID)
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultImportTimeout)
	defer cancel()
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if err := ValidateBatchSize(cfg.BatchSize); err != nil {
		return nil, err
	}
	if err := ValidateImportFile(cfg.Source); err != nil {
		return nil, err
	}
	objects, err := LoadObjects(o.fs, cfg.Source)
	if err != nil {
		return nil, err
	}
	if err := ValidateObjects(objects); err != nil {
		return nil, fmt.Errorf("invalid import file: %w", err)
	}
	batches := chunk(objects, cfg.BatchSize)
	if cfg.DryRun {
		o.logger.Info("dry run, nothing imported",
			zap.String("source", cfg.Source), zap.Int("objects", len(objects)), zap.Int("batches", len(batches)))
		return &ImportResult{
			Source:  cfg.Source,
			Objects: len(objects),
			Batches: len(batches),
			Status:  domain.ImportStatusPending,
			DryRun:  true,
		}, nil
	}
	saga := NewSagaExecutor(o.stateRepo, cfg.EnableRollback, o.logger)
	saga.SetSource(cfg.Source)
	saga.SetAppID(o.appID)
	for i, batch := range batches {
		saga.AddStep(SagaStep{
			Name:       fmt.Sprintf("batch %d/%d", i+1, len(batches)),
			Size:       len(batch),
			Execute:    o.createBatch(batch),
			Existing:   o.existingIDs(batch),
			Compensate: o.deleteObjects,
			Retryable:  isThrottled,
		})
	}
	o.logger.Info("importing objects",
		zap.String("session", saga.SessionID()), zap.Int("objects", len(objects)), zap.Int("batches", len(batches)))
	execErr := saga.Execute(ctx)
	state := saga.GetState()
	result := &ImportResult{
		SessionID: saga.SessionID(),
		Source:    cfg.Source,
		Objects:   len(objects),
		Batches:   len(batches),
		Created:   state.CreatedCount(),
		Status:    state.Status,
	}
	result.Overwritten = state.OverwrittenCount()
	if execErr != nil {
		return result, fmt.Errorf("import failed: %w", execErr)
	}
	return result, nil
}

func (o *ImportOrchestrator) createBatch(batch []*paraclient.Object) func(ctx context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		created, err := o.writer.CreateAll(ctx, batch)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(created))
		for _, obj := range created {
			if obj != nil && obj.ID != "" {
				ids = append(ids, obj.ID)
			}
		}
		return ids, nil
	}
}

// existingIDs looks up the explicit ids of a batch that are already stored.
// A batch create replaces those objects, so a rollback must not delete them.
func (o *ImportOrchestrator) existingIDs(batch []*paraclient.Object) func(ctx context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		ids := make([]string, 0, len(batch))
		for _, obj := range batch {
			if obj != nil && obj.ID != "" {
				ids = append(ids, obj.ID)
			}
		}
		if len(ids) == 0 {
			return nil, nil
		}
		found, err := o.writer.ReadAll(ctx, ids)
		if err != nil {
			return nil, err
		}
		existing := make([]string, 0, len(found))
		for _, obj := range found {
			if obj != nil && obj.ID != "" {
				existing = append(existing, obj.ID)
			}
		}
		return existing, nil
	}
}

func (o *ImportOrchestrator) deleteObjects(ctx context.Context, ids []string) error {
	return o.writer.DeleteAll(ctx, ids)
}

// performRollback deletes the objects created by a recorded session
func (o *ImportOrchestrator) performRollback(ctx context.Context, sessionID string) (*ImportResult, error) {
	if o.stateRepo == nil {
		return nil, fmt.Errorf("rollback requires a state repository")
	}
	if sessionID == "" {
		latest, err := o.stateRepo.LoadLatest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find latest import: %w", err)
		}
		sessionID = latest.SessionID
	} else if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	saga, err := LoadExistingSaga(ctx, o.stateRepo, sessionID, o.deleteObjects, o.logger)
	if err != nil {
		return nil, err
	}
	state := saga.GetState()
	if state.Status == domain.ImportStatusRolledBack {
		return nil, fmt.Errorf("session %s is already rolled back", sessionID)
	}
	created := state.CreatedCount()
	ctx, cancel := context.WithTimeout(ctx, RollbackTimeout)
	defer cancel()
	if err := saga.Rollback(ctx); err != nil {
		return nil, fmt.Errorf("failed to roll back session %s: %w", sessionID, err)
	}
	return &ImportResult{
		SessionID:   sessionID,
		Source:      state.Source,
		Batches:     len(state.Batches),
		Created:     created,
		Status:      state.Status,
		Overwritten: state.OverwrittenCount(),
	}, nil
}

// isThrottled reports whether the server refused a batch before handling it
func isThrottled(err error) bool {
	var apiErr *paraclient.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusServiceUnavailable
}

func chunk(objects []*paraclient.Object, size int) [][]*paraclient.Object {
	batches := make([][]*paraclient.Object, 0, (len(objects)+size-1)/size)
	for start := 0; start < len(objects); start += size {
		end := min(start+size, len(objects))
		batches = append(batches, objects[start:end])
	}
	return batches
}
