package orchestrator

import (
	"context"
	"fmt"

	"github.com/erudika/para-client-go/internal/domain"
	"github.com/erudika/para-client-go/internal/repository"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// CompensateFunc undoes a completed batch given the ids it created
type CompensateFunc func(ctx context.Context, createdIDs []string) error

// SagaStep represents a single batch in the saga workflow
type SagaStep struct {
	Name       string
	Size       int
	Execute    func(ctx context.Context) (createdIDs []string, err error)
	// Existing returns the ids of the step that are already on the server.
	// They are recorded as overwritten and never compensated. Nil skips the check.
	Existing   func(ctx context.Context) ([]string, error)
	Compensate CompensateFunc
	// Retryable reports whether a failed Execute may be attempted again.
	// Nil means the step is never retried.
	Retryable func(err error) bool
}

// SagaExecutor runs batches in order and deletes what they created when one fails
type SagaExecutor struct {
	sessionID      string
	stateRepo      repository.ImportStateRepository
	state          *domain.ImportState
	steps          []SagaStep
	enableRollback bool
	compensate     CompensateFunc
	logger         *zap.Logger
}

// NewSagaExecutor creates a new saga executor. State is persisted only when
// rollback is enabled and stateRepo is set.
func NewSagaExecutor(
	stateRepo repository.ImportStateRepository,
	enableRollback bool,
	logger *zap.Logger,
) *SagaExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.New().String()
	return &SagaExecutor{
		sessionID:      sessionID,
		stateRepo:      stateRepo,
		state:          domain.NewImportState(sessionID, ""),
		steps:          []SagaStep{},
		enableRollback: enableRollback,
		logger:         logger.With(zap.String("session", sessionID)),
	}
}

// LoadExistingSaga loads a recorded import so that it can be rolled back.
// compensate undoes batches that have no step in this process.
func LoadExistingSaga(
	ctx context.Context,
	stateRepo repository.ImportStateRepository,
	sessionID string,
	compensate CompensateFunc,
	logger *zap.Logger,
) (*SagaExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	state, err := stateRepo.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saga state: %w", err)
	}
	return &SagaExecutor{
		sessionID:      sessionID,
		stateRepo:      stateRepo,
		state:          state,
		steps:          []SagaStep{},
		enableRollback: true,
		compensate:     compensate,
		logger:         logger.With(zap.String("session", sessionID)),
	}, nil
}

// AddStep adds a batch to the saga
func (s *SagaExecutor) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
	s.state.AddBatch(step.Size)
}

// Execute runs every step, rolling back completed ones when a step fails
func (s *SagaExecutor) Execute(ctx context.Context) error {
	if err := s.saveState(ctx); err != nil {
		return fmt.Errorf("failed to save initial state: %w", err)
	}
	s.state.Status = domain.ImportStatusRunning
	for i, step := range s.steps {
		if err := s.executeStep(ctx, i, step); err != nil {
			s.state.MarkBatchFailed(i, err)
			if !s.enableRollback {
				return fmt.Errorf("step '%s' failed: %w", step.Name, err)
			}
			s.trySave(ctx, "before rollback")
			// Rollback must finish even when ctx is already canceled
			rollbackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
			rollbackErr := s.rollback(rollbackCtx)
			cancel()
			if rollbackErr != nil {
				return fmt.Errorf("step '%s' failed: %w, rollback also failed: %v",
					step.Name, err, rollbackErr)
			}
			return fmt.Errorf("step '%s' failed: %w", step.Name, err)
		}
	}
	s.state.Status = domain.ImportStatusCompleted
	s.trySave(ctx, "at completion")
	return nil
}

// executeStep executes a single saga step with retry logic
func (s *SagaExecutor) executeStep(ctx context.Context, index int, step SagaStep) error {
	s.state.MarkBatchStarted(index)
	var existing []string
	if step.Existing != nil {
		ids, err := step.Existing(ctx)
		if err != nil {
			return fmt.Errorf("failed to look up existing objects: %w", err)
		}
		existing = ids
		s.state.MarkBatchOverwriting(index, existing)
	}
	s.trySave(ctx, "after marking batch started")
	if len(existing) > 0 {
		s.logger.Warn("batch overwrites existing objects, they are kept on rollback",
			zap.String("step", step.Name), zap.Strings("ids", existing))
	}
	var createdIDs []string
	retryStrategy := retry.WithMaxRetries(DefaultRetryCount, retry.NewExponential(DefaultRetryDelay))
	err := retry.Do(ctx, retryStrategy, func(retryCtx context.Context) error {
		if err := retryCtx.Err(); err != nil {
			return err
		}
		ids, execErr := step.Execute(retryCtx)
		if execErr != nil {
			if step.Retryable != nil && step.Retryable(execErr) {
				s.logger.Debug("retrying batch", zap.String("step", step.Name), zap.Error(execErr))
				return retry.RetryableError(execErr)
			}
			return execErr
		}
		createdIDs = ids
		return nil
	})
	if err != nil {
		return err
	}
	createdIDs = withoutIDs(createdIDs, existing)
	s.state.MarkBatchCompleted(index, createdIDs)
	s.logger.Debug("batch completed", zap.String("step", step.Name), zap.Int("created", len(createdIDs)))
	s.trySave(ctx, "after marking batch completed")
	return nil
}

// Rollback executes compensating actions for completed batches
func (s *SagaExecutor) Rollback(ctx context.Context) error {
	return s.rollback(ctx)
}

func (s *SagaExecutor) rollback(ctx context.Context) error {
	completed := s.state.CompletedBatches()
	if len(completed) == 0 {
		s.logger.Info("no batches to roll back")
		s.state.Status = domain.ImportStatusRolledBack
		s.trySave(ctx, "after rollback")
		return nil
	}
	s.logger.Info("starting rollback", zap.Int("batches", len(completed)))
	for _, batch := range completed {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rollback canceled: %w", err)
		}
		if len(batch.OverwrittenIDs) > 0 {
			s.logger.Warn("objects overwritten by the import are not restored",
				zap.Int("batch", batch.Index), zap.Strings("ids", batch.OverwrittenIDs))
		}
		if len(batch.CreatedIDs) == 0 {
			s.state.MarkBatchRolledBack(batch.Index)
			continue
		}
		compensate := s.compensatorFor(batch.Index)
		if compensate == nil {
			continue
		}
		s.logger.Info("rolling back batch", zap.Int("batch", batch.Index), zap.Int("objects", len(batch.CreatedIDs)))
		if err := s.executeCompensation(ctx, compensate, batch.CreatedIDs); err != nil {
			s.logger.Error("failed to roll back batch", zap.Int("batch", batch.Index), zap.Error(err))
			return fmt.Errorf("rollback failed for batch %d: %w", batch.Index, err)
		}
		s.state.MarkBatchRolledBack(batch.Index)
		s.trySave(ctx, "during rollback")
	}
	s.state.Status = domain.ImportStatusRolledBack
	s.trySave(ctx, "after rollback")
	s.logger.Info("rollback completed")
	return nil
}

// executeCompensation executes a compensating action with retry
func (s *SagaExecutor) executeCompensation(ctx context.Context, compensate CompensateFunc, ids []string) error {
	retryStrategy := retry.WithMaxRetries(DefaultRetryCount, retry.NewExponential(DefaultRetryDelay))
	return retry.Do(ctx, retryStrategy, func(retryCtx context.Context) error {
		if err := retryCtx.Err(); err != nil {
			return err
		}
		if err := compensate(retryCtx, ids); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// compensatorFor returns the step's compensation or the saga fallback
func (s *SagaExecutor) compensatorFor(index int) CompensateFunc {
	if index >= 0 && index < len(s.steps) && s.steps[index].Compensate != nil {
		return s.steps[index].Compensate
	}
	return s.compensate
}

// withoutIDs returns ids minus the ones in skip, keeping the order
func withoutIDs(ids, skip []string) []string {
	if len(skip) == 0 {
		return ids
	}
	drop := make(map[string]struct{}, len(skip))
	for _, id := range skip {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *SagaExecutor) saveState(ctx context.Context) error {
	if !s.enableRollback || s.stateRepo == nil {
		return nil
	}
	return s.stateRepo.Save(ctx, s.state)
}

// trySave persists the state and only logs a failure
func (s *SagaExecutor) trySave(ctx context.Context, when string) {
	if err := s.saveState(ctx); err != nil {
		s.logger.Warn("failed to save import state", zap.String("when", when), zap.Error(err))
	}
}

// GetState returns the current saga state
func (s *SagaExecutor) GetState() *domain.ImportState {
	return s.state
}

// SessionID returns the id the state is recorded under
func (s *SagaExecutor) SessionID() string {
	return s.sessionID
}

// SetSource records where the imported objects came from
func (s *SagaExecutor) SetSource(source string) {
	s.state.Source = source
}

// SetAppID records the app the objects are imported into
func (s *SagaExecutor) SetAppID(appID string) {
	s.state.AppID = appID
}
