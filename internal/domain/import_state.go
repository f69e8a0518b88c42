package domain

import (
	"time"
)

// ImportStatus represents the overall status of a bulk import
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusRunning    ImportStatus = "running"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
	ImportStatusRolledBack ImportStatus = "rolled_back"
)

// BatchStatus represents the status of a single batch of objects
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusRunning    BatchStatus = "running"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
	BatchStatusRolledBack BatchStatus = "rolled_back"
)

// ImportState tracks a bulk import so that it can be rolled back later.
type ImportState struct {
	SessionID string        `json:"session_id"`
	AppID     string        `json:"app_id,omitempty"`
	Source    string        `json:"source,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Batches   []BatchRecord `json:"batches"`
	Status    ImportStatus  `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// BatchRecord is one batch create call. CreatedIDs holds the ids that did
// not exist before the batch, which are what a rollback deletes.
// OverwrittenIDs existed before and are never deleted.
type BatchRecord struct {
	Index          int         `json:"index"`
	Size           int         `json:"size"`
	Status         BatchStatus `json:"status"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	CreatedIDs     []string    `json:"created_ids,omitempty"`
	OverwrittenIDs []string    `json:"overwritten_ids,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// NewImportState creates a new import state
func NewImportState(sessionID, source string) *ImportState {
	now := time.Now()
	return &ImportState{
		SessionID: sessionID,
		Source:    source,
		StartedAt: now,
		UpdatedAt: now,
		Batches:   []BatchRecord{},
		Status:    ImportStatusPending,
	}
}

// AddBatch appends a pending batch of the given size
func (s *ImportState) AddBatch(size int) *BatchRecord {
	b := BatchRecord{
		Index:     len(s.Batches),
		Size:      size,
		Status:    BatchStatusPending,
		StartedAt: time.Now(),
	}
	s.Batches = append(s.Batches, b)
	s.UpdatedAt = time.Now()
	return &s.Batches[len(s.Batches)-1]
}

// Batch returns the batch at index or nil
func (s *ImportState) Batch(index int) *BatchRecord {
	if index < 0 || index >= len(s.Batches) {
		return nil
	}
	return &s.Batches[index]
}

// CompletedBatches returns all completed batches, last first
func (s *ImportState) CompletedBatches() []BatchRecord {
	var completed []BatchRecord
	for i := len(s.Batches) - 1; i >= 0; i-- {
		if s.Batches[i].Status == BatchStatusCompleted {
			completed = append(completed, s.Batches[i])
		}
	}
	return completed
}

// CreatedCount is the number of objects created by completed batches
func (s *ImportState) CreatedCount() int {
	n := 0
	for i := range s.Batches {
		if s.Batches[i].Status == BatchStatusCompleted {
			n += len(s.Batches[i].CreatedIDs)
		}
	}
	return n
}

// MarkBatchStarted moves a pending batch to running
func (s *ImportState) MarkBatchStarted(index int) {
	b := s.Batch(index)
	if b == nil || b.Status != BatchStatusPending {
		return
	}
	b.Status = BatchStatusRunning
	b.StartedAt = time.Now()
	s.UpdatedAt = time.Now()
}

// OverwrittenCount is the number of existing objects replaced by completed batches
func (s *ImportState) OverwrittenCount() int {
	n := 0
	for i := range s.Batches {
		if s.Batches[i].Status == BatchStatusCompleted || s.Batches[i].Status == BatchStatusRolledBack {
			n += len(s.Batches[i].OverwrittenIDs)
		}
	}
	return n
}

// MarkBatchOverwriting records the ids a running batch is about to replace
func (s *ImportState) MarkBatchOverwriting(index int, ids []string) {
	b := s.Batch(index)
	if b == nil || b.Status != BatchStatusRunning {
		return
	}
	b.OverwrittenIDs = ids
	s.UpdatedAt = time.Now()
}

// MarkBatchCompleted records the ids created by a running batch
func (s *ImportState) MarkBatchCompleted(index int, createdIDs []string) {
	b := s.Batch(index)
	if b == nil || b.Status != BatchStatusRunning {
		return
	}
	now := time.Now()
	b.Status = BatchStatusCompleted
	b.CompletedAt = &now
	b.CreatedIDs = createdIDs
	s.UpdatedAt = now
}

// MarkBatchFailed marks a running batch and the whole import as failed
func (s *ImportState) MarkBatchFailed(index int, err error) {
	now := time.Now()
	if b := s.Batch(index); b != nil && b.Status == BatchStatusRunning {
		b.Status = BatchStatusFailed
		b.CompletedAt = &now
		b.Error = err.Error()
	}
	s.UpdatedAt = now
	s.Status = ImportStatusFailed
	s.Error = err.Error()
}

// MarkBatchRolledBack marks a completed batch as deleted again
func (s *ImportState) MarkBatchRolledBack(index int) {
	b := s.Batch(index)
	if b == nil || b.Status != BatchStatusCompleted {
		return
	}
	b.Status = BatchStatusRolledBack
	s.UpdatedAt = time.Now()
}
