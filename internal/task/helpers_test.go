package task

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTask runs fn when executed and counts its executions.
type fakeTask struct {
	id    uuid.UUID
	fn    func(ctx context.Context) error
	runs  atomic.Int32
	state atomic.Value
}

func newFakeTask(fn func(ctx context.Context) error) *fakeTask {
	t := &fakeTask{id: uuid.New(), fn: fn}
	t.state.Store(TaskStatusPending)
	return t
}

func (t *fakeTask) ID() uuid.UUID      { return t.id }
func (t *fakeTask) Type() string       { return "fake" }
func (t *fakeTask) Payload() []byte    { return []byte(`{}`) }
func (t *fakeTask) Status() TaskStatus { return t.state.Load().(TaskStatus) }

func (t *fakeTask) Execute(ctx context.Context) error {
	t.runs.Add(1)
	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

// memTaskStore is an in-memory TaskStore.
type memTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Record
	history map[uuid.UUID][]TaskStatus
	saveErr error
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{
		records: make(map[uuid.UUID]*Record),
		history: make(map[uuid.UUID][]TaskStatus),
	}
}

func (s *memTaskStore) put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &rec
}

func (s *memTaskStore) SaveTask(_ context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	now := time.Now()
	s.records[t.ID()] = &Record{
		ID: t.ID(), Type: t.Type(), Payload: t.Payload(), Status: t.Status(),
		CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (s *memTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ErrorMessage = msg
	rec.UpdatedAt = time.Now()
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *memTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) < olderThan {
			continue
		}
		out = append(out, *rec)
	}
	return out
}

func (s *memTaskStore) GetPendingTasks(context.Context) ([]Record, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

func (s *memTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *memTaskStore) WithTx(*sql.Tx) TaskStore { return s }

func (s *memTaskStore) status(id uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		return rec.Status
	}
	return ""
}

// fakeDecoder rebuilds fakeTasks, or fails for records of type "broken".
type fakeDecoder struct {
	mu      sync.Mutex
	decoded map[uuid.UUID]*fakeTask
}

func (d *fakeDecoder) Decode(rec Record) (Task, error) {
	if rec.Type == "broken" {
		return nil, errors.New("cannot decode")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.decoded == nil {
		d.decoded = make(map[uuid.UUID]*fakeTask)
	}
	t := &fakeTask{id: rec.ID}
	t.state.Store(rec.Status)
	d.decoded[rec.ID] = t
	return t, nil
}
