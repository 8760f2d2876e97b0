package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Manager issues task ids and runs job bodies in the background, recording
// each job's outcome in the Store.
type Manager struct {
	mu        sync.RWMutex
	store     *Store
	counter   atomic.Uint64
	semaphore chan struct{}
	workersWG sync.WaitGroup
	baseCtx   context.Context
}

// NewManager creates a manager with default options suitable for tests
func NewManager() *Manager {
	return NewManagerWithOptions(Options{MaxConcurrentTasks: defaultMaxConcurrent})
}

// NewManagerWithOptions creates a manager with provided configuration
func NewManagerWithOptions(opts Options) *Manager {
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = 1
	}
	return &Manager{
		store:     NewStore(),
		semaphore: make(chan struct{}, opts.MaxConcurrentTasks),
		baseCtx:   context.Background(),
	}
}

// SubmitOption customizes the task record created by Submit.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	autoUpload *bool
}

// WithAutoUpload records whether an audio job was asked to forward its file.
func WithAutoUpload(enabled bool) SubmitOption {
	return func(c *submitConfig) { c.autoUpload = &enabled }
}

// Submit registers a Processing task and starts job in its own goroutine.
// It returns before the job has necessarily started.
func (m *Manager) Submit(kind Kind, job Job, opts ...SubmitOption) string {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	taskID := m.nextID()
	if _, err := m.store.Create(taskID, kind, cfg.autoUpload); err != nil {
		// ids come from a monotonic counter, so this means the store was
		// populated behind the manager's back.
		panic(err)
	}
	log.Info().Str("task_id", taskID).Str("kind", string(kind)).Msg("task submitted")

	m.workersWG.Add(1)
	go func() {
		defer m.workersWG.Done()
		m.semaphore <- struct{}{}
		defer func() { <-m.semaphore }()
		m.startProcessing(taskID, kind, job)
	}()

	return taskID
}

// GetTask returns a snapshot of the task or ErrTaskNotFound.
func (m *Manager) GetTask(taskID string) (Task, error) {
	return m.store.Get(taskID)
}

// Store exposes the underlying registry.
func (m *Manager) Store() *Store {
	return m.store
}

// IsBusy reports whether every processing slot is taken.
func (m *Manager) IsBusy() bool {
	return len(m.semaphore) >= cap(m.semaphore)
}

// SetBaseContext sets the context jobs derive from. Cancellation of ctx is not
// propagated: once submitted, a job always runs to a terminal state.
func (m *Manager) SetBaseContext(ctx context.Context) {
	m.mu.Lock()
	m.baseCtx = context.WithoutCancel(ctx)
	m.mu.Unlock()
}

// WaitAll blocks until all in-flight jobs finish or the context is done.
// Returns true if all jobs finished, false if timed out.
func (m *Manager) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		m.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) nextID() string {
	return fmt.Sprintf("task_%d", m.counter.Add(1))
}

func (m *Manager) base() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseCtx
}
