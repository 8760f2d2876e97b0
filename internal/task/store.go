package task

import (
	"fmt"
	"sync"
	"time"
)

// Store is the in-memory registry of tasks. Entries live for the lifetime of
// the process and are never removed.
type Store struct {
	mu             sync.RWMutex
	tasks          map[string]*Task
	terminalWrites map[string]int
}

func NewStore() *Store {
	return &Store{
		tasks:          make(map[string]*Task),
		terminalWrites: make(map[string]int),
	}
}

// Create inserts a new Processing entry.
func (s *Store) Create(id string, kind Kind, autoUpload *bool) (Task, error) {
	newTask := &Task{
		ID:         id,
		Kind:       kind,
		State:      Processing{},
		AutoUpload: autoUpload,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[id]; exists {
		return Task{}, fmt.Errorf("%w: %s", ErrDuplicateTask, id)
	}
	s.tasks[id] = newTask
	return *newTask, nil
}

// Get returns a snapshot of the task.
func (s *Store) Get(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *found, nil
}

// SetTerminal moves the task to a terminal state. A repeated write overwrites
// the previous outcome; TerminalWrites exposes how many happened.
func (s *Store) SetTerminal(id string, state State) error {
	if !IsTerminal(state) {
		return ErrNotTerminal
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	found, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	found.State = state
	found.FinishedAt = time.Now()
	s.terminalWrites[id]++
	return nil
}

// TerminalWrites reports how many terminal writes the task received.
func (s *Store) TerminalWrites(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terminalWrites[id]
}

// Len returns the number of tracked tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
