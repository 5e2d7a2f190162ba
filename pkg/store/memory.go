package store

import (
	"sync"

	"github.com/inl-tagging/tagqueue/pkg/schemas"
)

// MemoryStore is an in-memory Store, safe for concurrent use. It exists so
// the API and supervisor can be tested without touching disk; the
// orphan-sweep semantics still apply, using an in-process pid registry
// instead of syscall liveness checks.
type MemoryStore struct {
	mu        sync.RWMutex
	jobs      map[string]schemas.JobStatus
	processes map[string]schemas.ProcessStatus
	alive     map[int]bool // pids considered alive for sweep purposes
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:      make(map[string]schemas.JobStatus),
		processes: make(map[string]schemas.ProcessStatus),
		alive:     make(map[int]bool),
	}
}

// MarkDead tells the store to treat pid as no longer running, so the next
// sweep reaps any process record pinned to it. Tests use this in place of
// killing a real process.
func (m *MemoryStore) MarkDead(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alive, pid)
}

// MarkAlive tells the store to treat pid as running.
func (m *MemoryStore) MarkAlive(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive[pid] = true
}

// JobStatus returns the status recorded for id.
func (m *MemoryStore) JobStatus(id string) (schemas.JobStatus, error) {
	if err := ValidateID(id); err != nil {
		return schemas.JobStatus{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.jobs[id]
	if !ok {
		return schemas.NewUnknownStatus(), nil
	}
	return status, nil
}

// SetJobStatus records status for id.
func (m *MemoryStore) SetJobStatus(id string, status schemas.JobStatus) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = status
	return nil
}

// DeleteJobStatus removes the status record for id, if any.
func (m *MemoryStore) DeleteJobStatus(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

// ListJobStatuses returns every recorded job status, keyed by id.
func (m *MemoryStore) ListJobStatuses() (map[string]schemas.JobStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]schemas.JobStatus, len(m.jobs))
	for id, status := range m.jobs {
		result[id] = status
	}
	return result, nil
}

// PendingJobIDs runs the orphan sweep and returns the ids currently pending.
func (m *MemoryStore) PendingJobIDs() ([]string, error) {
	if _, err := m.SweepOrphans(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, status := range m.jobs {
		if status.Pending {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ProcessStatus returns the process record for id, and whether one exists.
func (m *MemoryStore) ProcessStatus(id string) (schemas.ProcessStatus, bool, error) {
	if err := ValidateID(id); err != nil {
		return schemas.ProcessStatus{}, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ps, ok := m.processes[id]
	return ps, ok, nil
}

// SetProcessStatus records that pid owns id.
func (m *MemoryStore) SetProcessStatus(id string, pid int) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes[id] = schemas.ProcessStatus{PID: pid}
	// Like the kill(pid, 0) probe, a non-positive pid never counts as alive.
	if pid > 0 {
		m.alive[pid] = true
	}
	return nil
}

// DeleteProcessStatus removes the process record for id, if any.
func (m *MemoryStore) DeleteProcessStatus(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.processes, id)
	return nil
}

// SweepOrphans checks every recorded process status's pid against the
// in-process alive set. Dead entries are removed and their job reset to
// pending.
func (m *MemoryStore) SweepOrphans() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	swept := 0
	for id, ps := range m.processes {
		if m.alive[ps.PID] {
			continue
		}
		delete(m.processes, id)
		m.jobs[id] = schemas.PendingStatus(orphanMessage)
		swept++
	}
	return swept, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
