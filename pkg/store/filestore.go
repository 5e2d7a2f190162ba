package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inl-tagging/tagqueue/pkg/schemas"
)

// FileStore is a filesystem-backed Store. Each record is a JSON file named
// <id>.json in either the job-status or process-status directory, guarded
// by a sidecar <id>.json.lock advisory lock. It is the source of truth for
// job state across process restarts: nothing is cached in memory.
type FileStore struct {
	jobDir      string
	procDir     string
	lockTimeout time.Duration
}

// NewFileStore creates the job-status and process-status directories under
// root (if they don't already exist) and returns a store backed by them.
func NewFileStore(root string) (*FileStore, error) {
	jobDir := filepath.Join(root, "status")
	procDir := filepath.Join(root, "process")

	for _, dir := range []string{jobDir, procDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}

	return &FileStore{jobDir: jobDir, procDir: procDir, lockTimeout: DefaultLockTimeout}, nil
}

func recordPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

func (s *FileStore) writeRecord(dir, id string, v interface{}) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	path := recordPath(dir, id)
	fl, err := acquireLock(path, true, s.lockTimeout)
	if err != nil {
		return fmt.Errorf("lock %s: %w", id, err)
	}
	defer releaseLock(fl)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create record %s: %w", id, err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("write record %s: %w", id, err)
	}
	return nil
}

// readRecord reports whether a record exists for id and, if so, decodes it
// into v. A missing file is not an error.
func (s *FileStore) readRecord(dir, id string, v interface{}) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	path := recordPath(dir, id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat record %s: %w", id, err)
	}

	fl, err := acquireLock(path, false, s.lockTimeout)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", id, err)
	}
	defer releaseLock(fl)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("open record %s: %w", id, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(v); err != nil {
		return false, fmt.Errorf("decode record %s: %w", id, err)
	}
	return true, nil
}

func (s *FileStore) deleteRecord(dir, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	path := recordPath(dir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	_ = os.Remove(path + ".lock")
	return nil
}

func (s *FileStore) listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// JobStatus returns the status recorded for id. Per the original
// statuslogger behavior, a read failure is reported as a synthetic status
// with all four phase flags false and a message naming the failure, rather
// than a Go error, since it can legitimately occur concurrently with a
// worker mid-write.
func (s *FileStore) JobStatus(id string) (schemas.JobStatus, error) {
	if err := ValidateID(id); err != nil {
		return schemas.JobStatus{}, err
	}

	var status schemas.JobStatus
	ok, err := s.readRecord(s.jobDir, id, &status)
	if err != nil {
		return schemas.JobStatus{Message: fmt.Sprintf("Could not read status file. %s", err)}, nil
	}
	if !ok {
		return schemas.NewUnknownStatus(), nil
	}
	return status, nil
}

// SetJobStatus records status for id, replacing any existing record.
func (s *FileStore) SetJobStatus(id string, status schemas.JobStatus) error {
	return s.writeRecord(s.jobDir, id, status)
}

// DeleteJobStatus removes the status record for id, if any.
func (s *FileStore) DeleteJobStatus(id string) error {
	return s.deleteRecord(s.jobDir, id)
}

// ListJobStatuses returns every recorded job status, keyed by id.
func (s *FileStore) ListJobStatuses() (map[string]schemas.JobStatus, error) {
	ids, err := s.listIDs(s.jobDir)
	if err != nil {
		return nil, err
	}

	result := make(map[string]schemas.JobStatus, len(ids))
	for _, id := range ids {
		status, err := s.JobStatus(id)
		if err != nil {
			continue
		}
		result[id] = status
	}
	return result, nil
}

// PendingJobIDs runs the orphan sweep and returns the ids currently pending.
func (s *FileStore) PendingJobIDs() ([]string, error) {
	if _, err := s.SweepOrphans(); err != nil {
		return nil, err
	}

	statuses, err := s.ListJobStatuses()
	if err != nil {
		return nil, err
	}

	var ids []string
	for id, status := range statuses {
		if status.Pending {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ProcessStatus returns the process record for id, and whether one exists.
func (s *FileStore) ProcessStatus(id string) (schemas.ProcessStatus, bool, error) {
	if err := ValidateID(id); err != nil {
		return schemas.ProcessStatus{}, false, err
	}

	var ps schemas.ProcessStatus
	ok, err := s.readRecord(s.procDir, id, &ps)
	if err != nil {
		return schemas.ProcessStatus{}, false, err
	}
	return ps, ok, nil
}

// SetProcessStatus records that pid owns id.
func (s *FileStore) SetProcessStatus(id string, pid int) error {
	return s.writeRecord(s.procDir, id, schemas.ProcessStatus{PID: pid})
}

// DeleteProcessStatus removes the process record for id, if any.
func (s *FileStore) DeleteProcessStatus(id string) error {
	return s.deleteRecord(s.procDir, id)
}

// Close is a no-op: a FileStore holds no resources beyond per-call locks.
func (s *FileStore) Close() error {
	return nil
}
