// Package store provides job and process status persistence.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/inl-tagging/tagqueue/pkg/schemas"
)

var (
	// ErrInvalidID is returned for empty ids or ids that are not safe to use
	// as a filename.
	ErrInvalidID = errors.New("invalid job id")

	// ErrLockTimeout is returned when a record's advisory lock could not be
	// acquired before the configured timeout.
	ErrLockTimeout = errors.New("timed out waiting for record lock")
)

// DefaultLockTimeout mirrors the retry window used by the original
// file-mutex implementation this store generalizes.
const DefaultLockTimeout = 5 * time.Second

// Store is the interface for job and process status persistence. A Store
// has two independent namespaces, job status and process status, both
// keyed by job id.
type Store interface {
	// JobStatus returns the status recorded for id. An id with no record
	// reports schemas.NewUnknownStatus(), not an error.
	JobStatus(id string) (schemas.JobStatus, error)

	// SetJobStatus records status for id, replacing any existing record.
	SetJobStatus(id string, status schemas.JobStatus) error

	// DeleteJobStatus removes the status record for id, if any.
	DeleteJobStatus(id string) error

	// ListJobStatuses returns every recorded job status, keyed by id.
	ListJobStatuses() (map[string]schemas.JobStatus, error)

	// PendingJobIDs runs the orphan sweep and returns the ids of jobs
	// currently pending.
	PendingJobIDs() ([]string, error)

	// ProcessStatus returns the process record for id, and whether one
	// exists.
	ProcessStatus(id string) (schemas.ProcessStatus, bool, error)

	// SetProcessStatus records that pid owns id.
	SetProcessStatus(id string, pid int) error

	// DeleteProcessStatus removes the process record for id, if any.
	DeleteProcessStatus(id string) error

	// SweepOrphans checks every recorded process status's pid for
	// liveness. Dead entries are removed and their job is reset to
	// pending. It returns the number of orphans cleaned up.
	SweepOrphans() (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// ValidateID checks that id is non-empty and safe to use as a filename
// component.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return ErrInvalidID
	}
	return nil
}
