package store

import (
	"syscall"

	"github.com/inl-tagging/tagqueue/pkg/schemas"
)

// orphanMessage is reported on a job whose worker died without updating
// its status, carried over verbatim from the original implementation.
const orphanMessage = "File processing ended. Retry later."

// SweepOrphans checks every recorded process status's pid for liveness.
// A worker that was killed (deadline enforcement, crash, SIGKILL from a
// cancel request) leaves its process record behind; the next enumeration
// must not treat that job as still busy forever.
func (s *FileStore) SweepOrphans() (int, error) {
	ids, err := s.listIDs(s.procDir)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, id := range ids {
		ps, ok, err := s.ProcessStatus(id)
		if err != nil || !ok {
			continue
		}
		if processAlive(ps.PID) {
			continue
		}

		if err := s.DeleteProcessStatus(id); err != nil {
			continue
		}
		if err := s.SetJobStatus(id, schemas.PendingStatus(orphanMessage)); err != nil {
			continue
		}
		swept++
	}
	return swept, nil
}

// processAlive reports whether pid names a live process, using the
// kill(pid, 0) liveness probe: no signal is delivered, only the error is
// informative.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
