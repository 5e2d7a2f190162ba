package store

import (
	"os"
	"testing"

	"github.com/inl-tagging/tagqueue/pkg/schemas"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, func() Store { return NewMemoryStore() })
}

func TestFileStore(t *testing.T) {
	testStore(t, func() Store {
		dir, err := os.MkdirTemp("", "tagqueue-store-*")
		if err != nil {
			t.Fatalf("MkdirTemp: %v", err)
		}
		t.Cleanup(func() { os.RemoveAll(dir) })

		s, err := NewFileStore(dir)
		if err != nil {
			t.Fatalf("NewFileStore: %v", err)
		}
		return s
	})
}

// testStore exercises the behavior every Store implementation must share.
func testStore(t *testing.T, newStore func() Store) {
	t.Run("unknown job reports synthetic status", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		status, err := s.JobStatus("does-not-exist")
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		if !status.Unknown() {
			t.Fatalf("expected unknown status, got %+v", status)
		}
		if status.Message != schemas.FileNotOnServerMessage {
			t.Fatalf("expected message %q, got %q", schemas.FileNotOnServerMessage, status.Message)
		}
	})

	t.Run("set and get job status round-trips", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		want := schemas.BusyStatus("Parsing file")
		if err := s.SetJobStatus("job-1", want); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}

		got, err := s.JobStatus("job-1")
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})

	t.Run("delete job status", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.SetJobStatus("job-2", schemas.FinishedStatus("done")); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}
		if err := s.DeleteJobStatus("job-2"); err != nil {
			t.Fatalf("DeleteJobStatus: %v", err)
		}

		got, err := s.JobStatus("job-2")
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		if !got.Unknown() {
			t.Fatalf("expected unknown status after delete, got %+v", got)
		}
	})

	t.Run("deleting a job with no record is not an error", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.DeleteJobStatus("never-existed"); err != nil {
			t.Fatalf("DeleteJobStatus: %v", err)
		}
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if _, err := s.JobStatus(""); err != ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if err := s.SetJobStatus("", schemas.PendingStatus("x")); err != ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("id with path separator is rejected", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if _, err := s.JobStatus("../escape"); err != ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("list job statuses returns everything recorded", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.SetJobStatus("a", schemas.PendingStatus("File arrived")); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}
		if err := s.SetJobStatus("b", schemas.FinishedStatus("done")); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}

		all, err := s.ListJobStatuses()
		if err != nil {
			t.Fatalf("ListJobStatuses: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 statuses, got %d", len(all))
		}
		if !all["a"].Pending {
			t.Fatalf("expected a to be pending, got %+v", all["a"])
		}
		if !all["b"].Finished {
			t.Fatalf("expected b to be finished, got %+v", all["b"])
		}
	})

	t.Run("pending job ids filters by flag", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.SetJobStatus("pending-1", schemas.PendingStatus("File arrived")); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}
		if err := s.SetJobStatus("busy-1", schemas.BusyStatus("Parsing file")); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}

		pending, err := s.PendingJobIDs()
		if err != nil {
			t.Fatalf("PendingJobIDs: %v", err)
		}
		if len(pending) != 1 || pending[0] != "pending-1" {
			t.Fatalf("expected only pending-1, got %v", pending)
		}
	})

	t.Run("process status round-trips", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.SetProcessStatus("job-3", 4242); err != nil {
			t.Fatalf("SetProcessStatus: %v", err)
		}

		ps, ok, err := s.ProcessStatus("job-3")
		if err != nil {
			t.Fatalf("ProcessStatus: %v", err)
		}
		if !ok {
			t.Fatalf("expected process status to exist")
		}
		if ps.PID != 4242 {
			t.Fatalf("expected pid 4242, got %d", ps.PID)
		}

		if err := s.DeleteProcessStatus("job-3"); err != nil {
			t.Fatalf("DeleteProcessStatus: %v", err)
		}
		_, ok, err = s.ProcessStatus("job-3")
		if err != nil {
			t.Fatalf("ProcessStatus: %v", err)
		}
		if ok {
			t.Fatalf("expected process status to be gone")
		}
	})

	t.Run("sweep resets jobs whose worker died", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.SetJobStatus("orphan", schemas.BusyStatus("Parsing file")); err != nil {
			t.Fatalf("SetJobStatus: %v", err)
		}
		// PID 0 is never a live process id from a liveness-probe's point of
		// view, and the in-memory store's alive set starts empty: both
		// implementations treat this pid as dead.
		if err := s.SetProcessStatus("orphan", 0); err != nil {
			t.Fatalf("SetProcessStatus: %v", err)
		}

		swept, err := s.SweepOrphans()
		if err != nil {
			t.Fatalf("SweepOrphans: %v", err)
		}
		if swept != 1 {
			t.Fatalf("expected 1 orphan swept, got %d", swept)
		}

		status, err := s.JobStatus("orphan")
		if err != nil {
			t.Fatalf("JobStatus: %v", err)
		}
		if !status.Pending {
			t.Fatalf("expected job reset to pending, got %+v", status)
		}
		if status.Message != orphanMessage {
			t.Fatalf("expected orphan message, got %q", status.Message)
		}

		_, ok, err := s.ProcessStatus("orphan")
		if err != nil {
			t.Fatalf("ProcessStatus: %v", err)
		}
		if ok {
			t.Fatalf("expected process status removed by sweep")
		}
	})
}
