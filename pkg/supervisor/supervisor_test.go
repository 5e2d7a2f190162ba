package supervisor

import (
	"context"
	"testing"

	"github.com/inl-tagging/tagqueue/pkg/callback"
	"github.com/inl-tagging/tagqueue/pkg/dirs"
	"github.com/inl-tagging/tagqueue/pkg/schemas"
	"github.com/inl-tagging/tagqueue/pkg/store"
)

// raceStore wraps a Store and deletes a chosen job's status the moment
// PendingJobIDs returns, simulating a DELETE /input racing in right after
// the supervisor's enumeration but before its per-id claim check.
type raceStore struct {
	store.Store
	cancelID string
}

func (r *raceStore) PendingJobIDs() ([]string, error) {
	ids, err := r.Store.PendingJobIDs()
	if err != nil {
		return ids, err
	}
	if err := r.Store.DeleteJobStatus(r.cancelID); err != nil {
		return ids, err
	}
	return ids, nil
}

func TestScheduleOnceSkipsAJobCancelledDuringClaim(t *testing.T) {
	mem := store.NewMemoryStore()
	if err := mem.SetJobStatus("job-raced", schemas.PendingStatus("Queued for processing")); err != nil {
		t.Fatalf("SetJobStatus: %v", err)
	}

	root := t.TempDir()
	d, err := dirs.New(root, ".tsv")
	if err != nil {
		t.Fatalf("dirs.New: %v", err)
	}

	rs := &raceStore{Store: mem, cancelID: "job-raced"}
	sup := New(rs, d, nil, callback.New(""), 10000, 2)

	// With no worker pool, a job that slips past the claim check and
	// reaches runJob would panic dereferencing a nil pool; scheduleOnce
	// completing without panicking demonstrates the race window is closed.
	if err := sup.scheduleOnce(context.Background()); err != nil {
		t.Fatalf("scheduleOnce: %v", err)
	}

	status, err := mem.JobStatus("job-raced")
	if err != nil {
		t.Fatalf("JobStatus: %v", err)
	}
	if !status.Unknown() {
		t.Fatalf("expected job-raced to remain cancelled, got %+v", status)
	}
}
