package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inl-tagging/tagqueue/pkg/callback"
	"github.com/inl-tagging/tagqueue/pkg/dirs"
	"github.com/inl-tagging/tagqueue/pkg/schemas"
	"github.com/inl-tagging/tagqueue/pkg/store"
)

// DefaultPollInterval mirrors the tight polling loop of the original
// scheduler, which checked for pending work on every tick rather than
// waiting on a notification.
const DefaultPollInterval = 50 * time.Millisecond

// Supervisor owns the worker pool and the loop that feeds it pending jobs.
type Supervisor struct {
	store           store.Store
	dirs            *dirs.Manager
	pool            *Pool
	callback        *callback.Client
	processingSpeed int
	numWorkers      int
	pollInterval    time.Duration
}

// New builds a Supervisor. processingSpeed is the tagger's constant,
// folded into the per-job timeout formula.
func New(s store.Store, d *dirs.Manager, pool *Pool, cb *callback.Client, processingSpeed, numWorkers int) *Supervisor {
	return &Supervisor{
		store:           s,
		dirs:            d,
		pool:            pool,
		callback:        cb,
		processingSpeed: processingSpeed,
		numWorkers:      numWorkers,
		pollInterval:    DefaultPollInterval,
	}
}

// Run polls the store for pending jobs until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.scheduleOnce(ctx); err != nil {
				log.Printf("supervisor: %v", err)
			}
		}
	}
}

// scheduleOnce dispatches every currently pending job, bounding concurrency
// to numWorkers via errgroup.SetLimit so the goroutine fan-out can never
// outrun the worker pool it feeds.
func (s *Supervisor) scheduleOnce(ctx context.Context) error {
	ids, err := s.store.PendingJobIDs()
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	// Claim every pending job before fanning out: PendingJobIDs is
	// re-evaluated on the next tick, and a job still marked pending would
	// otherwise be picked up twice while its goroutine waits for a free
	// worker slot. Re-read each status immediately before claiming it: a
	// job deleted by a concurrent DELETE /input between the enumeration
	// above and this loop must not be resurrected as busy.
	claimed := make([]string, 0, len(ids))
	for _, id := range ids {
		status, err := s.store.JobStatus(id)
		if err != nil {
			log.Printf("job %s: check status before claim: %v", id, err)
			continue
		}
		if !status.Pending {
			continue
		}
		if err := s.store.SetJobStatus(id, schemas.BusyStatus("Parsing file")); err != nil {
			log.Printf("job %s: claim for scheduling: %v", id, err)
			continue
		}
		claimed = append(claimed, id)
	}
	if len(claimed) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.numWorkers)

	for _, id := range claimed {
		id := id
		g.Go(func() error {
			if err := s.runJob(gctx, id); err != nil {
				log.Printf("%v", err)
			}
			// A single job's failure must never cancel its siblings.
			return nil
		})
	}

	return g.Wait()
}
