package supervisor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inl-tagging/tagqueue/pkg/schemas"
)

// baseTimeoutSeconds, added to a job's input size and the tagger's
// processing speed constant, is carried over unchanged from the original
// timeout formula.
const baseTimeoutSeconds = 300

// inputProbeAttempts and inputProbeDelay bound how long runJob waits for an
// uploaded file to become visible before giving up, mirroring the
// original's retry loop around a just-written file.
const (
	inputProbeAttempts = 5
	inputProbeDelay    = time.Second
)

// computeTimeout reproduces the original timeout formula verbatim: it is
// dimensionally odd on purpose, adding a byte count and a processing-speed
// constant to a base number of seconds.
func computeTimeout(inputBytes int64, processingSpeed int) time.Duration {
	return time.Duration(baseTimeoutSeconds+inputBytes+int64(processingSpeed)) * time.Second
}

// runJob acquires a worker slot and processes id through to a terminal
// status, moving the input to the error directory and notifying the
// callback server on failure.
func (s *Supervisor) runJob(ctx context.Context, id string) error {
	slot, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire worker for %s: %w", id, err)
	}
	defer s.pool.Release(slot)

	if err := s.store.SetProcessStatus(id, slot.PID()); err != nil {
		return fmt.Errorf("record process status for %s: %w", id, err)
	}

	inputPath := s.dirs.InputPath(id)
	size, err := s.waitForInput(inputPath)
	if err != nil {
		return s.fail(ctx, id, fmt.Sprintf("An exception occurred: %s", err))
	}

	timeout := computeTimeout(size, s.processingSpeed)
	if err := s.store.SetJobStatus(id, schemas.BusyStatus(
		fmt.Sprintf("Will process with a timeout after %d seconds", int(timeout.Seconds())),
	)); err != nil {
		log.Printf("job %s: record busy status: %v", id, err)
	}

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outputPath := s.dirs.OutputPath(id)
	if err := slot.Dispatch(jobCtx, id, inputPath, outputPath); err != nil {
		return s.fail(ctx, id, fmt.Sprintf("An exception occurred: %s", err))
	}

	return s.succeed(ctx, id, inputPath, outputPath)
}

// waitForInput polls for inputPath to appear, matching the short grace
// period the original implementation gave a file that might not have
// finished landing on a shared filesystem yet.
func (s *Supervisor) waitForInput(inputPath string) (int64, error) {
	var lastErr error
	for attempt := 0; attempt < inputProbeAttempts; attempt++ {
		if size, err := s.dirs.FileSize(inputPath); err == nil {
			return size, nil
		} else {
			lastErr = err
		}
		time.Sleep(inputProbeDelay)
	}
	return 0, fmt.Errorf("input file never appeared: %w", lastErr)
}

// jobCancelled reports whether id's job status has already been deleted,
// the signature a DELETE /input or DELETE /output request leaves behind
// after killing the worker handling it. A job in that state must not have
// its status resurrected by the worker's own in-flight cleanup.
func (s *Supervisor) jobCancelled(id string) bool {
	status, err := s.store.JobStatus(id)
	if err != nil {
		log.Printf("job %s: check status before cleanup: %v", id, err)
		return false
	}
	return status.Unknown()
}

// fail records a job's failure, relocates its input, and notifies the
// callback server if one is configured. A job cancelled out from under the
// worker (its status deleted, process killed) is a no-op here: the
// cancellation already did all the cleanup that matters, and the worker's
// own error must not resurrect a status the client deleted.
func (s *Supervisor) fail(ctx context.Context, id, message string) error {
	if s.jobCancelled(id) {
		return fmt.Errorf("job %s: cancelled, not recording failure %q", id, message)
	}

	if err := s.store.DeleteProcessStatus(id); err != nil {
		log.Printf("job %s: clear process status: %v", id, err)
	}
	if err := s.store.SetJobStatus(id, schemas.ErrorStatus(message)); err != nil {
		log.Printf("job %s: record error status: %v", id, err)
	}
	if err := s.dirs.MoveToError(id); err != nil {
		log.Printf("job %s: move input to error directory: %v", id, err)
	}
	if s.callback.Configured() {
		if err := s.callback.SendError(ctx, id, message); err != nil {
			log.Printf("job %s: callback send error: %v", id, err)
		}
	}
	return fmt.Errorf("job %s: %s", id, message)
}

// succeed records a job's completion, removes the consumed input, and
// applies the callback server's keep/delete decision to the output. A job
// cancelled out from under the worker is a no-op here too: its status is
// already gone, and a cancelled job must never produce a callback.
func (s *Supervisor) succeed(ctx context.Context, id, inputPath, outputPath string) error {
	if s.jobCancelled(id) {
		return nil
	}

	if err := s.store.DeleteProcessStatus(id); err != nil {
		log.Printf("job %s: clear process status: %v", id, err)
	}
	if err := s.store.SetJobStatus(id, schemas.FinishedStatus("Removing input file")); err != nil {
		log.Printf("job %s: record finished status: %v", id, err)
	}
	if err := s.dirs.Remove(inputPath); err != nil {
		log.Printf("job %s: remove input file: %v", id, err)
	}

	outSize, err := s.dirs.FileSize(outputPath)
	if err != nil {
		outSize = 0
	}
	finishedMessage := fmt.Sprintf("Finished processing %s, result has size %d", id, outSize)
	if err := s.store.SetJobStatus(id, schemas.FinishedStatus(finishedMessage)); err != nil {
		log.Printf("job %s: record finished status: %v", id, err)
	}

	if s.callback.Configured() {
		keep, err := s.callback.SendResult(ctx, id, outputPath)
		if err != nil {
			log.Printf("job %s: callback send result: %v", id, err)
			return nil
		}
		if !keep {
			if err := s.dirs.Remove(outputPath); err != nil {
				log.Printf("job %s: remove output after DELETE reply: %v", id, err)
			}
		}
		if err := s.store.DeleteJobStatus(id); err != nil {
			log.Printf("job %s: clear status after callback: %v", id, err)
		}
	}

	return nil
}
