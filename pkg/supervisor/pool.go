// Package supervisor runs the bounded pool of long-lived tagger worker
// children and the scheduling loop that feeds them pending jobs.
package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"syscall"
)

// WorkerSlot owns one long-lived worker child process. The child is
// started once, performs the tagger's Initialize exactly once, and then
// serves one job at a time for the rest of its life over a line-based
// protocol on its stdin/stdout. A slot whose child is killed (deadline
// enforcement, or a cancelled job) is marked dead and must be restarted
// before it can serve another job.
type WorkerSlot struct {
	index      int
	binPath    string
	taggerKind string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	dead   bool
}

func newWorkerSlot(index int, binPath, taggerKind string) *WorkerSlot {
	return &WorkerSlot{index: index, binPath: binPath, taggerKind: taggerKind}
}

// start launches (or relaunches) the child process backing this slot.
func (w *WorkerSlot) start() error {
	cmd := exec.Command(w.binPath, "-tagger", w.taggerKind)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open worker stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker process: %w", err)
	}

	w.cmd = cmd
	w.stdin = stdin
	w.stdout = bufio.NewScanner(stdout)
	w.dead = false
	return nil
}

// PID reports the child process's pid.
func (w *WorkerSlot) PID() int {
	if w.cmd == nil || w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

// workerReply is a line read back from a worker child.
type workerReply struct {
	line string
	err  error
}

// Dispatch hands one job to the worker child and blocks until it replies
// or ctx's deadline expires, whichever comes first. On deadline expiry the
// child is killed; the slot must be restarted by the pool before reuse.
func (w *WorkerSlot) Dispatch(ctx context.Context, id, inputPath, outputPath string) error {
	line := fmt.Sprintf("%s\t%s\t%s\n", id, inputPath, outputPath)
	if _, err := io.WriteString(w.stdin, line); err != nil {
		w.dead = true
		return fmt.Errorf("send job to worker: %w", err)
	}

	replies := make(chan workerReply, 1)
	go func() {
		if w.stdout.Scan() {
			replies <- workerReply{line: w.stdout.Text()}
			return
		}
		replies <- workerReply{err: w.stdout.Err()}
	}()

	select {
	case reply := <-replies:
		if reply.err != nil {
			w.dead = true
			return fmt.Errorf("read worker reply: %w", reply.err)
		}
		if reply.line == "OK" {
			return nil
		}
		return fmt.Errorf("%s", strings.TrimPrefix(reply.line, "ERR "))

	case <-ctx.Done():
		w.kill()
		return deadlineError(ctx.Err())
	}
}

// deadlineError translates a job context's terminal error into the error a
// worker reports on its own timeout: a deadline expiry is the per-job
// timeout firing, not an ordinary cancellation, and is reported with the
// errno message the original implementation's ETIME error carried so it
// surfaces the same way through the error status and callback. Any other
// ctx error (e.g. the supervisor shutting down) passes through unchanged.
func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New(syscall.ETIME.Error())
	}
	return err
}

// kill forcibly terminates the child and marks the slot dead. The worker
// child runs the tagger with no deadline of its own, so this kill is what
// enforces the per-job deadline.
func (w *WorkerSlot) kill() {
	w.dead = true
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	go w.cmd.Wait() // reap asynchronously; the exit status is uninteresting
}

// Pool is a fixed-size set of WorkerSlot children. Acquire/Release use a
// buffered channel as the availability semaphore.
type Pool struct {
	slots      []*WorkerSlot
	free       chan *WorkerSlot
	binPath    string
	taggerKind string
}

// NewPool starts n worker children and returns a Pool owning them.
func NewPool(n int, binPath, taggerKind string) (*Pool, error) {
	p := &Pool{free: make(chan *WorkerSlot, n), binPath: binPath, taggerKind: taggerKind}

	for i := 0; i < n; i++ {
		slot := newWorkerSlot(i, binPath, taggerKind)
		if err := slot.start(); err != nil {
			p.Close()
			return nil, fmt.Errorf("start worker %d: %w", i, err)
		}
		p.slots = append(p.slots, slot)
		p.free <- slot
	}

	return p, nil
}

// Acquire blocks until a slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*WorkerSlot, error) {
	select {
	case slot := <-p.free:
		return slot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns slot to the pool, restarting its child first if the
// previous job's deadline killed it.
func (p *Pool) Release(slot *WorkerSlot) {
	if slot.dead {
		if err := slot.start(); err != nil {
			// The slot stays out of rotation rather than handing back a
			// worker that can't run anything; the next Acquire blocks
			// until an operator notices and restarts the service.
			log.Printf("worker slot %d: failed to restart: %v", slot.index, err)
			return
		}
	}
	p.free <- slot
}

// Close kills every worker child. Used on shutdown and on startup failure.
func (p *Pool) Close() {
	for _, slot := range p.slots {
		if slot.cmd != nil && slot.cmd.Process != nil {
			_ = slot.cmd.Process.Kill()
		}
	}
}
