package supervisor

import (
	"context"
	"errors"
	"syscall"
	"testing"
)

func TestDeadlineErrorReportsETIMEOnExpiry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := deadlineError(ctx.Err())
	if err.Error() != syscall.ETIME.Error() {
		t.Fatalf("got %q, want %q", err.Error(), syscall.ETIME.Error())
	}
}

func TestDeadlineErrorPassesThroughOrdinaryCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := deadlineError(ctx.Err())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
