package tagger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEchoCopiesInputToOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.tsv")

	if err := os.WriteFile(in, []byte("some text"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	e := NewEcho()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Process(context.Background(), in, out); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "some text" {
		t.Fatalf("expected output to match input, got %q", got)
	}
}

func TestSlowHonorsContextCancellation(t *testing.T) {
	s := NewSlow(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Process(ctx, "unused-in", "unused-out")
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestFailingAlwaysErrors(t *testing.T) {
	f := NewFailing("boom")

	err := f.Process(context.Background(), "in", "out")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if err.Error() != "boom" {
		t.Fatalf("expected message %q, got %q", "boom", err.Error())
	}
}
