package dirs

import (
	"os"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root, err := os.MkdirTemp("", "tagqueue-dirs-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	m, err := New(root, ".tsv")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestSaveInputAndMoveToError(t *testing.T) {
	m := newTestManager(t)

	if err := m.SaveInput("job-1", strings.NewReader("hello world")); err != nil {
		t.Fatalf("SaveInput: %v", err)
	}
	if !m.Exists(m.InputPath("job-1")) {
		t.Fatalf("expected input file to exist")
	}

	size, err := m.FileSize(m.InputPath("job-1"))
	if err != nil {
		t.Fatalf("FileSize: %v", err)
	}
	if size != int64(len("hello world")) {
		t.Fatalf("expected size %d, got %d", len("hello world"), size)
	}

	if err := m.MoveToError("job-1"); err != nil {
		t.Fatalf("MoveToError: %v", err)
	}
	if m.Exists(m.InputPath("job-1")) {
		t.Fatalf("expected input file to be gone after move")
	}
	if !m.Exists(m.ErrorPath("job-1")) {
		t.Fatalf("expected error file to exist after move")
	}
}

func TestMoveToErrorWithoutInputIsNotAnError(t *testing.T) {
	m := newTestManager(t)

	if err := m.MoveToError("never-uploaded"); err != nil {
		t.Fatalf("MoveToError on missing input should be a no-op, got %v", err)
	}
}

func TestInputQueueSize(t *testing.T) {
	m := newTestManager(t)

	if err := m.SaveInput("a", strings.NewReader("1234")); err != nil {
		t.Fatalf("SaveInput: %v", err)
	}
	if err := m.SaveInput("b", strings.NewReader("12345678")); err != nil {
		t.Fatalf("SaveInput: %v", err)
	}

	size, err := m.InputQueueSize()
	if err != nil {
		t.Fatalf("InputQueueSize: %v", err)
	}
	if size != 12 {
		t.Fatalf("expected total size 12, got %d", size)
	}
}

func TestListOutputIDsStripsExtension(t *testing.T) {
	m := newTestManager(t)

	if err := os.WriteFile(m.OutputPath("job-1"), []byte("result"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ids, err := m.ListOutputIDs()
	if err != nil {
		t.Fatalf("ListOutputIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "job-1" {
		t.Fatalf("expected [job-1], got %v", ids)
	}
}
