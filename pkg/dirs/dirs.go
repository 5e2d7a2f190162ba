// Package dirs manages the three directories a tagging job's files pass
// through: input, output and error. It generalizes the teacher's local
// filesystem storage backend into the fixed, single-root layout this
// service needs, since nothing here is addressed by a URI.
package dirs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Manager owns the input/output/error directories rooted at a single
// filesystem path.
type Manager struct {
	root      string
	inputDir  string
	outputDir string
	errorDir  string
	outputExt string
}

// New creates (if necessary) and returns a Manager rooted at root. outputExt
// is the filename extension a tagger writes for its results (".tsv" in the
// default tagger contract).
func New(root, outputExt string) (*Manager, error) {
	m := &Manager{
		root:      root,
		inputDir:  filepath.Join(root, "input"),
		outputDir: filepath.Join(root, "output"),
		errorDir:  filepath.Join(root, "error"),
		outputExt: outputExt,
	}

	for _, dir := range []string{m.inputDir, m.outputDir, m.errorDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return m, nil
}

// InputPath returns the path a job's uploaded file is stored at.
func (m *Manager) InputPath(id string) string {
	return filepath.Join(m.inputDir, id)
}

// OutputPath returns the path a tagger's result for id is expected at.
func (m *Manager) OutputPath(id string) string {
	return filepath.Join(m.outputDir, id+m.outputExt)
}

// ErrorPath returns the path an input file is moved to when processing
// fails for id.
func (m *Manager) ErrorPath(id string) string {
	return filepath.Join(m.errorDir, id)
}

// SaveInput writes data to the input directory for id.
func (m *Manager) SaveInput(id string, data io.Reader) error {
	path := m.InputPath(id)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	return nil
}

// Exists reports whether anything (a file or a directory) exists at path.
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes path, tolerating its absence.
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// MoveToError relocates id's input file into the error directory, if it is
// still present. A job whose input was already consumed has nothing to
// move, which is not an error.
func (m *Manager) MoveToError(id string) error {
	src := m.InputPath(id)
	if !m.Exists(src) {
		return nil
	}

	dst := m.ErrorPath(id)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move input to error directory: %w", err)
	}
	return nil
}

// FileSize returns the size in bytes of the file at path.
func (m *Manager) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// InputQueueSize returns the total size in bytes of every file currently
// waiting in the input directory, the local replacement for the original
// `du -sb` probe backing the health endpoint's queueSizeAtTagger field.
func (m *Manager) InputQueueSize() (int64, error) {
	entries, err := os.ReadDir(m.inputDir)
	if err != nil {
		return 0, fmt.Errorf("read input directory: %w", err)
	}

	var total int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// listIDs returns the ids of every file currently in dir (one of
// InputPath/OutputPath/ErrorPath's parent directories), identified by base
// name with outputExt stripped when listing the output directory.
func (m *Manager) listIDs(dir string, stripExt bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if stripExt {
			name = strings.TrimSuffix(name, m.outputExt)
		}
		ids = append(ids, name)
	}
	return ids, nil
}

// ListOutputIDs returns the ids of every completed job with a result still
// on disk.
func (m *Manager) ListOutputIDs() ([]string, error) {
	return m.listIDs(m.outputDir, true)
}

// ListErrorIDs returns the ids of every job whose input was moved to the
// error directory.
func (m *Manager) ListErrorIDs() ([]string, error) {
	return m.listIDs(m.errorDir, false)
}
