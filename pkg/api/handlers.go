// Package api provides HTTP handlers for the tagging job-queueing service.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/inl-tagging/tagqueue/pkg/dirs"
	"github.com/inl-tagging/tagqueue/pkg/schemas"
	"github.com/inl-tagging/tagqueue/pkg/store"
)

// Server holds the API server's dependencies. Handlers are stateless beyond
// this: every request re-reads the store and the managed directories, and
// relies on the store's own locking for correctness under concurrency.
type Server struct {
	store           store.Store
	dirs            *dirs.Manager
	processingSpeed int
}

// NewServer creates a new API server.
func NewServer(s store.Store, d *dirs.Manager, processingSpeed int) *Server {
	return &Server{store: s, dirs: d, processingSpeed: processingSpeed}
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Tagging service</title></head>
<body>
<h1>Tagging service</h1>
<p>POST a file to <a href="/input">/input</a> to queue it for tagging.
Poll <code>/status/&lt;id&gt;</code> for progress and retrieve the result
from <code>/output/&lt;id&gt;</code> once finished.</p>
</body>
</html>
`

const uploadFormPage = `<!DOCTYPE html>
<html>
<head><title>Upload a file</title></head>
<body>
<form method="POST" action="/input" enctype="multipart/form-data">
<input type="file" name="file">
<input type="submit" value="Upload">
</form>
</body>
</html>
`

// HandleIndex handles GET /.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexPage)
}

// HandleHealth handles GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	queueSize, err := s.dirs.InputQueueSize()
	health := schemas.Health{
		Healthy:           err == nil,
		QueueSizeAtTagger: queueSize,
		ProcessingSpeed:   s.processingSpeed,
		Message:           "ok",
	}
	if err != nil {
		health.Message = fmt.Sprintf("could not measure input queue: %v", err)
	}
	s.sendJSON(w, http.StatusOK, health)
}

// HandleInputForm handles GET /input.
func (s *Server) HandleInputForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, uploadFormPage)
}

// HandleInputUpload handles POST /input: it mints a fresh id, stores the
// uploaded bytes and records the job as pending.
func (s *Server) HandleInputUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		s.sendText(w, http.StatusBadRequest, "missing or empty file field")
		return
	}
	defer file.Close()

	id := uuid.NewString()
	if err := s.dirs.SaveInput(id, file); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not save upload: %v", err))
		return
	}

	if err := s.store.SetJobStatus(id, schemas.PendingStatus("Queued for processing")); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not record job status: %v", err))
		return
	}

	s.sendText(w, http.StatusOK, id)
}

// HandleInputDelete handles DELETE /input/<id>: it cancels a job by deleting
// its status and input, killing any worker actively processing it.
func (s *Server) HandleInputDelete(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/input/")
	if id == "" {
		s.sendText(w, http.StatusBadRequest, "missing job id")
		return
	}

	inputPath := s.dirs.InputPath(id)
	existed := s.dirs.Exists(inputPath)
	if !existed {
		s.sendText(w, http.StatusBadRequest, "no such input")
		return
	}

	s.killWorker(id)

	if err := s.dirs.Remove(inputPath); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not remove input: %v", err))
		return
	}
	if err := s.store.DeleteJobStatus(id); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not clear status: %v", err))
		return
	}

	s.sendText(w, http.StatusOK, "deleted")
}

// HandleStatusList handles GET /status.
func (s *Server) HandleStatusList(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.SweepOrphans(); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("orphan sweep failed: %v", err))
		return
	}

	statuses, err := s.store.ListJobStatuses()
	if err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not list statuses: %v", err))
		return
	}
	s.sendJSON(w, http.StatusOK, statuses)
}

// HandleStatusOne handles GET /status/<id>.
func (s *Server) HandleStatusOne(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/status/")
	if id == "" {
		s.sendText(w, http.StatusBadRequest, "missing job id")
		return
	}

	if _, err := s.store.SweepOrphans(); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("orphan sweep failed: %v", err))
		return
	}

	status, err := s.store.JobStatus(id)
	if err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not read status: %v", err))
		return
	}
	s.sendJSON(w, http.StatusOK, status)
}

// errorListResponse is the body returned by GET /error.
type errorListResponse struct {
	ErrorFiles []string `json:"error_files"`
}

// HandleErrorList handles GET /error.
func (s *Server) HandleErrorList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.dirs.ListErrorIDs()
	if err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not list error files: %v", err))
		return
	}
	s.sendJSON(w, http.StatusOK, errorListResponse{ErrorFiles: ids})
}

// HandleErrorOne handles GET /error/<id>: it streams the failed input back.
func (s *Server) HandleErrorOne(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/error/")
	if id == "" {
		s.sendText(w, http.StatusBadRequest, "missing job id")
		return
	}
	s.serveFile(w, s.dirs.ErrorPath(id))
}

// outputListResponse is the body returned by GET /output.
type outputListResponse struct {
	ProcessedFiles []string `json:"processed_files"`
}

// HandleOutputList handles GET /output.
func (s *Server) HandleOutputList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.dirs.ListOutputIDs()
	if err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not list output files: %v", err))
		return
	}
	s.sendJSON(w, http.StatusOK, outputListResponse{ProcessedFiles: ids})
}

// HandleOutputOne handles GET /output/<id>: it streams the tagged result.
func (s *Server) HandleOutputOne(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/output/")
	if id == "" {
		s.sendText(w, http.StatusBadRequest, "missing job id")
		return
	}
	s.serveFile(w, s.dirs.OutputPath(id))
}

// HandleOutputDelete handles DELETE /output/<id>.
func (s *Server) HandleOutputDelete(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/output/")
	if id == "" {
		s.sendText(w, http.StatusBadRequest, "missing job id")
		return
	}

	s.killWorker(id)

	if err := s.dirs.Remove(s.dirs.OutputPath(id)); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not remove output: %v", err))
		return
	}
	if err := s.store.DeleteJobStatus(id); err != nil {
		s.sendText(w, http.StatusInternalServerError, fmt.Sprintf("could not clear status: %v", err))
		return
	}

	s.sendText(w, http.StatusOK, "deleted")
}

// killWorker sends SIGKILL to any process actively handling id and clears
// its process status, matching the cancellation semantics shared by
// DELETE /input/<id> and DELETE /output/<id>.
func (s *Server) killWorker(id string) {
	proc, ok, err := s.store.ProcessStatus(id)
	if err != nil || !ok {
		return
	}
	_ = syscall.Kill(proc.PID, syscall.SIGKILL)
	_ = s.store.DeleteProcessStatus(id)
}

// serveFile streams path's contents as the response body, or reports 404 if
// it doesn't exist.
func (s *Server) serveFile(w http.ResponseWriter, path string) {
	f, err := os.Open(path)
	if err != nil {
		s.sendText(w, http.StatusNotFound, "not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, f)
}

// Close closes the server and releases resources held by its store.
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) sendText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, message)
}

// pathTail extracts the id following prefix in an URL path like
// "/status/<id>", rejecting any path carrying a further "/" segment.
func pathTail(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	tail := strings.TrimPrefix(path, prefix)
	if tail == "" || strings.Contains(tail, "/") {
		return ""
	}
	return tail
}
