package api

import "net/http"

// Routes builds the full HTTP handler for the service: every endpoint in
// the table wrapped in the standard logging/recovery/CORS middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, Chain(handler, RecoveryMiddleware, LoggingMiddleware, CORSMiddleware))
	}

	route("/", s.HandleIndex)
	route("/health", s.HandleHealth)

	route("/input", s.handleInput)
	route("/input/", s.handleInputItem)

	route("/status", s.HandleStatusList)
	route("/status/", s.HandleStatusOne)

	route("/error", s.HandleErrorList)
	route("/error/", s.HandleErrorOne)

	route("/output", s.handleOutput)
	route("/output/", s.handleOutputItem)

	return mux
}

// handleInput dispatches GET /input (the upload form) and POST /input (the
// upload itself), since both share the same path.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.HandleInputForm(w, r)
	case http.MethodPost:
		s.HandleInputUpload(w, r)
	default:
		s.sendText(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleInputItem dispatches DELETE /input/<id>.
func (s *Server) handleInputItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.sendText(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.HandleInputDelete(w, r)
}

// handleOutput dispatches GET /output.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendText(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.HandleOutputList(w, r)
}

// handleOutputItem dispatches GET /output/<id> and DELETE /output/<id>.
func (s *Server) handleOutputItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.HandleOutputOne(w, r)
	case http.MethodDelete:
		s.HandleOutputDelete(w, r)
	default:
		s.sendText(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
