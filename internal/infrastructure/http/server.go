// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/usecases"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const maxUploadBytes = 32 << 20

// Server is the HTTP server for the chat API and UI.
type Server struct {
	controller *usecases.SessionController
	hub        *Hub
	gatherer   prometheus.Gatherer
	templates  *template.Template
	logger     *zap.Logger
	addr       string
}

// NewServer creates a new HTTP server. The controller must render through hub.
func NewServer(
	controller *usecases.SessionController,
	hub *Hub,
	gatherer prometheus.Gatherer,
	addr string,
	logger *zap.Logger,
) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		controller: controller,
		hub:        hub,
		gatherer:   gatherer,
		templates:  tmpl,
		logger:     logger,
		addr:       addr,
	}, nil
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static files
	staticContent, _ := fs.Sub(staticFS, "static")
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	// UI
	mux.HandleFunc("/", s.handleIndex)

	// API
	mux.HandleFunc("/api/message", s.handleMessage) // SSE streaming
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/match", s.handleMatch)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/events", s.handleEvents) // SSE notifications
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /api/events streams for as long as the page is open.
	}

	s.logger.Info("keyreply server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type indexData struct {
	SessionID string
	Source    string
	Entries   int
}

// handleIndex renders the chat UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	kb := s.controller.KnowledgeBase()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := s.templates.ExecuteTemplate(w, "index.html", indexData{
		SessionID: s.controller.SessionID(),
		Source:    kb.Source(),
		Entries:   kb.Len(),
	})
	if err != nil {
		s.logger.Error("rendering index", zap.Error(err))
	}
}

// handleMessage runs one input through the controller and streams the echo and every
// reply segment as SSE. A rejected input (blank, or a reply already running) gets 204.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, err := messageText(r)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	out := newStreamSink()
	defer out.close()

	type outcome struct {
		accepted bool
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		accepted, err := s.controller.Handle(withSink(r.Context(), out), text)
		done <- outcome{accepted, err}
	}()

	streaming := false
	for {
		select {
		case event := <-out.events:
			if !streaming {
				setSSEHeaders(w)
				streaming = true
			}
			sendSSE(w, flusher, "", event)
		case res := <-done:
			if !res.accepted {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			if !streaming {
				setSSEHeaders(w)
			}
			final := map[string]interface{}{"done": true}
			if res.err != nil {
				final["error"] = res.err.Error()
			}
			sendSSE(w, flusher, "", final)
			return
		case <-r.Context().Done():
			return
		}
	}
}

// handleUpload acknowledges a file by name. The content is never read.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	filename, err := uploadName(r)
	if err != nil {
		http.Error(w, "Invalid upload", http.StatusBadRequest)
		return
	}

	out := &collectSink{}
	accepted, err := s.controller.AcknowledgeFile(withSink(r.Context(), out), filename)
	if err != nil {
		s.logger.Error("acknowledging upload", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !accepted {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, map[string]interface{}{"events": out.collected()})
}

// handleMatch returns every entry's score for q without delivering anything.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		http.Error(w, "Query required", http.StatusBadRequest)
		return
	}

	kb := s.controller.KnowledgeBase()
	result := usecases.Match(q, kb)
	resp := map[string]interface{}{
		"ranking":  usecases.Rank(q, kb),
		"matched":  result.Matched,
		"fallback": !result.Matched,
	}
	if result.Matched {
		resp["entry"] = result.Entry.ID
		resp["score"] = result.Score
	}
	writeJSON(w, resp)
}

// handleHistory returns the stored transcript of the current session.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.controller.History(r.Context())
	if err != nil {
		s.logger.Error("loading history", zap.Error(err))
		http.Error(w, "History unavailable", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []entities.DisplayEvent{}
	}
	writeJSON(w, map[string]interface{}{
		"session_id": s.controller.SessionID(),
		"events":     events,
	})
}

// handleEvents streams hub notifications until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	notes, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	setSSEHeaders(w)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n := <-notes:
			sendSSE(w, flusher, n.Type, n)
		}
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	kb := s.controller.KnowledgeBase()
	writeJSON(w, map[string]interface{}{
		"status":        "ok",
		"source":        kb.Source(),
		"entries":       kb.Len(),
		"loaded_at":     kb.LoadedAt(),
		"session_id":    s.controller.SessionID(),
		"in_progress":   s.controller.InProgress(),
		"pending_reset": s.controller.PendingReset(),
	})
}

// messageText reads the raw input from a JSON body or a form. The text is not trimmed:
// the echo shows exactly what was typed.
func messageText(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.Text, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.FormValue("text"), nil
}

// uploadName takes the file name from a multipart part, a JSON body, or a form field.
func uploadName(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return "", err
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		_, header, err := r.FormFile("file")
		if err == nil {
			return header.Filename, nil
		}
		return r.FormValue("filename"), nil
	case strings.HasPrefix(contentType, "application/json"):
		var req struct {
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.Filename, nil
	default:
		if err := r.ParseForm(); err != nil {
			return "", err
		}
		return r.FormValue("filename"), nil
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	jsonData, _ := json.Marshal(data)
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
