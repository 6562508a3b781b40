package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/taskd-io/taskd/internal/logbuf"
	"github.com/taskd-io/taskd/internal/task"
	"github.com/taskd-io/taskd/pkg/protocol"
)

// Classifier turns an instruction into a task invocation.
type Classifier interface {
	Classify(ctx context.Context, instruction string) (protocol.Invocation, error)
}

// Dispatcher runs invocations against the task catalog.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv protocol.Invocation) error
	Descriptors() []protocol.TaskDescriptor
}

// LogQuerier abstracts log entry querying to avoid coupling to logbuf directly.
type LogQuerier interface {
	Query(f logbuf.Filter) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
}

// Server is the taskd HTTP surface.
type Server struct {
	classifier Classifier
	tasks      Dispatcher
	logger     *slog.Logger
	logs       LogQuerier
	srv        *http.Server
}

// NewServer creates a new API server. logs may be nil.
func NewServer(classifier Classifier, tasks Dispatcher, cfg Config, logger *slog.Logger, logs LogQuerier) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		classifier: classifier,
		tasks:      tasks,
		logger:     logger,
		logs:       logs,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ask", s.handleAsk)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /read", s.handleRead)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tasks", s.handleTasks)
	mux.HandleFunc("GET /logs", s.handleLogs)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(s.requestMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled and in-flight
// requests have drained (at most 5 s).
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Credentialed requests need the exact origin, not "*".
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// --- Handlers ---

type askResponse struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	prompt := r.URL.Query().Get("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	inv, err := s.classifier.Classify(context.WithoutCancel(r.Context()), prompt)
	if err != nil {
		s.logger.Error("classify failed", "request_id", RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Name: inv.Name, Arguments: string(inv.Arguments)})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	instruction := r.URL.Query().Get("task")
	if instruction == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}

	// The work finishes even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	reqID := RequestID(r.Context())

	inv, err := s.classifier.Classify(ctx, instruction)
	if err != nil {
		s.logger.Error("classify failed", "request_id", reqID, "instruction", instruction, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.tasks.Dispatch(ctx, inv); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, task.ErrUnknownTask) {
			status = http.StatusBadRequest
		}
		s.logger.Error("run failed", "request_id", reqID, "task", inv.Name, "instruction", instruction, "error", err)
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s Task '%s' executed successfully", inv.Name, instruction),
	})
}

// handleRead serves any readable path. There is no sandboxing.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Debug("read file", "request_id", RequestID(r.Context()), "path", path, "size", humanize.Bytes(uint64(len(data))))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.Descriptors())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	q := r.URL.Query()
	f := logbuf.Filter{
		MinLevel:  slog.LevelDebug,
		Component: q.Get("component"),
		Limit:     200,
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if lvl, ok := logbuf.ParseLevel(q.Get("level")); ok {
		f.MinLevel = lvl
	}
	if since := q.Get("since"); since != "" {
		if ms, err := strconv.ParseInt(since, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Query(f)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
