package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/bugjar"
	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/breakpoint"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/aretw0/bugjar/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server implements ServerInterface over one debugger session.
type Server struct {
	Session ports.Session
	Streams *StreamManager

	sessionID string
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger configures request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes the registry on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithSessionID is reported by GET /info.
func WithSessionID(id string) Option {
	return func(s *Server) {
		s.sessionID = id
	}
}

// NewServer creates a server. Register Server.Observer() with the
// controller to feed GET /events.
func NewServer(sess ports.Session, opts ...Option) *Server {
	s := &Server{
		Session: sess,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// Observer streams every session notification to SSE subscribers.
func (s *Server) Observer() ports.Observer {
	return s.Streams.Observer()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	handler := HandlerFromMux(s, r, s.paramError)
	return enableCORS(handler)
}

// NewHandler is shorthand for NewServer(sess, opts...).Handler().
func NewHandler(sess ports.Session, opts ...Option) http.Handler {
	return NewServer(sess, opts...).Handler()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Bugjar API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// StatusFor maps a session error to an HTTP status.
func StatusFor(err error) int {
	var paramErr *ParamError
	var connErr *domain.ConnectionError
	switch {
	case errors.As(err, &paramErr), errors.Is(err, breakpoint.ErrNegativeIgnore):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownBreakpoint):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConnectionNotBootstrapped),
		errors.Is(err, domain.ErrDuplicateBreakpoint),
		errors.Is(err, session.ErrInvalidState):
		return http.StatusConflict
	case errors.As(err, &connErr), errors.Is(err, domain.ErrConnectionClosed), errors.Is(err, domain.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("Request refused", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) paramError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}

// accepted answers a command the debuggee will acknowledge later.
func (s *Server) accepted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Start handles POST /start.
func (s *Server) Start(w http.ResponseWriter, r *http.Request) {
	s.accepted(w, r, s.Session.Start(r.Context()))
}

// ListBreakpoints handles GET /breakpoints.
func (s *Server) ListBreakpoints(w http.ResponseWriter, r *http.Request, params ListBreakpointsParams) {
	if params.File != nil && *params.File != "" {
		states := s.Session.CurrentFileBreakpoints(*params.File)
		if states == nil {
			states = []domain.LineState{}
		}
		writeJSON(w, http.StatusOK, states)
		return
	}
	bps := s.Session.Breakpoints()
	if bps == nil {
		bps = []domain.Breakpoint{}
	}
	writeJSON(w, http.StatusOK, bps)
}

// ToggleBreakpoint handles POST /breakpoints/toggle.
func (s *Server) ToggleBreakpoint(w http.ResponseWriter, r *http.Request, p LocationParams) {
	s.accepted(w, r, s.Session.ToggleBreakpoint(r.Context(), p.File, p.Line))
}

// TemporaryBreakpoint handles POST /breakpoints/temporary.
func (s *Server) TemporaryBreakpoint(w http.ResponseWriter, r *http.Request, p LocationParams) {
	s.accepted(w, r, s.Session.CreateBreakpoint(r.Context(), p.File, p.Line, true))
}

// EnableBreakpoint handles POST /breakpoints/enable.
func (s *Server) EnableBreakpoint(w http.ResponseWriter, r *http.Request, p LocationParams) {
	s.accepted(w, r, s.Session.EnableBreakpoint(r.Context(), p.File, p.Line))
}

// DisableBreakpoint handles POST /breakpoints/disable.
func (s *Server) DisableBreakpoint(w http.ResponseWriter, r *http.Request, p LocationParams) {
	s.accepted(w, r, s.Session.DisableBreakpoint(r.Context(), p.File, p.Line))
}

// IgnoreBreakpoint handles POST /breakpoints/ignore.
func (s *Server) IgnoreBreakpoint(w http.ResponseWriter, r *http.Request, p IgnoreParams) {
	s.accepted(w, r, s.Session.IgnoreBreakpoint(r.Context(), p.File, p.Line, p.Count))
}

// ClearBreakpoint handles POST /breakpoints/clear.
func (s *Server) ClearBreakpoint(w http.ResponseWriter, r *http.Request, p LocationParams) {
	s.accepted(w, r, s.Session.ClearBreakpoint(r.Context(), p.File, p.Line))
}

func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	s.accepted(w, r, s.Session.Run(r.Context()))
}

func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	s.accepted(w, r, s.Session.Step(r.Context()))
}

func (s *Server) Next(w http.ResponseWriter, r *http.Request) {
	s.accepted(w, r, s.Session.Next(r.Context()))
}

func (s *Server) Return(w http.ResponseWriter, r *http.Request) {
	s.accepted(w, r, s.Session.Return(r.Context()))
}

// GetPosition handles GET /position.
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos := s.Session.Position()
	if pos.Stack == nil {
		pos.Stack = []domain.Frame{}
	}
	writeJSON(w, http.StatusOK, pos)
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"state": s.Session.State().String()})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "bugjar-http",
		"version":     strings.TrimSpace(bugjar.Version),
		"api_version": apiVersion,
		"session_id":  s.sessionID,
	})
}

// SubscribeEvents handles GET /events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, params SubscribeEventsParams) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	var kinds map[domain.NotificationKind]bool
	if params.Kinds != nil && *params.Kinds != "" {
		kinds = make(map[domain.NotificationKind]bool)
		for _, k := range strings.Split(*params.Kinds, ",") {
			kinds[domain.NotificationKind(strings.TrimSpace(k))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if kinds != nil && !kinds[msg.Kind] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Kind, msg.Data)
			flusher.Flush()
		}
	}
}
