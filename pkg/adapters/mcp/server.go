package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/bugjar"
	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observer"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PositionURI is the resource holding the current position.
const PositionURI = "bugjar://position"

// DefaultHistory is how many notifications recent_notifications can return.
const DefaultHistory = 200

// BreakpointList aligns with the HTTP listing and is the output schema of
// list_breakpoints.
type BreakpointList struct {
	Breakpoints []domain.Breakpoint `json:"breakpoints" jsonschema_description:"Stored breakpoints"`
	Lines       []domain.LineState  `json:"lines,omitempty" jsonschema_description:"Display state per line when a file was given"`
}

// Server exposes a debugger session as MCP tools.
type Server struct {
	session   ports.Session
	recorder  *observer.Recorder
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHistory bounds the notification history.
func WithHistory(limit int) Option {
	return func(s *Server) {
		s.recorder = observer.NewRecorder(limit)
	}
}

// NewServer creates an MCP server. Register Observer() with the controller
// so recent_notifications has something to report.
func NewServer(sess ports.Session, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		recorder:  observer.NewRecorder(DefaultHistory),
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("bugjar-mcp", strings.TrimSpace(bugjar.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// Bind sets the session when it has to be created after the server.
func (s *Server) Bind(sess ports.Session) {
	s.session = sess
}

// Observer records notifications for recent_notifications.
func (s *Server) Observer() ports.Observer {
	return s.recorder
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func locationTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("file", mcp.Required(), mcp.Description("Source file path as the debuggee reports it")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number")),
	)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(locationTool("toggle_breakpoint",
		"Create a breakpoint, or flip an existing one between enabled and disabled."),
		s.locationHandler(ports.Session.ToggleBreakpoint))

	s.mcpServer.AddTool(locationTool("clear_breakpoint",
		"Remove a breakpoint."),
		s.locationHandler(ports.Session.ClearBreakpoint))

	s.mcpServer.AddTool(locationTool("temporary_breakpoint",
		"Create a breakpoint that is cleared after its first hit."),
		s.locationHandler(func(sess ports.Session, ctx context.Context, file string, line int) error {
			return sess.CreateBreakpoint(ctx, file, line, true)
		}))

	s.mcpServer.AddTool(mcp.NewTool("ignore_breakpoint",
		mcp.WithDescription("Skip the next count hits of a breakpoint. A count of 0 re-enables it."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Source file path")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number")),
		mcp.WithNumber("count", mcp.Required(), mcp.Description("Hits to skip")),
	), s.handleIgnore)

	for _, c := range []struct {
		name, description string
		fn                func(ports.Session, context.Context) error
	}{
		{"run", "Continue until the next breakpoint.", ports.Session.Run},
		{"step", "Execute one line, entering calls.", ports.Session.Step},
		{"next", "Execute one line, stepping over calls.", ports.Session.Next},
		{"return", "Run until the current function returns.", ports.Session.Return},
	} {
		s.mcpServer.AddTool(mcp.NewTool(c.name, mcp.WithDescription(c.description)), s.commandHandler(c.fn))
	}

	s.mcpServer.AddTool(mcp.NewTool("list_breakpoints",
		mcp.WithDescription("List stored breakpoints. With file, also report the display state of each line."),
		mcp.WithString("file", mcp.Description("Restrict line states to this file (optional)")),
		mcp.WithOutputSchema[BreakpointList](),
	), mcp.NewStructuredToolHandler(s.handleListBreakpoints))

	s.mcpServer.AddTool(mcp.NewTool("get_position",
		mcp.WithDescription("Current file, line and call stack."),
	), s.handleGetPosition)

	s.mcpServer.AddTool(mcp.NewTool("recent_notifications",
		mcp.WithDescription("Most recent session notifications, oldest first."),
		mcp.WithNumber("limit", mcp.Description("How many to return (default 20)")),
	), s.handleRecentNotifications)
}

// accepted reports the command as sent; acks arrive as notifications.
func accepted(err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("accepted"), nil
}

func requireLocation(request mcp.CallToolRequest) (string, int, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return "", 0, err
	}
	line, err := request.RequireInt("line")
	if err != nil {
		return "", 0, err
	}
	if line < 1 {
		return "", 0, fmt.Errorf("line must be positive, got %d", line)
	}
	return file, line, nil
}

func (s *Server) locationHandler(fn func(ports.Session, context.Context, string, int) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, line, err := requireLocation(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return accepted(fn(s.session, ctx, file, line))
	}
}

func (s *Server) commandHandler(fn func(ports.Session, context.Context) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return accepted(fn(s.session, ctx))
	}
}

func (s *Server) handleIgnore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, line, err := requireLocation(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count, err := request.RequireInt("count")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return accepted(s.session.IgnoreBreakpoint(ctx, file, line, count))
}

func (s *Server) handleListBreakpoints(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (BreakpointList, error) {
	list := BreakpointList{Breakpoints: s.session.Breakpoints()}
	if list.Breakpoints == nil {
		list.Breakpoints = []domain.Breakpoint{}
	}
	if file, _ := args["file"].(string); file != "" {
		list.Lines = s.session.CurrentFileBreakpoints(file)
	}
	return list, nil
}

func (s *Server) positionJSON() (string, error) {
	pos := s.session.Position()
	if pos.Stack == nil {
		pos.Stack = []domain.Frame{}
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) handleGetPosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.positionJSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode position: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleRecentNotifications(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 20)
	if limit < 1 {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be positive, got %d", limit)), nil
	}
	data, err := json.Marshal(s.recorder.Last(limit))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode notifications: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(PositionURI, "Current Position",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.positionJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode position: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      PositionURI,
				MIMEType: "application/json",
				Text:     text,
			},
		}, nil
	})
}
