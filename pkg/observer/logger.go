package observer

import (
	"log/slog"

	"github.com/aretw0/bugjar/pkg/domain"
)

// Logger writes every notification to a structured logger. Position updates
// are logged at debug level, breakpoint changes and restarts at info.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a logging observer.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) OnStack(frames []domain.Frame) {
	l.logger.Debug("stack", "depth", len(frames))
}

func (l *Logger) OnActiveFile(active domain.ActiveFile) {
	l.logger.Debug("active_file", "file", active.File, "line", active.Line, "changed", active.Changed)
}

func (l *Logger) OnBreakpointDisplay(line domain.LineState) {
	l.logger.Debug("breakpoint_display", "file", line.File, "line", line.Line, "state", line.State)
}

func (l *Logger) OnCurrentLineCleared() {
	l.logger.Debug("current_line_cleared")
}

func (l *Logger) OnLine(file string, line int) {
	l.logger.Debug("line", "file", file, "line", line)
}

func (l *Logger) OnCall(args any) {
	l.logger.Debug("call", "args", args)
}

func (l *Logger) OnReturn(value any) {
	l.logger.Debug("return", "value", value)
}

func (l *Logger) OnException(details map[string]any) {
	l.logger.Warn("exception", "details", details)
}

func (l *Logger) OnRestart(source string) {
	l.logger.Info("restart", "source", source)
}

func (l *Logger) OnBreakpointChanged(change domain.BreakpointChange) {
	l.logger.Info("breakpoint_changed",
		"kind", change.Kind,
		"file", change.Breakpoint.File,
		"line", change.Breakpoint.Line,
		"state", change.State,
		"hit", change.Hit,
	)
}

func (l *Logger) OnInfo(message string) {
	l.logger.Info("debuggee", "message", message)
}

func (l *Logger) OnWarning(message string) {
	l.logger.Warn("debuggee", "message", message)
}

func (l *Logger) OnDebuggeeError(message string) {
	l.logger.Error("debuggee", "message", message)
}

func (l *Logger) OnError(err error) {
	l.logger.Error("session_error", "err", err)
}

func (l *Logger) OnCommandDropped(cmd domain.Command, err error) {
	l.logger.Warn("command_dropped", "command", cmd.Kind, "file", cmd.File, "line", cmd.Line, "err", err)
}
