package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// Console prints notifications as status lines.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Observer = (*Console)(nil)

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) OnStack([]domain.Frame) {}

func (c *Console) OnActiveFile(active domain.ActiveFile) {
	if active.Changed {
		c.printf("File: %s", active.File)
	}
	c.printf("-> %s:%d", active.File, active.Line)
}

func (c *Console) OnBreakpointDisplay(line domain.LineState) {
	c.printf("   breakpoint %s:%d [%s]", line.File, line.Line, line.State)
}

func (c *Console) OnCurrentLineCleared() {
	c.printf("Not running")
}

func (c *Console) OnLine(file string, line int) {
	c.printf("Line (%s:%d)", file, line)
}

func (c *Console) OnCall(args any) {
	c.printf("Call: %v", args)
}

func (c *Console) OnReturn(value any) {
	c.printf("Return: %v", value)
}

func (c *Console) OnException(details map[string]any) {
	if len(details) == 0 {
		c.printf("Exception")
		return
	}
	c.printf("Exception: %v", details)
}

func (c *Console) OnRestart(string) {
	c.printf("Not running")
	c.printf("Program has finished, and will restart.")
}

func (c *Console) OnBreakpointChanged(change domain.BreakpointChange) {
	bp := change.Breakpoint
	switch change.Kind {
	case domain.ChangeIgnore:
		c.printf("Breakpoint %s:%d ignored for %d hits", bp.File, bp.Line, bp.IgnoreCount)
	case domain.ChangeClear:
		if change.Hit {
			c.printf("Temporary breakpoint %s:%d hit and cleared", bp.File, bp.Line)
			return
		}
		c.printf("Breakpoint %s:%d cleared", bp.File, bp.Line)
	default:
		c.printf("Breakpoint %s:%d %sd [%s]", bp.File, bp.Line, change.Kind, change.State)
	}
}

func (c *Console) OnInfo(message string) {
	c.printf("Info: %s", message)
}

func (c *Console) OnWarning(message string) {
	c.printf("Warning: %s", message)
}

func (c *Console) OnDebuggeeError(message string) {
	c.printf("Error: %s", message)
}

func (c *Console) OnError(err error) {
	c.printf("Session error: %v", err)
}

func (c *Console) OnCommandDropped(cmd domain.Command, err error) {
	c.printf("Command %s dropped: %v", cmd.Kind, err)
}
