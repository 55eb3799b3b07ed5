package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/bugjar/pkg/ports"
	"golang.org/x/term"
)

// ErrQuit ends the REPL.
var ErrQuit = errors.New("quit")

// Input is one parsed console line.
type Input struct {
	Verb  string
	File  string
	Line  int
	Count int
}

var aliases = map[string]string{
	"r":    "run",
	"s":    "step",
	"n":    "next",
	"ret":  "return",
	"b":    "break",
	"q":    "quit",
	"exit": "quit",
	"ls":   "list",
	"w":    "where",
}

// ParseInput parses "verb [FILE:LINE] [N]" or "list FILE".
func ParseInput(text string) (Input, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Input{}, nil
	}
	in := Input{Verb: strings.ToLower(fields[0])}
	if full, ok := aliases[in.Verb]; ok {
		in.Verb = full
	}
	args := fields[1:]

	switch in.Verb {
	case "run", "step", "next", "return", "where", "attach", "quit", "help":
		if len(args) != 0 {
			return in, fmt.Errorf("%s takes no arguments", in.Verb)
		}
	case "list":
		if len(args) > 1 {
			return in, errors.New("usage: list [FILE]")
		}
		if len(args) == 1 {
			in.File = args[0]
		}
	case "break", "tbreak", "clear", "enable", "disable":
		if len(args) != 1 {
			return in, fmt.Errorf("usage: %s FILE:LINE", in.Verb)
		}
		file, line, err := ParseLocation(args[0])
		if err != nil {
			return in, err
		}
		in.File, in.Line = file, line
	case "ignore":
		if len(args) != 2 {
			return in, errors.New("usage: ignore FILE:LINE N")
		}
		file, line, err := ParseLocation(args[0])
		if err != nil {
			return in, err
		}
		count, err := strconv.Atoi(args[1])
		if err != nil || count < 0 {
			return in, fmt.Errorf("invalid ignore count %q", args[1])
		}
		in.File, in.Line, in.Count = file, line, count
	default:
		return in, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return in, nil
}

// ParseLocation splits FILE:LINE at the last colon.
func ParseLocation(s string) (string, int, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", 0, fmt.Errorf("invalid location %q, want FILE:LINE", s)
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil || line < 1 {
		return "", 0, fmt.Errorf("invalid line in %q", s)
	}
	return s[:i], line, nil
}

const helpText = `Commands:
  run|r  step|s  next|n  return|ret
  break FILE:LINE     toggle a breakpoint
  tbreak FILE:LINE    temporary breakpoint
  clear FILE:LINE     remove a breakpoint
  enable FILE:LINE    disable FILE:LINE
  ignore FILE:LINE N  skip the next N hits
  list [FILE]         breakpoints
  where               current position
  attach              reconnect after the debuggee went away
  quit`

// Execute runs one parsed input against the session.
func Execute(ctx context.Context, sess ports.Session, in Input, out io.Writer) error {
	switch in.Verb {
	case "":
		return nil
	case "quit":
		return ErrQuit
	case "help":
		fmt.Fprintln(out, helpText)
		return nil
	case "attach":
		return sess.Start(ctx)
	case "run":
		return sess.Run(ctx)
	case "step":
		return sess.Step(ctx)
	case "next":
		return sess.Next(ctx)
	case "return":
		return sess.Return(ctx)
	case "break":
		return sess.ToggleBreakpoint(ctx, in.File, in.Line)
	case "tbreak":
		return sess.CreateBreakpoint(ctx, in.File, in.Line, true)
	case "clear":
		return sess.ClearBreakpoint(ctx, in.File, in.Line)
	case "enable":
		return sess.EnableBreakpoint(ctx, in.File, in.Line)
	case "disable":
		return sess.DisableBreakpoint(ctx, in.File, in.Line)
	case "ignore":
		return sess.IgnoreBreakpoint(ctx, in.File, in.Line, in.Count)
	case "list":
		if in.File != "" {
			for _, ls := range sess.CurrentFileBreakpoints(in.File) {
				fmt.Fprintf(out, "%s:%d [%s]\n", ls.File, ls.Line, ls.State)
			}
			return nil
		}
		bps := sess.Breakpoints()
		if len(bps) == 0 {
			fmt.Fprintln(out, "No breakpoints.")
		}
		for _, bp := range bps {
			fmt.Fprintf(out, "%s:%d enabled=%t temporary=%t ignore=%d\n", bp.File, bp.Line, bp.Enabled, bp.Temporary, bp.IgnoreCount)
		}
		return nil
	case "where":
		pos := sess.Position()
		if !pos.Running() {
			fmt.Fprintln(out, "Not running")
			return nil
		}
		for i, f := range pos.Stack {
			marker := "  "
			if i == len(pos.Stack)-1 {
				marker = "->"
			}
			fmt.Fprintf(out, "%s %s:%d\n", marker, f.Filename(), f.Line)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", in.Verb)
	}
}

// REPL reads console commands until quit, EOF or ctx is done.
type REPL struct {
	Session ports.Session
	In      io.Reader
	Out     io.Writer
	Prompt  bool
}

// NewStdioREPL prompts only when stdin is a terminal.
func NewStdioREPL(sess ports.Session) *REPL {
	return &REPL{
		Session: sess,
		In:      os.Stdin,
		Out:     os.Stdout,
		Prompt:  term.IsTerminal(int(os.Stdin.Fd())),
	}
}

func (r *REPL) prompt() {
	if r.Prompt {
		fmt.Fprint(r.Out, "(bugjar) ")
	}
}

// Run returns nil on quit or end of input.
func (r *REPL) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	r.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case text := <-lines:
			in, err := ParseInput(text)
			if err == nil {
				err = Execute(ctx, r.Session, in, r.Out)
			}
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(r.Out, "Error: %v\n", err)
			}
			r.prompt()
		}
	}
}
