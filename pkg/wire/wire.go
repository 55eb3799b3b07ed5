/*
Package wire implements the newline-delimited JSON protocol spoken with a
debuggee.

Every message is one JSON object on one line:

	{"type":"command","id":"...","command":"create","args":{"filename":"app.py","line":10}}
	{"type":"event","event":"stack","args":{"stack":[[10,{"filename":"app.py"}]]}}

Decoding dispatches on the "event" field with gjson and decodes argument
objects with mapstructure. Encoding builds envelopes with sjson.
*/
package wire

import (
	"errors"
	"fmt"

	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MaxMessageSize bounds a single line on stream transports.
const MaxMessageSize = 4 * 1024 * 1024

var (
	// ErrMalformed is returned for input that is not a JSON object of the expected type.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownEvent is returned for events this codec does not understand.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrUnknownCommand is returned for commands this codec does not understand.
	ErrUnknownCommand = errors.New("unknown command")
)

const (
	typeCommand = "command"
	typeEvent   = "event"

	eventBootstrap = "bootstrap"
)

// Handshake is the debuggee's answer to the bootstrap command. It is consumed
// by connections and never reaches the controller.
type Handshake struct{}

// Kind implements domain.Event.
func (Handshake) Kind() domain.EventKind { return eventBootstrap }

var breakpointEvents = map[string]domain.Transition{
	"breakpoint_create":    domain.TransitionCreate,
	"breakpoint_enable":    domain.TransitionEnable,
	"breakpoint_disable":   domain.TransitionDisable,
	"breakpoint_ignore":    domain.TransitionIgnore,
	"breakpoint_temporary": domain.TransitionTemporary,
	"breakpoint_clear":     domain.TransitionClear,
}

var knownCommands = map[string]domain.CommandKind{
	string(domain.CommandBootstrap): domain.CommandBootstrap,
	string(domain.CommandRun):       domain.CommandRun,
	string(domain.CommandStep):      domain.CommandStep,
	string(domain.CommandNext):      domain.CommandNext,
	string(domain.CommandReturn):    domain.CommandReturn,
	string(domain.CommandCreate):    domain.CommandCreate,
	string(domain.CommandEnable):    domain.CommandEnable,
	string(domain.CommandDisable):   domain.CommandDisable,
	string(domain.CommandIgnore):    domain.CommandIgnore,
	string(domain.CommandTemporary): domain.CommandTemporary,
	string(domain.CommandClear):     domain.CommandClear,
}

// breakpointArgs is the debuggee's breakpoint record.
type breakpointArgs struct {
	Filename    string `json:"filename"`
	Line        int    `json:"line"`
	Enabled     bool   `json:"enabled"`
	Temporary   bool   `json:"temporary"`
	IgnoreCount int    `json:"ignore_count"`
}

type ackArgs struct {
	Breakpoint breakpointArgs `json:"bp"`
	Hit        bool           `json:"hit"`
}

type lineArgs struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
}

type messageArgs struct {
	Message string `json:"message"`
}

type restartArgs struct {
	Source string `json:"source"`
}

func decodeArgs(args gjson.Result, out any) error {
	input, _ := args.Value().(map[string]any)
	if input == nil {
		input = map[string]any{}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func parse(data []byte, wantType string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	msg := gjson.ParseBytes(data)
	if !msg.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if got := msg.Get("type").String(); got != wantType {
		return gjson.Result{}, fmt.Errorf("%w: type %q, want %q", ErrMalformed, got, wantType)
	}
	return msg, nil
}

// DecodeEvent parses one event line. The bootstrap answer decodes to Handshake.
func DecodeEvent(data []byte) (domain.Event, error) {
	msg, err := parse(data, typeEvent)
	if err != nil {
		return nil, err
	}
	name := msg.Get("event").String()
	args := msg.Get("args")

	if transition, ok := breakpointEvents[name]; ok {
		var a ackArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return domain.BreakpointAck{
			Transition: transition,
			Breakpoint: domain.Breakpoint{
				File:        a.Breakpoint.Filename,
				Line:        a.Breakpoint.Line,
				Enabled:     a.Breakpoint.Enabled,
				Temporary:   a.Breakpoint.Temporary,
				IgnoreCount: a.Breakpoint.IgnoreCount,
			},
			Hit: a.Hit,
		}, nil
	}

	switch name {
	case eventBootstrap:
		return Handshake{}, nil
	case "stack":
		return decodeStack(args.Get("stack"))
	case "line":
		var a lineArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return domain.LineReached{File: a.Filename, Line: a.Line}, nil
	case "call":
		return domain.CallEntered{Args: args.Get("args").Value()}, nil
	case "return":
		return domain.Returned{Value: args.Get("retval").Value()}, nil
	case "exception":
		details, _ := args.Value().(map[string]any)
		if details == nil {
			details = map[string]any{}
		}
		return domain.ExceptionRaised{Details: details}, nil
	case "restart":
		var a restartArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return domain.Restarted{Source: a.Source}, nil
	case "info", "warning", "error":
		var a messageArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		switch name {
		case "info":
			return domain.Info{Message: a.Message}, nil
		case "warning":
			return domain.Warning{Message: a.Message}, nil
		default:
			return domain.Error{Message: a.Message}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// decodeStack reads [[line, {"filename": ...}], ...].
func decodeStack(stack gjson.Result) (domain.Event, error) {
	if stack.Exists() && !stack.IsArray() {
		return nil, fmt.Errorf("%w: stack is not an array", ErrMalformed)
	}
	var frames []domain.Frame
	var bad error
	stack.ForEach(func(_, entry gjson.Result) bool {
		parts := entry.Array()
		if len(parts) != 2 || parts[0].Type != gjson.Number || !parts[1].IsObject() {
			bad = fmt.Errorf("%w: stack frame %s", ErrMalformed, entry.Raw)
			return false
		}
		meta, _ := parts[1].Value().(map[string]any)
		frames = append(frames, domain.Frame{Line: int(parts[0].Int()), Meta: meta})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return domain.StackUpdate{Frames: frames}, nil
}

type field struct {
	path  string
	value any
}

func build(fields []field) ([]byte, error) {
	out := []byte(`{}`)
	var err error
	for _, f := range fields {
		if out, err = sjson.SetBytes(out, f.path, f.value); err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.path, err)
		}
	}
	return out, nil
}

// EncodeCommand renders a command as one line, without the trailing newline.
func EncodeCommand(cmd domain.Command) ([]byte, error) {
	if _, ok := knownCommands[string(cmd.Kind)]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	fields := []field{
		{"type", typeCommand},
		{"id", cmd.ID},
		{"command", string(cmd.Kind)},
	}
	if cmd.Kind.IsBreakpoint() {
		fields = append(fields, field{"args.filename", cmd.File}, field{"args.line", cmd.Line})
	}
	if cmd.Kind == domain.CommandIgnore {
		fields = append(fields, field{"args.count", cmd.Count})
	}
	if cmd.Temporary {
		fields = append(fields, field{"args.temporary", true})
	}
	return build(fields)
}

// EncodeHandshake renders the debuggee's answer to bootstrap.
func EncodeHandshake() []byte {
	return []byte(`{"type":"event","event":"bootstrap","args":{}}`)
}

// EncodeEvent renders an event as one line. Debuggee implementations and
// test peers use it.
func EncodeEvent(ev domain.Event) ([]byte, error) {
	fields := []field{{"type", typeEvent}}
	event := func(name string, args ...field) {
		fields = append(fields, field{"event", name})
		fields = append(fields, args...)
	}

	switch e := ev.(type) {
	case Handshake:
		return EncodeHandshake(), nil
	case domain.StackUpdate:
		stack := make([][]any, 0, len(e.Frames))
		for _, f := range e.Frames {
			meta := f.Meta
			if meta == nil {
				meta = map[string]any{}
			}
			stack = append(stack, []any{f.Line, meta})
		}
		event("stack", field{"args.stack", stack})
	case domain.LineReached:
		event("line", field{"args.filename", e.File}, field{"args.line", e.Line})
	case domain.CallEntered:
		event("call", field{"args.args", e.Args})
	case domain.Returned:
		event("return", field{"args.retval", e.Value})
	case domain.ExceptionRaised:
		details := e.Details
		if details == nil {
			details = map[string]any{}
		}
		event("exception", field{"args", details})
	case domain.Restarted:
		event("restart", field{"args.source", e.Source})
	case domain.BreakpointAck:
		name := ""
		for n, t := range breakpointEvents {
			if t == e.Transition {
				name = n
			}
		}
		if name == "" {
			return nil, fmt.Errorf("%w: transition %q", ErrUnknownEvent, e.Transition)
		}
		event(name,
			field{"args.bp", breakpointArgs{
				Filename:    e.Breakpoint.File,
				Line:        e.Breakpoint.Line,
				Enabled:     e.Breakpoint.Enabled,
				Temporary:   e.Breakpoint.Temporary,
				IgnoreCount: e.Breakpoint.IgnoreCount,
			}},
			field{"args.hit", e.Hit},
		)
	case domain.Info:
		event("info", field{"args.message", e.Message})
	case domain.Warning:
		event("warning", field{"args.message", e.Message})
	case domain.Error:
		event("error", field{"args.message", e.Message})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
	return build(fields)
}

// DecodeCommand parses one command line. Debuggee implementations and test
// peers use it; the controller only encodes.
func DecodeCommand(data []byte) (domain.Command, error) {
	msg, err := parse(data, typeCommand)
	if err != nil {
		return domain.Command{}, err
	}
	kind, ok := knownCommands[msg.Get("command").String()]
	if !ok {
		return domain.Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Get("command").String())
	}
	args := msg.Get("args")
	return domain.Command{
		ID:        msg.Get("id").String(),
		Kind:      kind,
		File:      args.Get("filename").String(),
		Line:      int(args.Get("line").Int()),
		Count:     int(args.Get("count").Int()),
		Temporary: args.Get("temporary").Bool(),
	}, nil
}
