package domain

import (
	"fmt"
	"time"
)

// Location identifies a breakpoint.
type Location struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Breakpoint is a stored breakpoint. A temporary breakpoint is honored once
// and then cleared by the debuggee. A positive IgnoreCount means the next
// IgnoreCount hits are skipped.
type Breakpoint struct {
	File        string `json:"file" yaml:"file"`
	Line        int    `json:"line" yaml:"line"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Temporary   bool   `json:"temporary,omitempty" yaml:"temporary,omitempty"`
	IgnoreCount int    `json:"ignore_count,omitempty" yaml:"ignore_count,omitempty"`
}

// NewBreakpoint returns a freshly created breakpoint: enabled, not temporary, no ignores.
func NewBreakpoint(file string, line int) Breakpoint {
	return Breakpoint{File: file, Line: line, Enabled: true}
}

// Location returns the breakpoint's identity.
func (b Breakpoint) Location() Location {
	return Location{File: b.File, Line: b.Line}
}

// DisplayState is the single visual state of a location.
type DisplayState int

const (
	StateNone DisplayState = iota
	StateEnabled
	StateDisabled
	StateIgnored
	StateTemporary
)

var displayStateNames = map[DisplayState]string{
	StateNone:      "none",
	StateEnabled:   "enabled",
	StateDisabled:  "disabled",
	StateIgnored:   "ignored",
	StateTemporary: "temporary",
}

func (s DisplayState) String() string {
	if name, ok := displayStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DisplayState(%d)", int(s))
}

// MarshalText renders the state by name in JSON and YAML.
func (s DisplayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *DisplayState) UnmarshalText(text []byte) error {
	for state, name := range displayStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown display state %q", text)
}

// DeriveState is the only place a display state is computed. A nil
// breakpoint means nothing is stored at the location.
func DeriveState(bp *Breakpoint) DisplayState {
	switch {
	case bp == nil:
		return StateNone
	case bp.Temporary:
		return StateTemporary
	case bp.IgnoreCount > 0:
		return StateIgnored
	case bp.Enabled:
		return StateEnabled
	default:
		return StateDisabled
	}
}

// LineState pairs a location with its display state, for redraws.
type LineState struct {
	File  string       `json:"file"`
	Line  int          `json:"line"`
	State DisplayState `json:"state"`
}

// ChangeKind is the precise transition an observer should apply.
type ChangeKind string

const (
	ChangeEnable  ChangeKind = "enable"
	ChangeDisable ChangeKind = "disable"
	ChangeIgnore  ChangeKind = "ignore"
	ChangeClear   ChangeKind = "clear"
)

// BreakpointChange describes an acknowledged breakpoint transition.
// Hit is set when a temporary breakpoint was cleared after being honored.
type BreakpointChange struct {
	Kind       ChangeKind   `json:"kind"`
	Breakpoint Breakpoint   `json:"breakpoint"`
	State      DisplayState `json:"state"`
	Hit        bool         `json:"hit,omitempty"`
}

// Snapshot is the persisted set of breakpoints of a session.
type Snapshot struct {
	SessionID   string       `json:"session_id" yaml:"session_id"`
	Breakpoints []Breakpoint `json:"breakpoints" yaml:"breakpoints"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"updated_at"`
}
