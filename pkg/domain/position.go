package domain

// Frame is one entry of the call stack: a line number and free-form metadata
// reported by the debuggee. Metadata always carries "filename".
type Frame struct {
	Line int            `json:"line"`
	Meta map[string]any `json:"meta"`
}

// NewFrame builds a frame for file and line.
func NewFrame(file string, line int) Frame {
	return Frame{Line: line, Meta: map[string]any{"filename": file}}
}

// Filename returns the frame's source file, or "" when the debuggee omitted it.
func (f Frame) Filename() string {
	name, _ := f.Meta["filename"].(string)
	return name
}

func (f Frame) clone() Frame {
	meta := make(map[string]any, len(f.Meta))
	for k, v := range f.Meta {
		meta[k] = v
	}
	return Frame{Line: f.Line, Meta: meta}
}

// CloneFrames deep-copies a stack so callers cannot alias controller state.
func CloneFrames(frames []Frame) []Frame {
	if frames == nil {
		return nil
	}
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = f.clone()
	}
	return out
}

// Position is where the debuggee currently is. The last frame of Stack is
// the executing frame; an empty Stack means nothing is running.
type Position struct {
	File  string  `json:"file,omitempty"`
	Line  int     `json:"line,omitempty"`
	Stack []Frame `json:"stack"`
}

// NewPosition derives a position from a reported stack.
func NewPosition(frames []Frame) Position {
	p := Position{Stack: CloneFrames(frames)}
	if n := len(p.Stack); n > 0 {
		top := p.Stack[n-1]
		p.File = top.Filename()
		p.Line = top.Line
	}
	return p
}

// Running reports whether execution is in progress.
func (p Position) Running() bool {
	return len(p.Stack) > 0
}

// Clone returns a deep copy.
func (p Position) Clone() Position {
	return Position{File: p.File, Line: p.Line, Stack: CloneFrames(p.Stack)}
}

// ActiveFile tells observers which file holds the executing frame.
// Changed is false when the previous stack update was in the same file.
type ActiveFile struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Changed bool   `json:"changed"`
}
