package domain

import "time"

// NotificationKind names an observer callback.
type NotificationKind string

const (
	NotifyStack             NotificationKind = "stack"
	NotifyActiveFile        NotificationKind = "active_file"
	NotifyBreakpointDisplay NotificationKind = "breakpoint_display"
	NotifyCurrentLineClear  NotificationKind = "current_line_cleared"
	NotifyLine              NotificationKind = "line"
	NotifyCall              NotificationKind = "call"
	NotifyReturn            NotificationKind = "return"
	NotifyException         NotificationKind = "exception"
	NotifyRestart           NotificationKind = "restart"
	NotifyBreakpointChanged NotificationKind = "breakpoint_changed"
	NotifyInfo              NotificationKind = "info"
	NotifyWarning           NotificationKind = "warning"
	NotifyDebuggeeError     NotificationKind = "debuggee_error"
	NotifyError             NotificationKind = "error"
	NotifyCommandDropped    NotificationKind = "command_dropped"
)

// Notification is a flattened record of one observer callback. It is what
// gets streamed over SSE, kept by recorders, and handed to scripts.
type Notification struct {
	Kind    NotificationKind  `json:"kind"`
	Time    time.Time         `json:"time"`
	File    string            `json:"file,omitempty"`
	Line    int               `json:"line,omitempty"`
	Changed bool              `json:"changed,omitempty"`
	Frames  []Frame           `json:"frames,omitempty"`
	State   *DisplayState     `json:"state,omitempty"`
	Change  *BreakpointChange `json:"change,omitempty"`
	Payload any               `json:"payload,omitempty"`
	Source  string            `json:"source,omitempty"`
	Message string            `json:"message,omitempty"`
	Command *Command          `json:"command,omitempty"`
}
