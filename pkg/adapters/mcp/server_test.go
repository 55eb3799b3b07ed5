package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/bugjar/internal/testutils"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content should be TextContent, got %T", result.Content[0])
	return text.Text
}

func TestNewServer(t *testing.T) {
	s := NewServer(new(testutils.MockSession))
	require.NotNil(t, s.mcpServer)
	require.NotNil(t, s.recorder)
}

func TestLocationTools(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("ToggleBreakpoint", mock.Anything, "app.py", 10).Return(nil)
	sess.On("ClearBreakpoint", mock.Anything, "app.py", 10).Return(domain.ErrUnknownBreakpoint)
	sess.On("CreateBreakpoint", mock.Anything, "app.py", 12, true).Return(nil)
	s := NewServer(sess)
	ctx := context.Background()

	result, err := s.locationHandler(ports.Session.ToggleBreakpoint)(ctx, callRequest("toggle_breakpoint", map[string]any{"file": "app.py", "line": 10.0}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "accepted", resultText(t, result))

	result, err = s.locationHandler(ports.Session.ClearBreakpoint)(ctx, callRequest("clear_breakpoint", map[string]any{"file": "app.py", "line": 10.0}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, domain.ErrUnknownBreakpoint.Error(), resultText(t, result))

	result, err = s.locationHandler(func(sess ports.Session, ctx context.Context, file string, line int) error {
		return sess.CreateBreakpoint(ctx, file, line, true)
	})(ctx, callRequest("temporary_breakpoint", map[string]any{"file": "app.py", "line": 12.0}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	sess.AssertExpectations(t)
}

func TestMissingArguments(t *testing.T) {
	sess := new(testutils.MockSession)
	s := NewServer(sess)
	ctx := context.Background()

	for _, args := range []map[string]any{
		{"line": 3.0},
		{"file": "app.py"},
		{"file": "app.py", "line": 0.0},
	} {
		result, err := s.handleIgnore(ctx, callRequest("ignore_breakpoint", args))
		require.NoError(t, err)
		assert.True(t, result.IsError, "%v", args)
	}

	result, err := s.handleIgnore(ctx, callRequest("ignore_breakpoint", map[string]any{"file": "app.py", "line": 3.0}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "count is required")
	sess.AssertNotCalled(t, "IgnoreBreakpoint", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIgnore(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("IgnoreBreakpoint", mock.Anything, "app.py", 3, 2).Return(nil)
	s := NewServer(sess)

	result, err := s.handleIgnore(context.Background(), callRequest("ignore_breakpoint", map[string]any{"file": "app.py", "line": 3.0, "count": 2.0}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	sess.AssertExpectations(t)
}

func TestListBreakpoints(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("Breakpoints").Return([]domain.Breakpoint{domain.NewBreakpoint("app.py", 3)})
	sess.On("CurrentFileBreakpoints", "app.py").Return([]domain.LineState{{File: "app.py", Line: 3, State: domain.StateEnabled}})
	s := NewServer(sess)

	list, err := s.handleListBreakpoints(context.Background(), callRequest("list_breakpoints", nil), map[string]interface{}{})
	require.NoError(t, err)
	assert.Len(t, list.Breakpoints, 1)
	assert.Empty(t, list.Lines)

	list, err = s.handleListBreakpoints(context.Background(), callRequest("list_breakpoints", nil), map[string]interface{}{"file": "app.py"})
	require.NoError(t, err)
	require.Len(t, list.Lines, 1)
	assert.Equal(t, domain.StateEnabled, list.Lines[0].State)
}

func TestPositionToolAndResource(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("Position").Return(domain.NewPosition([]domain.Frame{domain.NewFrame("app.py", 7)}))
	s := NewServer(sess)

	result, err := s.handleGetPosition(context.Background(), callRequest("get_position", nil))
	require.NoError(t, err)

	var pos domain.Position
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &pos))
	assert.Equal(t, "app.py", pos.File)
	assert.Equal(t, 7, pos.Line)

	text, err := s.positionJSON()
	require.NoError(t, err)
	assert.JSONEq(t, resultText(t, result), text)
}

func lastKind(s *Server) domain.NotificationKind {
	last := s.recorder.Last(1)
	if len(last) == 0 {
		return ""
	}
	return last[0].Kind
}

func TestRecentNotifications(t *testing.T) {
	s := NewServer(nil, WithHistory(5))
	ctl, dbg := testutils.StartedSession(t, s.Observer())
	s.Bind(ctl)
	ctx := context.Background()

	result, err := s.locationHandler(ports.Session.ToggleBreakpoint)(ctx, callRequest("toggle_breakpoint", map[string]any{"file": "app.py", "line": 8.0}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Eventually(t, func() bool { return lastKind(s) == domain.NotifyBreakpointChanged }, time.Second, 10*time.Millisecond)

	require.NoError(t, dbg.Emit(ctx, domain.Info{Message: "hello"}))
	require.Eventually(t, func() bool { return lastKind(s) == domain.NotifyInfo }, time.Second, 10*time.Millisecond)

	result, err = s.handleRecentNotifications(ctx, callRequest("recent_notifications", map[string]any{"limit": 1.0}))
	require.NoError(t, err)

	var got []domain.Notification
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, domain.NotifyInfo, got[0].Kind)
	assert.Equal(t, "hello", got[0].Message)

	result, err = s.handleRecentNotifications(ctx, callRequest("recent_notifications", map[string]any{"limit": 0.0}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
