package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/bugjar/internal/testutils"
	bjhttp "github.com/aretw0/bugjar/pkg/adapters/http"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/observability"
	"github.com/aretw0/bugjar/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestSwaggerIsValid(t *testing.T) {
	doc, err := bjhttp.GetSwagger()
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.NotNil(t, doc.Paths.Find("/breakpoints/toggle"))
}

func TestCommands(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("ToggleBreakpoint", mock.Anything, "app.py", 10).Return(nil)
	sess.On("CreateBreakpoint", mock.Anything, "app.py", 11, true).Return(nil)
	sess.On("EnableBreakpoint", mock.Anything, "app.py", 12).Return(nil)
	sess.On("DisableBreakpoint", mock.Anything, "app.py", 13).Return(nil)
	sess.On("IgnoreBreakpoint", mock.Anything, "app.py", 14, 2).Return(nil)
	sess.On("ClearBreakpoint", mock.Anything, "app.py", 15).Return(nil)
	sess.On("Run", mock.Anything).Return(nil)
	sess.On("Step", mock.Anything).Return(nil)
	sess.On("Next", mock.Anything).Return(nil)
	sess.On("Return", mock.Anything).Return(nil)
	sess.On("Start", mock.Anything).Return(nil)

	h := bjhttp.NewHandler(sess)
	for _, target := range []string{
		"/start",
		"/breakpoints/toggle?file=app.py&line=10",
		"/breakpoints/temporary?file=app.py&line=11",
		"/breakpoints/enable?file=app.py&line=12",
		"/breakpoints/disable?file=app.py&line=13",
		"/breakpoints/ignore?file=app.py&line=14&count=2",
		"/breakpoints/clear?file=app.py&line=15",
		"/run", "/step", "/next", "/return",
	} {
		w := do(t, h, http.MethodPost, target)
		assert.Equal(t, http.StatusAccepted, w.Code, target)
	}
	sess.AssertExpectations(t)
}

func TestBadParams(t *testing.T) {
	sess := new(testutils.MockSession)
	h := bjhttp.NewHandler(sess)

	for _, target := range []string{
		"/breakpoints/toggle?file=app.py",
		"/breakpoints/toggle?file=app.py&line=abc",
		"/breakpoints/toggle?file=app.py&line=0",
		"/breakpoints/toggle?line=3",
		"/breakpoints/ignore?file=app.py&line=3",
	} {
		w := do(t, h, http.MethodPost, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
	sess.AssertNotCalled(t, "ToggleBreakpoint", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrConnectionNotBootstrapped, http.StatusConflict},
		{domain.ErrDuplicateBreakpoint, http.StatusConflict},
		{session.ErrInvalidState, http.StatusConflict},
		{domain.ErrUnknownBreakpoint, http.StatusNotFound},
		{domain.ErrConnectionClosed, http.StatusServiceUnavailable},
		{domain.NewConnectionError("send", errors.New("broken pipe")), http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bjhttp.StatusFor(tt.err), tt.err.Error())
	}
}

func TestErrorBody(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("ClearBreakpoint", mock.Anything, "app.py", 99).Return(domain.ErrUnknownBreakpoint)

	w := do(t, bjhttp.NewHandler(sess), http.MethodPost, "/breakpoints/clear?file=app.py&line=99")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrUnknownBreakpoint.Error(), body["error"])
}

func TestQueries(t *testing.T) {
	sess := new(testutils.MockSession)
	sess.On("Breakpoints").Return([]domain.Breakpoint{domain.NewBreakpoint("app.py", 3)})
	sess.On("CurrentFileBreakpoints", "app.py").Return([]domain.LineState{{File: "app.py", Line: 3, State: domain.StateEnabled}})
	sess.On("Position").Return(domain.Position{})
	sess.On("State").Return(domain.ControllerActive)
	h := bjhttp.NewHandler(sess)

	w := do(t, h, http.MethodGet, "/breakpoints")
	require.Equal(t, http.StatusOK, w.Code)
	var bps []domain.Breakpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bps))
	assert.Equal(t, []domain.Breakpoint{domain.NewBreakpoint("app.py", 3)}, bps)

	w = do(t, h, http.MethodGet, "/breakpoints?file=app.py")
	require.Equal(t, http.StatusOK, w.Code)
	var states []domain.LineState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, domain.StateEnabled, states[0].State)

	w = do(t, h, http.MethodGet, "/position")
	assert.JSONEq(t, `{"stack":[]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/state")
	assert.JSONEq(t, `{"state":"active"}`, w.Body.String())
}

func TestHealthInfoSpec(t *testing.T) {
	h := bjhttp.NewHandler(new(testutils.MockSession), bjhttp.WithSessionID("s1"))

	assert.JSONEq(t, `{"status":"ok"}`, do(t, h, http.MethodGet, "/health").Body.String())

	var info map[string]string
	require.NoError(t, json.Unmarshal(do(t, h, http.MethodGet, "/info").Body.Bytes(), &info))
	assert.Equal(t, "bugjar-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.Equal(t, "s1", info["session_id"])

	w := do(t, h, http.MethodGet, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bugjar Session API")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics()
	require.NoError(t, metrics.Register(reg))
	metrics.ConnectionErrors.Inc()

	h := bjhttp.NewHandler(new(testutils.MockSession), bjhttp.WithGatherer(reg))
	w := do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bugjar_connection_errors_total 1")

	w = do(t, bjhttp.NewHandler(new(testutils.MockSession)), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventsStream(t *testing.T) {
	srv := bjhttp.NewServer(nil)
	ctl, _ := testutils.StartedSession(t, srv.Observer())
	srv.Session = ctl

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?kinds=breakpoint_changed", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return srv.Streams.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	post, err := http.Post(ts.URL+"/breakpoints/toggle?file=app.py&line=4", "", nil)
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusAccepted, post.StatusCode)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: breakpoint_changed") {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)

	var n domain.Notification
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(data, "data: ")), &n))
	require.NotNil(t, n.Change)
	assert.Equal(t, domain.ChangeEnable, n.Change.Kind)
	assert.Equal(t, 4, n.Change.Breakpoint.Line)
}
