// Package process launches the program under debug as a child process so a
// session can be started with one command.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/ports"
)

// Spec describes the debuggee command line.
type Spec struct {
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args"`
	Env     map[string]string `yaml:"env" json:"env"`
	Dir     string            `yaml:"dir" json:"dir"`
}

// Enabled reports whether a command was configured.
func (s Spec) Enabled() bool { return s.Command != "" }

// ErrNotRunning is returned by Stop after the process already exited.
var ErrNotRunning = errors.New("debuggee process not running")

// Process is a launched debuggee.
type Process struct {
	cmd    *exec.Cmd
	logger *slog.Logger

	done    chan struct{}
	waitErr error
	output  sync.WaitGroup
}

// Option configures Launch.
type Option func(*launchConfig)

type launchConfig struct {
	logger *slog.Logger
	stdout io.Writer
	vars   map[string]string
}

// WithLogger receives the debuggee's stderr, one record per line.
func WithLogger(logger *slog.Logger) Option {
	return func(c *launchConfig) {
		c.logger = logger
	}
}

// WithStdout sets where the debuggee's standard output goes. Defaults to
// discarding it.
func WithStdout(w io.Writer) Option {
	return func(c *launchConfig) {
		c.stdout = w
	}
}

// WithVar exports BUGJAR_<NAME>=value to the debuggee, e.g. the address it
// should listen on.
func WithVar(name, value string) Option {
	return func(c *launchConfig) {
		c.vars[name] = value
	}
}

// Launch starts the debuggee. The process is killed when ctx is done.
func Launch(ctx context.Context, spec Spec, opts ...Option) (*Process, error) {
	if !spec.Enabled() {
		return nil, errors.New("debuggee command is empty")
	}
	cfg := &launchConfig{logger: logging.NewNop(), stdout: io.Discard, vars: map[string]string{}}
	for _, opt := range opts {
		opt(cfg)
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(cmd.Environ(), environ(spec.Env, cfg.vars)...)
	cmd.Stdout = cfg.stdout
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 2 * time.Second

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.Command, err)
	}

	p := &Process{cmd: cmd, logger: cfg.logger, done: make(chan struct{})}
	p.logger.Info("Debuggee launched", "command", spec.Command, "pid", cmd.Process.Pid)

	p.output.Add(1)
	go p.forward(stderr)
	go func() {
		p.output.Wait()
		p.waitErr = cmd.Wait()
		p.logger.Info("Debuggee exited", "pid", cmd.Process.Pid, "err", p.waitErr)
		close(p.done)
	}()
	return p, nil
}

// environ renders the configured env followed by the BUGJAR_ variables, in
// a stable order.
func environ(env, vars map[string]string) []string {
	out := make([]string, 0, len(env)+len(vars))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	for k, v := range vars {
		out = append(out, "BUGJAR_"+strings.ToUpper(k)+"="+v)
	}
	sort.Strings(out)
	return out
}

func (p *Process) forward(r io.Reader) {
	defer p.output.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.logger.Warn("Debuggee stderr", "line", scanner.Text())
	}
}

// Pid is the OS process ID.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the process exits and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.waitErr
}

// Stop interrupts the process and kills it if it is still running after
// grace.
func (p *Process) Stop(grace time.Duration) error {
	select {
	case <-p.done:
		return ErrNotRunning
	default:
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}
	p.logger.Warn("Debuggee ignored SIGTERM, killing", "pid", p.Pid())
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-p.done
	return nil
}

// DialReady dials until the launched debuggee accepts the connection, the
// process exits or timeout elapses.
func (p *Process) DialReady(ctx context.Context, dialer ports.Dialer, timeout time.Duration) (ports.Connection, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := 20 * time.Millisecond
	for {
		conn, err := dialer(ctx)
		if err == nil {
			return conn, nil
		}
		select {
		case <-p.done:
			return nil, fmt.Errorf("debuggee exited before accepting a connection: %w", errors.Join(err, p.waitErr))
		case <-ctx.Done():
			return nil, fmt.Errorf("debuggee not ready after %s: %w", timeout, err)
		case <-time.After(backoff):
		}
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}
