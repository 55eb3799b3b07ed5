package observer

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/domain"
	"github.com/aretw0/bugjar/pkg/ports"
)

// DefaultQueueSize is the Async buffer used when a size <= 0 is given.
const DefaultQueueSize = 256

// Async delivers notifications to a slow observer from its own goroutine,
// preserving order. When the queue is full, high-volume notifications (stack,
// line, call, return and the like) are dropped with a warning. State
// transitions a front-end must not miss wait for room instead.
type Async struct {
	inner  ports.Observer
	logger *slog.Logger
	queue  chan func()
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts delivering to inner. Call Close to stop.
func NewAsync(inner ports.Observer, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Async{
		inner:  inner,
		logger: logger,
		queue:  make(chan func(), size),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for fn := range a.queue {
		fn()
	}
}

// lossless lists the notifications Async never drops.
var lossless = map[domain.NotificationKind]bool{
	domain.NotifyCurrentLineClear:  true,
	domain.NotifyRestart:           true,
	domain.NotifyBreakpointChanged: true,
	domain.NotifyError:             true,
	domain.NotifyCommandDropped:    true,
}

func (a *Async) enqueue(kind domain.NotificationKind, fn func()) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	if lossless[kind] {
		a.queue <- fn
		return
	}
	select {
	case a.queue <- fn:
	default:
		a.logger.Warn("Observer queue full, dropping notification", "kind", kind)
	}
}

// Close delivers what is already queued, then stops.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Async) OnStack(frames []domain.Frame) {
	frames = domain.CloneFrames(frames)
	a.enqueue(domain.NotifyStack, func() { a.inner.OnStack(frames) })
}

func (a *Async) OnActiveFile(active domain.ActiveFile) {
	a.enqueue(domain.NotifyActiveFile, func() { a.inner.OnActiveFile(active) })
}

func (a *Async) OnBreakpointDisplay(line domain.LineState) {
	a.enqueue(domain.NotifyBreakpointDisplay, func() { a.inner.OnBreakpointDisplay(line) })
}

func (a *Async) OnCurrentLineCleared() {
	a.enqueue(domain.NotifyCurrentLineClear, a.inner.OnCurrentLineCleared)
}

func (a *Async) OnLine(file string, line int) {
	a.enqueue(domain.NotifyLine, func() { a.inner.OnLine(file, line) })
}

func (a *Async) OnCall(args any) {
	a.enqueue(domain.NotifyCall, func() { a.inner.OnCall(args) })
}

func (a *Async) OnReturn(value any) {
	a.enqueue(domain.NotifyReturn, func() { a.inner.OnReturn(value) })
}

func (a *Async) OnException(details map[string]any) {
	details = maps.Clone(details)
	a.enqueue(domain.NotifyException, func() { a.inner.OnException(details) })
}

func (a *Async) OnRestart(source string) {
	a.enqueue(domain.NotifyRestart, func() { a.inner.OnRestart(source) })
}

func (a *Async) OnBreakpointChanged(change domain.BreakpointChange) {
	a.enqueue(domain.NotifyBreakpointChanged, func() { a.inner.OnBreakpointChanged(change) })
}

func (a *Async) OnInfo(message string) {
	a.enqueue(domain.NotifyInfo, func() { a.inner.OnInfo(message) })
}

func (a *Async) OnWarning(message string) {
	a.enqueue(domain.NotifyWarning, func() { a.inner.OnWarning(message) })
}

func (a *Async) OnDebuggeeError(message string) {
	a.enqueue(domain.NotifyDebuggeeError, func() { a.inner.OnDebuggeeError(message) })
}

func (a *Async) OnError(err error) {
	a.enqueue(domain.NotifyError, func() { a.inner.OnError(err) })
}

func (a *Async) OnCommandDropped(cmd domain.Command, err error) {
	a.enqueue(domain.NotifyCommandDropped, func() { a.inner.OnCommandDropped(cmd, err) })
}
