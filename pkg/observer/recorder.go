package observer

import (
	"sync"

	"github.com/aretw0/bugjar/pkg/domain"
)

// Recorder keeps the most recent notifications. Safe for concurrent use.
type Recorder struct {
	Func

	mu    sync.Mutex
	limit int
	items []domain.Notification
}

// NewRecorder keeps at most limit notifications; limit <= 0 keeps all.
func NewRecorder(limit int) *Recorder {
	r := &Recorder{limit: limit}
	r.Func = r.record
	return r
}

func (r *Recorder) record(n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = append([]domain.Notification(nil), r.items[len(r.items)-r.limit:]...)
	}
}

// Snapshot returns a copy of the recorded notifications, oldest first.
func (r *Recorder) Snapshot() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.items...)
}

// Last returns up to n of the newest notifications, oldest first.
func (r *Recorder) Last(n int) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.items) {
		n = len(r.items)
	}
	return append([]domain.Notification(nil), r.items[len(r.items)-n:]...)
}

// Kinds lists the kinds of the recorded notifications in order.
func (r *Recorder) Kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.NotificationKind, len(r.items))
	for i, n := range r.items {
		kinds[i] = n.Kind
	}
	return kinds
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
