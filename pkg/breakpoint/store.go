// Package breakpoint holds the canonical set of breakpoints of a session.
package breakpoint

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/bugjar/pkg/domain"
)

// ErrNegativeIgnore is returned by SetIgnore for counts below zero.
var ErrNegativeIgnore = errors.New("ignore count must not be negative")

// Store keeps breakpoints keyed by (file, line). Callers only ever get copies.
// Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	byFile map[string]map[int]*domain.Breakpoint
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byFile: make(map[string]map[int]*domain.Breakpoint)}
}

func (s *Store) lookup(file string, line int) (*domain.Breakpoint, error) {
	if bp, ok := s.byFile[file][line]; ok {
		return bp, nil
	}
	return nil, fmt.Errorf("%w at %s:%d", domain.ErrUnknownBreakpoint, file, line)
}

// Get returns the breakpoint at file:line.
func (s *Store) Get(file string, line int) (domain.Breakpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bp, err := s.lookup(file, line)
	if err != nil {
		return domain.Breakpoint{}, err
	}
	return *bp, nil
}

// Create adds an enabled, non-temporary breakpoint with no ignores.
func (s *Store) Create(file string, line int) (domain.Breakpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byFile[file][line]; ok {
		return domain.Breakpoint{}, fmt.Errorf("%w at %s:%d", domain.ErrDuplicateBreakpoint, file, line)
	}
	lines, ok := s.byFile[file]
	if !ok {
		lines = make(map[int]*domain.Breakpoint)
		s.byFile[file] = lines
	}
	bp := domain.NewBreakpoint(file, line)
	lines[line] = &bp
	return bp, nil
}

func (s *Store) mutate(file string, line int, fn func(*domain.Breakpoint)) (domain.Breakpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp, err := s.lookup(file, line)
	if err != nil {
		return domain.Breakpoint{}, err
	}
	fn(bp)
	return *bp, nil
}

// Enable marks the breakpoint enabled. Enabling an enabled breakpoint is a no-op.
func (s *Store) Enable(file string, line int) (domain.Breakpoint, error) {
	return s.mutate(file, line, func(bp *domain.Breakpoint) { bp.Enabled = true })
}

// Disable marks the breakpoint disabled.
func (s *Store) Disable(file string, line int) (domain.Breakpoint, error) {
	return s.mutate(file, line, func(bp *domain.Breakpoint) { bp.Enabled = false })
}

// SetTemporary flags the breakpoint to be cleared after its next hit.
func (s *Store) SetTemporary(file string, line int, temporary bool) (domain.Breakpoint, error) {
	return s.mutate(file, line, func(bp *domain.Breakpoint) { bp.Temporary = temporary })
}

// SetIgnore skips the next count hits. Zero reverts the breakpoint to enabled.
func (s *Store) SetIgnore(file string, line int, count int) (domain.Breakpoint, error) {
	if count < 0 {
		return domain.Breakpoint{}, fmt.Errorf("%w: %d", ErrNegativeIgnore, count)
	}
	return s.mutate(file, line, func(bp *domain.Breakpoint) {
		bp.IgnoreCount = count
		if count == 0 {
			bp.Enabled = true
		}
	})
}

// Clear removes the breakpoint and returns what was removed.
func (s *Store) Clear(file string, line int) (domain.Breakpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bp, err := s.lookup(file, line)
	if err != nil {
		return domain.Breakpoint{}, err
	}
	delete(s.byFile[file], line)
	if len(s.byFile[file]) == 0 {
		delete(s.byFile, file)
	}
	return *bp, nil
}

// State derives the display state of file:line.
func (s *Store) State(file string, line int) domain.DisplayState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.DeriveState(s.byFile[file][line])
}

// AllForFile returns the breakpoints of file ordered by line.
func (s *Store) AllForFile(file string) []domain.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Breakpoint, 0, len(s.byFile[file]))
	for _, bp := range s.byFile[file] {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

// LineStates is AllForFile with derived display states, for redraws.
func (s *Store) LineStates(file string) []domain.LineState {
	bps := s.AllForFile(file)
	out := make([]domain.LineState, len(bps))
	for i := range bps {
		out[i] = domain.LineState{File: file, Line: bps[i].Line, State: domain.DeriveState(&bps[i])}
	}
	return out
}

// All returns every breakpoint ordered by file then line.
func (s *Store) All() []domain.Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Breakpoint
	for _, lines := range s.byFile {
		for _, bp := range lines {
			out = append(out, *bp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Len returns the number of stored breakpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, lines := range s.byFile {
		n += len(lines)
	}
	return n
}

// Replace discards every breakpoint and loads bps instead. Later entries win
// on duplicate locations.
func (s *Store) Replace(bps []domain.Breakpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byFile = make(map[string]map[int]*domain.Breakpoint)
	for _, bp := range bps {
		lines, ok := s.byFile[bp.File]
		if !ok {
			lines = make(map[int]*domain.Breakpoint)
			s.byFile[bp.File] = lines
		}
		copied := bp
		lines[bp.Line] = &copied
	}
}
