// Package file stores breakpoint snapshots as JSON or YAML files, one per session.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/bugjar/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format selects the on-disk encoding of a snapshot.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmptySessionID is returned for operations without a session ID.
var ErrEmptySessionID = errors.New("sessionID cannot be empty")

// DefaultPath is used when New is given an empty base path.
var DefaultPath = filepath.Join(".bugjar", "breakpoints")

// Store implements ports.BreakpointRepository on the local filesystem.
type Store struct {
	BasePath string
	format   Format
}

// Option configures a Store.
type Option func(*Store)

// WithFormat selects JSON (default) or YAML files.
func WithFormat(format Format) Option {
	return func(s *Store) {
		s.format = format
	}
}

// New creates a Store rooted at basePath.
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = DefaultPath
	}
	s := &Store{BasePath: basePath, format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string {
	return "." + string(s.format)
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+s.ext())
}

func (s *Store) marshal(snap *domain.Snapshot) ([]byte, error) {
	if s.format == FormatYAML {
		return yaml.Marshal(snap)
	}
	return json.MarshalIndent(snap, "", "  ")
}

func (s *Store) unmarshal(data []byte, snap *domain.Snapshot) error {
	if s.format == FormatYAML {
		return yaml.Unmarshal(data, snap)
	}
	return json.Unmarshal(data, snap)
}

// Save writes the snapshot atomically: temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure breakpoint directory: %w", err)
	}

	copied := *snap
	copied.SessionID = sessionID
	data, err := s.marshal(&copied)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*"+s.ext())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(sessionID)
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap domain.Snapshot
	if err := s.unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot file. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns the IDs of all stored sessions in this store's format.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "tmp-") || filepath.Ext(name) != s.ext() {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, s.ext()))
	}
	sort.Strings(sessions)
	return sessions, nil
}
