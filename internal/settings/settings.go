// Package settings keeps display preferences next to the session snapshot.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"rollcall/internal/domain"
	"rollcall/internal/persist"
)

const (
	Key             = "app_settings"
	DefaultFontSize = 16
	MinFontSize     = 14
	MaxFontSize     = 24
)

type Settings struct {
	FontSize int `json:"fontSize"`
}

// ClampFontSize bounds size to [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	switch {
	case size < MinFontSize:
		return MinFontSize
	case size > MaxFontSize:
		return MaxFontSize
	default:
		return size
	}
}

type Store struct {
	kv       persist.KV
	logger   *slog.Logger
	fallback int

	mu      sync.Mutex
	loaded  bool
	current Settings
}

// New returns a settings store. fallback is used when nothing valid is
// stored; zero means DefaultFontSize.
func New(kv persist.KV, fallback int, logger *slog.Logger) *Store {
	if fallback == 0 {
		fallback = DefaultFontSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, fallback: ClampFontSize(fallback), logger: logger}
}

// Get loads settings on first use. Read or decode failures yield defaults.
func (s *Store) Get(ctx context.Context) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.current
	}
	s.loaded = true
	s.current = Settings{FontSize: s.fallback}
	data, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.Warn("load settings failed", "err", err)
		}
		return s.current
	}
	var stored Settings
	if err := json.Unmarshal(data, &stored); err != nil || stored.FontSize == 0 {
		s.logger.Warn("ignoring malformed settings", "raw", string(data))
		return s.current
	}
	s.current.FontSize = ClampFontSize(stored.FontSize)
	return s.current
}

// SetFontSize clamps and stores size, returning the effective value. A
// storage failure keeps the in-memory value and is returned wrapped in
// domain.ErrPersistenceUnavailable.
func (s *Store) SetFontSize(ctx context.Context, size int) (Settings, error) {
	s.Get(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.FontSize = ClampFontSize(size)
	data, err := json.Marshal(s.current)
	if err != nil {
		return s.current, err
	}
	if err := s.kv.Set(ctx, Key, data); err != nil {
		return s.current, fmt.Errorf("%w: %v", domain.ErrPersistenceUnavailable, err)
	}
	return s.current, nil
}
