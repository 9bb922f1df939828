package config

import (
	"sync"
	"time"
)

// Store owns the settings record. Readers take snapshots; all mutation goes
// through Update, Override or AddUsage.
//
// The store keeps two copies: the effective settings handed to readers and
// the persisted settings written to disk. Overrides (command-line flags)
// only touch the effective copy, so they never end up in the file.
type Store struct {
	mu        sync.RWMutex
	path      string
	cfg       Config
	persisted Config
	now       func() time.Time
}

// NewStore wraps an already loaded config. Session counters start at zero.
func NewStore(path string, cfg Config) *Store {
	cfg.Stats.ResetSession()
	return &Store{path: path, cfg: cfg, persisted: clone(cfg), now: time.Now}
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.cfg)
}

func (s *Store) Path() string {
	return s.path
}

// Update applies fn to the settings, validates and persists them.
// Nothing changes when validation or saving fails.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := clone(s.cfg)
	fn(&next)
	if err := Validate(&next); err != nil {
		return err
	}
	nextPersisted := clone(s.persisted)
	fn(&nextPersisted)
	if err := s.save(nextPersisted); err != nil {
		return err
	}
	s.cfg, s.persisted = next, nextPersisted
	return nil
}

// Override applies fn to the effective settings only.
func (s *Store) Override(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := clone(s.cfg)
	if err := fn(&next); err != nil {
		return err
	}
	if err := Validate(&next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// AddUsage records one completed transcription and persists the counters.
// The counters are kept in memory even if the file cannot be written.
func (s *Store) AddUsage(d time.Duration, words int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Stats.Add(d, words, s.now())
	s.persisted.Stats = clone(s.cfg).Stats
	return s.save(s.persisted)
}

func (s *Store) save(cfg Config) error {
	if s.path == "" {
		return nil
	}
	return Save(s.path, cfg)
}

func clone(c Config) Config {
	c.Stats.ActiveDays = append([]string(nil), c.Stats.ActiveDays...)
	return c
}
