package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.LanguageHint() != "" {
		t.Fatalf("expected auto language to produce no hint, got %q", cfg.LanguageHint())
	}
	if cfg.MinRecording() != 500*time.Millisecond {
		t.Fatalf("unexpected min recording: %v", cfg.MinRecording())
	}
}

func TestLanguageCodeIsLowercased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Language = " EN "
	if got := cfg.LanguageHint(); got != "en" {
		t.Fatalf("LanguageHint = %q, want en", got)
	}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Language != "en" {
		t.Fatalf("Validate left language as %q", cfg.Language)
	}

	cfg.Language = "AUTO"
	if got := cfg.LanguageHint(); got != "" {
		t.Fatalf("AUTO should mean no hint, got %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"language":      func(c *Config) { c.Language = "klingon" },
		"backend":       func(c *Config) { c.Backend = "grpc" },
		"http endpoint": func(c *Config) { c.Backend = BackendHTTP },
		"typing mode":   func(c *Config) { c.TypingMode = "telepathy" },
		"extra config":  func(c *Config) { c.ExtraConfig = "{not json" },
		"max retry":     func(c *Config) { c.MaxRetry = 0 },
		"position":      func(c *Config) { c.IndicatorPosition = "middle" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := Validate(&cfg); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if _, err := Load(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	cfg, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if !created {
		t.Fatalf("expected file to be created")
	}
	if cfg.Hotkey != "caps_lock" {
		t.Fatalf("unexpected hotkey %q", cfg.Hotkey)
	}

	if err := os.WriteFile(path, []byte(`{"hotkey":"F9","enhance_text":false}`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	cfg, created, err = LoadOrCreate(path)
	if err != nil || created {
		t.Fatalf("unexpected result: created=%v err=%v", created, err)
	}
	if cfg.Hotkey != "F9" || cfg.EnhanceText {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.TranscriptionModel != "whisper-1" {
		t.Fatalf("missing field should keep default, got %q", cfg.TranscriptionModel)
	}
}

func TestSetField(t *testing.T) {
	cfg := DefaultConfig()
	if err := SetField(&cfg, "enhance_text", "no"); err != nil {
		t.Fatalf("bool: %v", err)
	}
	if err := SetField(&cfg, "max_recording_seconds", "120"); err != nil {
		t.Fatalf("int: %v", err)
	}
	if err := SetField(&cfg, "language", "pt"); err != nil {
		t.Fatalf("string: %v", err)
	}
	if cfg.EnhanceText || cfg.MaxRecordingSeconds != 120 || cfg.Language != "pt" {
		t.Fatalf("fields not set: %+v", cfg)
	}
	if err := SetField(&cfg, "nope", "1"); err == nil {
		t.Fatalf("expected unknown setting error")
	}
	if err := SetField(&cfg, "stats", "{}"); err == nil {
		t.Fatalf("expected stats to be read-only")
	}
	if err := SetField(&cfg, "notification", "maybe"); err == nil {
		t.Fatalf("expected invalid boolean error")
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--hotkey", "ctrl+alt+space", "--enhance=false", "--device", "2"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Language = "de"
	if err := ApplyFlags(&cfg, fs); err != nil {
		t.Fatalf("ApplyFlags: %v", err)
	}
	if cfg.Hotkey != "ctrl+alt+space" || cfg.EnhanceText || cfg.AudioDeviceIndex != 2 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Language != "de" {
		t.Fatalf("unset flag overwrote value: %q", cfg.Language)
	}
}

func TestUsageStatsAdd(t *testing.T) {
	var s UsageStats
	day1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.Add(90*time.Second, 10, day1)
	s.Add(30*time.Second, 5, day1.Add(time.Hour))
	s.Add(60*time.Second, 5, day1.Add(24*time.Hour))

	if s.TotalRequests != 3 || s.SessionRequests != 3 {
		t.Fatalf("unexpected requests: %+v", s)
	}
	if s.TotalMinutes != 3 {
		t.Fatalf("expected 3 minutes, got %v", s.TotalMinutes)
	}
	if len(s.ActiveDays) != 2 {
		t.Fatalf("expected 2 active days, got %v", s.ActiveDays)
	}
	if s.FirstUseDate != "2026-03-02" || s.LastUseDate != "2026-03-03" {
		t.Fatalf("unexpected dates: %s %s", s.FirstUseDate, s.LastUseDate)
	}
	if s.WordsPerMinute() != 7 {
		t.Fatalf("expected 7 wpm, got %d", s.WordsPerMinute())
	}
	if s.WeeksActive() != 1 {
		t.Fatalf("expected 1 week, got %d", s.WeeksActive())
	}

	cost := s.EstimatedCost(true)
	if cost.Transcription != 0.018 || cost.Enhancement != 0.0009 || cost.Total != 0.0189 {
		t.Fatalf("unexpected cost: %+v", cost)
	}
	if s.EstimatedCost(false).Enhancement != 0 {
		t.Fatalf("enhancement cost should be zero when disabled")
	}
}

func TestStoreUpdateAndUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Stats.SessionRequests = 9
	store := NewStore(path, cfg)

	if store.Snapshot().Stats.SessionRequests != 0 {
		t.Fatalf("session counters should reset")
	}

	if err := store.Update(func(c *Config) { c.Language = "xx" }); err == nil {
		t.Fatalf("expected invalid update to fail")
	}
	if store.Snapshot().Language != "auto" {
		t.Fatalf("failed update leaked into store")
	}

	if err := store.Update(func(c *Config) { c.Language = "fr" }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.AddUsage(2*time.Minute, 12); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Language != "fr" || loaded.Stats.TotalRequests != 1 || loaded.Stats.TotalWords != 12 {
		t.Fatalf("persisted settings mismatch: %+v", loaded)
	}
}

func TestAPIKeyResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKeyEnv = "DICTATION_TEST_KEY"
	t.Setenv("DICTATION_TEST_KEY", "sk-env")

	if got := APIKey(viper.New(), nil, cfg); got != "sk-env" {
		t.Fatalf("expected env key, got %q", got)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse([]string{"--api-key", "sk-flag"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := APIKey(viper.New(), fs, cfg); got != "sk-flag" {
		t.Fatalf("expected flag key, got %q", got)
	}
}

func TestStoreOverrideIsNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(path, DefaultConfig())

	if err := store.Override(func(c *Config) error {
		c.Hotkey = "F9"
		return nil
	}); err != nil {
		t.Fatalf("Override: %v", err)
	}
	if store.Snapshot().Hotkey != "F9" {
		t.Fatalf("override not applied")
	}
	if err := store.AddUsage(time.Minute, 3); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Hotkey != "caps_lock" {
		t.Fatalf("override leaked into file: %q", loaded.Hotkey)
	}
	if loaded.Stats.TotalWords != 3 {
		t.Fatalf("usage not persisted: %+v", loaded.Stats)
	}
}
