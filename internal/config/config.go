package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Config holds the persisted settings record.
type Config struct {
	Hotkey            string `json:"hotkey"`
	DebounceMS        int    `json:"debounce_ms"`
	Language          string `json:"language"`
	IndicatorPosition string `json:"indicator_position"`
	IndicatorEnabled  bool   `json:"indicator_enabled"`

	Backend            string `json:"backend"`
	APIBaseURL         string `json:"api_base_url"`
	APIEndpoint        string `json:"api_endpoint"`
	APIKeyEnv          string `json:"api_key_env"`
	TranscriptionModel string `json:"transcription_model"`
	EnhancementModel   string `json:"enhancement_model"`
	EnhanceText        bool   `json:"enhance_text"`
	TextPath           string `json:"text_path"`
	ExtraConfig        string `json:"extra_config"`
	UploadCodec        string `json:"upload_codec"`
	RequestTimeout     int    `json:"request_timeout"`
	MaxRetry           int    `json:"max_retry"`
	EnableHTTP2        bool   `json:"enable_http2"`
	VerifySSL          bool   `json:"verify_ssl"`

	AudioDeviceIndex    int     `json:"audio_device_index"`
	MinRecordingMS      int     `json:"min_recording_ms"`
	MaxRecordingSeconds int     `json:"max_recording_seconds"`
	AutoStopRecording   bool    `json:"auto_stop_recording"`
	SilenceThreshold    float64 `json:"silence_threshold"`

	TypingMode       string `json:"typing_mode"`
	RestoreClipboard bool   `json:"restore_clipboard"`
	PasteDelayMS     int    `json:"paste_delay_ms"`

	Notification    bool `json:"notification"`
	SoundFeedback   bool `json:"sound_feedback"`
	AutoStartOnBoot bool `json:"auto_start_on_boot"`

	LogLevel    string `json:"log_level"`
	RecordDebug bool   `json:"record_debug"`
	HotkeyDebug bool   `json:"hotkey_debug"`
	UploadDebug bool   `json:"upload_debug"`

	Stats UsageStats `json:"stats"`
}

const (
	BackendOpenAI = "openai"
	BackendHTTP   = "http"

	TypingKeyboard  = "keyboard"
	TypingClipboard = "clipboard"

	CodecWAV  = "wav"
	CodecOpus = "opus"
)

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Hotkey:              "caps_lock",
		DebounceMS:          30,
		Language:            "auto",
		IndicatorPosition:   "top-right",
		IndicatorEnabled:    true,
		Backend:             BackendOpenAI,
		APIBaseURL:          "",
		APIEndpoint:         "",
		APIKeyEnv:           "OPENAI_API_KEY",
		TranscriptionModel:  "whisper-1",
		EnhancementModel:    "gpt-4o-mini",
		EnhanceText:         true,
		TextPath:            "text",
		ExtraConfig:         "",
		UploadCodec:         CodecWAV,
		RequestTimeout:      60,
		MaxRetry:            3,
		EnableHTTP2:         true,
		VerifySSL:           true,
		AudioDeviceIndex:    -1,
		MinRecordingMS:      500,
		MaxRecordingSeconds: 300,
		AutoStopRecording:   true,
		SilenceThreshold:    0.001,
		TypingMode:          TypingKeyboard,
		RestoreClipboard:    false,
		PasteDelayMS:        80,
		Notification:        true,
		SoundFeedback:       true,
		AutoStartOnBoot:     false,
		LogLevel:            "info",
		RecordDebug:         false,
		HotkeyDebug:         false,
		UploadDebug:         false,
	}
}

// AppDir returns the per-user application directory, creating it if needed.
func AppDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".dictation")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create app dir: %w", err)
	}
	return dir, nil
}

// DefaultPath returns the default settings file location.
func DefaultPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load loads config from the JSON file at path. Fields missing from the file
// keep their defaults. A missing file is reported with os.ErrNotExist.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrCreate loads the settings file, writing defaults when it does not exist.
func LoadOrCreate(path string) (Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return cfg, false, err
	}
	if err := SaveDefault(path); err != nil {
		return cfg, false, err
	}
	return DefaultConfig(), true, nil
}

// Save writes cfg to path, replacing the previous file atomically.
func Save(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	return Save(path, DefaultConfig())
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Hotkey) == "" {
		return fmt.Errorf("invalid hotkey: empty")
	}
	if cfg.DebounceMS < 0 || cfg.DebounceMS > 1000 {
		return fmt.Errorf("invalid debounce_ms: %d (allowed 0..1000)", cfg.DebounceMS)
	}
	cfg.Language = strings.ToLower(strings.TrimSpace(cfg.Language))
	if _, ok := SupportedLanguages[cfg.Language]; !ok {
		return fmt.Errorf("invalid language: %q", cfg.Language)
	}
	switch cfg.IndicatorPosition {
	case "top-left", "top-right", "bottom-left", "bottom-right":
	default:
		return fmt.Errorf("invalid indicator_position: %q (allowed: top-left, top-right, bottom-left, bottom-right)", cfg.IndicatorPosition)
	}
	switch cfg.Backend {
	case BackendOpenAI:
	case BackendHTTP:
		if cfg.APIEndpoint == "" {
			return fmt.Errorf("backend %q requires api_endpoint", cfg.Backend)
		}
	default:
		return fmt.Errorf("invalid backend: %q (allowed: openai, http)", cfg.Backend)
	}
	if cfg.ExtraConfig != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &m); err != nil {
			return fmt.Errorf("invalid extra_config JSON: %w", err)
		}
	}
	switch strings.ToLower(cfg.UploadCodec) {
	case CodecWAV, CodecOpus:
	default:
		return fmt.Errorf("invalid upload_codec: %q (allowed: wav, opus)", cfg.UploadCodec)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request_timeout: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 1 || cfg.MaxRetry > 10 {
		return fmt.Errorf("invalid max_retry: %d (allowed 1..10)", cfg.MaxRetry)
	}
	if cfg.MinRecordingMS < 0 {
		return fmt.Errorf("invalid min_recording_ms: %d (must be >= 0)", cfg.MinRecordingMS)
	}
	if cfg.MaxRecordingSeconds < 0 {
		return fmt.Errorf("invalid max_recording_seconds: %d (must be >= 0)", cfg.MaxRecordingSeconds)
	}
	if cfg.SilenceThreshold < 0 || cfg.SilenceThreshold >= 1 {
		return fmt.Errorf("invalid silence_threshold: %v (allowed 0 <= x < 1)", cfg.SilenceThreshold)
	}
	switch cfg.TypingMode {
	case TypingKeyboard, TypingClipboard:
	default:
		return fmt.Errorf("invalid typing_mode: %q (allowed: keyboard, clipboard)", cfg.TypingMode)
	}
	if cfg.PasteDelayMS < 0 || cfg.PasteDelayMS > 5000 {
		return fmt.Errorf("invalid paste_delay_ms: %d (allowed 0..5000)", cfg.PasteDelayMS)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q (allowed: debug, info, warn, error)", cfg.LogLevel)
	}
	return nil
}

// LanguageHint returns the language to send to the transcription service,
// or "" for auto-detect.
func (c Config) LanguageHint() string {
	l := strings.ToLower(strings.TrimSpace(c.Language))
	if l == "" || l == "auto" {
		return ""
	}
	return l
}

func (c Config) MinRecording() time.Duration {
	return time.Duration(c.MinRecordingMS) * time.Millisecond
}

// MaxRecording returns the auto-stop limit, or 0 when auto-stop is off.
func (c Config) MaxRecording() time.Duration {
	if !c.AutoStopRecording || c.MaxRecordingSeconds <= 0 {
		return 0
	}
	return time.Duration(c.MaxRecordingSeconds) * time.Second
}

func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func (c Config) PasteDelay() time.Duration {
	return time.Duration(c.PasteDelayMS) * time.Millisecond
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
