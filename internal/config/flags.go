package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flag names to settings keys.
var flagKeys = []struct {
	flag string
	key  string
}{
	{"hotkey", "hotkey"},
	{"debounce-ms", "debounce_ms"},
	{"language", "language"},
	{"indicator-position", "indicator_position"},
	{"backend", "backend"},
	{"api-base-url", "api_base_url"},
	{"api-endpoint", "api_endpoint"},
	{"api-key-env", "api_key_env"},
	{"transcription-model", "transcription_model"},
	{"enhancement-model", "enhancement_model"},
	{"enhance", "enhance_text"},
	{"text-path", "text_path"},
	{"extra-config", "extra_config"},
	{"upload-codec", "upload_codec"},
	{"request-timeout", "request_timeout"},
	{"max-retry", "max_retry"},
	{"enable-http2", "enable_http2"},
	{"verify-ssl", "verify_ssl"},
	{"device", "audio_device_index"},
	{"min-recording-ms", "min_recording_ms"},
	{"max-recording-seconds", "max_recording_seconds"},
	{"typing-mode", "typing_mode"},
	{"restore-clipboard", "restore_clipboard"},
	{"notification", "notification"},
	{"sound-feedback", "sound_feedback"},
	{"log-level", "log_level"},
	{"record-debug", "record_debug"},
	{"hotkey-debug", "hotkey_debug"},
	{"upload-debug", "upload_debug"},
}

// BindFlags registers the settings override flags.
func BindFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("hotkey", d.Hotkey, "push-to-talk key (e.g. caps_lock, ctrl+alt+space, F9)")
	fs.Int("debounce-ms", d.DebounceMS, "ignore release/press chatter shorter than this (ms)")
	fs.String("language", d.Language, "language code or auto")
	fs.String("indicator-position", d.IndicatorPosition, "indicator position")
	fs.String("backend", d.Backend, "transcription backend (openai, http)")
	fs.String("api-base-url", d.APIBaseURL, "OpenAI-compatible base URL")
	fs.String("api-endpoint", d.APIEndpoint, "custom transcription endpoint URL (backend=http)")
	fs.String("api-key-env", d.APIKeyEnv, "environment variable holding the API key")
	fs.String("transcription-model", d.TranscriptionModel, "speech-to-text model")
	fs.String("enhancement-model", d.EnhancementModel, "text cleanup model")
	fs.Bool("enhance", d.EnhanceText, "clean up transcripts before typing")
	fs.String("text-path", d.TextPath, "JSON path to the text in custom endpoint responses")
	fs.String("extra-config", d.ExtraConfig, "extra JSON fields merged into custom endpoint requests")
	fs.String("upload-codec", d.UploadCodec, "upload encoding (wav, opus)")
	fs.Int("request-timeout", d.RequestTimeout, "request timeout seconds")
	fs.Int("max-retry", d.MaxRetry, "transcription attempts")
	fs.Bool("enable-http2", d.EnableHTTP2, "enable HTTP/2")
	fs.Bool("verify-ssl", d.VerifySSL, "verify TLS certificates")
	fs.Int("device", d.AudioDeviceIndex, "input device index (-1 = default)")
	fs.Int("min-recording-ms", d.MinRecordingMS, "discard recordings shorter than this")
	fs.Int("max-recording-seconds", d.MaxRecordingSeconds, "auto-stop recordings after this many seconds")
	fs.String("typing-mode", d.TypingMode, "delivery mode (keyboard, clipboard)")
	fs.Bool("restore-clipboard", d.RestoreClipboard, "restore previous clipboard after a paste")
	fs.Bool("notification", d.Notification, "enable desktop notifications")
	fs.Bool("sound-feedback", d.SoundFeedback, "beep on start and stop")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Bool("record-debug", d.RecordDebug, "verbose recorder logging")
	fs.Bool("hotkey-debug", d.HotkeyDebug, "verbose hotkey logging")
	fs.Bool("upload-debug", d.UploadDebug, "verbose upload logging")
	fs.String("api-key", "", "API key (overrides the environment)")
}

// ApplyFlags applies explicitly set flags to the config.
func ApplyFlags(cfg *Config, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := SetField(cfg, fk.key, f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", fk.flag, err)
		}
	}
	return nil
}

// SetField assigns value to the setting identified by its JSON key, parsing
// it according to the field's type.
func SetField(cfg *Config, key, value string) error {
	if key == "stats" {
		return fmt.Errorf("stats is read-only")
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	fields := make(map[string]interface{})
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	cur, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown setting: %s", key)
	}
	switch cur.(type) {
	case bool:
		v, err := parseBoolExt(value)
		if err != nil {
			return err
		}
		fields[key] = v
	case float64:
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		fields[key] = v
	default:
		fields[key] = value
	}
	b, err = json.Marshal(fields)
	if err != nil {
		return err
	}
	next := *cfg
	if err := json.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*cfg = next
	return nil
}

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

// APIKey resolves the credential: the --api-key flag first, then the
// environment variable named by api_key_env, then DICTATION_API_KEY.
// The key is never stored in the settings file.
func APIKey(v *viper.Viper, fs *pflag.FlagSet, cfg Config) string {
	if fs != nil {
		if f := fs.Lookup("api-key"); f != nil {
			_ = v.BindPFlag("api_key", f)
		}
	}
	envs := []string{"api_key"}
	if cfg.APIKeyEnv != "" {
		envs = append(envs, cfg.APIKeyEnv)
	}
	envs = append(envs, "DICTATION_API_KEY")
	_ = v.BindEnv(envs...)
	return strings.TrimSpace(v.GetString("api_key"))
}
