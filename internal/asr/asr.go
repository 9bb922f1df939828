// Package asr uploads recorded audio to a speech-to-text service.
package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"dictation/internal/audio/ffmpeg"
	"dictation/internal/config"
	"dictation/internal/retry"
)

// Audio is an encoded audio file held in memory.
type Audio struct {
	Data     []byte
	Name     string
	Duration time.Duration
}

// Result is a successful transcription. Text may be empty when the service
// heard no speech.
type Result struct {
	Text     string
	Duration time.Duration
	Raw      []byte
}

// TranscriptionError describes a failed transcription attempt. Transient
// errors are worth retrying.
type TranscriptionError struct {
	Backend    string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *TranscriptionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transcription failed (%s, status %d): %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transcription failed (%s): %v", e.Backend, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is returned when every attempt failed transiently.
type RetryExhaustedError struct {
	Attempts int
	MaxRetry int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("exceeded max retries (%d): %v", e.MaxRetry, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

type backend interface {
	name() string
	transcribe(ctx context.Context, a Audio, language string) (Result, error)
}

// Client performs transcription uploads with retries.
type Client struct {
	backend backend
	codec   string
	debug   bool
	log     *log.Logger

	// Retry controls attempts and delays between them.
	Retry retry.Policy
}

// New creates a client for the configured backend. apiKey may be empty for
// endpoints that do not need one.
func New(cfg config.Config, apiKey string, httpClient *http.Client, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("upload")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}

	c := &Client{
		codec: strings.ToLower(cfg.UploadCodec),
		debug: cfg.UploadDebug,
		log:   logger,
		Retry: retry.Default(),
	}
	c.Retry.MaxAttempts = cfg.MaxRetry

	switch cfg.Backend {
	case config.BackendOpenAI, "":
		c.backend = newOpenAIBackend(cfg, apiKey, httpClient)
	case config.BackendHTTP:
		b, err := newHTTPBackend(cfg, apiKey, httpClient, logger)
		if err != nil {
			return nil, err
		}
		c.backend = b
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
	return c, nil
}

// Transcribe uploads a and returns the transcript. language "" or "auto"
// lets the service detect the language.
func (c *Client) Transcribe(ctx context.Context, a Audio, language string) (Result, error) {
	if len(a.Data) == 0 {
		return Result{}, &TranscriptionError{Backend: c.backend.name(), Err: errors.New("empty audio")}
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "auto" {
		language = ""
	}
	upload := c.prepare(ctx, a)

	var res Result
	onRetry := func(attempt int, delay time.Duration, err error) {
		c.log.Warn("attempt failed, retrying", "attempt", attempt, "delay", delay, "err", err)
	}
	err := c.Retry.Do(ctx, isTransient, onRetry, func(ctx context.Context, attempt int) error {
		if c.debug {
			c.log.Debug("uploading", "backend", c.backend.name(), "file", upload.Name, "bytes", len(upload.Data), "attempt", attempt)
		}
		start := time.Now()
		r, err := c.backend.transcribe(ctx, upload, language)
		if c.debug {
			c.log.Debug("request finished", "duration", time.Since(start))
		}
		if err != nil {
			return classify(c.backend.name(), err)
		}
		res = r
		return nil
	})
	if err != nil {
		var ex *retry.ExhaustedError
		if errors.As(err, &ex) {
			return Result{}, &RetryExhaustedError{Attempts: ex.Attempts, MaxRetry: c.Retry.MaxAttempts, Err: ex.Err}
		}
		return Result{}, err
	}

	res.Text = strings.TrimSpace(res.Text)
	if res.Duration <= 0 {
		res.Duration = a.Duration
	}
	return res, nil
}

// prepare transcodes the upload when a compressed codec is configured. The
// original WAV is sent if transcoding fails.
func (c *Client) prepare(ctx context.Context, a Audio) Audio {
	if c.codec == "" || c.codec == config.CodecWAV {
		return a
	}
	out, err := ffmpeg.Transcode(ctx, a.Data, ffmpeg.Options{Codec: c.codec, Debug: c.debug, Logger: c.log})
	if err != nil {
		c.log.Warn("transcode failed, sending wav", "codec", c.codec, "err", err)
		return a
	}
	name := strings.TrimSuffix(a.Name, ".wav") + "." + ffmpeg.Ext(c.codec)
	return Audio{Data: out, Name: name, Duration: a.Duration}
}

func isTransient(err error) bool {
	var te *TranscriptionError
	return errors.As(err, &te) && te.Transient
}

func classify(backend string, err error) error {
	var te *TranscriptionError
	if errors.As(err, &te) {
		return te
	}
	out := &TranscriptionError{Backend: backend, Err: err}
	if code := statusCode(err); code != 0 {
		out.StatusCode = code
		out.Transient = retry.TransientStatus(code)
		return out
	}
	if errors.Is(err, context.Canceled) {
		return out
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		out.Transient = true
	}
	return out
}
