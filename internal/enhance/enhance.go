// Package enhance cleans up dictated text with a chat completion model.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"

	"dictation/internal/config"
	"dictation/internal/retry"
)

const systemPrompt = `You are a text cleanup assistant. Your job is to clean up dictated text while preserving the speaker's meaning and intent.

Rules:
1. Remove filler words (um, uh, like, you know, I mean, so, basically, actually, literally)
2. Fix obvious grammar mistakes
3. Add proper punctuation and capitalization
4. Keep the text natural - don't make it overly formal
5. Preserve technical terms, names, and intentional informal language
6. If the text is already clean, return it unchanged
7. ONLY return the cleaned text - no explanations or commentary
8. If the input is very short (1-3 words), return it unchanged unless there's an obvious typo`

const temperature = 0.3

// EnhancementError wraps a failed cleanup request.
type EnhancementError struct {
	StatusCode int
	Err        error
}

func (e *EnhancementError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("enhancement failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("enhancement failed: %v", e.Err)
}

func (e *EnhancementError) Unwrap() error {
	return e.Err
}

// ErrRejected means the model's answer was discarded by the length check.
var ErrRejected = errors.New("enhanced text rejected (word count mismatch)")

// Enhancer sends transcripts to a chat model for cleanup.
type Enhancer struct {
	client  *openai.Client
	model   string
	enabled bool
	log     *log.Logger

	Retry retry.Policy
}

// New creates an enhancer. When enabled is false Enhance returns its input.
func New(cfg config.Config, apiKey string, httpClient *http.Client, logger *log.Logger) *Enhancer {
	if logger == nil {
		logger = log.Default().WithPrefix("enhance")
	}
	oc := openai.DefaultConfig(apiKey)
	if cfg.APIBaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	e := &Enhancer{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.EnhancementModel,
		enabled: cfg.EnhanceText,
		log:     logger,
		Retry:   retry.Default(),
	}
	e.Retry.MaxAttempts = cfg.MaxRetry
	return e
}

// Enhance returns the cleaned-up text. On any failure the original text is
// returned together with the error, so callers can always use the result.
func (e *Enhancer) Enhance(ctx context.Context, text string) (string, error) {
	if !e.enabled || len(strings.Fields(text)) <= 1 {
		return text, nil
	}

	var out string
	onRetry := func(attempt int, delay time.Duration, err error) {
		e.log.Warn("enhancement attempt failed, retrying", "attempt", attempt, "delay", delay, "err", err)
	}
	err := e.Retry.Do(ctx, transient, onRetry, func(ctx context.Context, attempt int) error {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
			MaxTokens:   len(text) * 2,
			Temperature: temperature,
		})
		if err != nil {
			return wrap(err)
		}
		if len(resp.Choices) == 0 {
			return &EnhancementError{Err: errors.New("empty response")}
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return text, err
	}

	if !plausible(text, out) {
		e.log.Debug("enhancement result rejected", "original_words", len(strings.Fields(text)), "enhanced_words", len(strings.Fields(out)))
		return text, &EnhancementError{Err: ErrRejected}
	}
	return out, nil
}

// plausible rejects answers that are more than three times longer or less
// than 0.3 times as long as the input, counted in words.
func plausible(original, enhanced string) bool {
	ow := float64(len(strings.Fields(original)))
	ew := float64(len(strings.Fields(enhanced)))
	return ew <= ow*3 && ew >= ow*0.3
}

func wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &EnhancementError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &EnhancementError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &EnhancementError{Err: err}
}

func transient(err error) bool {
	var ee *EnhancementError
	if errors.As(err, &ee) && ee.StatusCode != 0 {
		return retry.TransientStatus(ee.StatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}
