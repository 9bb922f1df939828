package asr

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"

	"dictation/internal/config"
)

type openaiBackend struct {
	client *openai.Client
	model  string
}

func newOpenAIBackend(cfg config.Config, apiKey string, httpClient *http.Client) *openaiBackend {
	oc := openai.DefaultConfig(apiKey)
	if cfg.APIBaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	}
	oc.HTTPClient = httpClient
	model := cfg.TranscriptionModel
	if model == "" {
		model = openai.Whisper1
	}
	return &openaiBackend{client: openai.NewClientWithConfig(oc), model: model}
}

func (b *openaiBackend) name() string { return config.BackendOpenAI }

func (b *openaiBackend) transcribe(ctx context.Context, a Audio, language string) (Result, error) {
	name := a.Name
	if name == "" {
		name = "recording.wav"
	}
	resp, err := b.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    b.model,
		FilePath: name,
		Reader:   bytes.NewReader(a.Data),
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, err
	}
	raw, _ := json.Marshal(resp)
	return Result{
		Text:     resp.Text,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
		Raw:      raw,
	}, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
