package asr

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"

	"dictation/internal/config"
	"dictation/internal/jsonpath"
)

// StatusError is a non-200 reply from a custom endpoint.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, formatResponse(e.Body))
}

// httpBackend posts multipart uploads to an arbitrary endpoint and picks the
// transcript out of the JSON reply with a configurable path.
type httpBackend struct {
	endpoint    string
	apiKey      string
	model       string
	textPath    jsonpath.Path
	extraConfig map[string]interface{}
	client      *http.Client
	debug       bool
	log         *log.Logger
}

func newHTTPBackend(cfg config.Config, apiKey string, httpClient *http.Client, logger *log.Logger) (*httpBackend, error) {
	if cfg.APIEndpoint == "" {
		return nil, fmt.Errorf("API endpoint is empty")
	}
	path, err := jsonpath.Compile(cfg.TextPath)
	if err != nil {
		return nil, err
	}
	b := &httpBackend{
		endpoint: cfg.APIEndpoint,
		apiKey:   apiKey,
		model:    cfg.TranscriptionModel,
		textPath: path,
		client:   httpClient,
		debug:    cfg.UploadDebug,
		log:      logger,
	}
	if cfg.ExtraConfig != "" {
		b.extraConfig = make(map[string]interface{})
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &b.extraConfig); err != nil {
			return nil, fmt.Errorf("invalid extra-config JSON: %w", err)
		}
	}
	return b, nil
}

func (b *httpBackend) name() string { return config.BackendHTTP }

func (b *httpBackend) transcribe(ctx context.Context, a Audio, language string) (Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", a.Name)
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(a.Data); err != nil {
		return Result{}, fmt.Errorf("write form file: %w", err)
	}

	fields := make(map[string]interface{})
	if b.model != "" {
		fields["model"] = b.model
	}
	if language != "" {
		fields["language"] = language
	}
	for k, v := range b.extraConfig {
		fields[k] = v
	}
	for k, v := range fields {
		if err := writer.WriteField(k, fieldValue(v)); err != nil {
			return Result{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, body)
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	req.Header.Set("User-Agent", "dictation/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if b.debug {
		b.log.Debug("response", "status", resp.StatusCode, "body", formatResponse(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, &StatusError{Code: resp.StatusCode, Body: respBody}
	}

	return Result{Text: b.textPath.Extract(respBody), Raw: respBody}, nil
}

func fieldValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", val)
	}
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}
