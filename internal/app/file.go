package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"dictation/internal/asr"
	"dictation/internal/audio/ffmpeg"
	"dictation/internal/config"
	"dictation/internal/enhance"
	"dictation/internal/record"
)

// TranscribeFile transcribes an existing audio file and writes the text to
// outputPath, or to <name>.txt in the working directory when it is empty.
// Non-WAV input is converted to 16 kHz mono WAV with ffmpeg first. It
// returns the path written.
func TranscribeFile(ctx context.Context, cfg config.Config, apiKey, inputPath, outputPath string, logger *log.Logger) (string, error) {
	if logger == nil {
		logger = log.Default()
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("file '%s' read failed: %w", inputPath, err)
	}

	if !isWAV(data) {
		logger.Debug("converting input to wav", "file", inputPath)
		data, err = ffmpeg.Transcode(ctx, data, ffmpeg.Options{
			Codec:      config.CodecWAV,
			Channels:   1,
			SampleRate: 16000,
			Debug:      cfg.UploadDebug,
			Logger:     logger.WithPrefix("ffmpeg"),
		})
		if err != nil {
			return "", err
		}
	}
	dur, err := record.WAVDuration(data)
	if err != nil {
		return "", fmt.Errorf("file '%s': %w", inputPath, err)
	}

	httpClient := newHTTPClient(cfg)
	client, err := asr.New(cfg, apiKey, httpClient, logger.WithPrefix("upload"))
	if err != nil {
		return "", err
	}
	res, err := client.Transcribe(ctx, asr.Audio{Data: data, Name: "recording.wav", Duration: dur}, cfg.LanguageHint())
	if err != nil {
		return "", err
	}

	text := res.Text
	if cfg.EnhanceText && text != "" {
		enhanced, err := enhance.New(cfg, apiKey, httpClient, logger.WithPrefix("enhance")).Enhance(ctx, text)
		if err != nil {
			logger.Warn("enhancement failed, using original", "err", err)
		} else {
			text = enhanced
		}
	}

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outPath = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return "", err
	}
	logger.Info("transcript written", "file", outPath, "duration", dur, "words", len(strings.Fields(text)))
	return outPath, nil
}

func isWAV(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE"))
}
