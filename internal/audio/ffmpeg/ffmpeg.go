// Package ffmpeg transcodes audio held in memory by piping it through the
// ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Options selects the output encoding.
type Options struct {
	Codec      string
	Channels   int
	SampleRate int
	BitrateK   int
	Debug      bool
	Logger     *log.Logger
}

type codecInfo struct {
	encoder    string
	format     string
	ext        string
	hasBitrate bool
}

var codecs = map[string]codecInfo{
	"wav":  {encoder: "pcm_s16le", format: "wav", ext: "wav"},
	"pcm":  {encoder: "pcm_s16le", format: "wav", ext: "wav"},
	"opus": {encoder: "libopus", format: "ogg", ext: "ogg", hasBitrate: true},
	"mp3":  {encoder: "libmp3lame", format: "mp3", ext: "mp3", hasBitrate: true},
	"flac": {encoder: "flac", format: "flac", ext: "flac"},
}

// Ext returns the file extension used for the codec, or "" when unsupported.
func Ext(codec string) string {
	return codecs[strings.ToLower(codec)].ext
}

// Args builds the ffmpeg argument list reading from stdin and writing to stdout.
func Args(opts Options) ([]string, error) {
	info, ok := codecs[strings.ToLower(opts.Codec)]
	if !ok {
		return nil, fmt.Errorf("unsupported codec: %s", opts.Codec)
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}
	sr := opts.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	bitrate := opts.BitrateK
	if bitrate <= 0 {
		bitrate = 32
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0",
		"-ac", strconv.Itoa(channels), "-ar", strconv.Itoa(sr), "-c:a", info.encoder}
	if info.hasBitrate {
		args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate))
	}
	args = append(args, "-f", info.format, "pipe:1")
	return args, nil
}

// Transcode runs ffmpeg over in and returns the encoded output.
func Transcode(ctx context.Context, in []byte, opts Options) ([]byte, error) {
	args, err := Args(opts)
	if err != nil {
		return nil, err
	}
	if opts.Debug && opts.Logger != nil {
		opts.Logger.Debug("executing", "cmd", "ffmpeg "+strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output")
	}
	return stdout.Bytes(), nil
}
