package record

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

// WAV renders the utterance as a 16-bit PCM RIFF/WAV file in memory.
func (u Utterance) WAV() ([]byte, error) {
	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, u.SampleRate, 16, u.Channels, 1)

	data := make([]int, len(u.Samples))
	for i, v := range u.Samples {
		data[i] = int(v)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: u.Channels, SampleRate: u.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav write failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close failed: %w", err)
	}
	return io.ReadAll(ws.Reader())
}

// WAVDuration reads the duration from a WAV file held in memory.
func WAVDuration(b []byte) (time.Duration, error) {
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("not a valid wav file")
	}
	return dec.Duration()
}
