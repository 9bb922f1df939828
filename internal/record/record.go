package record

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// State represents recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
)

var (
	ErrBusy         = errors.New("recorder not idle")
	ErrNotRecording = errors.New("recorder not running")
	ErrTooShort     = errors.New("recording too short")
	ErrSilent       = errors.New("recording appears to be silent")
	ErrNoAudio      = errors.New("no audio data captured")
)

// CaptureError reports a failure to open or read the input device.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("audio capture: %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Discarded reports whether err means the recording was dropped on purpose
// rather than failing.
func Discarded(err error) bool {
	return errors.Is(err, ErrTooShort) || errors.Is(err, ErrSilent) || errors.Is(err, ErrNoAudio)
}

// StreamConfig describes the input stream to open.
type StreamConfig struct {
	SampleRate  int
	Channels    int
	DeviceIndex int
	FrameSize   int
}

// Source is an open input stream delivering interleaved int16 samples.
type Source interface {
	Read(dst []int16) (int, error)
	Close() error
}

// Opener opens an input stream.
type Opener func(cfg StreamConfig) (Source, error)

// Options configures a Recorder.
type Options struct {
	SampleRate       int
	Channels         int
	DeviceIndex      int
	FrameSize        int
	MinDuration      time.Duration
	SilenceThreshold float64
	Debug            bool
	Logger           *log.Logger
	Open             Opener
}

const (
	maxConsecutiveReadErrors = 50
	readRetryDelay           = 10 * time.Millisecond
)

// Recorder buffers microphone samples in memory between Start and Stop.
type Recorder struct {
	mu      sync.Mutex
	state   State
	opts    Options
	samples []int16
	stop    chan struct{}
	done    chan struct{}
	loopErr error
}

// New creates a recorder. Zero values fall back to mono 16 kHz from the
// default PortAudio device.
func New(opts Options) *Recorder {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = 1024
	}
	if opts.Logger == nil {
		opts.Logger = log.Default().WithPrefix("record")
	}
	if opts.Open == nil {
		opts.Open = OpenPortAudio
	}
	return &Recorder{opts: opts, state: StateIdle}
}

// Start opens the input stream and begins buffering samples.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrBusy
	}
	opts := r.opts
	r.mu.Unlock()

	src, err := opts.Open(StreamConfig{
		SampleRate:  opts.SampleRate,
		Channels:    opts.Channels,
		DeviceIndex: opts.DeviceIndex,
		FrameSize:   opts.FrameSize,
	})
	if err != nil {
		var ce *CaptureError
		if errors.As(err, &ce) {
			return err
		}
		return &CaptureError{Op: "open stream", Err: err}
	}

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		_ = src.Close()
		return ErrBusy
	}
	r.state = StateRecording
	r.samples = r.samples[:0]
	r.loopErr = nil
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	stop, done := r.stop, r.done
	r.mu.Unlock()

	if opts.Debug {
		opts.Logger.Debug("recording started", "rate", opts.SampleRate, "channels", opts.Channels, "device", opts.DeviceIndex)
	}
	go r.recordLoop(ctx, src, stop, done)
	return nil
}

// Stop ends the recording and returns the captured utterance. Recordings
// shorter than MinDuration or quieter than SilenceThreshold are discarded
// with ErrTooShort or ErrSilent.
func (r *Recorder) Stop() (Utterance, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return Utterance{}, ErrNotRecording
	}
	r.state = StateStopping
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done

	r.mu.Lock()
	samples := make([]int16, len(r.samples))
	copy(samples, r.samples)
	r.samples = r.samples[:0]
	loopErr := r.loopErr
	r.state = StateIdle
	opts := r.opts
	r.mu.Unlock()

	if loopErr != nil && len(samples) == 0 {
		return Utterance{}, loopErr
	}

	u := Utterance{
		Samples:    samples,
		SampleRate: opts.SampleRate,
		Channels:   opts.Channels,
	}
	u.Duration = u.computeDuration()

	if opts.Debug {
		opts.Logger.Debug("recording stopped", "samples", len(samples), "duration", u.Duration)
	}

	if len(samples) == 0 {
		return u, ErrNoAudio
	}
	if u.Duration < opts.MinDuration {
		return u, ErrTooShort
	}
	if opts.SilenceThreshold > 0 && u.Level() < opts.SilenceThreshold {
		return u, ErrSilent
	}
	return u, nil
}

func (r *Recorder) recordLoop(ctx context.Context, src Source, stop, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := src.Close(); err != nil {
			r.opts.Logger.Warn("close stream failed", "err", err)
		}
	}()

	buf := make([]int16, r.opts.FrameSize*r.opts.Channels)
	failures := 0
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		n, err := src.Read(buf)
		if err != nil {
			failures++
			if r.opts.Debug {
				r.opts.Logger.Debug("stream read error", "err", err)
			}
			if failures >= maxConsecutiveReadErrors {
				r.mu.Lock()
				r.loopErr = &CaptureError{Op: "read stream", Err: err}
				r.mu.Unlock()
				r.opts.Logger.Error("giving up on input stream", "err", err)
				<-stop
				return
			}
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}
		failures = 0
		if n == 0 {
			continue
		}
		r.mu.Lock()
		r.samples = append(r.samples, buf[:n]...)
		r.mu.Unlock()
	}
}

// Utterance is one push-to-talk recording held in memory.
type Utterance struct {
	Samples    []int16
	SampleRate int
	Channels   int
	Duration   time.Duration
}

func (u Utterance) computeDuration() time.Duration {
	if u.SampleRate <= 0 || u.Channels <= 0 {
		return 0
	}
	frames := len(u.Samples) / u.Channels
	return time.Duration(float64(frames) / float64(u.SampleRate) * float64(time.Second))
}

// Level returns the mean absolute amplitude normalised to 0..1.
func (u Utterance) Level() float64 {
	if len(u.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range u.Samples {
		sum += math.Abs(float64(s))
	}
	return sum / float64(len(u.Samples)) / 32768.0
}
