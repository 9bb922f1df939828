package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"dictation/internal/asr"
	"dictation/internal/config"
	"dictation/internal/deliver"
	"dictation/internal/history"
	"dictation/internal/record"
)

// Recorder captures one utterance between Start and Stop.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (record.Utterance, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, a asr.Audio, language string) (asr.Result, error)
}

// Enhancer returns cleaned-up text, or the input and an error.
type Enhancer interface {
	Enhance(ctx context.Context, text string) (string, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, text string) (deliver.Method, error)
}

type Notifier interface {
	Notify(message string)
	Error(message string)
	StartBeep()
	EndBeep()
}

// Usage receives the counters of each delivered dictation.
type Usage interface {
	AddUsage(d time.Duration, words int) error
}

type History interface {
	Add(e history.Entry) error
}

// Outcome summarises one processed utterance.
type Outcome struct {
	Text     string
	Method   deliver.Method
	Duration time.Duration
	Enhanced bool
	Err      error
}

// Deps wires the orchestrator to its collaborators. Enhancer and History
// are optional.
type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Enhancer    Enhancer
	Deliverer   Deliverer
	Notifier    Notifier
	Usage       Usage
	History     History

	// Settings returns the current settings snapshot.
	Settings func() config.Config
	// Configured reports whether a credential is available. Nil means yes.
	Configured func() bool

	OnState   func(State)
	OnOutcome func(Outcome)
	Logger    *log.Logger
	Now       func() time.Time
}

const (
	longRecording = 5 * time.Minute
	eventBuffer   = 16
	maxNotifyLen  = 100
)

// Orchestrator owns the Machine and applies every transition on the
// goroutine running Run.
type Orchestrator struct {
	deps     Deps
	events   chan Event
	m        Machine
	autoStop *time.Timer
	log      *log.Logger
	wg       sync.WaitGroup
}

func New(d Deps) *Orchestrator {
	if d.Logger == nil {
		d.Logger = log.Default().WithPrefix("pipeline")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Orchestrator{
		deps:   d,
		events: make(chan Event, eventBuffer),
		m:      Machine{enabled: true},
		log:    d.Logger,
	}
}

// Post queues ev without blocking. It reports false when the queue is full.
func (o *Orchestrator) Post(ev Event) bool {
	select {
	case o.events <- ev:
		return true
	default:
		o.log.Warn("event dropped, loop busy", "event", ev.Kind)
		return false
	}
}

func (o *Orchestrator) Press() bool { return o.Post(Event{Kind: EventPress}) }
func (o *Orchestrator) Release() bool { return o.Post(Event{Kind: EventRelease}) }

// SetEnabled turns dictation on or off. Disabling discards a recording in
// progress; processing already under way finishes.
func (o *Orchestrator) SetEnabled(v bool) bool {
	return o.Post(Event{Kind: EventSetEnabled, Enabled: v})
}

func (o *Orchestrator) postWait(ctx context.Context, ev Event) {
	select {
	case o.events <- ev:
	case <-ctx.Done():
	}
}

// Run processes events until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.publish()
	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case ev := <-o.events:
			o.handle(ctx, ev)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventPress:
		o.onPress(ctx)
	case EventRelease, EventAutoStop:
		o.onStop(ctx, ev)
	case EventSetEnabled:
		o.onSetEnabled(ev.Enabled)
	case EventDone:
		o.onDone(ev.Outcome)
	default:
		o.log.Warn("unknown event", "event", ev.Kind)
	}
}

func (o *Orchestrator) onPress(ctx context.Context) {
	if !o.m.CanStart() {
		o.log.Debug("press ignored", "state", o.m.State(), "enabled", o.m.Enabled())
		return
	}
	if o.deps.Configured != nil && !o.deps.Configured() {
		o.log.Warn("press ignored, no API key configured")
		o.deps.Notifier.Error("API key not configured. Set it in the environment or .env file.")
		return
	}

	cfg := o.deps.Settings()
	if err := o.deps.Recorder.Start(ctx); err != nil {
		o.log.Error("recording failed to start", "err", err)
		o.deps.Notifier.Error(truncate(fmt.Sprintf("Microphone error: %v", err)))
		return
	}
	gen, err := o.m.StartRecording()
	if err != nil {
		o.log.Error("state transition failed", "err", err)
		return
	}
	o.deps.Notifier.StartBeep()
	if limit := cfg.MaxRecording(); limit > 0 {
		o.autoStop = time.AfterFunc(limit, func() {
			o.postWait(ctx, Event{Kind: EventAutoStop, gen: gen})
		})
	}
	o.log.Info("recording")
	o.publish()
}

func (o *Orchestrator) onStop(ctx context.Context, ev Event) {
	if o.m.State() != Recording {
		return
	}
	if ev.Kind == EventAutoStop && ev.gen != o.m.gen {
		return
	}
	o.stopTimer()
	o.deps.Notifier.EndBeep()

	u, err := o.deps.Recorder.Stop()
	if err != nil {
		_ = o.m.StopRecording(false)
		o.publish()
		if record.Discarded(err) {
			o.log.Info("recording discarded", "reason", err, "duration", u.Duration)
			return
		}
		o.log.Error("recording failed", "err", err)
		o.deps.Notifier.Error(truncate(fmt.Sprintf("Recording failed: %v", err)))
		return
	}

	cfg := o.deps.Settings()
	if ev.Kind == EventAutoStop {
		o.log.Info("auto-stopping recording, limit reached", "limit", cfg.MaxRecording())
		o.deps.Notifier.Notify(fmt.Sprintf("Recording auto-stopped after %s", cfg.MaxRecording()))
	}
	if u.Duration > longRecording {
		o.log.Warn("long recording", "minutes", fmt.Sprintf("%.1f", u.Duration.Minutes()))
	}

	_ = o.m.StopRecording(true)
	o.publish()
	o.log.Info("processing", "duration", u.Duration)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		out := o.process(ctx, u, cfg)
		o.postWait(ctx, Event{Kind: EventDone, Outcome: out})
	}()
}

func (o *Orchestrator) onSetEnabled(v bool) {
	o.m.SetEnabled(v)
	o.log.Info("dictation toggled", "enabled", v)
	if !v && o.m.State() == Recording {
		o.stopTimer()
		if _, err := o.deps.Recorder.Stop(); err != nil && !record.Discarded(err) {
			o.log.Warn("stop recording failed", "err", err)
		}
		_ = o.m.StopRecording(false)
	}
	o.publish()
}

func (o *Orchestrator) onDone(out Outcome) {
	if err := o.m.Finish(); err != nil {
		o.log.Error("state transition failed", "err", err)
		return
	}
	o.publish()
	if o.deps.OnOutcome != nil {
		o.deps.OnOutcome(out)
	}
}

// process runs on a worker goroutine. Every terminal failure produces
// exactly one error notification.
func (o *Orchestrator) process(ctx context.Context, u record.Utterance, cfg config.Config) Outcome {
	out := Outcome{Duration: u.Duration}

	wav, err := u.WAV()
	if err != nil {
		out.Err = err
		o.log.Error("encode audio failed", "err", err)
		o.deps.Notifier.Error("Could not encode the recording")
		return out
	}

	res, err := o.deps.Transcriber.Transcribe(ctx, asr.Audio{Data: wav, Name: "recording.wav", Duration: u.Duration}, cfg.LanguageHint())
	if err != nil {
		out.Err = err
		o.log.Error("transcription failed", "err", err)
		o.deps.Notifier.Error(transcriptionMessage(err))
		return out
	}
	if res.Text == "" {
		o.log.Info("no speech detected")
		o.deps.Notifier.Notify("No speech detected")
		return out
	}
	text := res.Text

	if o.deps.Enhancer != nil && cfg.EnhanceText {
		out.Enhanced = true
		enhanced, err := o.deps.Enhancer.Enhance(ctx, text)
		if err != nil {
			o.log.Warn("enhancement failed, using original", "err", err)
		} else if enhanced != "" {
			text = enhanced
		}
	}
	out.Text = text

	method, err := o.deps.Deliverer.Deliver(ctx, text)
	out.Method = method
	if err != nil {
		out.Err = err
		o.log.Error("text delivery failed", "err", err)
		o.deps.Notifier.Error("Could not insert the text into the active window")
		return out
	}

	words := len(strings.Fields(text))
	if err := o.deps.Usage.AddUsage(u.Duration, words); err != nil {
		o.log.Warn("save usage failed", "err", err)
	}
	if o.deps.History != nil {
		entry := history.NewEntry(text, u.Duration, cfg.Language, out.Enhanced, o.deps.Now())
		if err := o.deps.History.Add(entry); err != nil {
			o.log.Warn("save history failed", "err", err)
		}
	}
	o.log.Info("dictation complete", "words", words, "method", method, "duration", u.Duration)
	o.deps.Notifier.Notify(fmt.Sprintf("Inserted %d words", words))
	return out
}

func (o *Orchestrator) stopTimer() {
	if o.autoStop != nil {
		o.autoStop.Stop()
		o.autoStop = nil
	}
}

func (o *Orchestrator) publish() {
	if o.deps.OnState != nil {
		o.deps.OnState(o.m.State())
	}
}

func (o *Orchestrator) shutdown() {
	o.stopTimer()
	if o.m.State() == Recording {
		_, _ = o.deps.Recorder.Stop()
		_ = o.m.StopRecording(false)
	}
	o.wg.Wait()
}

func transcriptionMessage(err error) string {
	var re *asr.RetryExhaustedError
	if errors.As(err, &re) {
		return fmt.Sprintf("Transcription failed after %d attempts. Check your connection.", re.Attempts)
	}
	var te *asr.TranscriptionError
	if errors.As(err, &te) {
		switch te.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "Invalid API key. Please check your settings."
		case http.StatusTooManyRequests:
			return "Rate limit exceeded. Please wait and try again."
		}
	}
	return truncate(fmt.Sprintf("Transcription failed: %v", err))
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxNotifyLen {
		return s
	}
	return string(r[:maxNotifyLen-3]) + "..."
}
