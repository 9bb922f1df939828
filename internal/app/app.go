package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/http2"

	"dictation/internal/asr"
	"dictation/internal/autostart"
	"dictation/internal/clipboard"
	"dictation/internal/config"
	"dictation/internal/deliver"
	"dictation/internal/enhance"
	"dictation/internal/history"
	"dictation/internal/hotkey"
	"dictation/internal/indicator"
	"dictation/internal/keyboard"
	"dictation/internal/notify"
	"dictation/internal/pipeline"
	"dictation/internal/record"
)

// Options configures Run.
type Options struct {
	Store  *config.Store
	APIKey string
	AppDir string
	Logger *log.Logger
}

// Run starts the hotkey listener, the tray and the dictation loop, and
// blocks until ctx is done or Quit is chosen from the tray.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Store.Snapshot()

	combo, err := hotkey.Parse(cfg.Hotkey)
	if err != nil {
		return err
	}

	httpClient := newHTTPClient(cfg)
	asrClient, err := asr.New(cfg, opts.APIKey, httpClient, logger.WithPrefix("upload"))
	if err != nil {
		return err
	}
	enhancer := enhance.New(cfg, opts.APIKey, httpClient, logger.WithPrefix("enhance"))

	recorder := record.New(record.Options{
		DeviceIndex:      cfg.AudioDeviceIndex,
		MinDuration:      cfg.MinRecording(),
		SilenceThreshold: cfg.SilenceThreshold,
		Debug:            cfg.RecordDebug,
		Logger:           logger.WithPrefix("record"),
	})

	deliverOpts := deliver.OptionsFrom(cfg)
	deliverOpts.Debug = cfg.UploadDebug
	deliverOpts.Logger = logger.WithPrefix("paste")
	deliverer := deliver.New(keyboard.Typer{}, clipboard.System{}, deliverOpts)

	notifier := notify.New(cfg.Notification, cfg.SoundFeedback, logger.WithPrefix("notify"))

	hist, err := history.Load(history.DefaultPath(opts.AppDir))
	if err != nil {
		logger.Warn("history unreadable, starting empty", "err", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var orch *pipeline.Orchestrator
	var listener *hotkey.Listener
	tray := newIndicator(cfg, indicator.Menu{
		OnToggle: func(enabled bool) {
			orch.SetEnabled(enabled)
			if listener != nil {
				listener.SetEnabled(enabled)
			}
		},
		OnUsage: func() {
			s := opts.Store.Snapshot()
			notifier.Notify(UsageSummary(s.Stats, s.EnhanceText))
		},
		OnQuit: cancel,
	}, logger.WithPrefix("tray"))
	var onState func(pipeline.State)
	if tray != nil {
		onState = tray.Show
	}

	orch = pipeline.New(pipeline.Deps{
		Recorder:    recorder,
		Transcriber: asrClient,
		Enhancer:    enhancer,
		Deliverer:   deliverer,
		Notifier:    notifier,
		Usage:       opts.Store,
		History:     hist,
		Settings:    opts.Store.Snapshot,
		Configured:  func() bool { return opts.APIKey != "" },
		OnState:     onState,
		Logger:      logger.WithPrefix("pipeline"),
	})

	signals := make(chan hotkey.Signal, 16)
	listener, err = hotkey.Listen(combo, signals, logger.WithPrefix("hotkey"), cfg.HotkeyDebug)
	if err != nil {
		return fmt.Errorf("hotkey %q: %w", cfg.Hotkey, err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			logger.Warn("hotkey close failed", "err", err)
		}
	}()
	go hotkey.Debounce(ctx, signals, cfg.Debounce(), func(s hotkey.Signal) {
		switch s {
		case hotkey.Press:
			orch.Press()
		case hotkey.Release:
			orch.Release()
		}
	})

	if err := autostart.Sync(cfg.AutoStartOnBoot); err != nil && !errors.Is(err, autostart.ErrUnsupported) {
		logger.Warn("autostart update failed", "err", err)
	}

	if opts.APIKey == "" {
		logger.Warn("no API key configured", "env", cfg.APIKeyEnv)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orch.Run(ctx)
	}()

	logger.Info("ready", "hotkey", combo.Spec, "backend", cfg.Backend, "language", cfg.Language)
	if tray != nil {
		if err := tray.Run(ctx); err != nil {
			logger.Error("tray failed", "err", err)
		}
	} else {
		<-ctx.Done()
	}
	cancel()
	<-done
	logger.Info("stopped")
	return nil
}

// newIndicator returns nil when indicator_enabled is off. Without it the
// process runs headless and stops on interrupt.
func newIndicator(cfg config.Config, menu indicator.Menu, logger *log.Logger) *indicator.Indicator {
	if !cfg.IndicatorEnabled {
		return nil
	}
	return indicator.New(menu, true, logger)
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   cfg.Timeout(),
	}
}
