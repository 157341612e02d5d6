package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"codescanner/internal/bot"
	"codescanner/internal/capture"
	"codescanner/internal/config"
	"codescanner/internal/dispatch"
	"codescanner/internal/metrics"
	"codescanner/internal/model"
	"codescanner/internal/preview"
	"codescanner/internal/scanner"
	"codescanner/internal/storage"
)

const flashDuration = 150 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("scanner stopped", "error", err)
		os.Exit(1)
	}
	log.Info("scanner stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	// The controller and the lifecycle reference each other and the
	// dispatcher; both closures are bound before capture starts.
	var (
		disp  *dispatch.Dispatcher
		flash scanner.Feedback
	)
	ctrl := scanner.New(cfg.ScannerOptions(),
		func(r model.ScanResult) { disp.Handle(r) },
		scanner.WithRecorder(rec),
		scanner.WithLogger(log.With("component", "scanner")),
		scanner.WithFeedback(scanner.FeedbackFunc(func(r model.ScanResult) { flash.Pulse(r) })),
	)

	session := capture.NewSimulated(capture.SimulatedConfig{
		Payloads:      cfg.SimulatedData,
		FrameInterval: cfg.FrameInterval,
	})
	opts := capture.Options{
		Kinds:       cfg.CodeKinds,
		PreferSpeed: cfg.PreferSpeed,
		TorchOn:     cfg.TorchOn,
		OnRunStart: func(runID string) {
			disp.BeginRun(runID)
			rec.RunStarted()
		},
	}
	if cfg.CaptureDevice != "" {
		opts.Device = &capture.Device{ID: cfg.CaptureDevice, Name: cfg.CaptureDevice}
	}
	lc := capture.NewLifecycle(session, capture.TextAnalyzer{Kind: cfg.CodeKinds[0]}, ctrl, opts, log.With("component", "capture"))
	defer lc.Close()

	flash = lc.Flash(flashDuration)
	if cfg.ShowViewfinder {
		bell := capture.NewBell(os.Stdout)
		torch := flash
		flash = scanner.FeedbackFunc(func(r model.ScanResult) {
			bell.Pulse(r)
			torch.Pulse(r)
		})
	}

	dispOpts := []dispatch.Option{dispatch.WithCounter(rec)}
	if cfg.FeedPreview {
		dispOpts = append(dispOpts, dispatch.WithPreview(preview.New(&http.Client{Timeout: 10 * time.Second})))
	}

	var b *bot.Bot
	if cfg.TelegramBotToken != "" {
		b, err = bot.New(cfg.TelegramBotToken, store, cfg, lc, ctrl, log.With("component", "bot"))
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		dispOpts = append(dispOpts, dispatch.WithSender(b, cfg.NotifyChatID))
	}
	disp = dispatch.New(store, log.With("component", "dispatch"), dispOpts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		disp.Run(ctx)
		return nil
	})
	if b != nil {
		g.Go(func() error {
			b.Run(ctx)
			return nil
		})
	}
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Info("starting scanner",
		"mode", cfg.ScanMode,
		"interval", cfg.ScanInterval,
		"kinds", cfg.CodeKinds,
		"viewfinder", cfg.ShowViewfinder,
		"bot", b != nil,
	)
	lc.Appear()

	<-ctx.Done()
	lc.Disappear()
	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
