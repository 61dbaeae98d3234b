// Command fukivoice runs the audio-preload daemon: it holds the loaded
// text units, synthesizes audio for them through the configured TTS
// services and pushes readiness events to the viewer over websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fukivoice/fukivoice/internal/config"
	"github.com/fukivoice/fukivoice/internal/log"
	"github.com/fukivoice/fukivoice/pkg/hub"
	"github.com/fukivoice/fukivoice/pkg/preload"
	"github.com/fukivoice/fukivoice/pkg/textunit"
	"github.com/fukivoice/fukivoice/pkg/tts"
	"github.com/fukivoice/fukivoice/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ~/.fukivoice/config.yaml)")
	listen := flag.String("listen", "", "Listen address override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		logger.Error("build provider registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	synth, err := preload.NewSynthesizer(registry, cfg.Preload.CacheDir, logger)
	if err != nil {
		logger.Error("create synthesizer", "error", err)
		os.Exit(1)
	}

	store := textunit.NewStore()
	events := hub.New(logger)

	notifier := preload.NotifierFuncs{
		OnUnitUpdated: func(update preload.UnitUpdate) {
			events.Broadcast(hub.Event{Kind: hub.EventUnitUpdated, Data: update})
		},
		OnAllReady: func() {
			events.Broadcast(hub.Event{Kind: hub.EventAllReady})
		},
	}

	orch := preload.New(synth, store, notifier, preload.Options{
		Source: preload.VoiceSelection{
			Service: cfg.Source.Service,
			Voice:   cfg.Source.EffectiveVoice(),
		},
		Target: preload.VoiceSelection{
			Service: cfg.Target.Service,
			Voice:   cfg.Target.EffectiveVoice(),
		},
		Mode:        preloadMode(cfg.Preload.Mode),
		AutoPlayAll: cfg.Preload.AutoPlayAll,
		MaxParallel: int64(cfg.Preload.MaxParallel),
		MaxAttempts: cfg.Preload.MaxAttempts,
		BackoffBase: cfg.Preload.BackoffBase,
		Logger:      logger,
	})

	server := web.NewServer(ctx, cfg.Listen, store, orch, events, logger)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		orch.CancelActive()
		cancel()
		if err := server.Shutdown(); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("fukivoice starting",
		"listen", cfg.Listen,
		"services", registry.Names(),
		"cache_dir", cfg.Preload.CacheDir,
		"preload_mode", cfg.Preload.Mode,
	)

	if err := server.Start(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// buildRegistry constructs one adapter per configured service. Services
// without an API key are skipped with a warning; a direction pointing at a
// skipped service surfaces later as a configuration error per unit.
func buildRegistry(ctx context.Context, cfg *config.Config) (*tts.Registry, error) {
	logger := log.L()
	registry := tts.NewRegistry()

	for name, svc := range cfg.Services {
		if svc.APIKey == "" {
			logger.Warn("service has no API key, skipping", "service", name)
			continue
		}

		// viper lowercases map keys, so match names case-insensitively.
		switch {
		case strings.EqualFold(name, tts.ServiceElevenLabs):
			p, err := tts.NewElevenLabs(
				tts.WithAPIKey(svc.APIKey),
				tts.WithLogger(logger),
			)
			if err != nil {
				return nil, fmt.Errorf("configure %s: %w", name, err)
			}
			registry.Register(p)

		case strings.EqualFold(name, tts.ServiceGoogleCloud):
			p, err := tts.NewGoogleCloud(ctx,
				tts.WithAPIKey(svc.APIKey),
				tts.WithLogger(logger),
			)
			if err != nil {
				return nil, fmt.Errorf("configure %s: %w", name, err)
			}
			registry.Register(p)

		default:
			logger.Warn("unknown service in config, skipping", "service", name)
		}
	}

	return registry, nil
}

func preloadMode(mode string) preload.Mode {
	switch mode {
	case config.ModeSource:
		return preload.ModeSource
	case config.ModeTarget:
		return preload.ModeTarget
	case config.ModeBoth:
		return preload.ModeBoth
	default:
		return preload.ModeOff
	}
}
