// Command squadvoice runs the bidirectional speech translation pipeline:
// game audio and mic audio are captured, segmented, transcribed, translated,
// glossary-corrected and pushed to the overlay.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rvasily/squadvoice/internal/api"
	"github.com/rvasily/squadvoice/internal/audio"
	"github.com/rvasily/squadvoice/internal/changelog"
	"github.com/rvasily/squadvoice/internal/config"
	"github.com/rvasily/squadvoice/internal/glossary"
	"github.com/rvasily/squadvoice/internal/overlay"
	"github.com/rvasily/squadvoice/internal/pipeline"
	"github.com/rvasily/squadvoice/internal/storage/sqlite"
	"github.com/rvasily/squadvoice/internal/transcription"
	"github.com/rvasily/squadvoice/internal/translation"
	"github.com/rvasily/squadvoice/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "squadvoice: %v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "squadvoice: failed to create logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	log.Info("squadvoice starting",
		logger.String("config", *configPath),
		logger.Int("channels", len(cfg.Channels)))

	// Glossary rule sets. Load failures are fatal: a half-loaded rule set
	// would silently produce wrong terminology all session.
	engine, err := glossary.LoadEngine(cfg.Glossary.RuleFiles)
	if err != nil {
		log.Error("failed to load glossary rules", logger.Error(err))
		return 1
	}
	for _, lang := range engine.Languages() {
		log.Info("glossary rules loaded",
			logger.String("lang", lang),
			logger.Int("rules", engine.RuleCount(lang)))
	}

	changeLog, err := changelog.New(cfg.ChangeLog.Dir, log)
	if err != nil {
		log.Error("failed to create change log", logger.Error(err))
		return 1
	}

	var store *sqlite.UtteranceStorage
	if cfg.Storage.Enabled {
		db, err := sqlite.Open(cfg.Storage.DBPath)
		if err != nil {
			log.Error("failed to open database", logger.Error(err))
			return 1
		}
		defer db.Close()

		store, err = sqlite.NewUtteranceStorage(db, log)
		if err != nil {
			log.Error("failed to initialize storage", logger.Error(err))
			return 1
		}
		log.Info("session storage enabled", logger.String("db_path", cfg.Storage.DBPath))
	}

	asr, err := transcription.NewOpenAIService(cfg.ASR, log)
	if err != nil {
		log.Error("failed to create transcription service", logger.Error(err))
		return 1
	}
	mt, err := translation.NewOpenAIService(cfg.Translator, log)
	if err != nil {
		log.Error("failed to create translation service", logger.Error(err))
		return 1
	}
	hub := overlay.NewHub(log)
	defer hub.Close()

	channels := make([]*pipeline.Channel, 0, len(cfg.Channels))
	for _, chCfg := range cfg.Channels {
		source, err := audio.NewStreamSource(audio.StreamSourceConfig{
			URL:        chCfg.SourceURL,
			SampleRate: cfg.Audio.SampleRate,
			Channels:   1,
			FrameMs:    cfg.Audio.FrameMs,
		}, log)
		if err != nil {
			log.Error("failed to create audio source",
				logger.String("channel", chCfg.ID),
				logger.Error(err))
			return 1
		}

		channels = append(channels, pipeline.NewChannel(chCfg, cfg.Pipeline.PendingQueueSize, pipeline.ChannelDeps{
			Source:      source,
			Segmenter:   audio.NewSegmenter(cfg.Segmenter, cfg.Audio.SampleRate, cfg.Audio.FrameMs),
			Transcriber: asr,
			Translator:  mt,
			Glossary:    engine,
			Display:     hub,
			ChangeLog:   changeLog,
			Store:       store,
			Logger:      log,
		}))
	}

	coordinator := pipeline.NewCoordinator(channels,
		time.Duration(cfg.Pipeline.ShutdownTimeoutSec)*time.Second, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var server *http.Server
	if cfg.Server.Enabled {
		router := api.NewRouter(coordinator, store, hub, cfg, log)
		server = &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: router.Routes(),
		}
		go func() {
			log.Info("HTTP server listening", logger.String("addr", cfg.Server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("HTTP server failed", logger.Error(err))
			}
		}()
	}

	coordinator.Start(ctx)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case <-coordinator.Done():
		// All channels died on their own, nothing left to translate.
		log.Error("all channels stopped, shutting down")
	}

	coordinator.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", logger.Error(err))
		}
	}

	for _, ch := range channels {
		if err := ch.Err(); err != nil {
			log.Error("channel finished with error",
				logger.String("channel", ch.ID()),
				logger.Error(err))
		}
	}

	log.Info("squadvoice stopped")
	return 0
}
