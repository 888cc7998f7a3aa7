package main

import (
	"os"
	"os/signal"
	"syscall"

	"cadenza/internal/config"
	"cadenza/internal/console"
	"cadenza/internal/engine"
	"cadenza/internal/history"
	"cadenza/internal/metadata"
	"cadenza/internal/playback"
	"cadenza/internal/playlist"
	"cadenza/internal/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Optional .env for secrets that should stay out of config.toml
	if err := godotenv.Load(".env"); err == nil {
		logger.Debug("Loaded environment from .env")
	}
	if v := os.Getenv("CADENZA_CONFIG"); v != "" {
		configPath = v
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	if v := os.Getenv("CADENZA_API_PASSWORD_HASH"); v != "" {
		cfg.Server.APIPasswordHash = v
	}

	applyLoggingConfig(cfg, logger)

	// Load the playlist, filling gaps from local media files
	extractor := metadata.NewExtractor(cfg.Player.SupportedFormats)
	pl, err := playlist.Load(cfg.Playlist.Path, extractor, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error loading playlist")
	}
	logger.WithFields(logrus.Fields{
		"name":   pl.Name,
		"tracks": pl.Len(),
	}).Info("Playlist loaded")

	// Bring up the audio engine
	eng, err := engine.New(cfg.Player.SampleRate, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing audio engine")
	}

	// Create the playback controller
	controller, err := playback.NewController(eng, pl, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating playback controller")
	}
	controller.SetVolume(cfg.Player.DefaultVolume)
	go controller.Run()

	// Play history
	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.NewStore(cfg.History.Path, logger)
		if err != nil {
			logger.WithError(err).Warn("History store not available")
			store = nil
		} else {
			go store.Consume(controller.SubscribeTransitions())
		}
	}

	// HTTP control surface
	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg, controller, store, logger)
		go func() {
			if err := srv.Start(); err != nil {
				logger.WithError(err).Fatal("Control server failed")
			}
		}()
	}

	// Handle graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Interactive keyboard transport, when attached to a terminal
	if cfg.Console.Enabled && term.IsTerminal(int(os.Stdin.Fd())) {
		go func() {
			cons := console.New(controller, logger)
			if err := cons.Run(); err != nil {
				logger.WithError(err).Error("Console transport stopped")
			}
			sig <- syscall.SIGTERM
		}()
	}

	// Wait for shutdown signal
	<-sig

	logger.Info("Received shutdown signal")
	if srv != nil {
		srv.Shutdown()
	}
	controller.Close()
	eng.Close()
	if store != nil {
		store.Close()
	}
}

// applyLoggingConfig reconfigures the startup logger per the config file.
func applyLoggingConfig(cfg *config.Config, logger *logrus.Logger) {
	switch cfg.Logging.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, logging to stderr")
			return
		}
		logger.SetOutput(f)
	}
}
