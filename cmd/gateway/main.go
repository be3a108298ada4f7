package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/talknote/gateway/internal/config"
	"github.com/talknote/gateway/internal/enhance"
	"github.com/talknote/gateway/internal/metrics"
	"github.com/talknote/gateway/internal/notes"
	"github.com/talknote/gateway/internal/server"
	"github.com/talknote/gateway/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-note-gateway"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load .env if present; environment overrides the YAML file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("address", cfg.Server.Address),
		slog.String("whisper_binary", cfg.Whisper.BinaryPath),
		slog.String("whisper_model", cfg.Whisper.ModelPath),
		slog.String("ollama_url", cfg.Ollama.BaseURL),
		slog.String("ollama_model", cfg.Ollama.Model),
		slog.String("trilium_url", cfg.Trilium.BaseURL),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Load the speech-to-text engine. Load failure does not abort startup:
	// the gateway still serves text pipelines and reports the voice
	// pipelines as unavailable.
	model, loadErr := transcription.NewWhisperCLI(
		cfg.Whisper.BinaryPath,
		cfg.Whisper.ModelPath,
		cfg.Whisper.Language,
	)
	if loadErr != nil {
		logger.Warn("Speech-to-text engine unavailable",
			slog.String("binary", cfg.Whisper.BinaryPath),
			slog.String("model", cfg.Whisper.ModelPath),
			slog.String("error", loadErr.Error()),
		)
	} else {
		logger.Info("Speech-to-text engine loaded",
			slog.String("model_size", cfg.Whisper.ModelSize),
			slog.String("language", cfg.Whisper.Language),
		)
	}

	transcriber := transcription.NewAdapter(model, loadErr, transcription.Config{
		MaxConcurrent: cfg.Whisper.MaxConcurrent,
		Timeout:       cfg.Whisper.GetTimeoutDuration(),
	}, logger)

	// Initialize LLM client
	enhancer, err := enhance.NewClient(enhance.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		Model:          cfg.Ollama.Model,
		EnhanceTimeout: cfg.Ollama.GetEnhanceTimeout(),
		ChatTimeout:    cfg.Ollama.GetChatTimeout(),
	}, logger)
	if err != nil {
		logger.Error("Failed to create LLM client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("LLM client initialized", slog.String("model", cfg.Ollama.Model))

	// Initialize note store client
	noteStore, err := notes.NewClient(notes.Config{
		BaseURL:      cfg.Trilium.BaseURL,
		Token:        cfg.Trilium.Token,
		ParentNoteID: cfg.Trilium.ParentNoteID,
		Timeout:      cfg.Trilium.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		logger.Error("Failed to create note store client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Note store client initialized", slog.String("url", cfg.Trilium.BaseURL))

	// Initialize HTTP server
	httpServer := server.NewServer(cfg, logger, transcriber, enhancer, noteStore, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Wait for shutdown signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	logger.Info("Starting graceful shutdown...")

	// Stop the HTTP server; in-flight pipelines get a grace period
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Release the speech-to-text engine last
	if model != nil {
		if err := model.Close(); err != nil {
			logger.Error("Error closing speech-to-text engine", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
