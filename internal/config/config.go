package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Trilium  TriliumConfig  `yaml:"trilium"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int    `yaml:"port"`
	Address      string `yaml:"address"`
	MaxAudioSize int64  `yaml:"max_audio_size"` // bytes, multipart upload limit
}

// WhisperConfig contains speech-to-text engine configuration
type WhisperConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ModelPath  string `yaml:"model_path"`
	ModelSize  string `yaml:"model_size"` // tiny, base, small, medium, large
	Language   string `yaml:"language"`
	// MaxConcurrent limits in-flight transcriptions. whisper.cpp contexts
	// are not safe for concurrent inference, so this defaults to 1.
	MaxConcurrent int `yaml:"max_concurrent"`
	Timeout       int `yaml:"timeout"` // seconds
}

// OllamaConfig contains LLM backend configuration
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	EnhanceTimeout int    `yaml:"enhance_timeout"` // seconds, gates note creation
	ChatTimeout    int    `yaml:"chat_timeout"`    // seconds, open-ended chat
}

// TriliumConfig contains note store backend configuration
type TriliumConfig struct {
	BaseURL      string `yaml:"base_url"`
	Token        string `yaml:"token"`
	ParentNoteID string `yaml:"parent_note_id"` // default parent for quick notes
	Timeout      int    `yaml:"timeout"`        // seconds
}

// PipelineConfig contains request orchestration configuration
type PipelineConfig struct {
	// TotalTimeout bounds the whole pipeline, distinct from each leg's timeout.
	TotalTimeout   int `yaml:"total_timeout"`    // seconds
	TitleMaxLength int `yaml:"title_max_length"` // characters
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration file, applies environment overrides,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv layers environment variables over file values. The deployment
// surface is environment-style, so these take precedence.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TRILIUM_URL"); v != "" {
		c.Trilium.BaseURL = v
	}
	if v := os.Getenv("TRILIUM_TOKEN"); v != "" {
		c.Trilium.Token = v
	}
	if v := os.Getenv("TRILIUM_PARENT_NOTE_ID"); v != "" {
		c.Trilium.ParentNoteID = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("WHISPER_MODEL"); v != "" {
		c.Whisper.ModelSize = v
	}
	if v := os.Getenv("WHISPER_MODEL_PATH"); v != "" {
		c.Whisper.ModelPath = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Whisper.Validate(); err != nil {
		return fmt.Errorf("whisper config: %w", err)
	}

	if err := c.Ollama.Validate(); err != nil {
		return fmt.Errorf("ollama config: %w", err)
	}

	if err := c.Trilium.Validate(); err != nil {
		return fmt.Errorf("trilium config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.MaxAudioSize < 1024 {
		return fmt.Errorf("max_audio_size must be at least 1024 bytes, got %d", s.MaxAudioSize)
	}

	return nil
}

// Validate validates whisper engine configuration
func (w *WhisperConfig) Validate() error {
	if w.BinaryPath == "" {
		return fmt.Errorf("binary_path cannot be empty")
	}

	if w.ModelPath == "" {
		return fmt.Errorf("model_path cannot be empty")
	}

	validSizes := map[string]bool{
		"tiny": true, "base": true, "small": true, "medium": true, "large": true,
	}
	if !validSizes[w.ModelSize] {
		return fmt.Errorf("model_size must be one of [tiny, base, small, medium, large], got '%s'", w.ModelSize)
	}

	if w.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", w.MaxConcurrent)
	}

	if w.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", w.Timeout)
	}

	return nil
}

// Validate validates LLM backend configuration
func (o *OllamaConfig) Validate() error {
	if o.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if o.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if o.EnhanceTimeout < 1 {
		return fmt.Errorf("enhance_timeout must be at least 1 second, got %d", o.EnhanceTimeout)
	}

	if o.ChatTimeout < o.EnhanceTimeout {
		return fmt.Errorf("chat_timeout (%d) must be at least enhance_timeout (%d)",
			o.ChatTimeout, o.EnhanceTimeout)
	}

	return nil
}

// Validate validates note store configuration
func (t *TriliumConfig) Validate() error {
	if t.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates pipeline configuration
func (p *PipelineConfig) Validate() error {
	if p.TotalTimeout < 1 {
		return fmt.Errorf("total_timeout must be at least 1 second, got %d", p.TotalTimeout)
	}

	if p.TitleMaxLength < 1 {
		return fmt.Errorf("title_max_length must be at least 1, got %d", p.TitleMaxLength)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the whisper timeout as a time.Duration
func (w *WhisperConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(w.Timeout) * time.Second
}

// GetEnhanceTimeout returns the enhancement timeout as a time.Duration
func (o *OllamaConfig) GetEnhanceTimeout() time.Duration {
	return time.Duration(o.EnhanceTimeout) * time.Second
}

// GetChatTimeout returns the chat timeout as a time.Duration
func (o *OllamaConfig) GetChatTimeout() time.Duration {
	return time.Duration(o.ChatTimeout) * time.Second
}

// GetTimeoutDuration returns the note store timeout as a time.Duration
func (t *TriliumConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTotalTimeout returns the pipeline deadline as a time.Duration
func (p *PipelineConfig) GetTotalTimeout() time.Duration {
	return time.Duration(p.TotalTimeout) * time.Second
}
