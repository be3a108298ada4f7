package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         8000,
			Address:      "0.0.0.0",
			MaxAudioSize: 25 << 20,
		},
		Whisper: WhisperConfig{
			BinaryPath:    "/usr/local/bin/whisper-cli",
			ModelPath:     "./models/ggml-base.bin",
			ModelSize:     "base",
			Language:      "en",
			MaxConcurrent: 1,
			Timeout:       120,
		},
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "llama3.2",
			EnhanceTimeout: 30,
			ChatTimeout:    60,
		},
		Trilium: TriliumConfig{
			BaseURL: "http://localhost:8080",
			Token:   "test-token",
			Timeout: 10,
		},
		Pipeline: PipelineConfig{
			TotalTimeout:   180,
			TitleMaxLength: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid server port",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "missing whisper binary",
			mutate:      func(c *Config) { c.Whisper.BinaryPath = "" },
			expectError: true,
			errorMsg:    "binary_path cannot be empty",
		},
		{
			name:        "unknown model size",
			mutate:      func(c *Config) { c.Whisper.ModelSize = "enormous" },
			expectError: true,
			errorMsg:    "model_size must be one of",
		},
		{
			name:        "zero whisper concurrency",
			mutate:      func(c *Config) { c.Whisper.MaxConcurrent = 0 },
			expectError: true,
			errorMsg:    "max_concurrent must be at least 1",
		},
		{
			name:        "missing ollama model",
			mutate:      func(c *Config) { c.Ollama.Model = "" },
			expectError: true,
			errorMsg:    "model cannot be empty",
		},
		{
			name: "chat timeout shorter than enhance timeout",
			mutate: func(c *Config) {
				c.Ollama.EnhanceTimeout = 60
				c.Ollama.ChatTimeout = 30
			},
			expectError: true,
			errorMsg:    "chat_timeout",
		},
		{
			name:        "missing trilium url",
			mutate:      func(c *Config) { c.Trilium.BaseURL = "" },
			expectError: true,
			errorMsg:    "base_url cannot be empty",
		},
		{
			name:        "zero pipeline timeout",
			mutate:      func(c *Config) { c.Pipeline.TotalTimeout = 0 },
			expectError: true,
			errorMsg:    "total_timeout must be at least 1 second",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  port: 8000
  address: "0.0.0.0"
  max_audio_size: 26214400
whisper:
  binary_path: "/usr/local/bin/whisper-cli"
  model_path: "./models/ggml-base.bin"
  model_size: "base"
  language: "en"
  max_concurrent: 1
  timeout: 120
ollama:
  base_url: "http://localhost:11434"
  model: "llama3.2"
  enhance_timeout: 30
  chat_timeout: 60
trilium:
  base_url: "http://localhost:8080"
  token: "test-token"
  timeout: 10
pipeline:
  total_timeout: 180
  title_max_length: 100
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  port: 8000
  max_audio_size: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
server:
  port: 8000
  address: "0.0.0.0"
  max_audio_size: 26214400
`,
			expectError: true,
			errorMsg:    "binary_path cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configYAML := `
server:
  port: 8000
  address: "0.0.0.0"
  max_audio_size: 26214400
whisper:
  binary_path: "/usr/local/bin/whisper-cli"
  model_path: "./models/ggml-base.bin"
  model_size: "base"
  max_concurrent: 1
  timeout: 120
ollama:
  base_url: "http://localhost:11434"
  model: "llama3.2"
  enhance_timeout: 30
  chat_timeout: 60
trilium:
  base_url: "http://localhost:8080"
  timeout: 10
pipeline:
  total_timeout: 180
  title_max_length: 100
logging:
  level: "info"
  format: "json"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("TRILIUM_URL", "http://trilium.internal:8080")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("WHISPER_MODEL", "small")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected PORT override 9090, got %d", cfg.Server.Port)
	}
	if cfg.Trilium.BaseURL != "http://trilium.internal:8080" {
		t.Errorf("Expected TRILIUM_URL override, got %s", cfg.Trilium.BaseURL)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Errorf("Expected OLLAMA_MODEL override, got %s", cfg.Ollama.Model)
	}
	if cfg.Whisper.ModelSize != "small" {
		t.Errorf("Expected WHISPER_MODEL override, got %s", cfg.Whisper.ModelSize)
	}
}

func TestDurationHelpers(t *testing.T) {
	whisper := WhisperConfig{Timeout: 120}
	if whisper.GetTimeoutDuration() != 120*time.Second {
		t.Errorf("Expected 120 seconds, got %v", whisper.GetTimeoutDuration())
	}

	ollama := OllamaConfig{EnhanceTimeout: 30, ChatTimeout: 60}
	if ollama.GetEnhanceTimeout() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", ollama.GetEnhanceTimeout())
	}
	if ollama.GetChatTimeout() != 60*time.Second {
		t.Errorf("Expected 60 seconds, got %v", ollama.GetChatTimeout())
	}

	trilium := TriliumConfig{Timeout: 10}
	if trilium.GetTimeoutDuration() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", trilium.GetTimeoutDuration())
	}

	pipeline := PipelineConfig{TotalTimeout: 180}
	if pipeline.GetTotalTimeout() != 180*time.Second {
		t.Errorf("Expected 180 seconds, got %v", pipeline.GetTotalTimeout())
	}
}
