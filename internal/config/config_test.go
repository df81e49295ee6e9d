package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: 8080
summarizer:
  provider: llama
  llama:
    model: llama-test
pipeline:
  chunk_size: 500
  workers: 2
limits:
  max_file_size_mb: 10
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("WHISPER_API_KEY", "whisper-key")
	t.Setenv("LLAMA_API_KEY", "llama-key")
	t.Setenv("TEMP_FOLDER", "/tmp/summarizer")

	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("addr = %s", cfg.Addr())
	}
	if cfg.Summarizer.Provider != ProviderLlama || cfg.Summarizer.Active().Model != "llama-test" {
		t.Errorf("summarizer = %+v", cfg.Summarizer)
	}
	if cfg.Summarizer.Active().APIKey != "llama-key" {
		t.Error("llama key should come from the environment")
	}
	if cfg.Storage.TempDir != "/tmp/summarizer" {
		t.Errorf("temp dir = %q", cfg.Storage.TempDir)
	}
	if cfg.Pipeline.ChunkSize != 500 || cfg.Pipeline.SingleCallThreshold != 12000 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Limits.MaxFileSize() != 10*1024*1024 {
		t.Errorf("max file size = %d", cfg.Limits.MaxFileSize())
	}
	if cfg.Summarizer.InitialDelay != 5*time.Second || cfg.Fetcher.Timeout != 10*time.Minute {
		t.Errorf("durations = %s, %s", cfg.Summarizer.InitialDelay, cfg.Fetcher.Timeout)
	}
	if cfg.Summarizer.Gemini.RPM != 15 || cfg.Summarizer.Gemini.TPM != 1000000 {
		t.Errorf("gemini budget = %+v", cfg.Summarizer.Gemini)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("WHISPER_API_KEY", "k")
	t.Setenv("GEMINI_API_KEY", "g")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Summarizer.Provider != ProviderGemini || cfg.Pipeline.Workers != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("WHISPER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "g")
	os.Unsetenv("WHISPER_API_KEY")

	env := writeFile(t, ".env", "WHISPER_API_KEY=from-dotenv\n")
	cfg, err := Load("", env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcription.APIKey != "from-dotenv" {
		t.Errorf("api key = %q", cfg.Transcription.APIKey)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:        ServerConfig{Port: 3000},
			Transcription: TranscriptionConfig{APIKey: "w"},
			Summarizer: SummarizerConfig{
				Provider: ProviderGemini,
				Gemini:   ProviderConfig{APIKey: "g"},
			},
			Pipeline:    PipelineConfig{ChunkSize: 1000},
			Cleanup:     CleanupConfig{IntervalMinutes: 30, MaxAgeHours: 2},
			Limits:      LimitsConfig{MaxFileSizeMB: 50},
			GoogleDrive: GoogleDriveConfig{CredentialsFile: "credentials.json"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if len(cfg.Warnings()) != 0 {
			t.Errorf("warnings = %v", cfg.Warnings())
		}
	})

	t.Run("missing transcription key is fatal", func(t *testing.T) {
		cfg := base()
		cfg.Transcription.APIKey = ""
		var cerr *ConfigurationError
		if err := cfg.Validate(); !errors.As(err, &cerr) || cerr.Key != "transcription.api_key" {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.Summarizer.Provider = "claude"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("falls back to the provider with a key", func(t *testing.T) {
		cfg := base()
		cfg.Summarizer.Gemini.APIKey = ""
		cfg.Summarizer.Llama.APIKey = "l"
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if cfg.Summarizer.Provider != ProviderLlama {
			t.Errorf("provider = %s, want llama", cfg.Summarizer.Provider)
		}
		if len(cfg.Warnings()) != 1 {
			t.Errorf("warnings = %v", cfg.Warnings())
		}
	})

	t.Run("missing summarizer key only warns", func(t *testing.T) {
		cfg := base()
		cfg.Summarizer.Gemini.APIKey = ""
		cfg.GoogleDrive.CredentialsFile = ""
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if len(cfg.Warnings()) != 2 {
			t.Errorf("warnings = %v", cfg.Warnings())
		}
	})

	t.Run("zero cleanup interval", func(t *testing.T) {
		cfg := base()
		cfg.Cleanup.IntervalMinutes = 0
		var cerr *ConfigurationError
		if err := cfg.Validate(); !errors.As(err, &cerr) || cerr.Key != "cleanup.interval_minutes" {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected an error")
		}
	})
}
