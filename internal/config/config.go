// Package config loads the server configuration from a YAML file, an
// optional .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ConfigurationError reports a missing or invalid required setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Summarizer    SummarizerConfig    `mapstructure:"summarizer"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Limits        LimitsConfig        `mapstructure:"limits"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Cleanup       CleanupConfig       `mapstructure:"cleanup"`
	Fetcher       FetcherConfig       `mapstructure:"fetcher"`
	Watch         WatchConfig         `mapstructure:"watch"`
	GoogleDrive   GoogleDriveConfig   `mapstructure:"google_drive"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`

	warnings []string
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	AllowOrigins    string        `mapstructure:"allow_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type TranscriptionConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	RPM     int           `mapstructure:"rpm"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProviderConfig holds the credentials and budget of one summarizer.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	RPM     int    `mapstructure:"rpm"`
	TPM     int    `mapstructure:"tpm"`
}

type SummarizerConfig struct {
	Provider        string         `mapstructure:"provider"`
	Gemini          ProviderConfig `mapstructure:"gemini"`
	Llama           ProviderConfig `mapstructure:"llama"`
	MaxAttempts     int            `mapstructure:"max_attempts"`
	InitialDelay    time.Duration  `mapstructure:"initial_delay"`
	Timeout         time.Duration  `mapstructure:"timeout"`
	MaxOutputTokens int            `mapstructure:"max_output_tokens"`
	Temperature     float32        `mapstructure:"temperature"`
}

// Active returns the settings of the selected provider.
func (s SummarizerConfig) Active() ProviderConfig {
	if s.Provider == ProviderLlama {
		return s.Llama
	}
	return s.Gemini
}

// Summarizer providers
const (
	ProviderGemini = "gemini"
	ProviderLlama  = "llama"
)

type PipelineConfig struct {
	Language            string `mapstructure:"language"`
	ChunkSize           int    `mapstructure:"chunk_size"`
	SingleCallThreshold int    `mapstructure:"single_call_threshold"`
	Workers             int    `mapstructure:"workers"`
	QueueSize           int    `mapstructure:"queue_size"`
}

type LimitsConfig struct {
	MaxFileSizeMB       int      `mapstructure:"max_file_size_mb"`
	AllowedExtensions   []string `mapstructure:"allowed_extensions"`
	AllowedContentTypes []string `mapstructure:"allowed_content_types"`
}

// MaxFileSize is the upload ceiling in bytes.
func (l LimitsConfig) MaxFileSize() int64 {
	return int64(l.MaxFileSizeMB) * 1024 * 1024
}

type StorageConfig struct {
	TempDir   string `mapstructure:"temp_dir"`
	OutputDir string `mapstructure:"output_dir"`
	Database  string `mapstructure:"database"`
}

type CleanupConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
	MaxAgeHours     int `mapstructure:"max_age_hours"`
}

type FetcherConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Binary       string        `mapstructure:"binary"`
	AudioFormat  string        `mapstructure:"audio_format"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ResolveTitle bool          `mapstructure:"resolve_title"`
}

type WatchConfig struct {
	Dir string `mapstructure:"dir"`
}

type GoogleDriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	FolderName      string `mapstructure:"folder_name"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var envBindings = map[string]string{
	"server.port":                   "PORT",
	"server.host":                   "HOST",
	"logging.level":                 "LOG_LEVEL",
	"logging.environment":           "ENVIRONMENT",
	"transcription.api_key":         "WHISPER_API_KEY",
	"transcription.base_url":        "WHISPER_BASE_URL",
	"transcription.model":           "WHISPER_MODEL",
	"summarizer.provider":           "SUMMARIZER_PROVIDER",
	"summarizer.gemini.api_key":     "GEMINI_API_KEY",
	"summarizer.gemini.model":       "GEMINI_MODEL",
	"summarizer.gemini.rpm":         "GEMINI_RPM",
	"summarizer.gemini.tpm":         "GEMINI_TPM",
	"summarizer.llama.api_key":      "LLAMA_API_KEY",
	"summarizer.llama.base_url":     "LLAMA_BASE_URL",
	"summarizer.llama.model":        "LLAMA_MODEL",
	"summarizer.llama.rpm":          "LLAMA_RPM",
	"pipeline.language":             "TRANSCRIPTION_LANGUAGE",
	"limits.max_file_size_mb":       "MAX_FILE_SIZE_MB",
	"storage.temp_dir":              "TEMP_FOLDER",
	"storage.output_dir":            "OUTPUT_FOLDER",
	"storage.database":              "DATABASE_PATH",
	"watch.dir":                     "INBOX_DIR",
	"google_drive.credentials_file": "GOOGLE_CREDENTIALS_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("logging.level", "info")

	v.SetDefault("transcription.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("transcription.model", "whisper-large-v3")
	v.SetDefault("transcription.rpm", 20)
	v.SetDefault("transcription.timeout", "5m")

	v.SetDefault("summarizer.provider", ProviderGemini)
	v.SetDefault("summarizer.gemini.model", "gemini-2.0-flash")
	v.SetDefault("summarizer.gemini.rpm", 15)
	v.SetDefault("summarizer.gemini.tpm", 1000000)
	v.SetDefault("summarizer.llama.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("summarizer.llama.model", "llama-3.3-70b-versatile")
	v.SetDefault("summarizer.llama.rpm", 30)
	v.SetDefault("summarizer.max_attempts", 5)
	v.SetDefault("summarizer.initial_delay", "5s")
	v.SetDefault("summarizer.timeout", "60s")
	v.SetDefault("summarizer.max_output_tokens", 2048)
	v.SetDefault("summarizer.temperature", 0.3)

	v.SetDefault("pipeline.language", "id")
	v.SetDefault("pipeline.chunk_size", 1000)
	v.SetDefault("pipeline.single_call_threshold", 12000)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 100)

	v.SetDefault("limits.max_file_size_mb", 50)

	v.SetDefault("storage.temp_dir", "temp")
	v.SetDefault("storage.output_dir", "outputs")

	v.SetDefault("cleanup.interval_minutes", 30)
	v.SetDefault("cleanup.max_age_hours", 2)

	v.SetDefault("fetcher.enabled", true)
	v.SetDefault("fetcher.binary", "yt-dlp")
	v.SetDefault("fetcher.audio_format", "mp3")
	v.SetDefault("fetcher.timeout", "10m")

	v.SetDefault("google_drive.token_file", "token.json")
	v.SetDefault("google_drive.folder_name", "Audio Summaries")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads path (optional when empty or missing), then envFile, then the
// environment.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		// A missing .env is normal outside development.
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate fails on missing required settings and records warnings for
// optional ones. The summarizer falls back to the other provider when only
// that one has a key.
func (c *Config) Validate() error {
	c.warnings = nil

	if c.Transcription.APIKey == "" {
		return &ConfigurationError{Key: "transcription.api_key", Reason: "WHISPER_API_KEY is required"}
	}

	switch c.Summarizer.Provider {
	case ProviderGemini, ProviderLlama:
	default:
		return &ConfigurationError{Key: "summarizer.provider", Reason: fmt.Sprintf("unknown provider %q", c.Summarizer.Provider)}
	}

	if c.Summarizer.Active().APIKey == "" {
		other := ProviderLlama
		if c.Summarizer.Provider == ProviderLlama {
			other = ProviderGemini
		}
		fallback := c.Summarizer
		fallback.Provider = other
		if fallback.Active().APIKey != "" {
			c.warn("no API key for summarizer %q, falling back to %q", c.Summarizer.Provider, other)
			c.Summarizer.Provider = other
		} else {
			c.warn("no summarizer API key configured, summarization calls will fail")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigurationError{Key: "server.port", Reason: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	if c.Limits.MaxFileSizeMB <= 0 {
		return &ConfigurationError{Key: "limits.max_file_size_mb", Reason: "must be positive"}
	}
	if c.Cleanup.IntervalMinutes <= 0 {
		return &ConfigurationError{Key: "cleanup.interval_minutes", Reason: "must be positive"}
	}
	if c.Cleanup.MaxAgeHours <= 0 {
		return &ConfigurationError{Key: "cleanup.max_age_hours", Reason: "must be positive"}
	}
	if c.Pipeline.ChunkSize <= 0 {
		return &ConfigurationError{Key: "pipeline.chunk_size", Reason: "must be positive"}
	}

	if c.GoogleDrive.CredentialsFile == "" {
		c.warn("google drive credentials not configured, summaries are saved locally only")
	}
	return nil
}

// Warnings lists the non-fatal problems found by Validate.
func (c *Config) Warnings() []string {
	return c.warnings
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}
