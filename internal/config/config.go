// Package config loads service configuration from an optional YAML file and
// environment variables. Environment variables take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Configuration is the complete service configuration.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	STT           STTConfig           `yaml:"stt"`
	Audio         AudioConfig         `yaml:"audio"`
	Report        ReportConfig        `yaml:"report"`
	Upload        UploadConfig        `yaml:"upload"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig identifies the service and its listeners.
type ServiceConfig struct {
	Principal string `yaml:"principal" validate:"required"`
	HTTPPort  string `yaml:"http_port" validate:"required,numeric"`
	GRPCPort  string `yaml:"grpc_port" validate:"required,numeric"`
}

// STTConfig selects and tunes the speech-to-text provider.
type STTConfig struct {
	Provider        string        `yaml:"provider" validate:"oneof=mock google"`
	LanguageCode    string        `yaml:"language_code" validate:"required"`
	SampleRateHz    int           `yaml:"sample_rate_hz" validate:"gt=0"`
	AudioEncoding   string        `yaml:"audio_encoding" validate:"required"`
	WordTimeOffsets bool          `yaml:"word_time_offsets"`
	AutoPunctuation bool          `yaml:"auto_punctuation"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
}

// AudioConfig controls conversion of uploads to WAV.
type AudioConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path" validate:"required"`
	SampleRateHz int    `yaml:"sample_rate_hz" validate:"gt=0"`
	WorkDir      string `yaml:"work_dir" validate:"required"`
}

// ReportConfig controls where CSV reports are written.
type ReportConfig struct {
	Dir string `yaml:"dir" validate:"required"`
}

// UploadConfig bounds and places incoming uploads.
type UploadConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	MaxBytes int64  `yaml:"max_bytes" validate:"gt=0"`
}

// KafkaConfig configures analysis event publishing.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers" validate:"required_if=Enabled true"`
	TopicCompleted string   `yaml:"topic_completed" validate:"required"`
	TopicFailed    string   `yaml:"topic_failed" validate:"required"`
	Principal      string   `yaml:"principal"`
}

// ObservabilityConfig configures logging and the metrics listener.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat   string `yaml:"log_format" validate:"oneof=json console"`
	MetricsAddr string `yaml:"metrics_addr" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal: "svc-speech-analytics",
			HTTPPort:  "8080",
			GRPCPort:  "50051",
		},
		STT: STTConfig{
			Provider:        "mock",
			LanguageCode:    "pt-BR",
			SampleRateHz:    16000,
			AudioEncoding:   "LINEAR16",
			WordTimeOffsets: true,
			AutoPunctuation: true,
			Timeout:         10 * time.Minute,
		},
		Audio: AudioConfig{
			FFmpegPath:   "ffmpeg",
			SampleRateHz: 16000,
			WorkDir:      "uploads",
		},
		Report: ReportConfig{
			Dir: "uploads",
		},
		Upload: UploadConfig{
			Dir:      "uploads",
			MaxBytes: 100 << 20,
		},
		Kafka: KafkaConfig{
			TopicCompleted: "transcript.analysis.completed",
			TopicFailed:    "transcript.analysis.failed",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsAddr: ":9090",
		},
	}
}

// Load builds the configuration from the defaults, the YAML file named by
// CONFIG_FILE (if set) and the environment, then validates it.
func Load() (*Configuration, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.overlayEnv()

	if cfg.Kafka.Principal == "" {
		cfg.Kafka.Principal = cfg.Service.Principal
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Configuration) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

func (c *Configuration) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Configuration) overlayEnv() {
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.HTTPPort = envOrDefault("HTTP_PORT", c.Service.HTTPPort)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)

	c.STT.Provider = strings.ToLower(envOrDefault("STT_PROVIDER", c.STT.Provider))
	c.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", c.STT.LanguageCode)
	c.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", c.STT.SampleRateHz)
	c.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", c.STT.AudioEncoding)
	c.STT.WordTimeOffsets = envOrDefaultBool("STT_WORD_TIME_OFFSETS", c.STT.WordTimeOffsets)
	c.STT.AutoPunctuation = envOrDefaultBool("STT_AUTO_PUNCTUATION", c.STT.AutoPunctuation)
	c.STT.Timeout = envOrDefaultDuration("STT_TIMEOUT", c.STT.Timeout)

	c.Audio.FFmpegPath = envOrDefault("FFMPEG_PATH", c.Audio.FFmpegPath)
	c.Audio.SampleRateHz = envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", c.Audio.SampleRateHz)
	c.Audio.WorkDir = envOrDefault("AUDIO_WORK_DIR", c.Audio.WorkDir)

	c.Report.Dir = envOrDefault("REPORT_DIR", c.Report.Dir)

	c.Upload.Dir = envOrDefault("UPLOAD_DIR", c.Upload.Dir)
	c.Upload.MaxBytes = envOrDefaultInt64("UPLOAD_MAX_BYTES", c.Upload.MaxBytes)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicCompleted = envOrDefault("KAFKA_TOPIC_COMPLETED", c.Kafka.TopicCompleted)
	c.Kafka.TopicFailed = envOrDefault("KAFKA_TOPIC_FAILED", c.Kafka.TopicFailed)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)

	c.Observability.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", c.Observability.LogLevel))
	c.Observability.LogFormat = strings.ToLower(envOrDefault("LOG_FORMAT", c.Observability.LogFormat))
	c.Observability.MetricsAddr = envOrDefault("METRICS_ADDR", c.Observability.MetricsAddr)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma separated value, dropping blank entries.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
