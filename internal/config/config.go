// Package config provides the configuration schema, loader, and provider
// registry for the intervox interview server.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the intervox server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for intervox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Interview InterviewConfig `yaml:"interview"`
}

// ServerConfig holds network and logging settings for the intervox server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`

	// Whisper configures the local transcription tier. It is always
	// available as a fallback when a model file is present.
	Whisper WhisperConfig `yaml:"whisper"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	// An empty name means the stage falls back to its local or deterministic tier.
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", "nova-2").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// WhisperConfig holds settings for the bundled whisper.cpp transcription tier.
type WhisperConfig struct {
	// ModelPath is the filesystem path to a ggml whisper model. When empty the
	// local tier is unavailable and failed transcriptions yield the sentinel text.
	ModelPath string `yaml:"model_path"`

	// Language hints the transcription language (e.g., "en"). Empty means auto.
	Language string `yaml:"language"`
}

// InterviewConfig holds the interview flow parameters.
type InterviewConfig struct {
	// MaxTurns is the number of answers an interview runs for. Must be ≥ 1.
	MaxTurns int `yaml:"max_turns"`

	// SummaryCapRunes bounds the accumulated fact summary; overflow drops the
	// oldest content.
	SummaryCapRunes int `yaml:"summary_cap_runes"`

	// GraceMs is how long the server keeps accepting late audio chunks after
	// an answer ends. Values below 300 are raised to 300.
	GraceMs int `yaml:"grace_ms"`

	// SessionTTL is how long an untouched session survives before eviction.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// LLMTimeout bounds each question-generation and evaluation call.
	LLMTimeout time.Duration `yaml:"llm_timeout"`

	// STTTimeout bounds each remote transcription call.
	STTTimeout time.Duration `yaml:"stt_timeout"`
}

// UnmarshalYAML decodes the interview block, accepting Go duration strings
// (e.g. "1h", "30s") for the timeout and TTL fields.
func (c *InterviewConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		MaxTurns        int    `yaml:"max_turns"`
		SummaryCapRunes int    `yaml:"summary_cap_runes"`
		GraceMs         int    `yaml:"grace_ms"`
		SessionTTL      string `yaml:"session_ttl"`
		LLMTimeout      string `yaml:"llm_timeout"`
		STTTimeout      string `yaml:"stt_timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.MaxTurns = raw.MaxTurns
	c.SummaryCapRunes = raw.SummaryCapRunes
	c.GraceMs = raw.GraceMs
	for _, field := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"session_ttl", raw.SessionTTL, &c.SessionTTL},
		{"llm_timeout", raw.LLMTimeout, &c.LLMTimeout},
		{"stt_timeout", raw.STTTimeout, &c.STTTimeout},
	} {
		if field.value == "" {
			continue
		}
		d, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("config: interview.%s: %w", field.name, err)
		}
		*field.dst = d
	}
	return nil
}

// Default interview parameters, applied by [ApplyDefaults] for fields left
// at their zero value.
const (
	DefaultMaxTurns        = 8
	DefaultSummaryCapRunes = 1200
	DefaultGraceMs         = 300
	DefaultSessionTTL      = time.Hour
	DefaultLLMTimeout      = 30 * time.Second
	DefaultSTTTimeout      = 120 * time.Second
	DefaultListenAddr      = ":8080"
)

// ApplyDefaults fills in zero-valued fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Interview.MaxTurns == 0 {
		cfg.Interview.MaxTurns = DefaultMaxTurns
	}
	if cfg.Interview.SummaryCapRunes == 0 {
		cfg.Interview.SummaryCapRunes = DefaultSummaryCapRunes
	}
	if cfg.Interview.GraceMs < DefaultGraceMs {
		cfg.Interview.GraceMs = DefaultGraceMs
	}
	if cfg.Interview.SessionTTL == 0 {
		cfg.Interview.SessionTTL = DefaultSessionTTL
	}
	if cfg.Interview.LLMTimeout == 0 {
		cfg.Interview.LLMTimeout = DefaultLLMTimeout
	}
	if cfg.Interview.STTTimeout == 0 {
		cfg.Interview.STTTimeout = DefaultSTTTimeout
	}
}
