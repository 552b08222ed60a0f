package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt": {"deepgram", "openai"},
	"tts": {"elevenlabs"},
}

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and returns a validated [Config]. A missing file is
// not an error: the server then runs on defaults plus environment variables.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		cfg := &Config{}
		applyEnv(cfg)
		ApplyDefaults(cfg)
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config values from the process environment. Environment
// values win over the file so deployments can inject secrets without editing
// YAML.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DEEPGRAM_API_KEY"); v != "" {
		if cfg.Providers.STT.Name == "" {
			cfg.Providers.STT.Name = "deepgram"
		}
		if cfg.Providers.STT.Name == "deepgram" {
			cfg.Providers.STT.APIKey = v
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Providers.LLM.Name == "" {
			cfg.Providers.LLM.Name = "openai"
		}
		if cfg.Providers.LLM.Name == "openai" && cfg.Providers.LLM.APIKey == "" {
			cfg.Providers.LLM.APIKey = v
		}
		if cfg.Providers.STT.Name == "openai" && cfg.Providers.STT.APIKey == "" {
			cfg.Providers.STT.APIKey = v
		}
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		if cfg.Providers.TTS.Name == "" {
			cfg.Providers.TTS.Name = "elevenlabs"
		}
		cfg.Providers.TTS.APIKey = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.ListenAddr = ":" + v
	}
	if v := os.Getenv("WHISPER_MODEL_PATH"); v != "" {
		cfg.Providers.Whisper.ModelPath = v
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Unknown provider names warn rather than fail.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Configured remote providers need credentials.
	if cfg.Providers.STT.Name != "" && cfg.Providers.STT.APIKey == "" {
		errs = append(errs, fmt.Errorf("providers.stt %q is configured but providers.stt.api_key is empty", cfg.Providers.STT.Name))
	}
	if cfg.Providers.TTS.Name != "" && cfg.Providers.TTS.APIKey == "" {
		errs = append(errs, fmt.Errorf("providers.tts %q is configured but providers.tts.api_key is empty", cfg.Providers.TTS.Name))
	}

	// Fallback availability warnings
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; questions and evaluations will use the deterministic fallback")
	}
	if cfg.Providers.STT.Name == "" && cfg.Providers.Whisper.ModelPath == "" {
		slog.Warn("no STT provider and no whisper model configured; answers will not be transcribed")
	}

	// Interview flow
	if cfg.Interview.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("interview.max_turns %d is invalid; must be ≥ 1", cfg.Interview.MaxTurns))
	}
	if cfg.Interview.SummaryCapRunes < 0 {
		errs = append(errs, fmt.Errorf("interview.summary_cap_runes %d is invalid; must be ≥ 0", cfg.Interview.SummaryCapRunes))
	}
	if cfg.Interview.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("interview.session_ttl %s is invalid; must be ≥ 0", cfg.Interview.SessionTTL))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
