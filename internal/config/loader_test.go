package config_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	sttmock "github.com/MrWong99/intervox/pkg/provider/stt/mock"
)

// clearProviderEnv blanks the provider environment overrides so tests only
// exercise the YAML input.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DEEPGRAM_API_KEY", "OPENAI_API_KEY", "ELEVENLABS_API_KEY", "PORT", "WHISPER_MODEL_PATH"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("default listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Interview.MaxTurns != config.DefaultMaxTurns {
		t.Errorf("default max_turns: got %d", cfg.Interview.MaxTurns)
	}
	if cfg.Interview.SummaryCapRunes != config.DefaultSummaryCapRunes {
		t.Errorf("default summary_cap_runes: got %d", cfg.Interview.SummaryCapRunes)
	}
	if cfg.Interview.LLMTimeout != 30*time.Second {
		t.Errorf("default llm_timeout: got %s", cfg.Interview.LLMTimeout)
	}
	if cfg.Interview.STTTimeout != 120*time.Second {
		t.Errorf("default stt_timeout: got %s", cfg.Interview.STTTimeout)
	}
}

func TestLoadFromReader_GraceFloor(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
interview:
  grace_ms: 50
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interview.GraceMs != 300 {
		t.Errorf("grace_ms below floor should be raised to 300, got %d", cfg.Interview.GraceMs)
	}
}

func TestLoadFromReader_DurationStrings(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
interview:
  session_ttl: 2h
  llm_timeout: 45s
  stt_timeout: 3m
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Interview.SessionTTL != 2*time.Hour {
		t.Errorf("session_ttl: got %s", cfg.Interview.SessionTTL)
	}
	if cfg.Interview.LLMTimeout != 45*time.Second {
		t.Errorf("llm_timeout: got %s", cfg.Interview.LLMTimeout)
	}
	if cfg.Interview.STTTimeout != 3*time.Minute {
		t.Errorf("stt_timeout: got %s", cfg.Interview.STTTimeout)
	}
}

func TestLoadFromReader_BadDurationRejected(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
interview:
  session_ttl: eventually
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unparseable duration, got nil")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
server:
  listen_adr: ":9090"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_RemoteSTTRequiresKey(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
providers:
  stt:
    name: deepgram
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for deepgram without api_key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	clearProviderEnv(t)

	yaml := `
server:
  log_level: loud
interview:
  max_turns: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") || !strings.Contains(errStr, "max_turns") {
		t.Errorf("joined error should list both failures, got: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Interview.MaxTurns != config.DefaultMaxTurns {
		t.Errorf("defaults not applied: max_turns %d", cfg.Interview.MaxTurns)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPGRAM_API_KEY", "dg-secret")
	t.Setenv("ELEVENLABS_API_KEY", "el-secret")
	t.Setenv("PORT", "9191")

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.STT.Name != "deepgram" || cfg.Providers.STT.APIKey != "dg-secret" {
		t.Errorf("deepgram env override: got %+v", cfg.Providers.STT)
	}
	if cfg.Providers.TTS.Name != "elevenlabs" || cfg.Providers.TTS.APIKey != "el-secret" {
		t.Errorf("elevenlabs env override: got %+v", cfg.Providers.TTS)
	}
	if cfg.Server.ListenAddr != ":9191" {
		t.Errorf("PORT override: got %q", cfg.Server.ListenAddr)
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	want := &sttmock.Provider{Text: "hi"}
	r.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return want, nil
	})
	got, err := r.CreateSTT(config.ProviderEntry{Name: "mock"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if got != want {
		t.Error("CreateSTT returned a different provider instance")
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	if _, err := r.CreateLLM(config.ProviderEntry{Name: "openai"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLLM: want ErrProviderNotRegistered, got %v", err)
	}
	if _, err := r.CreateSTT(config.ProviderEntry{Name: "deepgram"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT: want ErrProviderNotRegistered, got %v", err)
	}
	if _, err := r.CreateTTS(config.ProviderEntry{Name: "elevenlabs"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateTTS: want ErrProviderNotRegistered, got %v", err)
	}
}
