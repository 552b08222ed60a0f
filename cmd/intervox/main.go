// Command intervox is the main entry point for the intervox interview server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/internal/evaluate"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/orchestrator"
	"github.com/MrWong99/intervox/internal/question"
	"github.com/MrWong99/intervox/internal/server"
	"github.com/MrWong99/intervox/internal/transcribe"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/llm/anyllm"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/stt/deepgram"
	oaistt "github.com/MrWong99/intervox/pkg/provider/stt/openai"
	"github.com/MrWong99/intervox/pkg/provider/stt/whisperlocal"
	"github.com/MrWong99/intervox/pkg/provider/tts"
	"github.com/MrWong99/intervox/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Environment + configuration ───────────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "intervox: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("intervox starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "intervox"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProv, sttProv, ttsProv, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Transcription tier ────────────────────────────────────────────────────
	pipeline, err := buildPipeline(cfg, sttProv)
	if err != nil {
		slog.Error("failed to build transcription pipeline", "err", err)
		return 1
	}

	// ── Session store ─────────────────────────────────────────────────────────
	store := interview.NewStore(interview.WithTTL(cfg.Interview.SessionTTL))
	store.StartSweeper(ctx, cfg.Interview.SessionTTL/4)

	// ── Interview flow ────────────────────────────────────────────────────────
	hub := server.NewHub(logger)
	orch := orchestrator.New(
		store,
		pipeline,
		question.NewGenerator(llmProv, question.WithTimeout(cfg.Interview.LLMTimeout)),
		evaluate.New(llmProv, evaluate.WithTimeout(cfg.Interview.LLMTimeout)),
		orchestrator.WithNotifier(hub),
		orchestrator.WithMetrics(metrics),
		orchestrator.WithDefaultMaxTurns(cfg.Interview.MaxTurns),
		orchestrator.WithSummaryCap(cfg.Interview.SummaryCapRunes),
		orchestrator.WithGrace(time.Duration(cfg.Interview.GraceMs)*time.Millisecond),
	)

	srv := server.New(orch, hub,
		server.WithTTS(ttsProv),
		server.WithLLM(llmProv),
		server.WithMetrics(metrics),
	)

	printStartupSummary(cfg)

	// ── HTTP server ───────────────────────────────────────────────────────────
	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oaistt.Option
		if entry.Model != "" {
			opts = append(opts, oaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if voice := optString(entry.Options, "voice_id"); voice != "" {
			opts = append(opts, elevenlabs.WithVoice(voice))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})
}

// buildProviders instantiates the providers named in cfg. Every provider is
// optional; absence degrades to the matching fallback path.
func buildProviders(cfg *config.Config, reg *config.Registry) (llm.Provider, stt.Provider, tts.Provider, error) {
	var llmProv llm.Provider
	var sttProv stt.Provider
	var ttsProv tts.Provider

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		llmProv = p
		slog.Info("provider created", "kind", "llm", "name", name)
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		sttProv = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ttsProv = p
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	return llmProv, sttProv, ttsProv, nil
}

// buildPipeline picks the transcription tier once for the deployment: the
// remote recogniser when configured, otherwise the local whisper model.
func buildPipeline(cfg *config.Config, remote stt.Provider) (*transcribe.Pipeline, error) {
	timeout := transcribe.WithTimeout(cfg.Interview.STTTimeout)

	if remote != nil {
		slog.Info("transcription tier: remote recogniser", "name", cfg.Providers.STT.Name)
		return transcribe.NewRemote(remote, timeout), nil
	}

	if path := cfg.Providers.Whisper.ModelPath; path != "" {
		var opts []whisperlocal.Option
		if cfg.Providers.Whisper.Language != "" {
			opts = append(opts, whisperlocal.WithLanguage(cfg.Providers.Whisper.Language))
		}
		local, err := whisperlocal.New(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("load whisper model %q: %w", path, err)
		}
		slog.Info("transcription tier: local whisper", "model", path)
		return transcribe.NewLocal(local, timeout), nil
	}

	// No recogniser at all: every answer gets the sentinel transcript. The
	// interview still runs, which beats refusing to start.
	slog.Warn("no transcription tier available; answers will use the sentinel transcript")
	return transcribe.NewRemote(unavailableSTT{}, timeout), nil
}

// unavailableSTT always fails, feeding the orchestrator's sentinel path.
type unavailableSTT struct{}

func (unavailableSTT) Transcribe(context.Context, stt.Request) (string, error) {
	return "", errors.New("no transcription provider configured")
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         intervox startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	if cfg.Providers.Whisper.ModelPath != "" {
		fmt.Printf("║  Local whisper   : %-19s ║\n", "available")
	} else {
		fmt.Printf("║  Local whisper   : %-19s ║\n", "(no model)")
	}
	fmt.Printf("║  Max turns       : %-19d ║\n", cfg.Interview.MaxTurns)
	fmt.Printf("║  Session TTL     : %-19s ║\n", cfg.Interview.SessionTTL)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
