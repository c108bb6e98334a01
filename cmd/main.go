package main

import (
	"articlebrief/internal/config"
	"articlebrief/internal/extractor"
	"articlebrief/internal/ratelimiter"
	"articlebrief/internal/scheduler"
	"articlebrief/internal/server"
	"articlebrief/internal/summarizer"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)
	log.InfoContext(ctx, "Config is loaded",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"model", cfg.Model,
		"hasModelCredential", cfg.HasModelCredential())

	summaryExtractor, answerExtractor := initExtractors(cfg, log)
	summ := initOpenAISummarizer(ctx, cfg, log)

	limiter := ratelimiter.New(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, log)

	sched := scheduler.New(ctx, limiter, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.PruneRateLimiterSpec)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.PruneRateLimiterSpec,
		"timezone", scheduler.Timezone)

	srv, err := server.New(server.Deps{
		SummaryExtractor:   summaryExtractor,
		AnswerExtractor:    answerExtractor,
		Summarizer:         summ,
		Limiter:            limiter,
		Environment:        cfg.Environment,
		Production:         cfg.IsProduction(),
		HasModelCredential: cfg.HasModelCredential(),
		CompletionTimeout:  cfg.CompletionTimeout,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize server",
			"error", err)

		return
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(cfg.Addr)
	}()
	log.InfoContext(ctx, "Server is started",
		"addr", cfg.Addr,
		"rateLimitRps", cfg.RateLimitRPS,
		"rateLimitBurst", cfg.RateLimitBurst,
		"trustProxyHeaders", cfg.TrustProxyHeaders)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case err = <-serverErr:
		if err != nil {
			log.ErrorContext(ctx, "Failed to serve",
				"error", err,
				"addr", cfg.Addr)
		}
	}
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shutdown server",
			"error", err,
			"timeout", cfg.ShutdownTimeout.String())

		return
	}
	log.InfoContext(shutdownCtx, "Server is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

// initExtractors returns the extractor for summaries, which drops page chrome,
// and the one for questions, which keeps it.
func initExtractors(cfg config.Config, log *slog.Logger) (*extractor.Extractor, *extractor.Extractor) {
	client := &http.Client{Timeout: cfg.FetchTimeout}

	summary := extractor.New(log,
		extractor.WithHTTPClient(client),
		extractor.WithMaxDocumentBytes(cfg.MaxDocumentBytes),
		extractor.WithChromeRemoved())
	answer := extractor.New(log,
		extractor.WithHTTPClient(client),
		extractor.WithMaxDocumentBytes(cfg.MaxDocumentBytes))

	return summary, answer
}

func initOpenAISummarizer(
	ctx context.Context,
	cfg config.Config,
	log *slog.Logger,
) *summarizer.OpenAISummarizer {
	var opts []option.RequestOption
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}

	s := summarizer.NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.Model, opts...)
	if !s.HasCredential() {
		log.WarnContext(ctx, "OPENAI_API_KEY is missing so summarize and ask will fail",
			"envVar", "OPENAI_API_KEY")

		return s
	}

	log.InfoContext(ctx, "OpenAI summarizer is initialized",
		"provider", "openai",
		"model", cfg.Model)

	return s
}
