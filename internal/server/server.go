package server

import (
	"articlebrief/internal/domain"
	"articlebrief/internal/ratelimiter"
	"articlebrief/internal/summarizer"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"mvdan.cc/xurls/v2"
)

const (
	defaultCompletionTimeout = 2 * time.Minute
	readHeaderTimeout        = 10 * time.Second
	requestBodyLimit         = "64K"
)

//go:embed static/index.html
var indexHTML []byte

// Extractor turns a source URL into article text.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (domain.Article, error)
}

type Deps struct {
	// SummaryExtractor is used by /summarize, AnswerExtractor by /ask.
	SummaryExtractor   Extractor
	AnswerExtractor    Extractor
	Summarizer         summarizer.Summarizer
	Limiter            *ratelimiter.RateLimiter
	Environment        string
	Production         bool
	HasModelCredential bool
	CompletionTimeout  time.Duration
	// TrustProxyHeaders takes the client IP from X-Forwarded-For when the
	// request comes from a private or loopback address. Otherwise the
	// connection's remote address is used.
	TrustProxyHeaders bool
}

type Server struct {
	echo  *echo.Echo
	deps  Deps
	urlRe *regexp.Regexp
	log   *slog.Logger
}

func New(deps Deps, log *slog.Logger) (*Server, error) {
	if deps.SummaryExtractor == nil || deps.AnswerExtractor == nil {
		return nil, errors.New("extractors must not be nil")
	}
	if deps.Summarizer == nil {
		return nil, errors.New("summarizer must not be nil")
	}
	if deps.CompletionTimeout <= 0 {
		deps.CompletionTimeout = defaultCompletionTimeout
	}

	urlRe, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return nil, fmt.Errorf("create regexp: %w", err)
	}

	s := &Server{
		echo:  echo.New(),
		deps:  deps,
		urlRe: urlRe,
		log:   log,
	}
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleHTTPError
	e.Server.ReadHeaderTimeout = readHeaderTimeout
	if s.deps.TrustProxyHeaders {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				s.log.InfoContext(ctx, "Request is completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latencyMs", v.Latency.Milliseconds())
			} else {
				s.log.ErrorContext(ctx, "Request is failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latencyMs", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.GET("/", s.handleIndex)
	e.GET("/healthz", s.handleHealth)
	e.GET("/debug", s.handleDebug)

	streaming := []echo.MiddlewareFunc{middleware.BodyLimit(requestBodyLimit)}
	if s.deps.Limiter != nil {
		streaming = append(streaming, s.deps.Limiter.Middleware())
	}
	e.POST("/summarize", s.handleSummarize, streaming...)
	e.POST("/ask", s.handleAsk, streaming...)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server stops. It returns nil after Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
