package server

import (
	"articlebrief/internal/domain"
	"articlebrief/internal/prompt"
	"articlebrief/internal/relay"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"
)

const (
	summarizeFailedMessage = "Failed to process the article"
	askFailedMessage       = "Failed to process question"

	summarizeStreamErrorFragment = "\n\nError generating summary. Please try again."
	askStreamErrorFragment       = "\n\nError processing your question. Please try again."
)

type summarizeRequest struct {
	URL string `json:"url"`
}

type askRequest struct {
	URL      string `json:"url"`
	Question string `json:"question"`
}

type debugResponse struct {
	Environment        string `json:"environment"`
	HasModelCredential bool   `json:"hasModelCredential"`
}

// streamJob is one summarize or ask request after validation.
type streamJob struct {
	mode          domain.Mode
	url           string
	question      string
	extractor     Extractor
	failedMessage string
	errorFragment string
}

func (s *Server) handleSummarize(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, domain.NewError(domain.ErrorValidation, "request body must be JSON", err),
			summarizeFailedMessage)
	}

	job := streamJob{
		mode:          domain.ModeSummarize,
		url:           strings.TrimSpace(req.URL),
		extractor:     s.deps.SummaryExtractor,
		failedMessage: summarizeFailedMessage,
		errorFragment: summarizeStreamErrorFragment,
	}

	if job.url == "" {
		return s.writeError(c, domain.NewError(domain.ErrorValidation, "URL is required", nil), job.failedMessage)
	}

	return s.stream(c, job)
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, domain.NewError(domain.ErrorValidation, "request body must be JSON", err),
			askFailedMessage)
	}

	job := streamJob{
		mode:          domain.ModeAnswer,
		url:           strings.TrimSpace(req.URL),
		question:      strings.TrimSpace(req.Question),
		extractor:     s.deps.AnswerExtractor,
		failedMessage: askFailedMessage,
		errorFragment: askStreamErrorFragment,
	}

	if job.url == "" || job.question == "" {
		return s.writeError(c, domain.NewError(domain.ErrorValidation, "URL and question are required", nil),
			job.failedMessage)
	}

	return s.stream(c, job)
}

// stream runs extraction, prompt building and the completion relay. Every
// failure before the first byte is a JSON error; after that the relay owns
// the response.
func (s *Server) stream(c echo.Context, job streamJob) error {
	if !s.deps.HasModelCredential {
		return s.writeError(c, domain.NewError(domain.ErrorConfig, "model credential is missing", nil),
			job.failedMessage)
	}

	if !s.isAbsoluteURL(job.url) {
		return s.writeError(c, domain.NewError(domain.ErrorValidation, "URL must be an absolute http or https URL", nil),
			job.failedMessage)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.deps.CompletionTimeout)
	defer cancel()

	start := time.Now()

	article, err := job.extractor.Extract(ctx, job.url)
	if err != nil {
		return s.writeError(c, err, job.failedMessage)
	}

	p, err := prompt.Build(prompt.Input{Mode: job.mode, Article: article, Question: job.question})
	if err != nil {
		return s.writeError(c, err, job.failedMessage)
	}

	completion, err := s.deps.Summarizer.Stream(ctx, p)
	if err != nil {
		return s.writeError(c, err, job.failedMessage)
	}

	setStreamingHeaders(c.Response())

	// The request context, not the timeout context, tells whether the client
	// is still reading; a completion timeout still gets the error fragment.
	res, err := relay.Copy(c.Request().Context(), completion, newResponseSink(c.Response()), job.errorFragment)

	fields := []any{
		"mode", job.mode,
		"url", job.url,
		"articleLen", len(article.Text),
		"fragments", res.Fragments,
		"bytes", res.Bytes,
		"durationMs", time.Since(start).Milliseconds(),
	}

	switch {
	case err == nil:
		s.log.InfoContext(ctx, "Completion is streamed", fields...)
	case errors.Is(err, relay.ErrConsumerGone):
		s.log.InfoContext(ctx, "Client is gone, stream is stopped", append(fields, "error", err)...)
	default:
		s.log.ErrorContext(ctx, "Failed to stream completion", append(fields, "error", err)...)
	}

	return nil
}

// isAbsoluteURL reports whether raw starts with an http(s) URL and parses as
// one in full. xurls leaves trailing punctuation out of its match, so the
// match only has to start the input.
func (s *Server) isAbsoluteURL(raw string) bool {
	loc := s.urlRe.FindStringIndex(raw)
	if loc == nil || loc[0] != 0 || strings.ContainsFunc(raw, unicode.IsSpace) {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *Server) handleDebug(c echo.Context) error {
	if s.deps.Production {
		return c.JSON(http.StatusForbidden, errorResponse{Error: "Debug endpoint not available in production"})
	}

	return c.JSON(http.StatusOK, debugResponse{
		Environment:        s.deps.Environment,
		HasModelCredential: s.deps.HasModelCredential,
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}
