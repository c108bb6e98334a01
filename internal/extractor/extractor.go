package extractor

import (
	"articlebrief/internal/domain"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	DefaultFetchTimeout     = 20 * time.Second
	DefaultMaxDocumentBytes = 5 << 20
)

// Extractor fetches a page and derives the readable text of its main content.
type Extractor struct {
	client       *http.Client
	maxBytes     int64
	removeChrome bool
	log          *slog.Logger
}

type Option func(*Extractor)

// WithHTTPClient replaces the default client. Redirects are followed by the
// client, so a custom CheckRedirect changes that behavior.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.client = client
		}
	}
}

func WithMaxDocumentBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// WithChromeRemoved also strips navigation, header, footer, ad and comment
// regions before the content rules run.
func WithChromeRemoved() Option {
	return func(e *Extractor) {
		e.removeChrome = true
	}
}

func New(log *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		client:   &http.Client{Timeout: DefaultFetchTimeout},
		maxBytes: DefaultMaxDocumentBytes,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches rawURL and returns its article text. It fails with a
// domain.ErrorFetch error when the source is unreachable or responds with a
// non-2xx status, and with domain.ErrorExtraction when no text is left.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (domain.Article, error) {
	target, err := parseSourceURL(rawURL)
	if err != nil {
		return domain.Article{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.Article{}, domain.NewError(domain.ErrorValidation, "url is invalid",
			fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()

	resp, err := e.client.Do(req) //nolint:gosec // URL is user supplied by design of the service.
	if err != nil {
		return domain.Article{}, domain.NewError(domain.ErrorFetch, "source is unreachable",
			fmt.Errorf("do request: %w", err))
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			e.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", target,
				"operation", "Extract")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Article{}, domain.NewError(domain.ErrorFetch,
			fmt.Sprintf("source responded with status %d", resp.StatusCode),
			fmt.Errorf("do request: unexpected status: %d", resp.StatusCode))
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, e.maxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return domain.Article{}, domain.NewError(domain.ErrorExtraction, "document encoding is not supported",
			fmt.Errorf("create charset reader: %w", err))
	}

	article, rule, err := e.FromReader(body)
	if err != nil {
		return domain.Article{}, err
	}
	article.URL = resp.Request.URL.String()

	e.log.InfoContext(ctx, "Article is extracted",
		"url", target,
		"finalURL", article.URL,
		"rule", rule,
		"titleLen", len(article.Title),
		"textLen", len(article.Text),
		"durationMs", time.Since(start).Milliseconds())

	return article, nil
}

// FromReader extracts an article from an HTML document. The returned string
// names the content rule that produced the text.
func (e *Extractor) FromReader(r io.Reader) (domain.Article, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return domain.Article{}, "", domain.NewError(domain.ErrorExtraction, "document could not be parsed",
			fmt.Errorf("create document from reader: %w", err))
	}

	title := documentTitle(doc)

	doc.Find(alwaysRemovedSelector).Remove()
	if e.removeChrome {
		doc.Find(chromeSelector).Remove()
	}

	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find(blockSelector).AppendHtml("\n")

	text, rule := mainText(doc)
	if text == "" {
		return domain.Article{}, rule, domain.NewError(domain.ErrorExtraction,
			"could not extract article content", errors.New("document has no text"))
	}

	return domain.Article{Title: title, Text: text}, rule, nil
}

func documentTitle(doc *goquery.Document) string {
	if content, ok := doc.Find("meta[property='og:title']").Attr("content"); ok {
		if title := Normalize(content); title != "" {
			return title
		}
	}

	if title := Normalize(doc.Find("h1").First().Text()); title != "" {
		return title
	}

	return Normalize(doc.Find("title").First().Text())
}

func parseSourceURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.NewError(domain.ErrorValidation, "url is required", nil)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", domain.NewError(domain.ErrorValidation, "url is invalid", fmt.Errorf("parse URL: %w", err))
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domain.NewError(domain.ErrorValidation, "url must use http or https",
			fmt.Errorf("parse URL: unsupported scheme %q", u.Scheme))
	}

	if u.Host == "" {
		return "", domain.NewError(domain.ErrorValidation, "url has no host", nil)
	}

	return u.String(), nil
}
