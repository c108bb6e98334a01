package summarizer

import (
	"articlebrief/internal/domain"
	"articlebrief/internal/prompt"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path                string   `json:"-"`
	Model               string   `json:"model"`
	Stream              bool     `json:"stream"`
	MaxCompletionTokens int64    `json:"max_completion_tokens"`
	Temperature         *float64 `json:"temperature"`
	Messages            []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chunkEvent(content string) string {
	return fmt.Sprintf(
		`data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`+"\n\n",
		content,
	)
}

const (
	roleEvent = `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini",` +
		`"choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}` + "\n\n"
	stopEvent = `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini",` +
		`"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}` + "\n\n"
	doneEvent = "data: [DONE]\n\n"
)

// completionServer replies to chat completion requests with the given raw
// SSE events and records the decoded request.
func completionServer(t *testing.T, status int, events ...string) (*httptest.Server, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("decode request: %v", err)
		}

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"upstream is unhappy","type":"server_error"}}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, event := range events {
			fmt.Fprint(w, event)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func newTestSummarizer(srv *httptest.Server) *OpenAISummarizer {
	return NewOpenAISummarizer("sk-test", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
}

func collect(t *testing.T, s Stream) []string {
	t.Helper()

	var fragments []string
	for s.Next() {
		fragments = append(fragments, s.Fragment())
	}

	return fragments
}

func TestStreamYieldsFragmentsInOrder(t *testing.T) {
	srv, captured := completionServer(t, http.StatusOK,
		roleEvent, chunkEvent("Hel"), chunkEvent("lo, "), chunkEvent("world"), stopEvent, doneEvent)

	s := newTestSummarizer(srv)
	stream, err := s.Stream(context.Background(), prompt.Prompt{Mode: domain.ModeSummarize, Text: "summarize this"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	require.Equal(t, []string{"Hel", "lo, ", "world"}, collect(t, stream))
	require.NoError(t, stream.Err())

	require.Equal(t, "/chat/completions", captured.Path)
	require.True(t, captured.Stream)
	require.Equal(t, DefaultModel, captured.Model)
	require.Equal(t, summarizeMaxTokens, captured.MaxCompletionTokens)
	require.Nil(t, captured.Temperature)
	require.Len(t, captured.Messages, 1)
	require.Equal(t, "user", captured.Messages[0].Role)
	require.Equal(t, "summarize this", captured.Messages[0].Content)
}

func TestStreamAnswerBudget(t *testing.T) {
	srv, captured := completionServer(t, http.StatusOK, chunkEvent("Yes."), doneEvent)

	s := NewOpenAISummarizer("sk-test", "gpt-4.1-mini", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	stream, err := s.Stream(context.Background(), prompt.Prompt{Mode: domain.ModeAnswer, Text: "q"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	require.Equal(t, []string{"Yes."}, collect(t, stream))
	require.Equal(t, "gpt-4.1-mini", captured.Model)
	require.Equal(t, answerMaxTokens, captured.MaxCompletionTokens)
	require.NotNil(t, captured.Temperature)
	require.InDelta(t, answerTemperature, *captured.Temperature, 1e-9)
}

func TestStreamMissingCredential(t *testing.T) {
	s := NewOpenAISummarizer("  ", "")
	require.False(t, s.HasCredential())

	_, err := s.Stream(context.Background(), prompt.Prompt{Mode: domain.ModeSummarize, Text: "x"})
	require.Error(t, err)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.ErrorConfig, kind)
}

func TestStreamRejectedRequestFailsBeforeFragments(t *testing.T) {
	srv, _ := completionServer(t, http.StatusInternalServerError)

	_, err := newTestSummarizer(srv).Stream(context.Background(), prompt.Prompt{Mode: domain.ModeSummarize, Text: "x"})
	require.Error(t, err)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.ErrorUpstream, kind)
}

func TestStartFailureReportsCloseError(t *testing.T) {
	streamErr := errors.New("401 unauthorized")
	closeErr := errors.New("body already closed")

	closed := 0
	err := startFailure(streamErr, func() error {
		closed++
		return closeErr
	})

	require.Equal(t, 1, closed)
	require.ErrorIs(t, err, streamErr)
	require.ErrorIs(t, err, closeErr)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.ErrorUpstream, kind)

	err = startFailure(streamErr, func() error { return nil })
	require.ErrorIs(t, err, streamErr)
	require.NotErrorIs(t, err, closeErr)
}

func TestStreamErrorEventAfterFragment(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK,
		chunkEvent("partial"), `data: {"error":{"message":"overloaded","type":"server_error"}}`+"\n\n")

	stream, err := newTestSummarizer(srv).Stream(context.Background(), prompt.Prompt{Mode: domain.ModeSummarize, Text: "x"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	require.Equal(t, []string{"partial"}, collect(t, stream))
	require.Error(t, stream.Err())
	require.True(t, strings.Contains(stream.Err().Error(), "overloaded"))
}

func TestStreamEmptyCompletion(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, roleEvent, stopEvent, doneEvent)

	stream, err := newTestSummarizer(srv).Stream(context.Background(), prompt.Prompt{Mode: domain.ModeSummarize, Text: "x"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = stream.Close() })

	require.Empty(t, collect(t, stream))
	require.NoError(t, stream.Err())
}

func TestStreamUnknownMode(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, doneEvent)

	_, err := newTestSummarizer(srv).Stream(context.Background(), prompt.Prompt{Mode: "poem", Text: "x"})
	require.Error(t, err)

	kind, _ := domain.KindOf(err)
	require.Equal(t, domain.ErrorValidation, kind)
}
