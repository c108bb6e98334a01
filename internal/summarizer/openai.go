package summarizer

import (
	"articlebrief/internal/domain"
	"articlebrief/internal/prompt"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

const (
	DefaultModel = string(openai.ChatModelGPT4oMini)

	summarizeMaxTokens int64 = 1000
	answerMaxTokens    int64 = 4000
	answerTemperature        = 0.2
)

var errMissingAPIKey = errors.New("OPENAI_API_KEY is empty")

// OpenAISummarizer streams completions from OpenAI's Chat Completions API.
// The API client is built on first use.
type OpenAISummarizer struct {
	apiKey string
	model  string
	opts   []option.RequestOption

	clientOnce sync.Once
	client     openai.Client
	clientErr  error
}

// NewOpenAISummarizer never fails: a missing key is reported by Stream as a
// domain.ErrorConfig error so the rest of the service keeps working.
func NewOpenAISummarizer(apiKey string, model string, opts ...option.RequestOption) *OpenAISummarizer {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}

	return &OpenAISummarizer{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
		opts:   opts,
	}
}

// HasCredential reports whether an API key was provided.
func (s *OpenAISummarizer) HasCredential() bool {
	return s.apiKey != ""
}

func (s *OpenAISummarizer) resolveClient() (*openai.Client, error) {
	s.clientOnce.Do(func() {
		if s.apiKey == "" {
			s.clientErr = domain.NewError(domain.ErrorConfig, "server configuration error", errMissingAPIKey)
			return
		}

		opts := append([]option.RequestOption{option.WithAPIKey(s.apiKey)}, s.opts...)
		s.client = openai.NewClient(opts...)
	})

	if s.clientErr != nil {
		return nil, s.clientErr
	}

	return &s.client, nil
}

// Stream starts a completion and waits for its first fragment, so a rejected
// request surfaces here rather than from Stream.Err.
func (s *OpenAISummarizer) Stream(ctx context.Context, p prompt.Prompt) (Stream, error) {
	client, err := s.resolveClient()
	if err != nil {
		return nil, err
	}

	params, err := s.completionParams(p)
	if err != nil {
		return nil, err
	}

	cs := &completionStream{upstream: client.Chat.Completions.NewStreaming(ctx, params)}

	cs.pending = cs.advance()
	if !cs.pending {
		if streamErr := cs.upstream.Err(); streamErr != nil {
			return nil, startFailure(streamErr, cs.upstream.Close)
		}
	}

	return cs, nil
}

// startFailure closes a stream that failed before its first fragment and
// reports both the start error and any close error.
func startFailure(streamErr error, closeStream func() error) error {
	err := domain.NewError(domain.ErrorUpstream, "completion service request failed",
		fmt.Errorf("start completion stream: %w", streamErr))

	if closeErr := closeStream(); closeErr != nil {
		return errors.Join(err, fmt.Errorf("close completion stream: %w", closeErr))
	}

	return err
}

func (s *OpenAISummarizer) completionParams(p prompt.Prompt) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(p.Text),
		},
	}

	switch p.Mode {
	case domain.ModeSummarize:
		params.MaxCompletionTokens = openai.Int(summarizeMaxTokens)
	case domain.ModeAnswer:
		params.MaxCompletionTokens = openai.Int(answerMaxTokens)
		params.Temperature = openai.Float(answerTemperature)
	default:
		return openai.ChatCompletionNewParams{}, domain.NewError(domain.ErrorValidation,
			fmt.Sprintf("unknown mode %q", p.Mode), nil)
	}

	return params, nil
}

type completionStream struct {
	upstream *ssestream.Stream[openai.ChatCompletionChunk]
	current  string
	pending  bool
}

func (cs *completionStream) Next() bool {
	if cs.pending {
		cs.pending = false
		return true
	}

	return cs.advance()
}

// advance skips chunks without text, such as the role-only first chunk and
// the final chunk that only carries finish_reason.
func (cs *completionStream) advance() bool {
	for cs.upstream.Next() {
		chunk := cs.upstream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			cs.current = delta
			return true
		}
	}

	cs.current = ""
	return false
}

func (cs *completionStream) Fragment() string {
	return cs.current
}

func (cs *completionStream) Err() error {
	if err := cs.upstream.Err(); err != nil {
		return fmt.Errorf("read completion stream: %w", err)
	}
	return nil
}

func (cs *completionStream) Close() error {
	return cs.upstream.Close()
}
