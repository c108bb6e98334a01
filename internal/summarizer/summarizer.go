package summarizer

import (
	"articlebrief/internal/prompt"
	"context"
)

// Stream yields completion fragments in the order the model produced them.
// It is consumed once. Close must be called when the caller is done.
type Stream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// Summarizer opens a streamed completion for a prompt. Errors returned by
// Stream happen before any fragment is available.
type Summarizer interface {
	Stream(ctx context.Context, p prompt.Prompt) (Stream, error)
}
