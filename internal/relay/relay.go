package relay

import (
	"articlebrief/internal/domain"
	"context"
	"errors"
	"fmt"
)

// ErrConsumerGone means the downstream reader went away mid-stream.
var ErrConsumerGone = errors.New("consumer is gone")

// Source is the inbound side: an ordered, finite sequence of fragments.
type Source interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// Sink is the outbound side. Write must hand the fragment to the consumer
// before returning.
type Sink interface {
	Write(fragment string) error
	Close() error
}

type Result struct {
	Fragments int
	Bytes     int
}

// Copy forwards every fragment from src to dst in order. Both src and dst
// are closed exactly once before Copy returns, on every path.
//
// When src fails, errorFragment is written once (if not empty) and a
// domain.ErrorUpstreamStream error is returned. When the consumer is gone,
// nothing more is written and the error wraps ErrConsumerGone.
func Copy(ctx context.Context, src Source, dst Sink, errorFragment string) (res Result, err error) {
	defer func() {
		if closeErr := dst.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close sink: %w", closeErr))
		}
	}()
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close source: %w", closeErr))
		}
	}()

	for src.Next() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%w: %w", ErrConsumerGone, ctxErr)
		}

		fragment := src.Fragment()
		if writeErr := dst.Write(fragment); writeErr != nil {
			return res, fmt.Errorf("%w: write fragment: %w", ErrConsumerGone, writeErr)
		}

		res.Fragments++
		res.Bytes += len(fragment)
	}

	srcErr := src.Err()
	if srcErr == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%w: %w", ErrConsumerGone, ctxErr)
	}

	streamErr := domain.NewError(domain.ErrorUpstreamStream, "completion stream failed", srcErr)

	if errorFragment != "" {
		if writeErr := dst.Write(errorFragment); writeErr != nil {
			return res, errors.Join(streamErr, fmt.Errorf("%w: write error fragment: %w", ErrConsumerGone, writeErr))
		}
	}

	return res, streamErr
}
