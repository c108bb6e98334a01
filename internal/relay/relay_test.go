package relay

import (
	"articlebrief/internal/domain"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	fragments []string
	failAfter int
	err       error
	pos       int
	current   string
	closes    int
	onNext    func(pos int)
}

func (s *fakeSource) Next() bool {
	if s.onNext != nil {
		s.onNext(s.pos)
	}

	if s.err != nil && s.pos >= s.failAfter {
		return false
	}

	if s.pos >= len(s.fragments) {
		return false
	}

	s.current = s.fragments[s.pos]
	s.pos++

	return true
}

func (s *fakeSource) Fragment() string { return s.current }

func (s *fakeSource) Err() error {
	if s.err != nil && s.pos >= s.failAfter {
		return s.err
	}
	return nil
}

func (s *fakeSource) Close() error {
	s.closes++
	return nil
}

type recordingSink struct {
	writes    []string
	failAt    int
	closes    int
	closedErr error
}

func (s *recordingSink) Write(fragment string) error {
	if s.closes > 0 {
		return errors.New("write after close")
	}

	if s.failAt > 0 && len(s.writes)+1 >= s.failAt {
		return errors.New("broken pipe")
	}

	s.writes = append(s.writes, fragment)

	return nil
}

func (s *recordingSink) Close() error {
	s.closes++
	return s.closedErr
}

func TestCopyForwardsFragmentsInOrder(t *testing.T) {
	src := &fakeSource{fragments: []string{"Hel", "lo, ", "world"}}
	dst := &recordingSink{}

	res, err := Copy(context.Background(), src, dst, "error")
	require.NoError(t, err)

	require.Equal(t, []string{"Hel", "lo, ", "world"}, dst.writes)
	require.Equal(t, "Hello, world", strings.Join(dst.writes, ""))
	require.Equal(t, Result{Fragments: 3, Bytes: len("Hello, world")}, res)
	require.Equal(t, 1, dst.closes)
	require.Equal(t, 1, src.closes)
}

func TestCopyWritesFragmentBeforeReadingNext(t *testing.T) {
	dst := &recordingSink{}
	src := &fakeSource{fragments: []string{"a", "b", "c"}}
	src.onNext = func(pos int) {
		require.Len(t, dst.writes, pos, "fragment %d read before previous one was written", pos)
	}

	_, err := Copy(context.Background(), src, dst, "")
	require.NoError(t, err)
}

func TestCopyEmptySource(t *testing.T) {
	src := &fakeSource{}
	dst := &recordingSink{}

	res, err := Copy(context.Background(), src, dst, "error")
	require.NoError(t, err)
	require.Empty(t, dst.writes)
	require.Zero(t, res.Fragments)
	require.Equal(t, 1, dst.closes)
}

func TestCopyUpstreamFailureEmitsSingleErrorFragment(t *testing.T) {
	src := &fakeSource{fragments: []string{"Hel", "lo"}, failAfter: 1, err: errors.New("upstream reset")}
	dst := &recordingSink{}

	res, err := Copy(context.Background(), src, dst, "Error processing your question. Please try again.")
	require.Error(t, err)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	require.Equal(t, domain.ErrorUpstreamStream, kind)
	require.NotErrorIs(t, err, ErrConsumerGone)

	require.Equal(t, []string{"Hel", "Error processing your question. Please try again."}, dst.writes)
	require.Equal(t, 1, res.Fragments)
	require.Equal(t, 1, dst.closes)
	require.Equal(t, 1, src.closes)
}

func TestCopyUpstreamFailureWithoutErrorFragment(t *testing.T) {
	src := &fakeSource{fragments: []string{"x"}, failAfter: 0, err: errors.New("boom")}
	dst := &recordingSink{}

	_, err := Copy(context.Background(), src, dst, "")
	require.Error(t, err)
	require.Empty(t, dst.writes)
	require.Equal(t, 1, dst.closes)
}

func TestCopyStopsWhenConsumerIsGone(t *testing.T) {
	src := &fakeSource{fragments: []string{"a", "b", "c", "d"}}
	dst := &recordingSink{failAt: 2}

	res, err := Copy(context.Background(), src, dst, "error")
	require.ErrorIs(t, err, ErrConsumerGone)

	require.Equal(t, []string{"a"}, dst.writes)
	require.Equal(t, 1, res.Fragments)
	require.Equal(t, 2, src.pos, "source must not be drained after the consumer is gone")
	require.Equal(t, 1, dst.closes)
	require.Equal(t, 1, src.closes)
}

func TestCopyCancelledContextSkipsErrorFragment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	src := &fakeSource{fragments: []string{"a", "b"}, failAfter: 1, err: context.Canceled}
	src.onNext = func(pos int) {
		if pos == 1 {
			cancel()
		}
	}
	dst := &recordingSink{}

	_, err := Copy(ctx, src, dst, "error")
	require.ErrorIs(t, err, ErrConsumerGone)
	require.Equal(t, []string{"a"}, dst.writes)
	require.Equal(t, 1, dst.closes)
}

func TestCopyReportsSinkCloseError(t *testing.T) {
	src := &fakeSource{fragments: []string{"a"}}
	dst := &recordingSink{closedErr: errors.New("flush failed")}

	_, err := Copy(context.Background(), src, dst, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "close sink")
	require.Equal(t, 1, dst.closes)
}
