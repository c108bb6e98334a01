package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var errSinkClosed = errors.New("response sink is closed")

// responseSink writes fragments to a committed streaming response and
// flushes after each one.
type responseSink struct {
	res    *echo.Response
	closed bool
}

func newResponseSink(res *echo.Response) *responseSink {
	return &responseSink{res: res}
}

func (s *responseSink) Write(fragment string) error {
	if s.closed {
		return errSinkClosed
	}

	if _, err := s.res.Write([]byte(fragment)); err != nil {
		return err
	}
	s.res.Flush()

	return nil
}

// Close ends the stream from the handler's side. net/http terminates the
// chunked body once the handler returns.
func (s *responseSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.res.Flush()

	return nil
}

func setStreamingHeaders(res *echo.Response) {
	res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
}
