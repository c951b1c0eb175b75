package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	dataPrefix = "data:"

	// DoneSentinel is the payload of the data line that ends a stream.
	DoneSentinel = "[DONE]"

	readerBufferSize = 64 << 10
)

// Reader yields the payloads of server-sent event data lines in arrival order.
// A Reader owns its body for the whole stream and is not safe for concurrent
// calls to Next.
type Reader struct {
	body io.ReadCloser
	buf  *bufio.Reader
	done bool

	mu        sync.Mutex
	stops     []func() bool
	closeOnce sync.Once
	closeErr  error
}

func NewReader(body io.ReadCloser) *Reader {
	return &Reader{
		body: body,
		buf:  bufio.NewReaderSize(body, readerBufferSize),
	}
}

// Watch closes the body once ctx is done so that a blocked Next returns.
func (r *Reader) Watch(ctx context.Context) {
	if ctx == nil {
		return
	}
	stop := context.AfterFunc(ctx, r.closeBody)
	r.mu.Lock()
	r.stops = append(r.stops, stop)
	r.mu.Unlock()
}

// Next returns the next data payload. It returns io.EOF after the last line of
// the body or after the [DONE] sentinel. Read failures are marked ErrTransport.
func (r *Reader) Next() (string, error) {
	for !r.done {
		line, err := r.buf.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.done = true
				return "", fmt.Errorf("%w: read event stream: %w", ErrTransport, err)
			}
			r.done = true
		}

		payload, ok := parseDataLine(line)
		if !ok {
			continue
		}
		if strings.TrimSpace(payload) == DoneSentinel {
			r.done = true
			return "", io.EOF
		}
		return payload, nil
	}
	return "", io.EOF
}

// Close releases the body. It is safe to call more than once.
func (r *Reader) Close() error {
	r.mu.Lock()
	stops := r.stops
	r.stops = nil
	r.mu.Unlock()
	for _, stop := range stops {
		stop()
	}
	r.closeBody()
	return r.closeErr
}

func (r *Reader) closeBody() {
	r.closeOnce.Do(func() {
		if r.body != nil {
			r.closeErr = r.body.Close()
		}
	})
}

func parseDataLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	return strings.TrimPrefix(line[len(dataPrefix):], " "), true
}
