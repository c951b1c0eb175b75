package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/valyala/bytebufferpool"
)

const (
	defaultHeartbeatInterval = 15 * time.Second

	sseDoneFrame      = "data: [DONE]\n\n"
	sseHeartbeatFrame = ": heartbeat\n\n"
)

var errStreamClosed = errors.New("event stream already closed")

type chunkFrame struct {
	Chunk string `json:"chunk"`
}

type finalFrame struct {
	Final *insight.Payload `json:"final"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// sseWriter delivers insight events as server-sent events. The response is
// committed by the first event frame, so a failure before that can still be
// answered with a JSON envelope. Heartbeats only keep a committed stream
// alive. The first write error is sticky.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	closed  bool
	err     error

	opened  func() func()
	release func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// newSSEWriter starts the heartbeat. opened is called once when the stream
// is committed and the func it returns once when it ends.
func newSSEWriter(w http.ResponseWriter, heartbeat time.Duration, opened func() func()) *sseWriter {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	s := &sseWriter{
		w:      w,
		rc:     http.NewResponseController(w),
		opened: opened,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.heartbeat(heartbeat)
	return s
}

func (s *sseWriter) Chunk(text string) error {
	return s.send(chunkFrame{Chunk: text})
}

func (s *sseWriter) Final(payload *insight.Payload) error {
	return s.send(finalFrame{Final: payload})
}

func (s *sseWriter) Error(message string) error {
	return s.send(errorFrame{Error: message})
}

// Started reports whether any frame has been written.
func (s *sseWriter) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Close stops the heartbeat and, if the stream was committed, ends it with
// the [DONE] sentinel.
func (s *sseWriter) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	defer func() {
		if s.release != nil {
			s.release()
		}
	}()

	if !s.started || s.err != nil {
		return s.err
	}
	return s.writeLocked([]byte(sseDoneFrame))
}

func (s *sseWriter) send(frame any) error {
	body, err := sonic.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode event frame: %w", err)
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	_, _ = buf.WriteString("data: ")
	_, _ = buf.Write(body)
	_, _ = buf.WriteString("\n\n")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	return s.writeLocked(buf.B)
}

func (s *sseWriter) heartbeat(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			var err error
			if s.started && !s.closed {
				err = s.writeLocked([]byte(sseHeartbeatFrame))
			}
			s.mu.Unlock()
			if err != nil {
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *sseWriter) writeLocked(frame []byte) error {
	if s.err != nil {
		return s.err
	}
	if !s.started {
		s.commitLocked()
	}
	if _, err := s.w.Write(frame); err != nil {
		s.err = fmt.Errorf("write event frame: %w", err)
		return s.err
	}
	if err := s.rc.Flush(); err != nil {
		s.err = fmt.Errorf("flush event frame: %w", err)
		return s.err
	}
	return nil
}

func (s *sseWriter) commitLocked() {
	header := s.w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	// Streams outlive the server write timeout.
	_ = s.rc.SetWriteDeadline(time.Time{})
	s.w.WriteHeader(http.StatusOK)
	s.started = true
	if s.opened != nil {
		s.release = s.opened()
	}
}
