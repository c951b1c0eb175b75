package usecase

import (
	"context"
	"io"
	"sync"

	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
	"github.com/stretchr/testify/mock"
)

type modelMock struct {
	mock.Mock
}

func (m *modelMock) StreamGenerate(ctx context.Context, prompt string, files []RemoteFile) (TextStream, error) {
	args := m.Called(ctx, prompt, files)
	stream, _ := args.Get(0).(TextStream)
	return stream, args.Error(1)
}

func (m *modelMock) Generate(ctx context.Context, prompt string, files []RemoteFile) (string, error) {
	args := m.Called(ctx, prompt, files)
	return args.String(0), args.Error(1)
}

type filesMock struct {
	mock.Mock
}

func (m *filesMock) Files(ctx context.Context, s sport.Sport) ([]RemoteFile, error) {
	args := m.Called(ctx, s)
	files, _ := args.Get(0).([]RemoteFile)
	return files, args.Error(1)
}

// sliceStream replays fragments and then fails with err, or io.EOF when err is nil.
type sliceStream struct {
	fragments []string
	err       error
	closed    bool
}

func (s *sliceStream) Next() (string, error) {
	if len(s.fragments) > 0 {
		next := s.fragments[0]
		s.fragments = s.fragments[1:]
		return next, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	chunks  []string
	final   *insight.Payload
	errors  []string
	failOn  int
	written int
}

func (s *recordingSink) Chunk(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written++
	if s.failOn > 0 && s.written >= s.failOn {
		return io.ErrClosedPipe
	}
	s.chunks = append(s.chunks, text)
	return nil
}

func (s *recordingSink) Final(payload *insight.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final = payload
	return nil
}

func (s *recordingSink) Error(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
	return nil
}

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() (string, error) { return f.id, nil }
