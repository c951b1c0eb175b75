package usecase

import (
	"context"

	"github.com/riskibarqy/sports-insights/internal/domain/insight"
	"github.com/riskibarqy/sports-insights/internal/domain/sport"
)

// RemoteFile is a data file already uploaded to the model provider.
type RemoteFile struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	MimeType    string `json:"mimeType"`
}

// TextStream yields model text fragments in order and io.EOF after the last one.
type TextStream interface {
	Next() (string, error)
	Close() error
}

// InsightModel is the large language model that writes insight documents.
type InsightModel interface {
	StreamGenerate(ctx context.Context, prompt string, files []RemoteFile) (TextStream, error)
	Generate(ctx context.Context, prompt string, files []RemoteFile) (string, error)
}

// FileRegistry resolves the uploaded data files for a sport.
type FileRegistry interface {
	Files(ctx context.Context, s sport.Sport) ([]RemoteFile, error)
}

// InsightSink receives stream progress for one generation. Implementations
// write to a single client and are called from one goroutine.
type InsightSink interface {
	Chunk(text string) error
	Final(payload *insight.Payload) error
	Error(message string) error
}
