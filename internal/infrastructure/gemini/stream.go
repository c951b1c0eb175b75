package gemini

import (
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-insights/internal/decoder"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
)

// Stream yields the text of each streamGenerateContent event. Events without
// text, such as usage-only trailers, are skipped.
type Stream struct {
	reader *decoder.Reader
	logger *logging.Logger
}

func (s *Stream) Next() (string, error) {
	for {
		data, err := s.reader.Next()
		if err != nil {
			return "", err
		}

		var event generateResponse
		if err := sonic.UnmarshalString(data, &event); err != nil {
			s.logger.Debug("gemini stream event skipped", "error", err, "bytes", len(data))
			continue
		}
		if event.Error != nil {
			return "", fmt.Errorf("%w: status=%s code=%d: %s", ErrRejected, event.Error.Status, event.Error.Code, event.Error.Message)
		}
		if reason := event.blockReason(); reason != "" {
			return "", fmt.Errorf("%w: prompt blocked: %s", ErrRejected, reason)
		}
		if text := event.text(); text != "" {
			return text, nil
		}
	}
}

func (s *Stream) Close() error {
	return s.reader.Close()
}
