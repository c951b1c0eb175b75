package decoder

import "github.com/cockroachdb/errors"

var (
	// ErrTransport marks a failed read from the event stream.
	ErrTransport = errors.New("insight stream transport failed")
	// ErrUpstream marks an error event sent by the stream producer.
	ErrUpstream = errors.New("insight stream reported an upstream error")
)
