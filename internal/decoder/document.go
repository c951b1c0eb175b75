package decoder

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

var errNotObject = errors.New("document is not a JSON object")

type member struct {
	Key   string
	Value json.RawMessage
}

// document is a JSON object's top-level members in source order.
type document []member

func parseDocument(text string) (document, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "read document start")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var doc document
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "read member key")
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.Newf("unexpected member key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.Wrapf(err, "read member %q", key)
		}
		doc = append(doc, member{Key: key, Value: value})
	}
	return doc, nil
}

// index returns the position of the last member named key, or -1.
func (d document) index(key string) int {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i].Key == key {
			return i
		}
	}
	return -1
}

func (d document) has(key string) bool {
	return d.index(key) >= 0
}

func (d document) value(key string) json.RawMessage {
	if i := d.index(key); i >= 0 {
		return d[i].Value
	}
	return nil
}

func isObjectValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
