package insight

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Lines is an ordered list of display strings. Decoding accepts a bare string
// as a one-element list and null as an empty list, and drops blank entries.
type Lines []string

func (l *Lines) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = Lines{}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []any
		if err := sonic.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		out := make(Lines, 0, len(items))
		for _, item := range items {
			if text := lineText(item); text != "" {
				out = append(out, text)
			}
		}
		*l = out
	default:
		var item any
		if err := sonic.Unmarshal(trimmed, &item); err != nil {
			return err
		}
		*l = Lines{}
		if text := lineText(item); text != "" {
			*l = Lines{text}
		}
	}
	return nil
}

func (l Lines) Clone() Lines {
	if l == nil {
		return nil
	}
	out := make(Lines, len(l))
	copy(out, l)
	return out
}

func (l Lines) orEmpty() Lines {
	if l == nil {
		return Lines{}
	}
	return l
}

func lineText(item any) string {
	switch v := item.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := sonic.MarshalString(v)
		if err != nil {
			return ""
		}
		return raw
	}
}
