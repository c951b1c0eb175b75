package app

import (
	"net/url"
	"strings"
)

const preparedBinaryParam = "disable_prepared_binary_result"

// normalizeDBURL asks lib/pq to skip binary results for prepared statements,
// which poolers in transaction mode require. Both URL and key=value forms are
// accepted and an explicit setting is left alone.
func normalizeDBURL(raw string, disablePreparedBinaryResult bool) string {
	raw = strings.TrimSpace(raw)
	if !disablePreparedBinaryResult || raw == "" {
		return raw
	}

	if !isURLForm(raw) {
		if strings.Contains(raw, preparedBinaryParam+"=") {
			return raw
		}
		return raw + " " + preparedBinaryParam + "=yes"
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	if query.Get(preparedBinaryParam) == "" {
		query.Set(preparedBinaryParam, "yes")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if isURLForm(trimmed) {
		if parsed, err := url.Parse(trimmed); err == nil {
			return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
		}
		return ""
	}

	for _, token := range strings.Fields(trimmed) {
		if name, ok := strings.CutPrefix(token, "dbname="); ok {
			return strings.Trim(name, `"'`)
		}
	}
	return ""
}

func isURLForm(raw string) bool {
	return strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://")
}
