package util

import (
	"encoding/json"
	"net/url"
	"strings"
)

const redactedValue = "[REDACTED]"

// RedactSensitiveJSON attempts to redact credential-bearing fields from a
// JSON payload before it is logged. If the payload is not valid JSON, it
// returns the original bytes.
func RedactSensitiveJSON(body []byte) []byte {
	trim := strings.TrimSpace(string(body))
	if trim == "" {
		return body
	}
	if !strings.HasPrefix(trim, "{") && !strings.HasPrefix(trim, "[") {
		return body
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return body
	}
	redacted := redactValue(v)
	out, err := json.Marshal(redacted)
	if err != nil {
		return body
	}
	return out
}

// MaskSensitiveQuery redacts authorization codes and related parameters in
// a raw query string so redirect URIs can be logged. A query that fails to
// parse is returned untouched.
func MaskSensitiveQuery(rawQuery string) string {
	if rawQuery == "" {
		return rawQuery
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}
	for key := range values {
		if isSensitiveKey(key) {
			values.Set(key, redactedValue)
		}
	}
	return values.Encode()
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if isSensitiveKey(k) {
				t[k] = redactedValue
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	// "code" and "state" are exact matches; substring matching would also
	// hit fields like "country_code" or "statement".
	if k == "code" || k == "state" {
		return true
	}
	switch {
	case strings.Contains(k, "authorization"),
		strings.Contains(k, "cookie"),
		strings.Contains(k, "secret"),
		strings.Contains(k, "token"),
		strings.Contains(k, "verifier"),
		strings.Contains(k, "password"):
		return true
	default:
		return false
	}
}
