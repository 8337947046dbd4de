package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/embedhttp/pkg/urlcodec"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
	"bearer",
}

// Attributes holding raw url-encoded parameter lists. Their sensitive
// parameters are masked one by one instead of hiding the whole string.
var queryKeys = map[string]bool{
	"query": true,
	"form":  true,
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		val := a.Value.String()
		if val == "" {
			return a
		}
		if queryKeys[strings.ToLower(a.Key)] {
			return slog.String(a.Key, RedactQuery(val))
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactQuery masks the values of sensitive parameters in a url-encoded
// "k=v&k=v" string. Keys are decoded before matching, so "pass%77ord" is
// caught as well.
func RedactQuery(query string) string {
	if query == "" {
		return query
	}
	parts := strings.Split(query, "&")
	changed := false
	for i, p := range parts {
		k, v, ok := strings.Cut(p, "=")
		if !ok || v == "" {
			continue
		}
		if IsSensitiveKey(urlcodec.URLDecode(k)) {
			parts[i] = k + "=" + redactedValue
			changed = true
		}
	}
	if !changed {
		return query
	}
	return strings.Join(parts, "&")
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
