package logging

import (
	"log/slog"
	"strings"
)

// Redacted replaces values of sensitive attributes.
const Redacted = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"new_password":  {},
	"token":         {},
	"access_token":  {},
	"accesstoken":   {},
	"id_token":      {},
	"idtoken":       {},
	"credential":    {},
	"authorization": {},
	"secret":        {},
	"api_key":       {},
	"apikey":        {},
}

// IsSensitiveKey reports whether values logged under key must be masked.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

func redactAttr(attr slog.Attr) slog.Attr {
	if IsSensitiveKey(attr.Key) && attr.Value.Kind() != slog.KindGroup {
		return slog.String(attr.Key, Redacted)
	}
	return attr
}
