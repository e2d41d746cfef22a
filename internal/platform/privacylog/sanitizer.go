package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var (
	processSalt = randomSalt()

	// Credential inputs and identifiers are correlatable across logs but must
	// not appear in clear text.
	fingerprintKeys = map[string]struct{}{
		"email":       {},
		"identifier":  {},
		"context":     {},
		"app_context": {},
		"recipient":   {},
		"sender":      {},
	}
	sensitiveKeyParts = []string{"password", "passphrase", "secret", "seed", "mnemonic", "token", "private"}
)

// SanitizingHandler redacts credential material before records reach next.
type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	if _, ok := next.(*SanitizingHandler); ok {
		return next
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

// SanitizeAttr redacts or fingerprints attr according to its key. LogValuer
// values are resolved first so groups they expand to are sanitized too.
func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	lowerKey := strings.ToLower(key)
	if isSensitiveKey(lowerKey) {
		return slog.String(key, redactedValue)
	}
	value := attr.Value.Resolve()
	if shouldFingerprintKey(lowerKey) {
		return slog.String(fingerprintKeyName(key), Fingerprint(valueToString(value)))
	}
	if value.Kind() == slog.KindGroup {
		return slog.Attr{Key: key, Value: slog.GroupValue(sanitizeAttrs(value.Group())...)}
	}
	return slog.Attr{Key: key, Value: value}
}

// SanitizeArgs applies SanitizeAttr to key/value pairs in slog argument form.
func SanitizeArgs(args ...any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, 0, len(args))
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			out = append(out, args[i])
			continue
		}
		attr := SanitizeAttr(slog.Any(key, args[i+1]))
		i++
		out = append(out, attr)
	}
	return out
}

// Fingerprint is a salted, per-process digest of value. Equal inputs map to
// equal fingerprints within one process only.
func Fingerprint(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(processSalt + "|" + value))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

func shouldFingerprintKey(key string) bool {
	_, ok := fingerprintKeys[key]
	return ok
}

func fingerprintKeyName(key string) string {
	if strings.HasSuffix(strings.ToLower(key), "_fp") {
		return key
	}
	return key + "_fp"
}

func isSensitiveKey(key string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindAny:
		if b, ok := v.Any().([]byte); ok {
			return hex.EncodeToString(b)
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func randomSalt() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("privacylog: read random salt: %v", err))
	}
	return hex.EncodeToString(buf)
}
