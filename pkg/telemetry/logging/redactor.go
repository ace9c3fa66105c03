package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/ganymede/pkg/config"
)

// Redactor removes credentials and PII from log output. It combines
// value-pattern matching (API keys, bearer tokens, emails, IPv4
// addresses) with key-name matching for fields that are sensitive
// regardless of their value.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternEmail       = "email"
	PatternIPv4        = "ipv4"
)

var defaultPatterns = []*redactPattern{
	{
		name:        PatternAPIKey,
		regex:       regexp.MustCompile(`sk-[a-zA-Z0-9_-]+`),
		replacement: "sk-***",
	},
	{
		name:        PatternBearerToken,
		regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
		replacement: "Bearer ***",
	},
	{
		name:        PatternEmail,
		regex:       regexp.MustCompile(`[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
		replacement: "***@$1",
	},
	{
		name:        PatternIPv4,
		regex:       regexp.MustCompile(`\b(\d{1,3})\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		replacement: "$1.*.*.*",
	},
}

// NewRedactor creates a Redactor with the built-in patterns plus any
// custom patterns from configuration. Custom patterns that fail to
// compile are skipped.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{patterns: make([]*redactPattern, 0, len(defaultPatterns)+len(custom))}
	r.patterns = append(r.patterns, defaultPatterns...)
	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}
	return r
}

// RedactString applies all value patterns to s.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// redactAttr redacts a single attribute. Attributes whose key names
// sensitive material are masked entirely; string values are run
// through the value patterns; groups are redacted recursively.
func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.Attr{Key: a.Key, Value: slog.StringValue(maskValue(a.Value))}
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.Attr{Key: a.Key, Value: slog.StringValue(r.RedactString(a.Value.String()))}
	case slog.KindGroup:
		members := a.Value.Group()
		redacted := make([]any, len(members))
		for i, m := range members {
			redacted[i] = r.redactAttr(m)
		}
		return slog.Group(a.Key, redacted...)
	default:
		return a
	}
}

var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "auth",
	"private_key", "credential",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue replaces a sensitive value, keeping a short prefix of
// string values so operators can tell credentials apart.
func maskValue(v slog.Value) string {
	if v.Kind() != slog.KindString {
		return "***"
	}
	s := v.String()
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// RedactAPIKey masks an API key, keeping the first four characters.
func RedactAPIKey(key string) string {
	if len(key) <= 4 {
		return "***"
	}
	return key[:4] + "***"
}
