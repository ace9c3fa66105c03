package logging

import (
	"log/slog"
	"testing"

	"mercator-hq/ganymede/pkg/config"
)

func TestRedactString(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "openai style key",
			input: "auth failed for sk-proj1234abcd",
			want:  "auth failed for sk-***",
		},
		{
			name:  "bearer token",
			input: "header Bearer eyJhbGciOiJIUzI1NiJ9.abc",
			want:  "header Bearer ***",
		},
		{
			name:  "email keeps domain",
			input: "contact ops@mercator.dev",
			want:  "contact ***@mercator.dev",
		},
		{
			name:  "ipv4 keeps first octet",
			input: "peer 10.20.30.40 refused",
			want:  "peer 10.*.*.* refused",
		},
		{
			name:  "clean text untouched",
			input: "session s-1 completed with 12 bytes",
			want:  "session s-1 completed with 12 bytes",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCustomPatterns(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "scenario_token", Pattern: `scn-[0-9]+`, Replacement: "scn-***"},
		{Name: "broken", Pattern: `([`, Replacement: "x"},
	})

	got := r.RedactString("running scn-12345 now")
	if got != "running scn-*** now" {
		t.Errorf("custom pattern not applied: %q", got)
	}
}

func TestRedactAttrSensitiveKeys(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"password", "hunter99x", "hunt***"},
		{"api_key", "abcdefgh", "abcd***"},
		{"Authorization", "tokenvalue", "toke***"},
		{"secret", "abc", "***"},
	}

	r := NewRedactor(nil)
	for _, tt := range tests {
		got := r.redactAttr(slog.String(tt.key, tt.value))
		if got.Value.String() != tt.want {
			t.Errorf("redactAttr(%s) = %q, want %q", tt.key, got.Value.String(), tt.want)
		}
	}

	// Non-sensitive keys keep their value.
	got := r.redactAttr(slog.String("provider", "openai"))
	if got.Value.String() != "openai" {
		t.Errorf("provider value changed: %q", got.Value.String())
	}
}

func TestRedactAttrGroup(t *testing.T) {
	r := NewRedactor(nil)

	attr := r.redactAttr(slog.Group("request",
		slog.String("token", "secretsecret"),
		slog.Int("chunks", 7),
	))

	members := attr.Value.Group()
	if len(members) != 2 {
		t.Fatalf("group has %d members", len(members))
	}
	if members[0].Value.String() != "secr***" {
		t.Errorf("nested token not masked: %q", members[0].Value.String())
	}
	if members[1].Value.Int64() != 7 {
		t.Errorf("non-string member changed: %v", members[1].Value)
	}
}

func TestRedactAPIKey(t *testing.T) {
	if got := RedactAPIKey("sk-live-abcdef"); got != "sk-l***" {
		t.Errorf("RedactAPIKey = %q", got)
	}
	if got := RedactAPIKey("abc"); got != "***" {
		t.Errorf("short key = %q", got)
	}
}

func BenchmarkRedactString(b *testing.B) {
	r := NewRedactor(nil)
	line := "provider openai returned 429 for key sk-abc123 at 10.0.0.5"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RedactString(line)
	}
}
