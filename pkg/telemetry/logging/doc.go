// Package logging provides structured logging with PII redaction and
// non-blocking buffered output.
//
// It wraps log/slog: New builds a logger from config.LoggingConfig
// (level, format, redaction, buffer size), and Slog exposes the
// underlying *slog.Logger so components that take slog directly share
// the same redacting handler chain.
//
// When RedactPII is enabled, API keys, bearer tokens, emails, and IPv4
// addresses are redacted from string values, and fields whose key
// names sensitive material (password, token, api_key, ...) are masked
// regardless of value. Custom patterns come from configuration.
//
// Writes go through an async buffer so logging never blocks session
// processing; lines that would block are dropped and counted.
package logging
