// Package redact scrubs credentials and personal data from text before it is
// logged or persisted. Transport errors end up in email_queue.last_error and
// in structured logs, so both paths pass through String or Error.
package redact

import (
	"regexp"
	"strings"
)

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	re          *regexp.Regexp
	placeholder string
}

// rules are applied in order; credential rules run before the generic path
// and email rules so connection strings are replaced whole.
var rules = []rule{
	{
		regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss|smtp|smtps)://[^@\s]+@`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		RedactedJWTPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|bearer)(['"\s:=]+)[A-Za-z0-9_\-.~+/$]{8,}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`(AKIA|ASIA)[A-Z0-9]{16}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		RedactedStackPlaceholder,
	},
	{
		regexp.MustCompile(`(^|\s)(/[\w.-]+){2,}`),
		"$1" + RedactedPathPlaceholder,
	},
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		RedactedEmailPlaceholder,
	},
}

// String redacts sensitive information from s.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.placeholder)
	}
	return s
}

// Error redacts sensitive information from err's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Recipient masks an email address for logging, keeping the first character
// of the local part and the domain: "ada@example.com" becomes "a***@example.com".
func Recipient(addr string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(addr), "@")
	if !ok || local == "" || domain == "" {
		return RedactedEmailPlaceholder
	}
	return local[:1] + "***@" + domain
}
