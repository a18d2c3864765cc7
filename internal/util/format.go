package util //nolint:revive // package name util hosts small shared helpers

import "time"

// tokenPrefixLen is how much of a secret value may appear in logs.
const tokenPrefixLen = 8

// TokenPrefix returns at most the first 8 characters of s, for correlating log lines
// without leaking the full value.
func TokenPrefix(s string) string {
	if len(s) <= tokenPrefixLen {
		return s
	}
	return s[:tokenPrefixLen]
}

// FormatRemaining formats the time left until t for display, truncated to seconds.
// Returns "expired" once t has passed.
func FormatRemaining(now, t time.Time) string {
	d := t.Sub(now)
	if d <= 0 {
		return "expired"
	}
	return d.Truncate(time.Second).String()
}
