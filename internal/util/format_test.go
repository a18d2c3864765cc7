package util

import (
	"testing"
	"time"
)

func TestTokenPrefix(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"abc":                  "abc",
		"12345678":             "12345678",
		"1234567890abcdefghij": "12345678",
	}
	for in, want := range cases {
		if got := TokenPrefix(in); got != want {
			t.Errorf("TokenPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := FormatRemaining(now, now.Add(90*time.Second+300*time.Millisecond)); got != "1m30s" {
		t.Errorf("unexpected %q", got)
	}
	if got := FormatRemaining(now, now.Add(-time.Second)); got != "expired" {
		t.Errorf("unexpected %q", got)
	}
}
