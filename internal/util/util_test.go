package util

import (
	"testing"
	"time"
)

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{name: "plain", in: "bob", expected: "bob"},
		{name: "percent", in: "100%", expected: `100\%`},
		{name: "underscore", in: "a_b", expected: `a\_b`},
		{name: "backslash", in: `c:\x`, expected: `c:\\x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := EscapeLike(tt.in); got != tt.expected {
				t.Fatalf("EscapeLike(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestContainsPattern(t *testing.T) {
	t.Parallel()

	if got := ContainsPattern("Nice_View"); got != `%nice\_view%` {
		t.Fatalf("ContainsPattern = %q", got)
	}
}

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	base := 5 * time.Second
	limit := time.Minute

	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{name: "zero attempt treated as first", attempt: 0, expected: 5 * time.Second},
		{name: "first attempt", attempt: 1, expected: 5 * time.Second},
		{name: "second attempt", attempt: 2, expected: 10 * time.Second},
		{name: "fourth attempt", attempt: 4, expected: 40 * time.Second},
		{name: "capped", attempt: 5, expected: time.Minute},
		{name: "far beyond cap", attempt: 80, expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExponentialBackoff(base, limit, tt.attempt); got != tt.expected {
				t.Fatalf("ExponentialBackoff(%d) = %s, want %s", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Checksum([]byte("abc")); got != want {
		t.Fatalf("Checksum = %s, want %s", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{name: "under one minute", duration: 45 * time.Second, expected: "45s"},
		{name: "rounded second to minute", duration: 59*time.Second + 500*time.Millisecond, expected: "1m0s"},
		{name: "minutes and seconds", duration: 2*time.Minute + 30*time.Second, expected: "2m30s"},
		{name: "hours and minutes", duration: time.Hour + 30*time.Minute, expected: "1h30m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatDuration(tt.duration); got != tt.expected {
				t.Fatalf("FormatDuration(%s) = %s, want %s", tt.duration, got, tt.expected)
			}
		})
	}
}
