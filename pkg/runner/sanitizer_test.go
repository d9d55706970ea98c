package runner

import (
	"strings"
	"testing"
)

func TestSanitizeOutput_SizeLimit(t *testing.T) {
	limit := DefaultMaxOutputSize

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeOutput(strings.Repeat("a", tt.size))
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeOutput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxOutputSize, "4")
	if _, err := SanitizeOutput("12345"); err == nil {
		t.Error("expected the env limit to apply")
	}
}

func TestSanitizeOutput_ControlChars(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"tab\there", "tab\there"},
		{"multi\nline", "multi\nline"},
		{"\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"bell\a", "bell"},
	}
	for _, tt := range tests {
		got, err := SanitizeOutput(tt.in)
		if err != nil {
			t.Fatalf("SanitizeOutput(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("SanitizeOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeOutput_InvalidUTF8(t *testing.T) {
	if _, err := SanitizeOutput("bad\xff"); err != ErrInvalidUTF8 {
		t.Errorf("expected ErrInvalidUTF8, got %v", err)
	}
}
