package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxOutputSize is the largest line a program may print (16KB).
	DefaultMaxOutputSize = 16 * 1024
	// EnvMaxOutputSize is the environment variable to override the default.
	EnvMaxOutputSize = "STRAND_MAX_OUTPUT_SIZE"
)

var (
	ErrOutputTooLarge = errors.New("output exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("output contains invalid UTF-8 sequences")
)

// SanitizeOutput checks a printed line before it reaches a terminal or a
// report: it enforces the size limit, validates UTF-8 and strips control
// characters other than tab, so programs cannot inject escape sequences.
func SanitizeOutput(text string) (string, error) {
	if limit := maxOutputSize(); len(text) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrOutputTooLarge, len(text), limit)
	}
	if !utf8.ValidString(text) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(text, unsafeControl) < 0 {
		return text, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, text), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\t' && r != '\n'
}

func maxOutputSize() int {
	if val := os.Getenv(EnvMaxOutputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxOutputSize
}
