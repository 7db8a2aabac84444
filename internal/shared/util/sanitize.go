package util

import (
	"errors"
	"strings"
)

// DefaultFileName is used when a name sanitizes to nothing.
const DefaultFileName = "upload.bin"

// ErrInvalidFileName is returned for names containing traversal patterns.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName rejects traversal patterns and replaces every character
// outside [A-Za-z0-9._-] with an underscore.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return DefaultFileName, nil
	}
	return out, nil
}
