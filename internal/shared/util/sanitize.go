package util

import (
	"errors"
	"strings"
)

const maxFileNameLen = 255

// SanitizeFileName flattens a client-supplied upload name into one safe path
// segment. Separators become underscores, control characters are dropped,
// and traversal patterns or empty names are rejected rather than repaired.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if len(s) > maxFileNameLen {
		// keep the tail so the extension survives
		s = s[len(s)-maxFileNameLen:]
	}
	return s, nil
}
