package util

import (
	"errors"
	"strings"
	"unicode"
)

// maxFileNameLen caps names taken from chat attachments.
const maxFileNameLen = 128

// ErrInvalidFileName is returned for names that cannot be made safe.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens path separators, drops control characters and
// rejects traversal patterns. Long names keep their extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		ext := ""
		if i := strings.LastIndexByte(s, '.'); i > 0 && len(s)-i <= 10 {
			ext = s[i:]
		}
		s = strings.ToValidUTF8(s[:maxFileNameLen-len(ext)], "") + ext
	}
	return s, nil
}
