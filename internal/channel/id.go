package channel

import "strings"

// ID is an opaque routing label that partitions pending commands (spec
// GLOSSARY). The zero value is never valid on its own — use Validate.
type ID string

// Default is the reserved channel literal every invalid or blank channel
// input normalizes to. It exists from process boot (spec §3).
const Default ID = "default"

const maxLen = 64

// Validate trims whitespace and checks the channel grammar
// ([A-Za-z0-9_-]{1,64}); any empty or rejected input normalizes to Default.
// This is the one place channel ids are sanitized (spec §4.1) — callers must
// route raw user input through Validate before any use.
func Validate(raw string) ID {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxLen || !isValidChannel(trimmed) {
		return Default
	}
	return ID(trimmed)
}

func isValidChannel(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
