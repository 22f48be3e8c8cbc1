package settings

import "strings"

// NormalizeKey lowers a candidate key, strips everything outside the safe
// character set (a-z, 0-9, underscore, hyphen), and trims leading and
// trailing separators. Every public operation normalizes its key before any
// lookup or mutation.
func NormalizeKey(key string) string {
	lowered := strings.ToLower(key)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_-")
}
