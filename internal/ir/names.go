package ir

import "strings"

// lowerCamel converts a snake_case identifier to lowerCamelCase. Leading
// and consecutive underscores collapse; a name that is all underscores is
// returned unchanged.
func lowerCamel(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' })
	if len(parts) == 0 {
		return s
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, p := range parts[1:] {
		b.WriteString(titleWord(p))
	}
	return b.String()
}

func titleWord(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
