package codegen

import "strings"

// pascal converts a snake_case or otherwise punctuated identifier to
// PascalCase. Known initialisms keep their conventional casing.
func pascal(s string) string {
	var b strings.Builder
	for _, part := range splitIdent(s) {
		if up, ok := initialisms[strings.ToLower(part)]; ok {
			b.WriteString(up)
			continue
		}
		if strings.ToUpper(part) == part {
			// All-caps words title-case; mixed-case words keep their
			// interior capitalization.
			b.WriteString(strings.ToUpper(part[:1]) + strings.ToLower(part[1:]))
		} else {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

var initialisms = map[string]string{
	"id":   "ID",
	"uuid": "UUID",
	"url":  "URL",
	"uri":  "URI",
	"api":  "API",
	"sql":  "SQL",
	"json": "JSON",
	"html": "HTML",
	"http": "HTTP",
	"ip":   "IP",
	"db":   "DB",
}

func splitIdent(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

// singularPascal names the struct for a table: the table name is
// singularized before casing, so order_items becomes OrderItem.
func singularPascal(s string) string {
	parts := splitIdent(s)
	if len(parts) > 0 {
		parts[len(parts)-1] = singular(parts[len(parts)-1])
	}
	return pascal(strings.Join(parts, "_"))
}

// singular applies a small set of English plural rules, enough for common
// table naming. Words it cannot handle pass through unchanged.
func singular(w string) string {
	lw := strings.ToLower(w)
	switch {
	case strings.HasSuffix(lw, "ies") && len(w) > 3:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(lw, "sses"),
		strings.HasSuffix(lw, "shes"),
		strings.HasSuffix(lw, "ches"),
		strings.HasSuffix(lw, "xes"),
		strings.HasSuffix(lw, "zes"):
		return w[:len(w)-2]
	case strings.HasSuffix(lw, "ses") && len(w) > 3:
		return w[:len(w)-2]
	case strings.HasSuffix(lw, "ss"), strings.HasSuffix(lw, "us"), strings.HasSuffix(lw, "is"):
		return w
	case strings.HasSuffix(lw, "s") && len(w) > 1:
		return w[:len(w)-1]
	}
	return w
}

// lowerCamel renders a parameter or local name.
func lowerCamel(s string) string {
	p := pascal(s)
	if p == "" {
		return s
	}
	// Preserve initialism casing after the first word boundary only.
	i := 1
	for i < len(p) && p[i] >= 'A' && p[i] <= 'Z' {
		i++
	}
	if i > 1 && i < len(p) {
		i--
	}
	return strings.ToLower(p[:i]) + p[i:]
}

// bare strips a schema qualifier.
func bare(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
