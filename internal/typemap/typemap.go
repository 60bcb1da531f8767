// Package typemap maps PostgreSQL type names to the Go types and decode
// kinds used in generated code. The mapping is a fixed table; unknown types
// degrade to any rather than failing the run.
package typemap

import (
	"strings"

	"github.com/pgwrap/pgwrap/pgcall"
)

// GoType is the rendering of one SQL type in generated code.
type GoType struct {
	Name    string   // Go type expression, e.g. "int64" or "decimal.Decimal"
	Imports []string // import paths the expression needs
	Kind    pgcall.Kind
	IsArray bool

	// Opaque marks a type that fell back to any because it is not in the
	// mapping table.
	Opaque bool

	// Unsupported marks a shape the generator cannot express, currently
	// multi-dimensional arrays. The value still degrades to any.
	Unsupported bool
}

type entry struct {
	goName  string
	imports []string
	kind    pgcall.Kind
}

// builtins keys are canonical lowercase PostgreSQL type names with any
// precision group removed. Every SQL integer width maps to int64; narrower
// Go ints buy nothing in a wrapper and complicate callers.
var builtins = map[string]entry{
	"text":              {"string", nil, pgcall.KindText},
	"varchar":           {"string", nil, pgcall.KindText},
	"character varying": {"string", nil, pgcall.KindText},
	"char":              {"string", nil, pgcall.KindText},
	"character":         {"string", nil, pgcall.KindText},
	"bpchar":            {"string", nil, pgcall.KindText},
	"citext":            {"string", nil, pgcall.KindText},
	"name":              {"string", nil, pgcall.KindText},

	"smallint":    {"int64", nil, pgcall.KindInt},
	"int2":        {"int64", nil, pgcall.KindInt},
	"integer":     {"int64", nil, pgcall.KindInt},
	"int":         {"int64", nil, pgcall.KindInt},
	"int4":        {"int64", nil, pgcall.KindInt},
	"bigint":      {"int64", nil, pgcall.KindInt},
	"int8":        {"int64", nil, pgcall.KindInt},
	"smallserial": {"int64", nil, pgcall.KindInt},
	"serial":      {"int64", nil, pgcall.KindInt},
	"bigserial":   {"int64", nil, pgcall.KindInt},
	"oid":         {"int64", nil, pgcall.KindInt},

	"real":             {"float64", nil, pgcall.KindFloat},
	"float4":           {"float64", nil, pgcall.KindFloat},
	"double precision": {"float64", nil, pgcall.KindFloat},
	"float8":           {"float64", nil, pgcall.KindFloat},

	"boolean": {"bool", nil, pgcall.KindBool},
	"bool":    {"bool", nil, pgcall.KindBool},

	"numeric": {"decimal.Decimal", []string{"github.com/shopspring/decimal"}, pgcall.KindNumeric},
	"decimal": {"decimal.Decimal", []string{"github.com/shopspring/decimal"}, pgcall.KindNumeric},

	"timestamp":                   {"time.Time", []string{"time"}, pgcall.KindTimestamp},
	"timestamp without time zone": {"time.Time", []string{"time"}, pgcall.KindTimestamp},
	"timestamp with time zone":    {"time.Time", []string{"time"}, pgcall.KindTimestamp},
	"timestamptz":                 {"time.Time", []string{"time"}, pgcall.KindTimestamp},
	"date":                        {"time.Time", []string{"time"}, pgcall.KindDate},

	// Time-of-day types have no Go counterpart and travel as text.
	"time":                   {"string", nil, pgcall.KindText},
	"time without time zone": {"string", nil, pgcall.KindText},
	"time with time zone":    {"string", nil, pgcall.KindText},
	"timetz":                 {"string", nil, pgcall.KindText},

	"interval": {"time.Duration", []string{"time"}, pgcall.KindInterval},

	"uuid": {"uuid.UUID", []string{"github.com/google/uuid"}, pgcall.KindUUID},

	"json":  {"json.RawMessage", []string{"encoding/json"}, pgcall.KindJSON},
	"jsonb": {"json.RawMessage", []string{"encoding/json"}, pgcall.KindJSON},

	"bytea": {"[]byte", nil, pgcall.KindBytes},

	"inet":     {"string", nil, pgcall.KindText},
	"cidr":     {"string", nil, pgcall.KindText},
	"macaddr":  {"string", nil, pgcall.KindText},
	"macaddr8": {"string", nil, pgcall.KindText},
	"tsvector": {"string", nil, pgcall.KindText},
	"tsquery":  {"string", nil, pgcall.KindText},
	"xml":      {"string", nil, pgcall.KindText},
	"money":    {"string", nil, pgcall.KindText},
}

// Map resolves a parsed SQL type to its Go rendering. One array level is
// supported; deeper nesting is flagged Unsupported and degrades to any.
func Map(sqlType string) GoType {
	base := sqlType
	dims := 0
	for strings.HasSuffix(base, "[]") {
		base = base[:len(base)-2]
		dims++
	}
	base = stripPrecision(base)

	if dims > 1 {
		return GoType{Name: "any", Kind: pgcall.KindOpaque, IsArray: true, Opaque: true, Unsupported: true}
	}

	e, ok := builtins[base]
	if !ok {
		return GoType{Name: "any", Kind: pgcall.KindOpaque, IsArray: dims == 1, Opaque: true}
	}
	if dims == 1 {
		// Arrays scan natively as whole values but cannot be recovered
		// from composite text output; the decoder rejects them.
		return GoType{Name: "[]" + e.goName, Imports: e.imports, Kind: pgcall.KindArray, IsArray: true}
	}
	return GoType{Name: e.goName, Imports: e.imports, Kind: e.kind}
}

// IsBuiltin reports whether base, already lowercased and stripped of
// precision and array suffixes, is a recognized scalar type name.
func IsBuiltin(base string) bool {
	if base == "void" {
		return true
	}
	_, ok := builtins[base]
	return ok
}

// stripPrecision removes a trailing precision group while keeping any
// words after it, so "timestamp(3) with time zone" keeps its modifier.
func stripPrecision(s string) string {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return strings.TrimSpace(s)
	}
	end := strings.IndexByte(s[open:], ')')
	if end < 0 {
		return strings.TrimSpace(s[:open])
	}
	rest := s[open+end+1:]
	return strings.TrimSpace(strings.TrimSpace(s[:open]) + rest)
}
