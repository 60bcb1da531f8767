// Package ir contains the intermediate representation for parsed PostgreSQL
// declarations: the statement scanner, the declaration parser, the schema
// registry, and the return-type resolver. The pipeline is two-pass: every
// declaration is accumulated into a Registry before any function return
// clause is resolved against it.
package ir

// ReturnKind classifies a function's return clause.
type ReturnKind string

const (
	ReturnVoid           ReturnKind = "VOID"
	ReturnScalar         ReturnKind = "SCALAR"
	ReturnRecord         ReturnKind = "RECORD"
	ReturnInlineTable    ReturnKind = "INLINE_TABLE"
	ReturnNamedComposite ReturnKind = "NAMED_COMPOSITE"
)

// Column represents a column in a table, composite type, or inline
// RETURNS TABLE(...) definition.
type Column struct {
	Name     string
	SQLType  string
	NotNull  bool
	Position int // zero-based ordinal within the declaration
}

// EnumType represents a CREATE TYPE ... AS ENUM declaration.
// Label order is preserved end-to-end; it drives generated constant order.
type EnumType struct {
	Name   string // as written in source, possibly schema-qualified
	Labels []string
}

// CompositeType represents a row shape: either a CREATE TYPE ... AS (...)
// declaration or the implicit row type of a CREATE TABLE. FromTable records
// the provenance; SETOF <name> is valid for both, but only tables back an
// actual relation.
type CompositeType struct {
	Name      string
	Columns   []Column
	FromTable bool
}

// ParamMode is the declared mode of a function parameter.
type ParamMode string

const (
	ParamIn       ParamMode = "IN"
	ParamOut      ParamMode = "OUT"
	ParamInOut    ParamMode = "INOUT"
	ParamVariadic ParamMode = "VARIADIC"
)

// Parameter represents a single function parameter.
type Parameter struct {
	Name       string // SQL name, e.g. "p_user_id"
	GoName     string // generated name with the p_/_ prefix stripped
	SQLType    string
	Mode       ParamMode
	Position   int
	HasDefault bool // DEFAULT present in SQL, including DEFAULT NULL
}

// ReturnSpec is the resolved classification of a return clause. SetOf wraps
// any kind except Void; cardinality is determined solely by the presence of
// SETOF in the clause.
type ReturnSpec struct {
	Kind  ReturnKind
	SetOf bool

	// TypeName is the referenced type name for NamedComposite returns and
	// for Scalar returns of a named type (enums, unresolved names).
	TypeName string

	// Columns is the materialized column list for InlineTable and resolved
	// NamedComposite returns.
	Columns []Column

	// Enum is set when the return resolves to an enum type.
	Enum *EnumType

	// Unresolved marks a name that could not be found in the registry and
	// degraded to the opaque type.
	Unresolved bool
}

// Function represents a parsed CREATE FUNCTION or CREATE PROCEDURE
// declaration. Returns is nil until the resolver has run.
type Function struct {
	Name         string // as written, possibly schema-qualified
	Parameters   []Parameter
	ReturnClause string // raw text between RETURNS and LANGUAGE/AS, empty for procedures
	Returns      *ReturnSpec
	Comment      string // attached doc comment, empty if none
	IsProcedure  bool
	Line         int
}

// BareName returns the function name without any schema qualifier.
func (f *Function) BareName() string {
	return bareName(f.Name)
}

func bareName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
