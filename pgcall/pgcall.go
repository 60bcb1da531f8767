// Package pgcall is the runtime support library for generated wrappers. It
// provides the query interface the wrappers run against, the field tables
// that describe composite row shapes, and a decoder for PostgreSQL
// composite literals of the form (v1,v2,...).
package pgcall

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by generated wrappers. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Kind identifies the decode strategy for one field of a composite value.
// Generated code emits explicit Field tables; nothing here is derived from
// reflection.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindNumeric
	KindTimestamp
	KindDate
	KindUUID
	KindJSON
	KindBytes
	KindInterval
	KindEnum
	KindComposite
	KindOpaque
	KindArray
)

var kindNames = map[Kind]string{
	KindText:      "text",
	KindInt:       "int",
	KindFloat:     "float",
	KindBool:      "bool",
	KindNumeric:   "numeric",
	KindTimestamp: "timestamp",
	KindDate:      "date",
	KindUUID:      "uuid",
	KindJSON:      "json",
	KindBytes:     "bytes",
	KindInterval:  "interval",
	KindEnum:      "enum",
	KindComposite: "composite",
	KindOpaque:    "opaque",
	KindArray:     "array",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field describes one position of a composite value.
type Field struct {
	Name   string
	Kind   Kind
	Labels []string // valid labels for KindEnum
	Fields []Field  // element shape for KindComposite
}

// Deref returns the value behind p, or the zero value when p is nil. It is
// used by generated code when a column declared NOT NULL is scanned through
// a nullable holder.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// AllNull reports whether every decoded value is nil.
func AllNull(vals []any) bool {
	for _, v := range vals {
		if v != nil {
			return false
		}
	}
	return true
}

// Call accumulates named arguments for a function or procedure invocation
// and renders the final statement. Omitted arguments fall back to their
// SQL defaults.
type Call struct {
	name  string
	parts []string
	args  []any
}

// NewCall starts a call to the given function. The name must already be
// rendered, including any schema qualifier or identifier quoting.
func NewCall(name string) *Call {
	return &Call{name: name}
}

// Arg appends one named argument.
func (c *Call) Arg(name string, v any) *Call {
	c.args = append(c.args, v)
	c.parts = append(c.parts, fmt.Sprintf("%s => $%d", name, len(c.args)))
	return c
}

// Optional appends the argument only when v is non-nil, so the function's
// declared DEFAULT applies otherwise.
func Optional[T any](c *Call, name string, v *T) *Call {
	if v != nil {
		c.Arg(name, *v)
	}
	return c
}

// Args returns the collected positional argument values.
func (c *Call) Args() []any {
	return c.args
}

func (c *Call) argList() string {
	return strings.Join(c.parts, ", ")
}

// Select renders "SELECT name(args)", used for scalar and record returns.
func (c *Call) Select() string {
	return "SELECT " + c.name + "(" + c.argList() + ")"
}

// SelectFrom renders "SELECT * FROM name(args)", used for composite and
// table returns so that each column arrives separately.
func (c *Call) SelectFrom() string {
	return "SELECT * FROM " + c.name + "(" + c.argList() + ")"
}

// ExecStatement renders "CALL name(args)" for procedures and
// "SELECT name(args)" otherwise.
func (c *Call) ExecStatement(procedure bool) string {
	if procedure {
		return "CALL " + c.name + "(" + c.argList() + ")"
	}
	return c.Select()
}
