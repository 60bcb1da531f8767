// Package codegen renders the resolved declarations into a single Go
// source file: enum types, row structs, field tables for composite
// decoding, and one wrapper function per SQL function.
package codegen

import (
	"fmt"
	"go/format"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/pgwrap/pgwrap/internal/ir"
	"github.com/pgwrap/pgwrap/internal/typemap"
	"github.com/pgwrap/pgwrap/pgcall"
)

// Options configures one generation run.
type Options struct {
	// Package is the package name of the generated file.
	Package string

	// Sources lists the input file names recorded in the header comment.
	Sources []string

	// AllowMissing emits provisional structs for return types that were
	// not declared in any provided schema.
	AllowMissing bool
}

// Generator accumulates planned output while walking the declarations.
type Generator struct {
	opts Options
	reg  *ir.Registry

	imports map[string]bool
	diags   []ir.Diagnostic

	structs     []*structPlan
	structIndex map[string]*structPlan
	shapeIndex  map[string]*structPlan
	enumIndex   map[string]string
}

type structPlan struct {
	name        string
	sqlName     string
	fields      []fieldSpec
	provisional bool
	needsTable  bool // referenced as a nested composite column
}

type fieldSpec struct {
	col     ir.Column
	name    string
	base    string // element type without pointer
	kind    pgcall.Kind
	enum    string // Go enum type name, "" otherwise
	labels  []string
	nested  *structPlan
	slice   bool
	pointer bool
	opaque  bool
}

// typeExpr renders the struct field type.
func (f fieldSpec) typeExpr() string {
	if f.nested != nil {
		return "*" + f.nested.name
	}
	if f.pointer {
		return "*" + f.base
	}
	return f.base
}

func New(opts Options, reg *ir.Registry) *Generator {
	if opts.Package == "" {
		opts.Package = "db"
	}
	return &Generator{
		opts:        opts,
		reg:         reg,
		imports:     make(map[string]bool),
		structIndex: make(map[string]*structPlan),
		shapeIndex:  make(map[string]*structPlan),
		enumIndex:   make(map[string]string),
	}
}

// Generate renders the file for the given functions. Functions without a
// resolved return spec are skipped. The emitted source is gofmt-formatted.
func (g *Generator) Generate(fns []*ir.Function) ([]byte, []ir.Diagnostic, error) {
	for _, e := range g.reg.Enums() {
		g.enumIndex[e.Name] = pascal(bare(e.Name))
	}

	var body strings.Builder
	for _, fn := range fns {
		if fn.Returns == nil {
			continue
		}
		if err := g.writeFunction(&body, fn); err != nil {
			return nil, g.diags, err
		}
	}

	// Types and enums render after the functions so that every plan and
	// import they triggered is known, but appear first in the file.
	var types strings.Builder
	g.writeEnums(&types)
	g.writeStructs(&types)

	var out strings.Builder
	g.writeHeader(&out)
	g.writeImports(&out)
	out.WriteString(types.String())
	out.WriteString(body.String())

	src, err := format.Source([]byte(out.String()))
	if err != nil {
		return nil, g.diags, fmt.Errorf("formatting generated code: %w", err)
	}
	return src, g.diags, nil
}

func (g *Generator) writeHeader(w *strings.Builder) {
	from := ""
	if len(g.opts.Sources) > 0 {
		from = " from " + strings.Join(g.opts.Sources, ", ")
	}
	fmt.Fprintf(w, "// Code generated by pgwrap%s. DO NOT EDIT.\n\n", from)
	fmt.Fprintf(w, "package %s\n\n", g.opts.Package)
}

func (g *Generator) writeImports(w *strings.Builder) {
	if len(g.imports) == 0 {
		return
	}
	var std, ext []string
	for path := range g.imports {
		if strings.Contains(path, ".") {
			ext = append(ext, path)
		} else {
			std = append(std, path)
		}
	}
	sort.Strings(std)
	sort.Strings(ext)

	w.WriteString("import (\n")
	for _, p := range std {
		fmt.Fprintf(w, "\t%q\n", p)
	}
	if len(std) > 0 && len(ext) > 0 {
		w.WriteString("\n")
	}
	for _, p := range ext {
		fmt.Fprintf(w, "\t%q\n", p)
	}
	w.WriteString(")\n\n")
}

func (g *Generator) writeEnums(w *strings.Builder) {
	for _, e := range g.reg.Enums() {
		goName := g.enumIndex[e.Name]
		fmt.Fprintf(w, "// %s mirrors the %s enum type.\n", goName, e.Name)
		fmt.Fprintf(w, "type %s string\n\n", goName)

		w.WriteString("const (\n")
		for _, label := range e.Labels {
			fmt.Fprintf(w, "\t%s%s %s = %q\n", goName, pascal(label), goName, label)
		}
		w.WriteString(")\n\n")

		fmt.Fprintf(w, "// %sValues lists the labels in declaration order.\n", goName)
		fmt.Fprintf(w, "func %sValues() []%s {\n\treturn []%s{", goName, goName, goName)
		for i, label := range e.Labels {
			if i > 0 {
				w.WriteString(", ")
			}
			w.WriteString(goName + pascal(label))
		}
		w.WriteString("}\n}\n\n")

		g.imports["fmt"] = true
		fmt.Fprintf(w, "// Parse%s validates s against the declared labels.\n", goName)
		fmt.Fprintf(w, "func Parse%s(s string) (%s, error) {\n", goName, goName)
		fmt.Fprintf(w, "\tfor _, v := range %sValues() {\n", goName)
		w.WriteString("\t\tif string(v) == s {\n\t\t\treturn v, nil\n\t\t}\n\t}\n")
		fmt.Fprintf(w, "\treturn \"\", fmt.Errorf(\"invalid %s: %%q\", s)\n}\n\n", e.Name)
	}
}

func (g *Generator) writeStructs(w *strings.Builder) {
	for _, p := range g.structs {
		if p.provisional {
			fmt.Fprintf(w, "// %s is a provisional shape for %q; no declaration was\n", p.name, p.sqlName)
			w.WriteString("// found in the provided schemas.\n")
			fmt.Fprintf(w, "type %s struct {\n\tRaw []any\n}\n\n", p.name)
			continue
		}
		fmt.Fprintf(w, "// %s is the row type for %s.\n", p.name, p.sqlName)
		fmt.Fprintf(w, "type %s struct {\n", p.name)
		for _, f := range p.fields {
			fmt.Fprintf(w, "\t%s %s\n", f.name, f.typeExpr())
		}
		w.WriteString("}\n\n")

		if p.needsTable {
			g.writeFieldTable(w, p)
			g.writeBuilder(w, p)
		}
	}
}

func (g *Generator) writeFieldTable(w *strings.Builder, p *structPlan) {
	g.imports["github.com/pgwrap/pgwrap/pgcall"] = true
	fmt.Fprintf(w, "var %sFields = []pgcall.Field{\n", lowerCamel(p.name))
	for _, f := range p.fields {
		if f.kind == pgcall.KindArray {
			g.diags = append(g.diags, ir.Diagnostic{
				Code: ir.DiagUnsupportedShape,
				Message: fmt.Sprintf("column %s of %s: arrays cannot be decoded from a nested composite literal",
					f.col.Name, p.sqlName),
			})
		}
		fmt.Fprintf(w, "\t{Name: %q, Kind: pgcall.%s", f.col.Name, kindConst(f.kind))
		if len(f.labels) > 0 {
			w.WriteString(", Labels: []string{")
			for i, l := range f.labels {
				if i > 0 {
					w.WriteString(", ")
				}
				fmt.Fprintf(w, "%q", l)
			}
			w.WriteString("}")
		}
		if f.nested != nil {
			fmt.Fprintf(w, ", Fields: %sFields", lowerCamel(f.nested.name))
		}
		w.WriteString("},\n")
	}
	w.WriteString("}\n\n")
}

// writeBuilder emits the assembly of a struct from decoded composite
// values. Missing or mistyped positions leave the field at its zero value.
func (g *Generator) writeBuilder(w *strings.Builder, p *structPlan) {
	fmt.Fprintf(w, "func build%s(vals []any) *%s {\n", p.name, p.name)
	fmt.Fprintf(w, "\tout := &%s{}\n", p.name)
	for i, f := range p.fields {
		switch {
		case f.nested != nil:
			fmt.Fprintf(w, "\tif v, ok := vals[%d].([]any); ok {\n", i)
			fmt.Fprintf(w, "\t\tout.%s = build%s(v)\n\t}\n", f.name, f.nested.name)
		case f.enum != "":
			fmt.Fprintf(w, "\tif v, ok := vals[%d].(string); ok {\n", i)
			if f.pointer {
				fmt.Fprintf(w, "\t\te := %s(v)\n\t\tout.%s = &e\n\t}\n", f.enum, f.name)
			} else {
				fmt.Fprintf(w, "\t\tout.%s = %s(v)\n\t}\n", f.name, f.enum)
			}
		case f.base == "any":
			fmt.Fprintf(w, "\tout.%s = vals[%d]\n", f.name, i)
		case f.kind == pgcall.KindArray:
			// Strict decoding rejects arrays before the builder runs;
			// lenient decoding leaves the field at its zero value.
		default:
			fmt.Fprintf(w, "\tif v, ok := vals[%d].(%s); ok {\n", i, dynamicType(f.kind))
			if f.pointer {
				fmt.Fprintf(w, "\t\tout.%s = &v\n\t}\n", f.name)
			} else {
				fmt.Fprintf(w, "\t\tout.%s = v\n\t}\n", f.name)
			}
		}
	}
	w.WriteString("\treturn out\n}\n\n")
}

// dynamicType is the Go type held in a decoded []any slot for each kind.
func dynamicType(k pgcall.Kind) string {
	switch k {
	case pgcall.KindInt:
		return "int64"
	case pgcall.KindFloat:
		return "float64"
	case pgcall.KindBool:
		return "bool"
	case pgcall.KindNumeric:
		return "decimal.Decimal"
	case pgcall.KindTimestamp, pgcall.KindDate:
		return "time.Time"
	case pgcall.KindUUID:
		return "uuid.UUID"
	case pgcall.KindJSON:
		return "json.RawMessage"
	case pgcall.KindBytes:
		return "[]byte"
	case pgcall.KindInterval:
		return "time.Duration"
	default:
		return "string"
	}
}

func kindConst(k pgcall.Kind) string {
	switch k {
	case pgcall.KindText:
		return "KindText"
	case pgcall.KindInt:
		return "KindInt"
	case pgcall.KindFloat:
		return "KindFloat"
	case pgcall.KindBool:
		return "KindBool"
	case pgcall.KindNumeric:
		return "KindNumeric"
	case pgcall.KindTimestamp:
		return "KindTimestamp"
	case pgcall.KindDate:
		return "KindDate"
	case pgcall.KindUUID:
		return "KindUUID"
	case pgcall.KindJSON:
		return "KindJSON"
	case pgcall.KindBytes:
		return "KindBytes"
	case pgcall.KindInterval:
		return "KindInterval"
	case pgcall.KindEnum:
		return "KindEnum"
	case pgcall.KindComposite:
		return "KindComposite"
	case pgcall.KindArray:
		return "KindArray"
	default:
		return "KindOpaque"
	}
}

// planNamed returns the struct plan for a registered composite or table,
// creating it on first use.
func (g *Generator) planNamed(ct *ir.CompositeType, nested bool) *structPlan {
	name := pascal(bare(ct.Name))
	if ct.FromTable {
		name = singularPascal(bare(ct.Name))
	}
	if p, ok := g.structIndex[name]; ok {
		if nested {
			p.needsTable = true
		}
		return p
	}
	p := &structPlan{name: name, sqlName: ct.Name, needsTable: nested}
	g.structIndex[name] = p
	g.structs = append(g.structs, p)
	p.fields = g.planFields(ct.Columns)
	return p
}

// planShape returns a struct plan for an ad-hoc column list, reusing an
// existing plan when an identical shape was already emitted.
func (g *Generator) planShape(preferredName string, cols []ir.Column) *structPlan {
	sig := shapeSignature(cols)
	if p, ok := g.shapeIndex[sig]; ok {
		return p
	}
	name := preferredName
	for i := 2; ; i++ {
		if _, taken := g.structIndex[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s%d", preferredName, i)
	}
	p := &structPlan{name: name, sqlName: preferredName}
	g.structIndex[name] = p
	g.shapeIndex[sig] = p
	g.structs = append(g.structs, p)
	p.fields = g.planFields(cols)
	return p
}

// planProvisional returns an empty placeholder plan for an unresolved name.
func (g *Generator) planProvisional(sqlName string) *structPlan {
	name := singularPascal(bare(sqlName))
	if p, ok := g.structIndex[name]; ok {
		return p
	}
	p := &structPlan{name: name, sqlName: sqlName, provisional: true}
	g.structIndex[name] = p
	g.structs = append(g.structs, p)
	return p
}

func (g *Generator) planFields(cols []ir.Column) []fieldSpec {
	fields := make([]fieldSpec, 0, len(cols))
	for _, col := range cols {
		fields = append(fields, g.planField(col))
	}
	return fields
}

func (g *Generator) planField(col ir.Column) fieldSpec {
	f := fieldSpec{col: col, name: pascal(col.Name)}
	base, dims := splitDims(col.SQLType)

	if dims == 0 {
		if e, ok := g.reg.LookupEnum(base); ok {
			f.enum = g.goEnumName(e)
			f.base = f.enum
			f.kind = pgcall.KindEnum
			f.labels = e.Labels
			f.pointer = !col.NotNull
			return f
		}
		if ct, ok := g.reg.LookupComposite(base); ok && !typemap.IsBuiltin(base) {
			f.nested = g.planNamed(ct, true)
			f.kind = pgcall.KindComposite
			return f
		}
	}

	gt := typemap.Map(col.SQLType)
	if gt.Unsupported {
		g.diags = append(g.diags, ir.Diagnostic{
			Code:    ir.DiagUnsupportedShape,
			Message: fmt.Sprintf("column %s: type %s degrades to any", col.Name, col.SQLType),
		})
	}
	for _, imp := range gt.Imports {
		g.imports[imp] = true
	}
	f.base = gt.Name
	f.kind = gt.Kind
	f.opaque = gt.Opaque
	f.slice = gt.IsArray || strings.HasPrefix(gt.Name, "[]") || gt.Name == "json.RawMessage"
	f.pointer = !col.NotNull && !f.slice && gt.Name != "any"
	return f
}

func (g *Generator) goEnumName(e *ir.EnumType) string {
	if name, ok := g.enumIndex[e.Name]; ok {
		return name
	}
	name := pascal(bare(e.Name))
	g.enumIndex[e.Name] = name
	return name
}

func splitDims(sqlType string) (string, int) {
	base := sqlType
	dims := 0
	for strings.HasSuffix(base, "[]") {
		base = base[:len(base)-2]
		dims++
	}
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	return base, dims
}

func shapeSignature(cols []ir.Column) string {
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%s|%s|%t;", c.Name, c.SQLType, c.NotNull)
	}
	return b.String()
}

// renderIdent quotes an identifier segment only when it would not survive
// unquoted.
func renderIdent(s string) string {
	if plainIdent(s) {
		return s
	}
	return pq.QuoteIdentifier(s)
}

// renderQualified renders a possibly schema-qualified name for use in a
// statement.
func renderQualified(name string) string {
	segs := strings.Split(name, ".")
	for i, s := range segs {
		segs[i] = renderIdent(s)
	}
	return strings.Join(segs, ".")
}

func plainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
