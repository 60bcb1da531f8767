package codegen

import (
	"fmt"
	"strings"

	"github.com/pgwrap/pgwrap/internal/ir"
	"github.com/pgwrap/pgwrap/internal/typemap"
)

// paramPlan is one Go input parameter of a wrapper.
type paramPlan struct {
	p        ir.Parameter
	goType   string // type without the optional pointer
	enum     bool
	optional bool
}

func (g *Generator) writeFunction(w *strings.Builder, fn *ir.Function) error {
	name := pascal(fn.BareName())
	params := g.planParams(fn)
	ret := fn.Returns

	g.imports["context"] = true
	g.imports["github.com/pgwrap/pgwrap/pgcall"] = true

	g.writeDoc(w, name, fn)
	fmt.Fprintf(w, "func %s(ctx context.Context, q pgcall.Querier", name)
	for _, pp := range params {
		typ := pp.goType
		if pp.optional {
			typ = "*" + typ
		}
		fmt.Fprintf(w, ", %s %s", pp.p.GoName, typ)
	}
	w.WriteString(") (")
	w.WriteString(g.returnTypes(fn))
	w.WriteString(") {\n")

	g.writeCallSetup(w, fn, params)

	switch {
	case ret.Kind == ir.ReturnVoid:
		g.writeVoidBody(w, fn)
	case ret.Kind == ir.ReturnRecord:
		g.writeRecordBody(w, fn, nil)
	case ret.Kind == ir.ReturnScalar:
		g.writeScalarBody(w, fn)
	case ret.Unresolved:
		g.writeRecordBody(w, fn, g.planProvisional(ret.TypeName))
	default:
		g.writeCompositeBody(w, fn)
	}
	w.WriteString("}\n\n")
	return nil
}

func (g *Generator) writeDoc(w *strings.Builder, name string, fn *ir.Function) {
	kind := "function"
	if fn.IsProcedure {
		kind = "procedure"
	}
	fmt.Fprintf(w, "// %s wraps the %s database %s.\n", name, fn.Name, kind)
	if fn.Comment != "" {
		w.WriteString("//\n")
		for _, line := range strings.Split(fn.Comment, "\n") {
			if line == "" {
				w.WriteString("//\n")
			} else {
				fmt.Fprintf(w, "// %s\n", line)
			}
		}
	}
}

// planParams orders inputs: required parameters first in declaration
// order, then defaulted parameters as pointers, also in declaration order.
// OUT parameters are not inputs.
func (g *Generator) planParams(fn *ir.Function) []paramPlan {
	var required, optional []paramPlan
	for _, p := range fn.Parameters {
		if p.Mode == ir.ParamOut {
			continue
		}
		pp := paramPlan{p: p, optional: p.HasDefault}
		pp.goType, pp.enum = g.paramType(p)
		if pp.optional {
			optional = append(optional, pp)
		} else {
			required = append(required, pp)
		}
	}
	return append(required, optional...)
}

func (g *Generator) paramType(p ir.Parameter) (string, bool) {
	base, dims := splitDims(p.SQLType)
	if dims == 0 {
		if e, ok := g.reg.LookupEnum(base); ok {
			return g.goEnumName(e), true
		}
	}
	gt := typemap.Map(p.SQLType)
	for _, imp := range gt.Imports {
		g.imports[imp] = true
	}
	return gt.Name, false
}

func (g *Generator) writeCallSetup(w *strings.Builder, fn *ir.Function, params []paramPlan) {
	fmt.Fprintf(w, "\tcall := pgcall.NewCall(%q)\n", renderQualified(fn.Name))
	for _, pp := range params {
		argName := renderIdent(pp.p.Name)
		if pp.p.Mode == ir.ParamVariadic {
			argName = "VARIADIC " + argName
		}
		if pp.optional {
			fmt.Fprintf(w, "\tpgcall.Optional(call, %q, %s)\n", argName, pp.p.GoName)
		} else {
			fmt.Fprintf(w, "\tcall.Arg(%q, %s)\n", argName, pp.p.GoName)
		}
	}
}

// returnTypes renders the result list of the wrapper signature.
func (g *Generator) returnTypes(fn *ir.Function) string {
	ret := fn.Returns
	switch {
	case ret.Kind == ir.ReturnVoid:
		return "error"
	case ret.Kind == ir.ReturnRecord:
		if ret.SetOf {
			return "[][]any, error"
		}
		return "[]any, error"
	case ret.Kind == ir.ReturnScalar:
		typ := g.scalarType(ret)
		if ret.SetOf {
			return "[]" + typ + ", error"
		}
		if nilable(typ) {
			return typ + ", error"
		}
		return "*" + typ + ", error"
	case ret.Unresolved:
		p := g.planProvisional(ret.TypeName)
		if ret.SetOf {
			return "[]" + p.name + ", error"
		}
		return "*" + p.name + ", error"
	default:
		p := g.rowPlan(fn)
		if ret.SetOf {
			return "[]" + p.name + ", error"
		}
		return "*" + p.name + ", error"
	}
}

// scalarType resolves the Go element type for a scalar return.
func (g *Generator) scalarType(ret *ir.ReturnSpec) string {
	if ret.Enum != nil {
		return g.goEnumName(ret.Enum)
	}
	gt := typemap.Map(ret.TypeName)
	for _, imp := range gt.Imports {
		g.imports[imp] = true
	}
	return gt.Name
}

// nilable types carry NULL as their own zero and need no pointer wrapping.
func nilable(typ string) bool {
	return typ == "any" || strings.HasPrefix(typ, "[]") || typ == "json.RawMessage"
}

// rowPlan returns the struct plan backing a composite or inline table
// return.
func (g *Generator) rowPlan(fn *ir.Function) *structPlan {
	ret := fn.Returns
	if ret.Kind == ir.ReturnNamedComposite {
		if ct, ok := g.reg.LookupComposite(ret.TypeName); ok {
			return g.planNamed(ct, false)
		}
		return g.planProvisional(ret.TypeName)
	}
	return g.planShape(pascal(fn.BareName())+"Row", ret.Columns)
}

func (g *Generator) errWrap(fn *ir.Function, what string) string {
	g.imports["fmt"] = true
	if what == "" {
		return fmt.Sprintf("fmt.Errorf(%q, err)", fn.BareName()+": %w")
	}
	return fmt.Sprintf("fmt.Errorf(%q, err)", fn.BareName()+": "+what+": %w")
}

func (g *Generator) writeVoidBody(w *strings.Builder, fn *ir.Function) {
	fmt.Fprintf(w, "\tif _, err := q.Exec(ctx, call.ExecStatement(%t), call.Args()...); err != nil {\n", fn.IsProcedure)
	fmt.Fprintf(w, "\t\treturn %s\n\t}\n\treturn nil\n", g.errWrap(fn, ""))
}

// writeRecordBody handles record returns and provisional structs; both
// materialize rows through Values.
func (g *Generator) writeRecordBody(w *strings.Builder, fn *ir.Function, prov *structPlan) {
	ret := fn.Returns
	stmt := "call.Select()"
	if prov != nil {
		stmt = "call.SelectFrom()"
	}
	fmt.Fprintf(w, "\trows, err := q.Query(ctx, %s, call.Args()...)\n", stmt)
	fmt.Fprintf(w, "\tif err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
	w.WriteString("\tdefer rows.Close()\n")

	if ret.SetOf {
		elem := "[]any"
		if prov != nil {
			elem = prov.name
		}
		fmt.Fprintf(w, "\tout := []%s{}\n", elem)
		w.WriteString("\tfor rows.Next() {\n")
		w.WriteString("\t\tvals, err := rows.Values()\n")
		fmt.Fprintf(w, "\t\tif err != nil {\n\t\t\treturn nil, %s\n\t\t}\n", g.errWrap(fn, ""))
		if prov != nil {
			fmt.Fprintf(w, "\t\tout = append(out, %s{Raw: vals})\n", prov.name)
		} else {
			w.WriteString("\t\tout = append(out, vals)\n")
		}
		w.WriteString("\t}\n")
		fmt.Fprintf(w, "\tif err := rows.Err(); err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
		w.WriteString("\treturn out, nil\n")
		return
	}

	w.WriteString("\tif !rows.Next() {\n")
	fmt.Fprintf(w, "\t\tif err := rows.Err(); err != nil {\n\t\t\treturn nil, %s\n\t\t}\n", g.errWrap(fn, ""))
	w.WriteString("\t\treturn nil, nil\n\t}\n")
	w.WriteString("\tvals, err := rows.Values()\n")
	fmt.Fprintf(w, "\tif err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
	if prov != nil {
		fmt.Fprintf(w, "\treturn &%s{Raw: vals}, nil\n", prov.name)
	} else {
		w.WriteString("\treturn vals, nil\n")
	}
}

func (g *Generator) writeScalarBody(w *strings.Builder, fn *ir.Function) {
	ret := fn.Returns
	typ := g.scalarType(ret)

	if ret.SetOf {
		fmt.Fprintf(w, "\trows, err := q.Query(ctx, call.Select(), call.Args()...)\n")
		fmt.Fprintf(w, "\tif err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
		w.WriteString("\tdefer rows.Close()\n")
		fmt.Fprintf(w, "\tout := []%s{}\n", typ)
		w.WriteString("\tfor rows.Next() {\n")
		if ret.Enum != nil {
			w.WriteString("\t\tvar v string\n")
		} else {
			fmt.Fprintf(w, "\t\tvar v %s\n", typ)
		}
		fmt.Fprintf(w, "\t\tif err := rows.Scan(&v); err != nil {\n\t\t\treturn nil, %s\n\t\t}\n", g.errWrap(fn, ""))
		if ret.Enum != nil {
			fmt.Fprintf(w, "\t\tout = append(out, %s(v))\n", typ)
		} else {
			w.WriteString("\t\tout = append(out, v)\n")
		}
		w.WriteString("\t}\n")
		fmt.Fprintf(w, "\tif err := rows.Err(); err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
		w.WriteString("\treturn out, nil\n")
		return
	}

	g.imports["errors"] = true
	g.imports["github.com/jackc/pgx/v5"] = true
	if ret.Enum != nil || !nilable(typ) {
		if ret.Enum != nil {
			w.WriteString("\tvar v *string\n")
		} else {
			fmt.Fprintf(w, "\tvar v *%s\n", typ)
		}
	} else {
		fmt.Fprintf(w, "\tvar v %s\n", typ)
	}
	w.WriteString("\tif err := q.QueryRow(ctx, call.Select(), call.Args()...).Scan(&v); err != nil {\n")
	w.WriteString("\t\tif errors.Is(err, pgx.ErrNoRows) {\n\t\t\treturn nil, nil\n\t\t}\n")
	fmt.Fprintf(w, "\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
	switch {
	case ret.Enum != nil:
		w.WriteString("\tif v == nil {\n\t\treturn nil, nil\n\t}\n")
		fmt.Fprintf(w, "\te := %s(*v)\n\treturn &e, nil\n", typ)
	default:
		w.WriteString("\treturn v, nil\n")
	}
}

func (g *Generator) writeCompositeBody(w *strings.Builder, fn *ir.Function) {
	ret := fn.Returns
	plan := g.rowPlan(fn)

	if ret.SetOf {
		w.WriteString("\trows, err := q.Query(ctx, call.SelectFrom(), call.Args()...)\n")
		fmt.Fprintf(w, "\tif err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
		w.WriteString("\tdefer rows.Close()\n")
		fmt.Fprintf(w, "\tout := []%s{}\n", plan.name)
		w.WriteString("\tfor rows.Next() {\n")
		g.writeHolders(w, plan, "\t\t")
		w.WriteString("\t\tif err := rows.Scan(" + scanRefs(plan) + "); err != nil {\n")
		fmt.Fprintf(w, "\t\t\treturn nil, %s\n\t\t}\n", g.errWrap(fn, ""))
		fmt.Fprintf(w, "\t\titem := %s{}\n", plan.name)
		g.writeAssignments(w, fn, plan, "item", "\t\t")
		w.WriteString("\t\tout = append(out, item)\n")
		w.WriteString("\t}\n")
		fmt.Fprintf(w, "\tif err := rows.Err(); err != nil {\n\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))
		w.WriteString("\treturn out, nil\n")
		return
	}

	g.imports["errors"] = true
	g.imports["github.com/jackc/pgx/v5"] = true
	w.WriteString("\trow := q.QueryRow(ctx, call.SelectFrom(), call.Args()...)\n")
	g.writeHolders(w, plan, "\t")
	w.WriteString("\tif err := row.Scan(" + scanRefs(plan) + "); err != nil {\n")
	w.WriteString("\t\tif errors.Is(err, pgx.ErrNoRows) {\n\t\t\treturn nil, nil\n\t\t}\n")
	fmt.Fprintf(w, "\t\treturn nil, %s\n\t}\n", g.errWrap(fn, ""))

	// A function declared to return a single composite yields one row of
	// all NULLs when it finds nothing; collapse that row to nil.
	var checks []string
	for i := range plan.fields {
		checks = append(checks, fmt.Sprintf("v%d == nil", i))
	}
	fmt.Fprintf(w, "\tif %s {\n\t\treturn nil, nil\n\t}\n", strings.Join(checks, " && "))

	fmt.Fprintf(w, "\tout := %s{}\n", plan.name)
	g.writeAssignments(w, fn, plan, "out", "\t")
	w.WriteString("\treturn &out, nil\n")
}

// writeHolders declares one scan target per column. Enum and composite
// columns travel as text and convert after the scan.
func (g *Generator) writeHolders(w *strings.Builder, plan *structPlan, indent string) {
	for i, f := range plan.fields {
		switch {
		case f.nested != nil, f.enum != "":
			fmt.Fprintf(w, "%svar v%d *string\n", indent, i)
		case f.base == "any":
			fmt.Fprintf(w, "%svar v%d any\n", indent, i)
		case f.slice:
			fmt.Fprintf(w, "%svar v%d %s\n", indent, i, f.base)
		default:
			fmt.Fprintf(w, "%svar v%d *%s\n", indent, i, f.base)
		}
	}
}

func scanRefs(plan *structPlan) string {
	refs := make([]string, len(plan.fields))
	for i := range plan.fields {
		refs[i] = fmt.Sprintf("&v%d", i)
	}
	return strings.Join(refs, ", ")
}

// writeAssignments moves scanned holders into the struct fields, applying
// NOT NULL dereferencing, enum casting, and nested composite decoding.
func (g *Generator) writeAssignments(w *strings.Builder, fn *ir.Function, plan *structPlan, target, indent string) {
	for i, f := range plan.fields {
		switch {
		case f.nested != nil:
			fmt.Fprintf(w, "%sif v%d != nil {\n", indent, i)
			fmt.Fprintf(w, "%s\tvals, err := pgcall.Decode(*v%d, %sFields)\n", indent, i, lowerCamel(f.nested.name))
			fmt.Fprintf(w, "%s\tif err != nil {\n%s\t\treturn nil, %s\n%s\t}\n",
				indent, indent, g.errWrap(fn, "decode "+f.col.Name), indent)
			fmt.Fprintf(w, "%s\tif !pgcall.AllNull(vals) {\n", indent)
			fmt.Fprintf(w, "%s\t\t%s.%s = build%s(vals)\n%s\t}\n%s}\n",
				indent, target, f.name, f.nested.name, indent, indent)
		case f.enum != "" && f.pointer:
			fmt.Fprintf(w, "%sif v%d != nil {\n", indent, i)
			fmt.Fprintf(w, "%s\te := %s(*v%d)\n%s\t%s.%s = &e\n%s}\n",
				indent, f.enum, i, indent, target, f.name, indent)
		case f.enum != "":
			fmt.Fprintf(w, "%s%s.%s = %s(pgcall.Deref(v%d))\n", indent, target, f.name, f.enum, i)
		case f.base == "any", f.slice:
			fmt.Fprintf(w, "%s%s.%s = v%d\n", indent, target, f.name, i)
		case f.pointer:
			fmt.Fprintf(w, "%s%s.%s = v%d\n", indent, target, f.name, i)
		default:
			fmt.Fprintf(w, "%s%s.%s = pgcall.Deref(v%d)\n", indent, target, f.name, i)
		}
	}
}
