package ir

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	setofRe       = regexp.MustCompile(`(?is)^SETOF\s+`)
	inlineTableRe = regexp.MustCompile(`(?is)^TABLE\s*\(`)
)

// ResolveOptions controls return clause resolution.
type ResolveOptions struct {
	// AllowMissing turns unresolved composite references into provisional
	// named composites with no columns instead of opaque scalars.
	AllowMissing bool

	// KnownScalar reports whether a type name (without array suffix or
	// precision) is a recognized scalar. When nil every unregistered name
	// is considered unresolved.
	KnownScalar func(string) bool
}

// Resolve classifies the return clause of every function against the
// registry and fills in Function.Returns. Functions whose return shape
// cannot be wrapped, such as trigger functions, end up with a nil Returns
// and a diagnostic.
func Resolve(fns []*Function, reg *Registry, opts ResolveOptions) []Diagnostic {
	var diags []Diagnostic
	for _, fn := range fns {
		spec, ds := resolveOne(fn, reg, opts)
		fn.Returns = spec
		diags = append(diags, ds...)
	}
	return diags
}

func resolveOne(fn *Function, reg *Registry, opts ResolveOptions) (*ReturnSpec, []Diagnostic) {
	clause := strings.TrimSpace(fn.ReturnClause)
	if clause == "" {
		return &ReturnSpec{Kind: ReturnVoid}, nil
	}

	setOf := false
	if loc := setofRe.FindStringIndex(clause); loc != nil {
		setOf = true
		clause = strings.TrimSpace(clause[loc[1]:])
	}

	lower := strings.ToLower(clause)
	switch lower {
	case "void":
		if setOf {
			return &ReturnSpec{Kind: ReturnVoid}, []Diagnostic{{
				Code:    DiagSyntaxIrregularity,
				Message: fmt.Sprintf("function %s: SETOF void treated as void", fn.Name),
				Line:    fn.Line,
			}}
		}
		return &ReturnSpec{Kind: ReturnVoid}, nil
	case "record":
		return &ReturnSpec{Kind: ReturnRecord, SetOf: setOf}, nil
	case "trigger", "event_trigger":
		return nil, []Diagnostic{{
			Code:    DiagUnsupportedShape,
			Message: fmt.Sprintf("function %s: %s functions are not wrapped", fn.Name, lower),
			Line:    fn.Line,
		}}
	}

	if m := inlineTableRe.FindStringIndex(clause); m != nil {
		body, err := parenBody(clause, m[1]-1)
		if err != nil {
			return nil, []Diagnostic{{
				Code:    DiagSyntaxIrregularity,
				Message: fmt.Sprintf("function %s: malformed TABLE clause: %v", fn.Name, err),
				Line:    fn.Line,
			}}
		}
		cols, err := parseColumns(body)
		if err != nil {
			return nil, []Diagnostic{{
				Code:    DiagSyntaxIrregularity,
				Message: fmt.Sprintf("function %s: %v", fn.Name, err),
				Line:    fn.Line,
			}}
		}
		if len(cols) == 0 {
			return nil, []Diagnostic{{
				Code:    DiagUnsupportedShape,
				Message: fmt.Sprintf("function %s: TABLE clause declares no columns", fn.Name),
				Line:    fn.Line,
			}}
		}
		return &ReturnSpec{Kind: ReturnInlineTable, SetOf: setOf, Columns: cols}, nil
	}

	name := foldIdent(clause)
	if ct, ok := reg.LookupComposite(name); ok {
		if len(ct.Columns) == 0 {
			return nil, []Diagnostic{{
				Code:    DiagUnsupportedShape,
				Message: fmt.Sprintf("function %s: %s declares no columns to scan", fn.Name, ct.Name),
				Line:    fn.Line,
			}}
		}
		return &ReturnSpec{
			Kind:     ReturnNamedComposite,
			SetOf:    setOf,
			TypeName: ct.Name,
			Columns:  ct.Columns,
		}, nil
	}
	if e, ok := reg.LookupEnum(name); ok {
		return &ReturnSpec{
			Kind:     ReturnScalar,
			SetOf:    setOf,
			TypeName: e.Name,
			Enum:     e,
		}, nil
	}

	if opts.KnownScalar != nil && opts.KnownScalar(scalarBase(name)) {
		return &ReturnSpec{Kind: ReturnScalar, SetOf: setOf, TypeName: name}, nil
	}

	diag := Diagnostic{
		Code:    DiagUnresolvedReference,
		Message: fmt.Sprintf("function %s: return type %s is not declared in any provided schema", fn.Name, name),
		Line:    fn.Line,
	}
	if opts.AllowMissing {
		return &ReturnSpec{
			Kind:       ReturnNamedComposite,
			SetOf:      setOf,
			TypeName:   name,
			Unresolved: true,
		}, []Diagnostic{diag}
	}
	return &ReturnSpec{
		Kind:       ReturnScalar,
		SetOf:      setOf,
		TypeName:   name,
		Unresolved: true,
	}, []Diagnostic{diag}
}

// scalarBase strips array suffixes and a precision group from a type name
// before the scalar lookup: "varchar(100)[]" has base "varchar".
func scalarBase(name string) string {
	for strings.HasSuffix(name, "[]") {
		name = name[:len(name)-2]
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
