package ir

import (
	"fmt"
	"sort"
)

// Registry accumulates every declared type across all scanned files before
// return clauses are resolved. Names are stored as folded by the parser and
// additionally indexed by their unqualified form while that form is
// unambiguous, so a function may refer to "users" or "public.users"
// interchangeably. When two schemas claim the same bare name, the bare
// index entry is retired and only qualified references resolve.
// Re-registration of a name overwrites: the last declaration wins.
type Registry struct {
	composites map[string]*CompositeType
	enums      map[string]*EnumType
	bareComp   map[string]string // bare name -> registered key
	bareEnum   map[string]string
	ambComp    map[string]bool // bare names claimed by several schemas
	ambEnum    map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		composites: make(map[string]*CompositeType),
		enums:      make(map[string]*EnumType),
		bareComp:   make(map[string]string),
		bareEnum:   make(map[string]string),
		ambComp:    make(map[string]bool),
		ambEnum:    make(map[string]bool),
	}
}

// Add registers every declaration in decls. A name declared twice with a
// different shape produces a shape conflict diagnostic; the newer shape
// still replaces the older one.
func (r *Registry) Add(decls *Declarations) []Diagnostic {
	var diags []Diagnostic
	for _, ct := range decls.Tables {
		diags = append(diags, r.registerComposite(ct)...)
	}
	for _, ct := range decls.Composites {
		diags = append(diags, r.registerComposite(ct)...)
	}
	for _, e := range decls.Enums {
		diags = append(diags, r.registerEnum(e)...)
	}
	return diags
}

func (r *Registry) registerComposite(ct *CompositeType) []Diagnostic {
	var diags []Diagnostic
	if prev, ok := r.composites[ct.Name]; ok && !sameColumns(prev.Columns, ct.Columns) {
		diags = append(diags, Diagnostic{
			Code:    DiagShapeConflict,
			Message: fmt.Sprintf("type %s redeclared with a different shape; keeping the later declaration", ct.Name),
		})
	}
	r.composites[ct.Name] = ct
	diags = append(diags, indexBare(r.bareComp, r.ambComp, ct.Name)...)
	return diags
}

// indexBare maintains the unqualified index for a newly registered name.
// A bare form claimed by two different qualified names is ambiguous and
// retired from the index for good; an unqualified declaration never makes
// a qualified one ambiguous, since the exact lookup covers the bare form.
func indexBare(index map[string]string, ambiguous map[string]bool, name string) []Diagnostic {
	bare := bareName(name)
	if ambiguous[bare] {
		return nil
	}
	prev, ok := index[bare]
	switch {
	case !ok, prev == name, prev == bare:
		index[bare] = name
		return nil
	case name == bare:
		return nil
	}
	delete(index, bare)
	ambiguous[bare] = true
	return []Diagnostic{{
		Code: DiagShapeConflict,
		Message: fmt.Sprintf("bare name %s is ambiguous between %s and %s; only qualified references will resolve",
			bare, prev, name),
	}}
}

func (r *Registry) registerEnum(e *EnumType) []Diagnostic {
	var diags []Diagnostic
	if prev, ok := r.enums[e.Name]; ok && !sameLabels(prev.Labels, e.Labels) {
		diags = append(diags, Diagnostic{
			Code:    DiagShapeConflict,
			Message: fmt.Sprintf("enum %s redeclared with different labels; keeping the later declaration", e.Name),
		})
	}
	r.enums[e.Name] = e
	diags = append(diags, indexBare(r.bareEnum, r.ambEnum, e.Name)...)
	return diags
}

// LookupComposite resolves a type reference against registered tables and
// composite types, trying the exact name first and the unqualified form
// second.
func (r *Registry) LookupComposite(name string) (*CompositeType, bool) {
	if ct, ok := r.composites[name]; ok {
		return ct, true
	}
	if key, ok := r.bareComp[bareName(name)]; ok {
		return r.composites[key], true
	}
	return nil, false
}

// LookupEnum resolves an enum type reference.
func (r *Registry) LookupEnum(name string) (*EnumType, bool) {
	if e, ok := r.enums[name]; ok {
		return e, true
	}
	if key, ok := r.bareEnum[bareName(name)]; ok {
		return r.enums[key], true
	}
	return nil, false
}

// Enums returns all registered enums ordered by name, for deterministic
// generation of enum declarations.
func (r *Registry) Enums() []*EnumType {
	out := make([]*EnumType, 0, len(r.enums))
	for _, e := range r.enums {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sameColumns(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].SQLType != b[i].SQLType || a[i].NotNull != b[i].NotNull {
			return false
		}
	}
	return true
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
