package ir

import "testing"

func buildRegistry(t *testing.T, sql string) (*Registry, []Diagnostic) {
	t.Helper()
	decls, diags := Parse(Scan(sql))
	if len(diags) != 0 {
		t.Fatalf("Parse() diagnostics: %v", diags)
	}
	r := NewRegistry()
	return r, r.Add(decls)
}

func TestRegistryLookupByBareName(t *testing.T) {
	r, diags := buildRegistry(t, `CREATE TABLE public.users (id bigint PRIMARY KEY, email text NOT NULL);`)
	if len(diags) != 0 {
		t.Fatalf("Add() diagnostics: %v", diags)
	}
	for _, name := range []string{"public.users", "users"} {
		ct, ok := r.LookupComposite(name)
		if !ok {
			t.Fatalf("LookupComposite(%q) not found", name)
		}
		if len(ct.Columns) != 2 {
			t.Errorf("LookupComposite(%q) returned %d columns, want 2", name, len(ct.Columns))
		}
	}
}

func TestRegistryLastWriteWins(t *testing.T) {
	r, diags := buildRegistry(t, `CREATE TABLE users (id bigint);
CREATE TABLE users (id bigint, email text NOT NULL);`)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1 shape conflict", len(diags))
	}
	if diags[0].Code != DiagShapeConflict {
		t.Errorf("code = %q, want %q", diags[0].Code, DiagShapeConflict)
	}
	ct, ok := r.LookupComposite("users")
	if !ok {
		t.Fatal("users not found")
	}
	if len(ct.Columns) != 2 {
		t.Errorf("kept %d columns, want the later 2-column shape", len(ct.Columns))
	}
}

func TestRegistryIdenticalRedeclarationIsQuiet(t *testing.T) {
	_, diags := buildRegistry(t, `CREATE TABLE users (id bigint);
CREATE TABLE IF NOT EXISTS users (id bigint);`)
	if len(diags) != 0 {
		t.Errorf("identical redeclaration produced diagnostics: %v", diags)
	}
}

func TestRegistryEnumLookup(t *testing.T) {
	r, diags := buildRegistry(t, `CREATE TYPE app.mood AS ENUM ('happy', 'sad');`)
	if len(diags) != 0 {
		t.Fatalf("Add() diagnostics: %v", diags)
	}
	e, ok := r.LookupEnum("mood")
	if !ok {
		t.Fatal("mood not found by bare name")
	}
	if len(e.Labels) != 2 {
		t.Errorf("got %d labels, want 2", len(e.Labels))
	}
}

func TestRegistryEnumsOrdered(t *testing.T) {
	r, _ := buildRegistry(t, `CREATE TYPE zeta AS ENUM ('z');
CREATE TYPE alpha AS ENUM ('a');`)
	enums := r.Enums()
	if len(enums) != 2 {
		t.Fatalf("got %d enums, want 2", len(enums))
	}
	if enums[0].Name != "alpha" || enums[1].Name != "zeta" {
		t.Errorf("Enums() order = [%s %s], want [alpha zeta]", enums[0].Name, enums[1].Name)
	}
}

func TestRegistryAmbiguousBareNameRetired(t *testing.T) {
	r, diags := buildRegistry(t, `CREATE TABLE app.settings (id bigint);
CREATE TABLE billing.settings (id bigint, total numeric);`)
	if len(diags) != 1 || diags[0].Code != DiagShapeConflict {
		t.Fatalf("diagnostics = %v, want one conflict for the ambiguous bare name", diags)
	}
	if _, ok := r.LookupComposite("settings"); ok {
		t.Error("LookupComposite(settings) resolved an ambiguous bare name")
	}
	for _, name := range []string{"app.settings", "billing.settings"} {
		if _, ok := r.LookupComposite(name); !ok {
			t.Errorf("LookupComposite(%q) not found", name)
		}
	}
}

func TestRegistryAmbiguousBareEnum(t *testing.T) {
	r, diags := buildRegistry(t, `CREATE TYPE app.status AS ENUM ('on');
CREATE TYPE billing.status AS ENUM ('paid');`)
	if len(diags) != 1 || diags[0].Code != DiagShapeConflict {
		t.Fatalf("diagnostics = %v, want one conflict", diags)
	}
	if _, ok := r.LookupEnum("status"); ok {
		t.Error("LookupEnum(status) resolved an ambiguous bare name")
	}
}

func TestRegistryUnqualifiedAndQualifiedCoexist(t *testing.T) {
	r, diags := buildRegistry(t, `CREATE TABLE users (id bigint);
CREATE TABLE public.users (id bigint);`)
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v, want none", diags)
	}
	for _, name := range []string{"users", "public.users"} {
		if _, ok := r.LookupComposite(name); !ok {
			t.Errorf("LookupComposite(%q) not found", name)
		}
	}
}
