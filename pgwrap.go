// Package pgwrap generates typed Go wrappers for PostgreSQL functions and
// procedures from SQL declaration files. It parses CREATE TABLE, CREATE
// TYPE, and CREATE FUNCTION statements, resolves return shapes against the
// declared schema, and renders one Go source file of wrapper functions
// built on the pgcall runtime.
package pgwrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pgwrap/pgwrap/internal/codegen"
	"github.com/pgwrap/pgwrap/internal/ir"
	"github.com/pgwrap/pgwrap/internal/typemap"
)

// GenerateOptions configures one generation run.
type GenerateOptions struct {
	// FunctionsFile is the SQL file whose functions are wrapped. Type and
	// table declarations in it are registered as well.
	FunctionsFile string

	// SchemaFiles are additional SQL files registered for type resolution
	// only; their functions are not wrapped.
	SchemaFiles []string

	// Package is the package name of the generated file. Defaults to "db".
	Package string

	// AllowMissing generates provisional structs for return types that no
	// provided schema declares, instead of degrading them to opaque
	// scalars.
	AllowMissing bool
}

// Result is the outcome of a generation run.
type Result struct {
	// Code is the gofmt-formatted generated source.
	Code []byte

	// Diagnostics collects everything non-fatal the run noticed: skipped
	// statements, unresolved references, shape conflicts.
	Diagnostics []ir.Diagnostic

	// Functions is how many wrappers were generated.
	Functions int
}

type parsedFile struct {
	path  string
	decls *ir.Declarations
	diags []ir.Diagnostic
}

// Generate runs the full pipeline: read, scan, parse, resolve, render.
// Input files are read and parsed concurrently; registration order stays
// deterministic, schema files first, the functions file last.
func Generate(ctx context.Context, opts GenerateOptions) (*Result, error) {
	if opts.FunctionsFile == "" {
		return nil, fmt.Errorf("no functions file given")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := append(append([]string{}, opts.SchemaFiles...), opts.FunctionsFile)
	parsed := make([]*parsedFile, len(paths))

	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			decls, diags := ir.Parse(ir.Scan(string(data)))
			parsed[i] = &parsedFile{path: path, decls: decls, diags: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var diags []ir.Diagnostic
	reg := ir.NewRegistry()
	for _, pf := range parsed {
		diags = append(diags, pf.diags...)
		diags = append(diags, reg.Add(pf.decls)...)
	}

	fns := parsed[len(parsed)-1].decls.Functions
	diags = append(diags, ir.Resolve(fns, reg, ir.ResolveOptions{
		AllowMissing: opts.AllowMissing,
		KnownScalar:  typemap.IsBuiltin,
	})...)

	sources := make([]string, len(paths))
	for i, p := range paths {
		sources[i] = filepath.Base(p)
	}
	gen := codegen.New(codegen.Options{
		Package:      opts.Package,
		Sources:      sources,
		AllowMissing: opts.AllowMissing,
	}, reg)
	code, genDiags, err := gen.Generate(fns)
	diags = append(diags, genDiags...)
	if err != nil {
		return nil, err
	}

	wrapped := 0
	for _, fn := range fns {
		if fn.Returns != nil {
			wrapped++
		}
	}
	return &Result{Code: code, Diagnostics: diags, Functions: wrapped}, nil
}
