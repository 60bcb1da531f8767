package generate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgwrap/pgwrap"
	"github.com/pgwrap/pgwrap/internal/logger"
)

var (
	file         string
	schemaFiles  []string
	out          string
	pkg          string
	allowMissing bool
)

var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate wrapper code from SQL files",
	Long: "Parse a SQL file of function declarations, resolve return types against " +
		"the given schema files, and write a Go source file of typed wrappers.",
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().StringVar(&file, "file", "", "SQL file with the functions to wrap (required)")
	GenerateCmd.Flags().StringArrayVar(&schemaFiles, "schema-file", nil, "Additional SQL file with table and type declarations (repeatable)")
	GenerateCmd.Flags().StringVar(&out, "out", "", "Output file path (default: stdout)")
	GenerateCmd.Flags().StringVar(&pkg, "package", "db", "Package name of the generated file")
	GenerateCmd.Flags().BoolVar(&allowMissing, "allow-missing-schemas", false, "Emit provisional structs for return types with no declaration")
	GenerateCmd.MarkFlagRequired("file")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	res, err := pgwrap.Generate(cmd.Context(), pgwrap.GenerateOptions{
		FunctionsFile: file,
		SchemaFiles:   schemaFiles,
		Package:       pkg,
		AllowMissing:  allowMissing,
	})
	if err != nil {
		return err
	}

	for _, d := range res.Diagnostics {
		log.Warn("generation diagnostic", "code", d.Code, "line", d.Line, "detail", d.Message)
	}
	if res.Functions == 0 {
		return fmt.Errorf("no usable function declarations found in %s", file)
	}

	if out == "" {
		if _, err := os.Stdout.Write(res.Code); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(out, res.Code, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
	}

	log.Info("generation complete",
		"functions", res.Functions,
		"diagnostics", len(res.Diagnostics),
		"out", outName())
	return nil
}

func outName() string {
	if out == "" {
		return "stdout"
	}
	return out
}
