package ir

import "fmt"

// DiagCode identifies the category of a parse- or resolve-time anomaly.
type DiagCode string

const (
	// DiagSyntaxIrregularity marks a statement that looked like a
	// declaration but did not match any recognized grammar. The statement
	// is skipped and generation continues.
	DiagSyntaxIrregularity DiagCode = "SYNTAX_IRREGULARITY"

	// DiagUnresolvedReference marks a type or table name that is not in
	// the registry. The reference degrades to the opaque type.
	DiagUnresolvedReference DiagCode = "UNRESOLVED_REFERENCE"

	// DiagShapeConflict marks a name redefined with an incompatible column
	// list. The later definition wins.
	DiagShapeConflict DiagCode = "SHAPE_CONFLICT"

	// DiagUnsupportedShape marks a construct that is deliberately out of
	// scope, such as multi-dimensional arrays, handled as a single level
	// rather than silently mis-decoded.
	DiagUnsupportedShape DiagCode = "UNSUPPORTED_SHAPE"
)

// Diagnostic is a non-fatal anomaly accumulated during parsing or
// resolution and attached to the generation result.
type Diagnostic struct {
	Code    DiagCode
	Message string
	Line    int // 1-based source line, 0 if unknown
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", d.Code, d.Line, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}
