package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// Declarations holds everything extracted from one pass over a set of
// scanned statements. Statements that match none of the recognized
// declaration forms are ignored.
type Declarations struct {
	Tables     []*CompositeType
	Composites []*CompositeType
	Enums      []*EnumType
	Functions  []*Function
}

var (
	identPat = `(?:"[^"]+"|[\w$]+)(?:\s*\.\s*(?:"[^"]+"|[\w$]+))*`

	enumTypeRe      = regexp.MustCompile(`(?is)^CREATE\s+TYPE\s+(` + identPat + `)\s+AS\s+ENUM\s*\(`)
	compositeTypeRe = regexp.MustCompile(`(?is)^CREATE\s+TYPE\s+(` + identPat + `)\s+AS\s*\(`)
	tableRe         = regexp.MustCompile(`(?is)^CREATE\s+(?:UNLOGGED\s+|TEMP(?:ORARY)?\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(` + identPat + `)\s*\(`)
	functionRe      = regexp.MustCompile(`(?is)^CREATE\s+(?:OR\s+REPLACE\s+)?(FUNCTION|PROCEDURE)\s+(` + identPat + `)\s*\(`)
)

// Parse classifies scanned statements and extracts type, table, and routine
// declarations. Extraction failures are reported as diagnostics and never
// abort the pass.
func Parse(stmts []Statement) (*Declarations, []Diagnostic) {
	decls := &Declarations{}
	var diags []Diagnostic

	for _, st := range stmts {
		switch {
		case enumTypeRe.MatchString(st.Text):
			enum, err := parseEnum(st)
			if err != nil {
				diags = append(diags, Diagnostic{Code: DiagSyntaxIrregularity, Message: err.Error(), Line: st.Line})
				continue
			}
			decls.Enums = append(decls.Enums, enum)
		case compositeTypeRe.MatchString(st.Text):
			ct, err := parseComposite(st)
			if err != nil {
				diags = append(diags, Diagnostic{Code: DiagSyntaxIrregularity, Message: err.Error(), Line: st.Line})
				continue
			}
			decls.Composites = append(decls.Composites, ct)
		case tableRe.MatchString(st.Text):
			tbl, err := parseTable(st)
			if err != nil {
				diags = append(diags, Diagnostic{Code: DiagSyntaxIrregularity, Message: err.Error(), Line: st.Line})
				continue
			}
			decls.Tables = append(decls.Tables, tbl)
		case functionRe.MatchString(st.Text):
			fn, err := parseFunction(st)
			if err != nil {
				diags = append(diags, Diagnostic{Code: DiagSyntaxIrregularity, Message: err.Error(), Line: st.Line})
				continue
			}
			decls.Functions = append(decls.Functions, fn)
		}
	}
	return decls, diags
}

func parseEnum(st Statement) (*EnumType, error) {
	m := enumTypeRe.FindStringSubmatchIndex(st.Text)
	name := foldIdent(st.Text[m[2]:m[3]])
	open := m[1] - 1
	body, err := parenBody(st.Text, open)
	if err != nil {
		return nil, fmt.Errorf("enum type %s: %w", name, err)
	}
	var labels []string
	for _, part := range splitTopLevel(body, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		label, err := unquoteLiteral(part)
		if err != nil {
			return nil, fmt.Errorf("enum type %s: %w", name, err)
		}
		labels = append(labels, label)
	}
	return &EnumType{Name: name, Labels: labels}, nil
}

func parseComposite(st Statement) (*CompositeType, error) {
	m := compositeTypeRe.FindStringSubmatchIndex(st.Text)
	name := foldIdent(st.Text[m[2]:m[3]])
	open := m[1] - 1
	body, err := parenBody(st.Text, open)
	if err != nil {
		return nil, fmt.Errorf("composite type %s: %w", name, err)
	}
	cols, err := parseColumns(body)
	if err != nil {
		return nil, fmt.Errorf("composite type %s: %w", name, err)
	}
	return &CompositeType{Name: name, Columns: cols}, nil
}

func parseTable(st Statement) (*CompositeType, error) {
	m := tableRe.FindStringSubmatchIndex(st.Text)
	name := foldIdent(st.Text[m[2]:m[3]])
	open := m[1] - 1
	body, err := parenBody(st.Text, open)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	cols, err := parseColumns(body)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	return &CompositeType{Name: name, Columns: cols, FromTable: true}, nil
}

func parseFunction(st Statement) (*Function, error) {
	m := functionRe.FindStringSubmatchIndex(st.Text)
	kind := strings.ToUpper(st.Text[m[2]:m[3]])
	name := foldIdent(st.Text[m[4]:m[5]])
	open := m[1] - 1

	body, err := parenBody(st.Text, open)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}
	params, err := parseParameters(body)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", name, err)
	}

	fn := &Function{
		Name:        name,
		Parameters:  params,
		Comment:     st.Comment,
		IsProcedure: kind == "PROCEDURE",
		Line:        st.Line,
	}

	rest := st.Text[open+len(body)+2:]
	if off, kw := findTopLevelKeyword(rest, "returns"); kw != "" {
		clause := rest[off+len(kw):]
		if end, stop := findTopLevelKeyword(clause, "language", "as"); stop != "" {
			clause = clause[:end]
		}
		if end, stop := findTopLevelKeyword(clause, functionAttrKeywords...); stop != "" {
			clause = clause[:end]
		}
		fn.ReturnClause = strings.TrimSpace(clause)
	}
	return fn, nil
}

// functionAttrKeywords begin the attribute tail that may sit between the
// return type and LANGUAGE: volatility, strictness, security, parallelism,
// cost. "returns" covers RETURNS NULL ON NULL INPUT, "not" covers NOT
// LEAKPROOF.
var functionAttrKeywords = []string{
	"immutable", "stable", "volatile", "strict", "leakproof", "not",
	"called", "returns", "security", "parallel", "cost", "rows",
	"window", "transform", "support", "set",
}

// constraintHeads begin table-level constraint fragments that carry no
// column declaration.
var constraintHeads = map[string]bool{
	"constraint": true,
	"primary":    true,
	"foreign":    true,
	"unique":     true,
	"check":      true,
	"like":       true,
	"index":      true,
	"exclude":    true,
}

// typeTerminators end the type expression of a column fragment; everything
// from the terminator on is constraint syntax.
var typeTerminators = map[string]bool{
	"primary":    true,
	"unique":     true,
	"not":        true,
	"null":       true,
	"references": true,
	"check":      true,
	"collate":    true,
	"default":    true,
	"generated":  true,
	"constraint": true,
}

func parseColumns(body string) ([]Column, error) {
	var cols []Column
	pos := 0
	for _, frag := range splitTopLevel(body, ',') {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		words := splitWords(frag)
		if len(words) == 0 {
			continue
		}
		head := strings.ToLower(strings.Trim(words[0], `"`))
		if constraintHeads[head] {
			continue
		}
		if len(words) < 2 {
			return nil, fmt.Errorf("column fragment %q has no type", frag)
		}
		name := foldIdent(words[0])
		rest := words[1:]
		var typeWords []string
		tailStart := len(rest)
		for i, w := range rest {
			if typeTerminators[strings.ToLower(w)] {
				tailStart = i
				break
			}
			typeWords = append(typeWords, w)
		}
		if len(typeWords) == 0 {
			return nil, fmt.Errorf("column fragment %q has no type", frag)
		}
		tail := strings.ToLower(strings.Join(rest[tailStart:], " "))
		notNull := containsWordSeq(tail, "not null") || containsWordSeq(tail, "primary key")
		cols = append(cols, Column{
			Name:     name,
			SQLType:  normalizeType(typeWords),
			NotNull:  notNull,
			Position: pos,
		})
		pos++
	}
	return cols, nil
}

var paramModes = map[string]ParamMode{
	"in":       ParamIn,
	"out":      ParamOut,
	"inout":    ParamInOut,
	"variadic": ParamVariadic,
}

func parseParameters(body string) ([]Parameter, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var params []Parameter
	pos := 0
	for _, frag := range splitTopLevel(body, ',') {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		words := splitWords(frag)
		if len(words) == 0 {
			continue
		}
		mode := ParamIn
		if m, ok := paramModes[strings.ToLower(words[0])]; ok && len(words) > 1 {
			mode = m
			words = words[1:]
		}
		if len(words) < 2 {
			return nil, fmt.Errorf("parameter fragment %q has no type", frag)
		}
		name := foldIdent(words[0])
		var typeWords []string
		hasDefault := false
		for _, w := range words[1:] {
			lw := strings.ToLower(w)
			if lw == "default" || w == "=" {
				hasDefault = true
				break
			}
			typeWords = append(typeWords, w)
		}
		if len(typeWords) == 0 {
			return nil, fmt.Errorf("parameter fragment %q has no type", frag)
		}
		params = append(params, Parameter{
			Name:       name,
			GoName:     paramGoName(name),
			SQLType:    normalizeType(typeWords),
			Mode:       mode,
			Position:   pos,
			HasDefault: hasDefault,
		})
		pos++
	}
	return params, nil
}

// normalizeType joins type words with single spaces, folds unquoted words
// to lowercase, and reattaches a detached precision group so that
// "NUMERIC (10,2)" becomes "numeric(10,2)".
func normalizeType(words []string) string {
	folded := make([]string, len(words))
	for i, w := range words {
		if len(w) >= 2 && w[0] == '"' && w[len(w)-1] == '"' {
			folded[i] = w[1 : len(w)-1]
		} else {
			folded[i] = strings.ToLower(w)
		}
	}
	s := strings.Join(folded, " ")
	return strings.ReplaceAll(s, " (", "(")
}

// goKeywords are reserved words that cannot name a Go parameter.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
}

// paramGoName strips the conventional p_ or _ prefix and converts the
// remainder to lower camel case.
func paramGoName(name string) string {
	trimmed := strings.TrimPrefix(name, "p_")
	if trimmed == name {
		trimmed = strings.TrimPrefix(name, "_")
	}
	if trimmed == "" {
		trimmed = name
	}
	out := lowerCamel(trimmed)
	if goKeywords[out] {
		out += "Arg"
	}
	return out
}

// foldIdent lowercases an identifier unless it is double-quoted, in which
// case the quotes are stripped and the spelling preserved. Qualified names
// fold each segment independently.
func foldIdent(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return foldSegment(s)
	}
	segs := splitQualified(s)
	for i, seg := range segs {
		segs[i] = foldSegment(seg)
	}
	return strings.Join(segs, ".")
}

func foldSegment(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.ToLower(s)
}

// splitQualified splits a possibly quoted dotted name on dots outside
// double quotes.
func splitQualified(s string) []string {
	var segs []string
	start := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '.':
			if !inQuote {
				segs = append(segs, s[start:i])
				start = i + 1
			}
		}
	}
	return append(segs, s[start:])
}

// parenBody returns the text between the paren at open and its matching
// close paren, honoring nesting, string literals, quoted identifiers, and
// comments.
func parenBody(s string, open int) (string, error) {
	if open >= len(s) || s[open] != '(' {
		return "", fmt.Errorf("expected opening parenthesis")
	}
	depth := 0
	i := open
	for i < len(s) {
		switch {
		case s[i] == '\'':
			next, _ := readSingleQuoted(s, i)
			i = next
		case s[i] == '"':
			next, _ := readDoubleQuoted(s, i)
			i = next
		case s[i] == '-' && i+1 < len(s) && s[i+1] == '-':
			if nl := strings.IndexByte(s[i:], '\n'); nl < 0 {
				i = len(s)
			} else {
				i += nl
			}
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '*':
			_, next, _ := readBlockComment(s, i)
			i = next
		case s[i] == '(':
			depth++
			i++
		case s[i] == ')':
			depth--
			if depth == 0 {
				return s[open+1 : i], nil
			}
			i++
		default:
			i++
		}
	}
	return "", fmt.Errorf("unbalanced parentheses")
}

// splitTopLevel splits s on sep occurrences at paren depth zero, outside
// quotes and comments.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\'':
			next, _ := readSingleQuoted(s, i)
			i = next
		case s[i] == '"':
			next, _ := readDoubleQuoted(s, i)
			i = next
		case s[i] == '-' && i+1 < len(s) && s[i+1] == '-':
			if nl := strings.IndexByte(s[i:], '\n'); nl < 0 {
				i = len(s)
			} else {
				i += nl
			}
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '*':
			_, next, _ := readBlockComment(s, i)
			i = next
		case s[i] == '(':
			depth++
			i++
		case s[i] == ')':
			depth--
			i++
		case s[i] == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
			i++
		default:
			i++
		}
	}
	return append(parts, s[start:])
}

// splitWords splits a fragment on whitespace at paren depth zero, so a
// precision group like (10, 2) stays attached to its type word when
// written without an inner space, and becomes its own word otherwise.
func splitWords(s string) []string {
	var words []string
	depth := 0
	start := -1
	flush := func(end int) {
		if start >= 0 {
			words = append(words, s[start:end])
			start = -1
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(':
			depth++
			if start < 0 {
				start = i
			}
		case c == ')':
			depth--
			if start < 0 {
				start = i
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if depth == 0 {
				flush(i)
			}
		case c == '\'' || c == '"':
			if start < 0 {
				start = i
			}
			var next int
			if c == '\'' {
				next, _ = readSingleQuoted(s, i)
			} else {
				next, _ = readDoubleQuoted(s, i)
			}
			i = next - 1
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(s))
	return words
}

// findTopLevelKeyword scans s for the first occurrence of any keyword as a
// whole word at paren depth zero, outside quotes, comments, and dollar
// bodies. Returns the byte offset and the matched keyword, or "" when none
// is found.
func findTopLevelKeyword(s string, keywords ...string) (int, string) {
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\'':
			next, _ := readSingleQuoted(s, i)
			i = next
		case c == '"':
			next, _ := readDoubleQuoted(s, i)
			i = next
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			if nl := strings.IndexByte(s[i:], '\n'); nl < 0 {
				i = len(s)
			} else {
				i += nl
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			_, next, _ := readBlockComment(s, i)
			i = next
		case c == '$':
			next, _, ok := readDollarQuoted(s, i)
			if ok {
				i = next
			} else {
				i++
			}
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c) && (i == 0 || !isWordByte(s[i-1])):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			if depth == 0 {
				word := strings.ToLower(s[i:j])
				for _, kw := range keywords {
					if word == kw {
						return i, s[i:j]
					}
				}
			}
			i = j
		default:
			i++
		}
	}
	return -1, ""
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

// containsWordSeq reports whether the space-joined word sequence seq occurs
// in s with word boundaries on both ends. Both inputs are expected in
// lowercase.
func containsWordSeq(s, seq string) bool {
	for off := 0; ; {
		idx := strings.Index(s[off:], seq)
		if idx < 0 {
			return false
		}
		idx += off
		end := idx + len(seq)
		beforeOK := idx == 0 || !isWordByte(s[idx-1])
		afterOK := end == len(s) || !isWordByte(s[end])
		if beforeOK && afterOK {
			return true
		}
		off = idx + 1
	}
}

// unquoteLiteral strips the surrounding single quotes of a SQL string
// literal and unescapes doubled quotes.
func unquoteLiteral(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return "", fmt.Errorf("expected quoted label, got %q", s)
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
}
