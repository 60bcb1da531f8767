package ir

import (
	"strings"
)

// Statement is one semicolon-terminated top-level SQL statement together
// with the doc comment attached to it, if any.
type Statement struct {
	Text    string
	Line    int    // 1-based line of the first statement token
	Comment string // cleaned preceding comment, "" when none or detached
}

// Scan splits SQL source into top-level statements. Statement boundaries are
// semicolons outside of string literals, quoted identifiers, comments, and
// dollar-quoted bodies. A contiguous run of -- line comments, or a single
// /* ... */ block comment, is attached to the statement that immediately
// follows it; a blank line between the comment and the statement detaches it.
func Scan(src string) []Statement {
	var (
		stmts        []Statement
		pending      []string // cleaned comment lines awaiting a statement
		pendingBlock bool     // pending came from a block comment
		lineContent  bool     // current line carried a comment or token
		stmtStart    = -1
		stmtLine     = 0
		comment      = ""
		line         = 1
	)

	i := 0
	for i < len(src) {
		c := src[i]

		if stmtStart < 0 {
			switch {
			case c == '\n':
				if !lineContent && pending != nil {
					// Blank line: discard the pending comment.
					pending = nil
					pendingBlock = false
				}
				lineContent = false
				line++
				i++
			case c == ' ' || c == '\t' || c == '\r':
				i++
			case c == '-' && i+1 < len(src) && src[i+1] == '-':
				end := strings.IndexByte(src[i:], '\n')
				if end < 0 {
					end = len(src) - i
				}
				if pendingBlock {
					// A line-comment run supersedes an earlier block comment.
					pending = nil
					pendingBlock = false
				}
				pending = append(pending, cleanLineComment(src[i:i+end]))
				lineContent = true
				i += end
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				body, next, crossed := readBlockComment(src, i)
				pending = cleanBlockComment(body)
				pendingBlock = true
				lineContent = true
				line += crossed
				i = next
			default:
				stmtStart = i
				stmtLine = line
				comment = strings.TrimSpace(strings.Join(pending, "\n"))
				pending = nil
				pendingBlock = false
			}
			continue
		}

		switch {
		case c == '\n':
			line++
			i++
		case c == '\'':
			next, crossed := readSingleQuoted(src, i)
			line += crossed
			i = next
		case c == '"':
			next, crossed := readDoubleQuoted(src, i)
			line += crossed
			i = next
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
			} else {
				i += end
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			_, next, crossed := readBlockComment(src, i)
			line += crossed
			i = next
		case c == '$':
			next, crossed, ok := readDollarQuoted(src, i)
			if ok {
				line += crossed
				i = next
			} else {
				i++
			}
		case c == ';':
			text := strings.TrimSpace(src[stmtStart : i+1])
			if text != "" {
				stmts = append(stmts, Statement{Text: text, Line: stmtLine, Comment: comment})
			}
			stmtStart = -1
			comment = ""
			lineContent = false
			i++
		default:
			i++
		}
	}

	if stmtStart >= 0 {
		text := strings.TrimSpace(src[stmtStart:])
		if text != "" {
			stmts = append(stmts, Statement{Text: text, Line: stmtLine, Comment: comment})
		}
	}
	return stmts
}

// readSingleQuoted consumes a '...' literal starting at i, honoring the ''
// escape. Returns the index after the literal and the newline count crossed.
func readSingleQuoted(src string, i int) (int, int) {
	crossed := 0
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\n':
			crossed++
			j++
		case '\'':
			if j+1 < len(src) && src[j+1] == '\'' {
				j += 2
				continue
			}
			return j + 1, crossed
		default:
			j++
		}
	}
	return j, crossed
}

// readDoubleQuoted consumes a "..." identifier starting at i.
func readDoubleQuoted(src string, i int) (int, int) {
	crossed := 0
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\n':
			crossed++
			j++
		case '"':
			return j + 1, crossed
		default:
			j++
		}
	}
	return j, crossed
}

// readBlockComment consumes a /* ... */ comment starting at i. PostgreSQL
// block comments nest. Returns the comment body (without delimiters), the
// index after the comment, and the newline count crossed.
func readBlockComment(src string, i int) (string, int, int) {
	depth := 0
	crossed := 0
	j := i
	bodyStart := i + 2
	for j < len(src) {
		switch {
		case src[j] == '\n':
			crossed++
			j++
		case src[j] == '/' && j+1 < len(src) && src[j+1] == '*':
			depth++
			j += 2
		case src[j] == '*' && j+1 < len(src) && src[j+1] == '/':
			depth--
			j += 2
			if depth == 0 {
				return src[bodyStart : j-2], j, crossed
			}
		default:
			j++
		}
	}
	return src[bodyStart:], j, crossed
}

// readDollarQuoted consumes a $tag$ ... $tag$ body starting at the opening
// dollar sign. ok is false when the dollar sign does not open a valid tag,
// for example a positional parameter reference like $1.
func readDollarQuoted(src string, i int) (next int, crossed int, ok bool) {
	j := i + 1
	for j < len(src) && (isIdentByte(src[j]) && !(src[j] >= '0' && src[j] <= '9' && j == i+1)) {
		j++
	}
	if j >= len(src) || src[j] != '$' {
		return 0, 0, false
	}
	tag := src[i : j+1]
	rest := src[j+1:]
	idx := strings.Index(rest, tag)
	if idx < 0 {
		// Unterminated body: consume everything.
		return len(src), strings.Count(src[i:], "\n"), true
	}
	end := j + 1 + idx + len(tag)
	return end, strings.Count(src[i:end], "\n"), true
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func cleanLineComment(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "--")
	return strings.TrimPrefix(s, " ")
}

// cleanBlockComment turns a block comment body into cleaned lines, dropping
// a leading asterisk gutter when present.
func cleanBlockComment(body string) []string {
	lines := strings.Split(body, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "*") && !strings.HasPrefix(l, "*/") {
			l = strings.TrimPrefix(strings.TrimPrefix(l, "*"), " ")
		}
		cleaned = append(cleaned, l)
	}
	// Trim leading and trailing empty lines.
	for len(cleaned) > 0 && cleaned[0] == "" {
		cleaned = cleaned[1:]
	}
	for len(cleaned) > 0 && cleaned[len(cleaned)-1] == "" {
		cleaned = cleaned[:len(cleaned)-1]
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
