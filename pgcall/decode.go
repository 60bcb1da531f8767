package pgcall

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedNesting marks a field whose value cannot be recovered from
// composite text output, such as an array inside a composite literal.
// DecodeLenient keeps the raw text for such fields instead.
var ErrUnsupportedNesting = errors.New("unsupported nesting in composite literal")

// DecodeError reports a failure to decode one field of a composite literal.
type DecodeError struct {
	Field    string
	Position int
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode field %s (position %d): %v", e.Field, e.Position, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses a PostgreSQL composite literal such as (1,"alice",t) into
// one value per field. NULL fields decode to nil. A field that cannot be
// converted to its declared kind yields a *DecodeError.
//
// The text format distinguishes an unquoted empty field, which is NULL,
// from a quoted empty string "". Inside quotes, both "" and \" denote a
// literal quote and \\ denotes a backslash.
func Decode(literal string, fields []Field) ([]any, error) {
	return decode(literal, fields, false)
}

// DecodeLenient behaves like Decode but keeps the raw field text as a
// string whenever conversion to the declared kind fails.
func DecodeLenient(literal string, fields []Field) ([]any, error) {
	return decode(literal, fields, true)
}

func decode(literal string, fields []Field, lenient bool) ([]any, error) {
	raws, err := splitComposite(literal)
	if err != nil {
		return nil, err
	}
	if len(raws) != len(fields) {
		return nil, fmt.Errorf("composite has %d fields, expected %d", len(raws), len(fields))
	}
	vals := make([]any, len(fields))
	for i, raw := range raws {
		if raw.null {
			continue
		}
		v, err := convert(raw.text, fields[i], lenient)
		if err != nil {
			if lenient {
				vals[i] = raw.text
				continue
			}
			return nil, &DecodeError{Field: fields[i].Name, Position: i, Err: err}
		}
		vals[i] = v
	}
	return vals, nil
}

type rawField struct {
	text string
	null bool
}

// splitComposite strips the outer parens and splits the body on top-level
// commas, resolving quoting and escapes as it goes.
func splitComposite(literal string) ([]rawField, error) {
	s := strings.TrimSpace(literal)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("not a composite literal: %q", literal)
	}
	body := s[1 : len(s)-1]

	var (
		out     []rawField
		buf     strings.Builder
		quoted  bool // current field had quotes
		inQuote bool
		depth   int
	)
	flush := func() {
		text := buf.String()
		out = append(out, rawField{text: text, null: !quoted && text == ""})
		buf.Reset()
		quoted = false
	}

	i := 0
	for i < len(body) {
		c := body[i]
		switch {
		case inQuote:
			switch {
			case c == '\\' && i+1 < len(body):
				buf.WriteByte(body[i+1])
				i += 2
			case c == '"' && i+1 < len(body) && body[i+1] == '"':
				buf.WriteByte('"')
				i += 2
			case c == '"':
				inQuote = false
				i++
			default:
				buf.WriteByte(c)
				i++
			}
		case c == '"':
			inQuote = true
			quoted = true
			i++
		case c == '(':
			depth++
			buf.WriteByte(c)
			i++
		case c == ')':
			depth--
			buf.WriteByte(c)
			i++
		case c == ',' && depth == 0:
			flush()
			i++
		default:
			buf.WriteByte(c)
			i++
		}
	}
	if inQuote || depth != 0 {
		return nil, fmt.Errorf("unterminated quoting in composite literal: %q", literal)
	}
	flush()
	return out, nil
}

// Timestamp layouts emitted by PostgreSQL text output, in trial order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
}

const dateLayout = "2006-01-02"

func convert(raw string, f Field, lenient bool) (any, error) {
	switch f.Kind {
	case KindText:
		return raw, nil
	case KindInt:
		return strconv.ParseInt(raw, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindBool:
		switch raw {
		case "t", "true":
			return true, nil
		case "f", "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean %q", raw)
	case KindNumeric:
		return decimal.NewFromString(raw)
	case KindTimestamp:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp %q", raw)
	case KindDate:
		return time.Parse(dateLayout, raw)
	case KindUUID:
		return uuid.Parse(raw)
	case KindJSON:
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("invalid json")
		}
		return json.RawMessage(raw), nil
	case KindBytes:
		hexed, ok := strings.CutPrefix(raw, `\x`)
		if !ok {
			return nil, fmt.Errorf("bytea value without \\x prefix")
		}
		return hex.DecodeString(hexed)
	case KindInterval:
		return parseInterval(raw)
	case KindEnum:
		if len(f.Labels) > 0 && !containsLabel(f.Labels, raw) {
			return nil, fmt.Errorf("value %q is not a label of enum %s", raw, f.Name)
		}
		return raw, nil
	case KindComposite:
		return decode(raw, f.Fields, lenient)
	case KindArray:
		return nil, ErrUnsupportedNesting
	case KindOpaque:
		return raw, nil
	}
	return nil, fmt.Errorf("unknown kind %v", f.Kind)
}

func containsLabel(labels []string, v string) bool {
	for _, l := range labels {
		if l == v {
			return true
		}
	}
	return false
}

// parseInterval understands the default postgres interval output for
// day-and-below granularity: "[N day[s]] [-]HH:MM:SS[.ffffff]". Intervals
// carrying month or year components have no fixed duration and fail.
func parseInterval(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if strings.Contains(s, "mon") || strings.Contains(s, "year") {
		return 0, fmt.Errorf("interval %q has no fixed duration", raw)
	}
	var total time.Duration
	if idx := strings.Index(s, "day"); idx >= 0 {
		n, err := strconv.ParseInt(strings.TrimSpace(s[:idx]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q", raw)
		}
		total = time.Duration(n) * 24 * time.Hour
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s[idx:]), "days"))
		s = strings.TrimSpace(strings.TrimPrefix(s, "day"))
		if s == "" {
			return total, nil
		}
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid interval %q", raw)
	}
	h, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("invalid interval %q", raw)
	}
	clock := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(sec*float64(time.Second))
	if neg {
		clock = -clock
	}
	return total + clock, nil
}
