package pgcall

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestDecodeBasicKinds(t *testing.T) {
	fields := []Field{
		{Name: "id", Kind: KindInt},
		{Name: "name", Kind: KindText},
		{Name: "active", Kind: KindBool},
		{Name: "score", Kind: KindFloat},
	}
	got, err := Decode(`(42,alice,t,1.5)`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []any{int64(42), "alice", true, 1.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeNullVersusEmptyString(t *testing.T) {
	fields := []Field{
		{Name: "a", Kind: KindText},
		{Name: "b", Kind: KindText},
	}
	got, err := Decode(`(,"")`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got[0] != nil {
		t.Errorf("unquoted empty field = %v, want nil", got[0])
	}
	if got[1] != "" {
		t.Errorf("quoted empty field = %v, want empty string", got[1])
	}
}

func TestDecodeQuoteEscapes(t *testing.T) {
	fields := []Field{{Name: "s", Kind: KindText}}
	for _, tc := range []struct {
		literal string
		want    string
	}{
		{`("say ""hi""")`, `say "hi"`},
		{`("say \"hi\"")`, `say "hi"`},
		{`("back\\slash")`, `back\slash`},
		{`("a, b")`, "a, b"},
		{`("(parens)")`, "(parens)"},
	} {
		got, err := Decode(tc.literal, fields)
		if err != nil {
			t.Errorf("Decode(%q) error: %v", tc.literal, err)
			continue
		}
		if got[0] != tc.want {
			t.Errorf("Decode(%q) = %q, want %q", tc.literal, got[0], tc.want)
		}
	}
}

func TestDecodeNumericLossless(t *testing.T) {
	fields := []Field{{Name: "amount", Kind: KindNumeric}}
	got, err := Decode(`(12345678901234567890.123456789)`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := decimal.RequireFromString("12345678901234567890.123456789")
	if !got[0].(decimal.Decimal).Equal(want) {
		t.Errorf("numeric = %v, want %v", got[0], want)
	}
}

func TestDecodeTimestampAndDate(t *testing.T) {
	fields := []Field{
		{Name: "at", Kind: KindTimestamp},
		{Name: "day", Kind: KindDate},
	}
	got, err := Decode(`("2024-03-01 12:30:45.123456+01",2024-03-01)`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	at := got[0].(time.Time)
	if at.Year() != 2024 || at.Month() != time.March || at.Second() != 45 {
		t.Errorf("timestamp = %v", at)
	}
	day := got[1].(time.Time)
	if day.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("date = %v", day)
	}
}

func TestDecodeUUID(t *testing.T) {
	fields := []Field{{Name: "id", Kind: KindUUID}}
	got, err := Decode(`(a4f6b2ae-72a4-4b83-bd02-48a8bb77a415)`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got[0].(uuid.UUID).String() != "a4f6b2ae-72a4-4b83-bd02-48a8bb77a415" {
		t.Errorf("uuid = %v", got[0])
	}
}

func TestDecodeBytes(t *testing.T) {
	fields := []Field{{Name: "data", Kind: KindBytes}}
	got, err := Decode(`("\\x68690a")`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if string(got[0].([]byte)) != "hi\n" {
		t.Errorf("bytes = %q", got[0])
	}
}

func TestDecodeInterval(t *testing.T) {
	fields := []Field{{Name: "d", Kind: KindInterval}}
	for _, tc := range []struct {
		literal string
		want    time.Duration
	}{
		{`(02:30:00)`, 2*time.Hour + 30*time.Minute},
		{`("2 days 03:00:00")`, 51 * time.Hour},
		{`(-00:00:01.5)`, -1500 * time.Millisecond},
		{`("1 day")`, 24 * time.Hour},
	} {
		got, err := Decode(tc.literal, fields)
		if err != nil {
			t.Errorf("Decode(%q) error: %v", tc.literal, err)
			continue
		}
		if got[0] != tc.want {
			t.Errorf("Decode(%q) = %v, want %v", tc.literal, got[0], tc.want)
		}
	}
}

func TestDecodeIntervalWithMonthsFails(t *testing.T) {
	fields := []Field{{Name: "d", Kind: KindInterval}}
	if _, err := Decode(`("3 mons 02:00:00")`, fields); err == nil {
		t.Error("expected error for month-bearing interval")
	}
}

func TestDecodeEnumValidatesLabels(t *testing.T) {
	fields := []Field{{Name: "mood", Kind: KindEnum, Labels: []string{"happy", "sad"}}}
	got, err := Decode(`(happy)`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got[0] != "happy" {
		t.Errorf("enum = %v", got[0])
	}
	if _, err := Decode(`(angry)`, fields); err == nil {
		t.Error("expected error for unknown enum label")
	}
}

func TestDecodeNestedComposite(t *testing.T) {
	fields := []Field{
		{Name: "id", Kind: KindInt},
		{Name: "addr", Kind: KindComposite, Fields: []Field{
			{Name: "street", Kind: KindText},
			{Name: "zip", Kind: KindText},
		}},
	}
	got, err := Decode(`(7,"(main st,12345)")`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	inner, ok := got[1].([]any)
	if !ok {
		t.Fatalf("nested value has type %T", got[1])
	}
	want := []any{"main st", "12345"}
	if diff := cmp.Diff(want, inner); diff != "" {
		t.Errorf("nested mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeAllNull(t *testing.T) {
	fields := []Field{
		{Name: "a", Kind: KindInt},
		{Name: "b", Kind: KindText},
		{Name: "c", Kind: KindBool},
	}
	got, err := Decode(`(,,)`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !AllNull(got) {
		t.Errorf("AllNull(%v) = false, want true", got)
	}
	got2, _ := Decode(`(1,,)`, fields)
	if AllNull(got2) {
		t.Error("AllNull = true for partially null row")
	}
}

func TestDecodeFieldCountMismatch(t *testing.T) {
	fields := []Field{{Name: "a", Kind: KindInt}}
	if _, err := Decode(`(1,2)`, fields); err == nil {
		t.Error("expected error for extra field")
	}
}

func TestDecodeErrorIdentifiesField(t *testing.T) {
	fields := []Field{
		{Name: "id", Kind: KindInt},
		{Name: "qty", Kind: KindInt},
	}
	_, err := Decode(`(1,not_a_number)`, fields)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *DecodeError", err)
	}
	if de.Field != "qty" || de.Position != 1 {
		t.Errorf("DecodeError = %+v", de)
	}
}

func TestDecodeLenientKeepsRawText(t *testing.T) {
	fields := []Field{
		{Name: "id", Kind: KindInt},
		{Name: "qty", Kind: KindInt},
	}
	got, err := DecodeLenient(`(1,not_a_number)`, fields)
	if err != nil {
		t.Fatalf("DecodeLenient() error: %v", err)
	}
	if got[0] != int64(1) {
		t.Errorf("got[0] = %v", got[0])
	}
	if got[1] != "not_a_number" {
		t.Errorf("got[1] = %v, want raw text", got[1])
	}
}

func TestDecodeRejectsNonComposite(t *testing.T) {
	if _, err := Decode(`plain`, nil); err == nil {
		t.Error("expected error for non-composite text")
	}
	if _, err := Decode(`("unterminated)`, []Field{{Name: "a", Kind: KindText}}); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestDeref(t *testing.T) {
	v := int64(9)
	if got := Deref(&v); got != 9 {
		t.Errorf("Deref(&9) = %d", got)
	}
	if got := Deref[int64](nil); got != 0 {
		t.Errorf("Deref(nil) = %d, want 0", got)
	}
}

func TestDecodeMixedRowWithJSON(t *testing.T) {
	fields := []Field{
		{Name: "count", Kind: KindInt},
		{Name: "ok", Kind: KindBool},
		{Name: "total", Kind: KindNumeric},
		{Name: "payload", Kind: KindJSON},
	}
	vals, err := Decode(`(42,t,123.45,"{""k"": ""v""}")`, fields)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got := vals[0].(int64); got != 42 {
		t.Errorf("count = %d, want 42", got)
	}
	if got := vals[1].(bool); got != true {
		t.Errorf("ok = %v, want true", got)
	}
	if got := vals[2].(decimal.Decimal); !got.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("total = %s, want 123.45", got)
	}
	if diff := cmp.Diff(json.RawMessage(`{"k": "v"}`), vals[3].(json.RawMessage)); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeArrayFieldFailsLoudly(t *testing.T) {
	fields := []Field{
		{Name: "id", Kind: KindInt},
		{Name: "tags", Kind: KindArray},
	}
	_, err := Decode(`(7,"{a,b}")`, fields)
	if !errors.Is(err, ErrUnsupportedNesting) {
		t.Fatalf("Decode() error = %v, want ErrUnsupportedNesting", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "tags" || de.Position != 1 {
		t.Errorf("error = %+v, want DecodeError for field tags at position 1", err)
	}

	vals, err := DecodeLenient(`(7,"{a,b}")`, fields)
	if err != nil {
		t.Fatalf("DecodeLenient() error: %v", err)
	}
	if got := vals[1].(string); got != "{a,b}" {
		t.Errorf("lenient tags = %q, want raw {a,b}", got)
	}
}
