package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScanSplitsStatements(t *testing.T) {
	src := `CREATE TABLE a (id int);
CREATE TABLE b (id int);`
	got := Scan(src)
	want := []Statement{
		{Text: "CREATE TABLE a (id int);", Line: 1},
		{Text: "CREATE TABLE b (id int);", Line: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Scan() mismatch (-want +got):\n%s", diff)
	}
}

func TestScanDollarQuotedBody(t *testing.T) {
	src := `CREATE FUNCTION f() RETURNS void AS $$
BEGIN
  UPDATE t SET x = 1; DELETE FROM t;
END;
$$ LANGUAGE plpgsql;
CREATE TABLE after_fn (id int);`
	got := Scan(src)
	if len(got) != 2 {
		t.Fatalf("Scan() returned %d statements, want 2", len(got))
	}
	if got[0].Line != 1 {
		t.Errorf("first statement line = %d, want 1", got[0].Line)
	}
	if got[1].Text != "CREATE TABLE after_fn (id int);" {
		t.Errorf("second statement = %q", got[1].Text)
	}
	if got[1].Line != 6 {
		t.Errorf("second statement line = %d, want 6", got[1].Line)
	}
}

func TestScanTaggedDollarQuote(t *testing.T) {
	src := `CREATE FUNCTION f() RETURNS text AS $body$
SELECT 'a;b' || $$;$$;
$body$ LANGUAGE sql;`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
}

func TestScanPositionalParamIsNotDollarQuote(t *testing.T) {
	src := `CREATE FUNCTION f(a int) RETURNS int AS 'SELECT $1' LANGUAGE sql;
CREATE TABLE t (id int);`
	got := Scan(src)
	if len(got) != 2 {
		t.Fatalf("Scan() returned %d statements, want 2", len(got))
	}
}

func TestScanSemicolonInStringLiteral(t *testing.T) {
	src := `CREATE TABLE t (name text DEFAULT 'a;b');`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
}

func TestScanEscapedQuoteInLiteral(t *testing.T) {
	src := `CREATE TABLE t (name text DEFAULT 'it''s; fine');
CREATE TABLE u (id int);`
	got := Scan(src)
	if len(got) != 2 {
		t.Fatalf("Scan() returned %d statements, want 2", len(got))
	}
}

func TestScanAttachesLineComments(t *testing.T) {
	src := `-- Returns the active user.
-- Second line of the comment.
CREATE FUNCTION get_user() RETURNS users AS $$ SELECT * FROM users $$ LANGUAGE sql;`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
	want := "Returns the active user.\nSecond line of the comment."
	if got[0].Comment != want {
		t.Errorf("comment = %q, want %q", got[0].Comment, want)
	}
}

func TestScanBlankLineDetachesComment(t *testing.T) {
	src := `-- This comment is orphaned.

CREATE FUNCTION f() RETURNS void AS $$ SELECT 1 $$ LANGUAGE sql;`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
	if got[0].Comment != "" {
		t.Errorf("comment = %q, want empty", got[0].Comment)
	}
}

func TestScanAttachesBlockComment(t *testing.T) {
	src := `/* Creates a new order.
 * Validates stock first.
 */
CREATE FUNCTION create_order() RETURNS void AS $$ SELECT 1 $$ LANGUAGE sql;`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
	want := "Creates a new order.\nValidates stock first."
	if got[0].Comment != want {
		t.Errorf("comment = %q, want %q", got[0].Comment, want)
	}
}

func TestScanLineCommentsSupersedeBlockComment(t *testing.T) {
	src := `/* Older block comment. */
-- Newer line comment.
CREATE TABLE t (id int);`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
	if got[0].Comment != "Newer line comment." {
		t.Errorf("comment = %q, want %q", got[0].Comment, "Newer line comment.")
	}
}

func TestScanNestedBlockComment(t *testing.T) {
	src := `/* outer /* inner */ still outer */
CREATE TABLE t (id int);`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
	if got[0].Text != "CREATE TABLE t (id int);" {
		t.Errorf("statement = %q", got[0].Text)
	}
}

func TestScanUnterminatedStatement(t *testing.T) {
	src := `CREATE TABLE t (id int)`
	got := Scan(src)
	if len(got) != 1 {
		t.Fatalf("Scan() returned %d statements, want 1", len(got))
	}
	if got[0].Text != "CREATE TABLE t (id int)" {
		t.Errorf("statement = %q", got[0].Text)
	}
}

func TestScanEmptyInput(t *testing.T) {
	if got := Scan(""); got != nil {
		t.Errorf("Scan(\"\") = %v, want nil", got)
	}
	if got := Scan("  \n\n  -- just a comment\n"); got != nil {
		t.Errorf("Scan(comment only) = %v, want nil", got)
	}
}
