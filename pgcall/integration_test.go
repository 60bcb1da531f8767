package pgcall_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pgwrap/pgwrap/pgcall"
	"github.com/pgwrap/pgwrap/testutil"
)

func TestCallIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container := testutil.SetupPostgresContainer(ctx, t)
	defer container.Terminate(ctx, t)

	setup := `
CREATE TYPE mood AS ENUM ('happy', 'ok', 'sad');

CREATE TABLE users (
    id bigint PRIMARY KEY,
    email text NOT NULL,
    nickname text,
    current_mood mood
);

INSERT INTO users VALUES
    (1, 'a@example.com', 'it''s "A"', 'happy'),
    (2, 'b@example.com', NULL, NULL);

CREATE FUNCTION add_ints(a integer, b integer DEFAULT 10) RETURNS bigint
LANGUAGE sql AS $$ SELECT a + b $$;

CREATE FUNCTION list_users() RETURNS SETOF users
LANGUAGE sql AS $$ SELECT * FROM users ORDER BY id $$;

CREATE PROCEDURE rename_user(p_id bigint, p_email text)
LANGUAGE sql AS $$ UPDATE users SET email = p_email WHERE id = p_id $$;
`
	if _, err := container.Pool.Exec(ctx, setup); err != nil {
		t.Fatalf("Failed to set up schema: %v", err)
	}

	t.Run("scalar with named args", func(t *testing.T) {
		c := pgcall.NewCall("add_ints").Arg("a", 1).Arg("b", 2)
		var got int64
		if err := container.Pool.QueryRow(ctx, c.Select(), c.Args()...).Scan(&got); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if got != 3 {
			t.Errorf("add_ints(1, 2) = %d, want 3", got)
		}
	})

	t.Run("omitted optional uses default", func(t *testing.T) {
		c := pgcall.NewCall("add_ints").Arg("a", 5)
		pgcall.Optional[int64](c, "b", nil)
		var got int64
		if err := container.Pool.QueryRow(ctx, c.Select(), c.Args()...).Scan(&got); err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if got != 15 {
			t.Errorf("add_ints(5) = %d, want 15 via DEFAULT", got)
		}
	})

	t.Run("setof composite", func(t *testing.T) {
		c := pgcall.NewCall("list_users")
		rows, err := container.Pool.Query(ctx, c.SelectFrom(), c.Args()...)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			var (
				id       int64
				email    string
				nickname *string
				mood     *string
			)
			if err := rows.Scan(&id, &email, &nickname, &mood); err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			ids = append(ids, id)
			if id == 1 {
				if nickname == nil || *nickname != `it's "A"` {
					t.Errorf("user 1 nickname = %v, want it's \"A\"", nickname)
				}
				if mood == nil || *mood != "happy" {
					t.Errorf("user 1 mood = %v, want happy", mood)
				}
			}
			if id == 2 && nickname != nil {
				t.Errorf("user 2 nickname = %q, want NULL", *nickname)
			}
		}
		if err := rows.Err(); err != nil {
			t.Fatalf("rows iteration failed: %v", err)
		}
		if len(ids) != 2 {
			t.Fatalf("list_users returned %d rows, want 2", len(ids))
		}
	})

	t.Run("procedure via CALL", func(t *testing.T) {
		c := pgcall.NewCall("rename_user").Arg("p_id", int64(2)).Arg("p_email", "c@example.com")
		if _, err := container.Pool.Exec(ctx, c.ExecStatement(true), c.Args()...); err != nil {
			t.Fatalf("CALL failed: %v", err)
		}

		var email string
		err := container.Pool.QueryRow(ctx, "SELECT email FROM users WHERE id = 2").Scan(&email)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if email != "c@example.com" {
			t.Errorf("email = %q after rename_user, want c@example.com", email)
		}
	})

	t.Run("decode server composite literal", func(t *testing.T) {
		var lit string
		err := container.Pool.QueryRow(ctx,
			`SELECT ROW('it''s, fine', NULL, '', 42, true, 1.50)::text`).Scan(&lit)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}

		fields := []pgcall.Field{
			{Name: "a", Kind: pgcall.KindText},
			{Name: "b", Kind: pgcall.KindText},
			{Name: "c", Kind: pgcall.KindText},
			{Name: "d", Kind: pgcall.KindInt},
			{Name: "e", Kind: pgcall.KindBool},
			{Name: "f", Kind: pgcall.KindNumeric},
		}
		vals, err := pgcall.Decode(lit, fields)
		if err != nil {
			t.Fatalf("Decode failed on %q: %v", lit, err)
		}

		if got := vals[0].(string); got != "it's, fine" {
			t.Errorf("field a = %q, want it's, fine", got)
		}
		if vals[1] != nil {
			t.Errorf("field b = %v, want nil for NULL", vals[1])
		}
		if got := vals[2].(string); got != "" {
			t.Errorf("field c = %q, want empty string", got)
		}
		if got := vals[3].(int64); got != 42 {
			t.Errorf("field d = %d, want 42", got)
		}
		if got := vals[4].(bool); got != true {
			t.Errorf("field e = %v, want true", got)
		}
		want := decimal.RequireFromString("1.50")
		if got := vals[5].(decimal.Decimal); !got.Equal(want) {
			t.Errorf("field f = %s, want 1.50", got)
		}
	})
}
