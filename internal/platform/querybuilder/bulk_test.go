package querybuilder

import "testing"

func TestBulkUpdateBuilder(t *testing.T) {
	query, args, err := BulkUpdate("matches", "id").
		Columns("home_score", "away_score").
		Cast("home_score", "integer").
		Cast("away_score", "integer").
		Row("m1", 2, 1).
		Row("m2", 0, 0).
		Where(Eq("game_id", "g1"), Expr("played = FALSE")).
		ToSQL()
	if err != nil {
		t.Fatalf("build bulk update query: %v", err)
	}

	wantQuery := "UPDATE matches SET " +
		"home_score = CASE id WHEN $1 THEN $2::integer WHEN $3 THEN $4::integer ELSE home_score END, " +
		"away_score = CASE id WHEN $5 THEN $6::integer WHEN $7 THEN $8::integer ELSE away_score END " +
		"WHERE id IN ($9, $10) AND game_id = $11 AND played = FALSE"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	want := []any{"m1", 2, "m2", 0, "m1", 1, "m2", 0, "m1", "m2", "g1"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args: %+v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: want %v got %v", i, want[i], args[i])
		}
	}
}

func TestBulkUpdateBuilderIncrement(t *testing.T) {
	query, args, err := BulkUpdate("game_players", "id").
		Columns("goals").
		Increment("goals").
		Row("p1", 2).
		ToSQL()
	if err != nil {
		t.Fatalf("build bulk increment query: %v", err)
	}

	wantQuery := "UPDATE game_players SET goals = goals + CASE id WHEN $1 THEN $2 ELSE 0 END WHERE id IN ($3)"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestBulkUpdateBuilderRejectsRaggedRow(t *testing.T) {
	_, _, err := BulkUpdate("matches", "id").
		Columns("home_score", "away_score").
		Row("m1", 1).
		ToSQL()
	if err == nil {
		t.Fatalf("expected error for row with missing values")
	}
}
