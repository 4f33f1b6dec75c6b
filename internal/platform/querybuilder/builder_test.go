package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "scheduled_date").
		From("matches").
		Where(Eq("game_id", "g1"), IsNull("cup_tie_id"), In("competition_id", []any{"pl", "fa"})).
		OrderBy("scheduled_date", "id").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, scheduled_date FROM matches WHERE game_id = $1 AND cup_tie_id IS NULL AND competition_id IN ($2, $3) ORDER BY scheduled_date, id LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "g1" || args[2] != "fa" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderForUpdate(t *testing.T) {
	query, _, err := Select("id").From("games").Where(Eq("id", "g1")).ForUpdate(true).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if want := "SELECT id FROM games WHERE id = $1 FOR UPDATE"; query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
}

func TestSelectBuilderEmptyInMatchesNothing(t *testing.T) {
	query, args, err := Select("id").From("game_players").Where(In("id", nil)).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	if query != "SELECT id FROM game_players WHERE 1=0" || len(args) != 0 {
		t.Fatalf("unexpected query %q args %+v", query, args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("notifications").
		Columns("id", "title").
		Values("n1", "Cup draw").
		Values("n2", "Transfer window open").
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO notifications (id, title) VALUES ($1, $2), ($3, $4) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 || args[0] != "n1" || args[3] != "Transfer window open" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertInto("notifications").Columns("id", "title").Values("n1").ToSQL(); err == nil {
		t.Fatalf("expected error for short row")
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("game_players").
		Set("fitness", 90).
		SetExpr("goals", "goals + ?", 2).
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", "p1")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE game_players SET fitness = $1, goals = goals + $2, updated_at = NOW() WHERE id = $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != 90 || args[1] != 2 || args[2] != "p1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := Delete("match_events").
		Where(Eq("game_id", "g1"), Expr("minute > ?", 60)).
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM match_events WHERE game_id = $1 AND minute > $2 RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "g1" || args[1] != 60 {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := Delete("match_events").ToSQL(); err == nil {
		t.Fatalf("expected error for unconditioned delete")
	}
}
