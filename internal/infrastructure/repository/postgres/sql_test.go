package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/domain/player"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("expected true for sql.ErrNoRows")
	}
	if !isNotFound(fmt.Errorf("select game: %w", sql.ErrNoRows)) {
		t.Fatalf("expected true for wrapped sql.ErrNoRows")
	}
	if isNotFound(fmt.Errorf("pq: relation games does not exist")) {
		t.Fatalf("expected false for unrelated error")
	}
}

func TestJSONMapRoundTrip(t *testing.T) {
	if got := encodeJSONMap(nil); got != "{}" {
		t.Fatalf("unexpected empty map encoding: %s", got)
	}
	decoded := decodeJSONMap(encodeJSONMap(map[string]any{"weeks": 3}))
	if decoded["weeks"] != float64(3) {
		t.Fatalf("unexpected decoded map: %+v", decoded)
	}
	if got := decodeJSONMap("not json"); len(got) != 0 {
		t.Fatalf("expected empty map for invalid json, got %+v", got)
	}
}

func TestDecodeJSONTyped(t *testing.T) {
	subs, err := decodeJSON[[]match.Substitution](`[{"team_id":"t1","player_out_id":"p1","player_in_id":"p2","minute":60}]`)
	if err != nil {
		t.Fatalf("decode substitutions: %v", err)
	}
	if len(subs) != 1 || subs[0].PlayerInID != "p2" || subs[0].Minute != 60 {
		t.Fatalf("unexpected substitutions: %+v", subs)
	}

	resolution, err := decodeJSON[*match.Resolution]("null")
	if err != nil || resolution != nil {
		t.Fatalf("expected nil resolution, got %+v err=%v", resolution, err)
	}
}

func TestMergeStatDeltas(t *testing.T) {
	merged := mergeStatDeltas([]player.StatDelta{
		{PlayerID: "p1", Goals: 1},
		{PlayerID: "p2"},
		{PlayerID: "p1", Goals: 1, YellowCards: 1},
	})
	if len(merged) != 1 {
		t.Fatalf("expected one merged delta, got %+v", merged)
	}
	if merged[0].Goals != 2 || merged[0].YellowCards != 1 {
		t.Fatalf("unexpected merged delta: %+v", merged[0])
	}
}

func TestLatestByKey(t *testing.T) {
	got := latestByKey([]player.ConditionUpdate{
		{PlayerID: "p1", Fitness: 90},
		{PlayerID: "p2", Fitness: 80},
		{PlayerID: "p1", Fitness: 70},
	}, func(u player.ConditionUpdate) string { return u.PlayerID })
	if len(got) != 2 || got[0].PlayerID != "p1" || got[0].Fitness != 70 || got[1].PlayerID != "p2" {
		t.Fatalf("unexpected latest updates: %+v", got)
	}
}

func TestUpsertSuffix(t *testing.T) {
	got := upsertSuffix("game_id, id", "status", "fee")
	want := "ON CONFLICT (game_id, id)\nDO UPDATE SET\n    status = EXCLUDED.status,\n    fee = EXCLUDED.fee"
	if got != want {
		t.Fatalf("unexpected suffix:\nwant: %s\ngot:  %s", want, got)
	}
}

func TestExecutorPrefersTransaction(t *testing.T) {
	db := &sqlx.DB{}
	if executor(context.Background(), db) != querier(db) {
		t.Fatalf("expected db without a transaction in context")
	}
	tx := &sqlx.Tx{}
	ctx := context.WithValue(context.Background(), txKey{}, tx)
	if executor(ctx, db) != querier(tx) {
		t.Fatalf("expected transaction from context")
	}
}

func TestMatchRowRoundTrip(t *testing.T) {
	m := match.Match{
		ID:            "m1",
		GameID:        "g1",
		HomeTeamID:    "a",
		AwayTeamID:    "b",
		HomeScore:     match.IntPtr(2),
		HomeLineup:    []string{"p1", "p2"},
		HomeTactics:   map[string]string{"press": "high"},
		Substitutions: []match.Substitution{{TeamID: "a", PlayerOutID: "p1", PlayerInID: "p3", Minute: 70}},
	}
	row, err := matchToRow(m)
	if err != nil {
		t.Fatalf("match to row: %v", err)
	}
	if len(row.AwayLineup) != 0 || row.AwayLineup == nil {
		t.Fatalf("expected empty, non-nil away lineup array")
	}
	if !strings.Contains(row.Substitutions, `"player_in_id":"p3"`) {
		t.Fatalf("unexpected substitutions json: %s", row.Substitutions)
	}

	back, err := matchFromRow(row)
	if err != nil {
		t.Fatalf("match from row: %v", err)
	}
	if back.AwayLineup != nil || len(back.HomeLineup) != 2 || back.HomeTactics["press"] != "high" {
		t.Fatalf("unexpected match: %+v", back)
	}
	if back.AwayTactics != nil || *back.HomeScore != 2 || back.Substitutions[0].Minute != 70 {
		t.Fatalf("unexpected match: %+v", back)
	}
}
