package season

import (
	"testing"
	"time"
)

func TestNextSeason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "2025/26", want: "2026/27"},
		{in: "2099/00", want: "2100/01"},
		{in: "2025", want: "2026"},
	}
	for _, tc := range tests {
		got, err := NextSeason(tc.in)
		if err != nil {
			t.Fatalf("next season %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("unexpected next season: got=%s want=%s", got, tc.want)
		}
	}

	if _, err := NextSeason("next year"); err == nil {
		t.Fatalf("expected error for unparseable season")
	}
}

func TestStartDate(t *testing.T) {
	got, err := StartDate("2026/27")
	if err != nil {
		t.Fatalf("start date: %v", err)
	}
	want := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected start date: got=%s want=%s", got, want)
	}
}

func TestTransitionDataMetadata(t *testing.T) {
	data, err := NewTransitionData("g1", "2025/26", "c1")
	if err != nil {
		t.Fatalf("new transition data: %v", err)
	}
	data.Set(KeyRetiredPlayers, 3)
	data.Set(KeyPromotedTeams, []string{"t1", "t2"})

	if data.Int(KeyRetiredPlayers) != 3 {
		t.Fatalf("unexpected int metadata: %d", data.Int(KeyRetiredPlayers))
	}
	if got := data.Strings(KeyPromotedTeams); len(got) != 2 {
		t.Fatalf("unexpected strings metadata: %v", got)
	}
	if data.NewSeason != "2026/27" {
		t.Fatalf("unexpected new season: %s", data.NewSeason)
	}
}
