package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/career-engine/internal/domain/competition"
	"github.com/riskibarqy/career-engine/internal/domain/match"
	"github.com/riskibarqy/career-engine/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seasonDay(n int) time.Time {
	return testSeasonStart.AddDate(0, 0, n)
}

func cupFixture(matchID, tieID, home, away string, date time.Time) match.Match {
	m := newFixture(matchID, testCupID, home, away, 1, date)
	m.CupTieID = tieID
	m.RoundName = "Final"
	return m
}

func batchIDs(b *Batch) []string {
	out := make([]string, 0, len(b.Matches))
	for _, m := range b.Matches {
		out = append(out, m.ID)
	}
	return out
}

func TestMatchdayService_NextBatch(t *testing.T) {
	teams := []string{testUserTeam, "t01", "t02", "t03", "t04", "t05"}

	tests := []struct {
		name         string
		data         func() memory.SeedData
		wantIDs      []string
		wantComps    []string
		wantDate     time.Time
		wantMatchday int
		check        func(t *testing.T, h *harness, b *Batch)
	}{
		{
			name: "league round spread over several dates",
			data: func() memory.SeedData {
				data := leagueSave(teams)
				data.Matches = append(data.Matches,
					newFixture("r1-a", testLeagueID, testUserTeam, "t01", 1, seasonDay(8)),
					newFixture("r1-b", testLeagueID, "t02", "t03", 1, seasonDay(7)),
					newFixture("r1-c", testLeagueID, "t04", "t05", 1, seasonDay(9)),
					newFixture("r2-a", testLeagueID, "t01", testUserTeam, 2, seasonDay(14)),
				)
				return data
			},
			wantIDs:      []string{"r1-b", "r1-a", "r1-c"},
			wantComps:    []string{testLeagueID},
			wantDate:     seasonDay(9),
			wantMatchday: 1,
		},
		{
			name: "competitions sharing a date prefer the primary league round",
			data: func() memory.SeedData {
				data := leagueSave(teams)
				data.Competitions = append(data.Competitions, competition.Competition{
					ID: "lg2", GameID: testGameID, Name: "Other League", Format: competition.FormatLeague,
					Role: competition.RoleSimulated, Tier: 1,
				})
				data.Matches = append(data.Matches,
					newFixture("r1-a", testLeagueID, testUserTeam, "t01", 1, seasonDay(7)),
					newFixture("x-4", "lg2", "x01", "x02", 4, seasonDay(7)),
					newFixture("x-5", "lg2", "x01", "x03", 5, seasonDay(14)),
				)
				return data
			},
			wantIDs:      []string{"r1-a", "x-4"},
			wantComps:    []string{testLeagueID, "lg2"},
			wantDate:     seasonDay(7),
			wantMatchday: 1,
		},
		{
			name: "cup date without a league round moves to the next matchday",
			data: func() memory.SeedData {
				data := cupSave(teams...)
				data.Games[0].CurrentMatchday = 3
				data.Matches = append(data.Matches,
					cupFixture("c1", "tie-1", testUserTeam, "t01", seasonDay(7)),
					newFixture("r4-a", testLeagueID, testUserTeam, "t02", 4, seasonDay(10)),
				)
				return data
			},
			wantIDs:      []string{"c1"},
			wantComps:    []string{testCupID},
			wantDate:     seasonDay(7),
			wantMatchday: 4,
		},
		{
			name: "only the earliest user match stays in the batch",
			data: func() memory.SeedData {
				data := cupSave(teams...)
				data.Matches = append(data.Matches,
					newFixture("r1-a", testLeagueID, testUserTeam, "t01", 1, seasonDay(9)),
					newFixture("r1-b", testLeagueID, "t02", "t03", 1, seasonDay(7)),
					cupFixture("c1", "tie-1", testUserTeam, "t04", seasonDay(7)),
				)
				return data
			},
			wantIDs:      []string{"c1", "r1-b"},
			wantComps:    []string{testCupID, testLeagueID},
			wantDate:     seasonDay(7),
			wantMatchday: 1,
		},
		{
			name: "cup draw happens before the next fixture is picked",
			data: func() memory.SeedData {
				data := cupSave(teams...)
				data.Entries = append(data.Entries,
					competition.Entry{GameID: testGameID, CompetitionID: testCupID, TeamID: "t01", Seed: 1},
					competition.Entry{GameID: testGameID, CompetitionID: testCupID, TeamID: "t02", Seed: 2},
				)
				data.Rounds = []competition.Round{{CompetitionID: testCupID, Number: 1, Name: "Final", FirstLegDate: seasonDay(3), Knockout: true}}
				data.Matches = append(data.Matches, newFixture("r1-a", testLeagueID, testUserTeam, "t03", 1, seasonDay(7)))
				return data
			},
			wantComps:    []string{testCupID},
			wantDate:     seasonDay(3),
			wantMatchday: 1,
			check: func(t *testing.T, h *harness, b *Batch) {
				require.Len(t, b.Matches, 1)
				drawn := b.Matches[0]
				assert.Equal(t, testCupID, drawn.CompetitionID)
				assert.True(t, drawn.IsCupTie())
				assert.ElementsMatch(t, []string{"t01", "t02"}, []string{drawn.HomeTeamID, drawn.AwayTeamID})

				ties, err := h.ties.ListByCompetition(context.Background(), testGameID, testCupID)
				require.NoError(t, err)
				require.Len(t, ties, 1)
				assert.Equal(t, drawn.ID, ties[0].FirstLegMatchID)
			},
		},
		{
			name: "competitions the user left are never drawn",
			data: func() memory.SeedData {
				data := cupSave(teams...)
				data.Competitions[1].Participating = false
				data.Entries = append(data.Entries,
					competition.Entry{GameID: testGameID, CompetitionID: testCupID, TeamID: "t01", Seed: 1},
					competition.Entry{GameID: testGameID, CompetitionID: testCupID, TeamID: "t02", Seed: 2},
				)
				data.Matches = append(data.Matches, newFixture("r1-a", testLeagueID, testUserTeam, "t03", 1, seasonDay(7)))
				return data
			},
			wantIDs:      []string{"r1-a"},
			wantComps:    []string{testLeagueID},
			wantDate:     seasonDay(7),
			wantMatchday: 1,
			check: func(t *testing.T, h *harness, _ *Batch) {
				ties, err := h.ties.ListByCompetition(context.Background(), testGameID, testCupID)
				require.NoError(t, err)
				assert.Empty(t, ties)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.data(), nil)
			svc := NewMatchdayService(h.competitions, h.matches, h.handlers, nil)

			batch, err := svc.NextBatch(context.Background(), h.game(t))
			require.NoError(t, err)
			require.NotNil(t, batch)

			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, batchIDs(batch))
			}
			assert.Equal(t, tt.wantComps, batch.CompetitionIDs())
			for _, compID := range tt.wantComps {
				assert.NotNil(t, batch.Handlers[compID], compID)
			}
			assert.Equal(t, tt.wantDate, batch.CurrentDate)
			assert.Equal(t, tt.wantMatchday, batch.Matchday)
			if tt.check != nil {
				tt.check(t, h, batch)
			}
		})
	}
}

func TestMatchdayService_NextBatchWhenNothingIsLeft(t *testing.T) {
	data := leagueSave([]string{testUserTeam, "t01"})
	done := newFixture("done", testLeagueID, testUserTeam, "t01", 1, seasonDay(7))
	done.Played = true
	data.Matches = append(data.Matches, done)
	h := newHarness(t, data, nil)

	batch, err := NewMatchdayService(h.competitions, h.matches, h.handlers, nil).NextBatch(context.Background(), h.game(t))
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestBatch_HumanMatch(t *testing.T) {
	b := &Batch{Matches: []match.Match{
		newFixture("ai", testLeagueID, "t01", "t02", 1, seasonDay(7)),
		newFixture("mine", testLeagueID, "t03", testUserTeam, 1, seasonDay(7)),
	}}

	m, ok := b.HumanMatch(testUserTeam)
	require.True(t, ok)
	assert.Equal(t, "mine", m.ID)
	assert.Equal(t, "t03", m.OpponentOf(testUserTeam))

	_, ok = b.HumanMatch("t09")
	assert.False(t, ok)
}
