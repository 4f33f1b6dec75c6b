package standing

import (
	"sort"
	"strings"
)

// Standing is one team's row in a competition table.
type Standing struct {
	GameID           string
	CompetitionID    string
	GroupLabel       string
	TeamID           string
	Position         int
	PreviousPosition int
	Played           int
	Won              int
	Drawn            int
	Lost             int
	GoalsFor         int
	GoalsAgainst     int
	Points           int
	Form             string
}

func (s Standing) GoalDifference() int {
	return s.GoalsFor - s.GoalsAgainst
}

const maxFormLength = 5

// ResultDelta is one team's side of a finished match.
type ResultDelta struct {
	TeamID       string
	GoalsFor     int
	GoalsAgainst int
}

func (d ResultDelta) Outcome() string {
	switch {
	case d.GoalsFor > d.GoalsAgainst:
		return "W"
	case d.GoalsFor < d.GoalsAgainst:
		return "L"
	default:
		return "D"
	}
}

// DeltasForMatch returns both sides of a result.
func DeltasForMatch(homeTeamID, awayTeamID string, home, away int) []ResultDelta {
	return []ResultDelta{
		{TeamID: homeTeamID, GoalsFor: home, GoalsAgainst: away},
		{TeamID: awayTeamID, GoalsFor: away, GoalsAgainst: home},
	}
}

// Apply adds one result to a row: three points a win, one a draw.
func Apply(s Standing, d ResultDelta) Standing {
	s.Played++
	s.GoalsFor += d.GoalsFor
	s.GoalsAgainst += d.GoalsAgainst
	outcome := d.Outcome()
	switch outcome {
	case "W":
		s.Won++
		s.Points += 3
	case "D":
		s.Drawn++
		s.Points++
	default:
		s.Lost++
	}
	s.Form = appendForm(s.Form, outcome)
	return s
}

func appendForm(form, outcome string) string {
	form = strings.TrimSpace(form) + outcome
	if len(form) > maxFormLength {
		form = form[len(form)-maxFormLength:]
	}
	return form
}

// Rank orders rows by points, goal difference, goals scored and team id,
// and assigns positions per group. PreviousPosition keeps the old value.
func Rank(rows []Standing) []Standing {
	out := append([]Standing(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupLabel != b.GroupLabel {
			return a.GroupLabel < b.GroupLabel
		}
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference() != b.GoalDifference() {
			return a.GoalDifference() > b.GoalDifference()
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamID < b.TeamID
	})

	position := 0
	group := ""
	for i := range out {
		if i == 0 || out[i].GroupLabel != group {
			group = out[i].GroupLabel
			position = 0
		}
		position++
		if out[i].Position != position {
			out[i].PreviousPosition = out[i].Position
		}
		out[i].Position = position
	}
	return out
}

// TeamsInPositions returns team ids occupying positions from..to of a ranked
// table (or group), in position order.
func TeamsInPositions(ranked []Standing, group string, from, to int) []string {
	out := make([]string, 0, to-from+1)
	for _, s := range ranked {
		if s.GroupLabel != group {
			continue
		}
		if s.Position >= from && s.Position <= to {
			out = append(out, s.TeamID)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return positionOf(ranked, out[i]) < positionOf(ranked, out[j])
	})
	return out
}

func positionOf(ranked []Standing, teamID string) int {
	for _, s := range ranked {
		if s.TeamID == teamID {
			return s.Position
		}
	}
	return 0
}

// Groups lists distinct group labels in order.
func Groups(rows []Standing) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, s := range rows {
		if _, ok := seen[s.GroupLabel]; ok {
			continue
		}
		seen[s.GroupLabel] = struct{}{}
		out = append(out, s.GroupLabel)
	}
	sort.Strings(out)
	return out
}
