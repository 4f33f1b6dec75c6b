package competition

import (
	"fmt"
	"time"
)

// Pairing is one generated fixture before it is persisted as a match.
type Pairing struct {
	RoundNumber int
	HomeTeamID  string
	AwayTeamID  string
	Date        time.Time
}

// GenerateRoundRobin returns a double round robin: every team meets every
// other team once at home and once away. Rounds are spaced by interval from
// start. An odd team count gives one team a bye each round.
func GenerateRoundRobin(teamIDs []string, start time.Time, interval time.Duration) ([]Pairing, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("round robin needs at least 2 teams, got %d", len(teamIDs))
	}
	if interval <= 0 {
		return nil, fmt.Errorf("round robin interval must be positive")
	}

	teams := append([]string(nil), teamIDs...)
	if len(teams)%2 != 0 {
		teams = append(teams, "")
	}
	n := len(teams)
	roundsPerHalf := n - 1

	out := make([]Pairing, 0, roundsPerHalf*n)
	firstHalf := make([][]Pairing, 0, roundsPerHalf)
	for round := 0; round < roundsPerHalf; round++ {
		date := start.Add(time.Duration(round) * interval)
		pairs := make([]Pairing, 0, n/2)
		for i := 0; i < n/2; i++ {
			home, away := teams[i], teams[n-1-i]
			if home == "" || away == "" {
				continue
			}
			// alternate the fixed team's venue so it does not always play at home
			if i == 0 && round%2 == 1 {
				home, away = away, home
			}
			pairs = append(pairs, Pairing{RoundNumber: round + 1, HomeTeamID: home, AwayTeamID: away, Date: date})
		}
		firstHalf = append(firstHalf, pairs)

		last := teams[n-1]
		copy(teams[2:], teams[1:n-1])
		teams[1] = last
	}

	for _, pairs := range firstHalf {
		out = append(out, pairs...)
	}
	for round, pairs := range firstHalf {
		date := start.Add(time.Duration(roundsPerHalf+round) * interval)
		for _, p := range pairs {
			out = append(out, Pairing{
				RoundNumber: roundsPerHalf + round + 1,
				HomeTeamID:  p.AwayTeamID,
				AwayTeamID:  p.HomeTeamID,
				Date:        date,
			})
		}
	}
	return out, nil
}

// SeedPairs pairs a seeded list best against worst: 1v8, 2v7, ...
// The better seed is listed first. An odd trailing team is dropped.
func SeedPairs(seeded []string) [][2]string {
	out := make([][2]string, 0, len(seeded)/2)
	for i, j := 0, len(seeded)-1; i < j; i, j = i+1, j-1 {
		out = append(out, [2]string{seeded[i], seeded[j]})
	}
	return out
}

// RoundName names a knockout round by how many teams are left in it.
func RoundName(teamsLeft int) string {
	switch teamsLeft {
	case 2:
		return "Final"
	case 4:
		return "Semi-finals"
	case 8:
		return "Quarter-finals"
	default:
		return fmt.Sprintf("Round of %d", teamsLeft)
	}
}
