package match

import "sort"

type EventType string

const (
	EventGoal         EventType = "goal"
	EventOwnGoal      EventType = "own_goal"
	EventAssist       EventType = "assist"
	EventYellowCard   EventType = "yellow_card"
	EventRedCard      EventType = "red_card"
	EventInjury       EventType = "injury"
	EventSubstitution EventType = "substitution"
)

// RegulationMinutes is the last minute of normal time. Events after it
// belong to extra time.
const RegulationMinutes = 90

// ExtraTimeMinutes is the last minute of extra time.
const ExtraTimeMinutes = 120

// Event is one timeline entry of a match. TeamID is the team of PlayerID,
// so an own goal carries the conceding team.
type Event struct {
	ID            string
	GameID        string
	MatchID       string
	CompetitionID string
	TeamID        string
	PlayerID      string
	Minute        int
	Type          EventType
	Metadata      map[string]any
}

func (e Event) IsCard() bool {
	return e.Type == EventYellowCard || e.Type == EventRedCard
}

// InjuryWeeks reads the expected absence recorded on an injury event.
func (e Event) InjuryWeeks() int {
	switch v := e.Metadata["weeks"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (e Event) InjuryType() string {
	v, _ := e.Metadata["injury_type"].(string)
	return v
}

// SortEvents orders events by minute. Events in the same minute keep their
// relative order.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Minute < events[j].Minute
	})
}

// ScoreFromEvents counts goal-type events per side. Own goals are credited
// to the opponent of the scorer's team.
func ScoreFromEvents(events []Event, homeTeamID, awayTeamID string) (home, away int) {
	for _, e := range events {
		switch e.Type {
		case EventGoal:
			if e.TeamID == homeTeamID {
				home++
			} else if e.TeamID == awayTeamID {
				away++
			}
		case EventOwnGoal:
			if e.TeamID == homeTeamID {
				away++
			} else if e.TeamID == awayTeamID {
				home++
			}
		}
	}
	return home, away
}

// SplitAtMinute partitions events into those at or before minute and those
// after it.
func SplitAtMinute(events []Event, minute int) (kept, removed []Event) {
	for _, e := range events {
		if e.Minute > minute {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}

// FilterWindow returns events with from < minute <= to.
func FilterWindow(events []Event, from, to int) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Minute > from && e.Minute <= to {
			out = append(out, e)
		}
	}
	return out
}
