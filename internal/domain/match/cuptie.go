package match

type ResolutionType string

const (
	ResolutionNormal    ResolutionType = "normal"
	ResolutionExtraTime ResolutionType = "extra_time"
	ResolutionPenalties ResolutionType = "penalties"
	// ResolutionWalkover marks a bye: the tie has no legs.
	ResolutionWalkover ResolutionType = "walkover"
)

// Resolution records how a tie was decided. Score is the deciding scoreline
// for normal and extra-time wins, oriented to the tie's home team.
type Resolution struct {
	Type         ResolutionType `json:"type"`
	Score        string         `json:"score,omitempty"`
	ScoreAfterET string         `json:"score_after_et,omitempty"`
	Penalties    string         `json:"penalties,omitempty"`
	Aggregate    bool           `json:"aggregate,omitempty"`
}

// CupTie is a knockout pairing played over one or two legs. Once Completed
// it is never reopened.
type CupTie struct {
	ID               string
	GameID           string
	CompetitionID    string
	RoundNumber      int
	HomeTeamID       string
	AwayTeamID       string
	FirstLegMatchID  string
	SecondLegMatchID string
	WinnerID         string
	Completed        bool
	Resolution       *Resolution
}

func (t CupTie) TwoLegged() bool {
	return t.SecondLegMatchID != ""
}

func (t CupTie) LoserID() string {
	switch t.WinnerID {
	case "":
		return ""
	case t.HomeTeamID:
		return t.AwayTeamID
	default:
		return t.HomeTeamID
	}
}

func (t CupTie) Involves(teamID string) bool {
	return teamID != "" && (t.HomeTeamID == teamID || t.AwayTeamID == teamID)
}
