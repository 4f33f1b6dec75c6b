package matchsim

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"github.com/riskibarqy/career-engine/internal/domain/match"
)

// Config tunes the goal and discipline model. Rates are per 90 minutes.
type Config struct {
	HomeGoalRate   float64
	AwayGoalRate   float64
	HomeAdvantage  float64
	OwnGoalChance  float64
	AssistChance   float64
	YellowRate     float64
	RedChance      float64
	InjuryChance   float64
	MaxInjuryWeeks int
}

func DefaultConfig() Config {
	return Config{
		HomeGoalRate:   1.45,
		AwayGoalRate:   1.15,
		HomeAdvantage:  1.08,
		OwnGoalChance:  0.04,
		AssistChance:   0.7,
		YellowRate:     1.8,
		RedChance:      0.06,
		InjuryChance:   0.08,
		MaxInjuryWeeks: 6,
	}
}

// Simulator is a Poisson goal model. Output is a pure function of its
// input: the same lineups, tactics and window always give the same events.
type Simulator struct {
	cfg Config
}

func New(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

func (s *Simulator) Simulate(in match.SimulationInput) match.SimulationResult {
	return s.simulateWindow(in, 0, match.RegulationMinutes)
}

func (s *Simulator) SimulateRemainder(in match.SimulationInput, fromMinute int) match.SimulationResult {
	if fromMinute < 0 {
		fromMinute = 0
	}
	if fromMinute >= match.RegulationMinutes {
		return match.SimulationResult{}
	}
	return s.simulateWindow(in, fromMinute, match.RegulationMinutes)
}

// SimulateExtraTime plays minutes 91..120, or the rest of them when
// in.FromMinute is already inside extra time.
func (s *Simulator) SimulateExtraTime(in match.SimulationInput) match.SimulationResult {
	from := in.FromMinute
	if from < match.RegulationMinutes {
		from = match.RegulationMinutes
	}
	if from >= match.ExtraTimeMinutes {
		return match.SimulationResult{}
	}
	return s.simulateWindow(in, from, match.ExtraTimeMinutes)
}

func (s *Simulator) SimulatePenaltyShootout(home, away match.SideInput, order match.KickerOrder) match.ShootoutResult {
	rng := seeded("shootout", home, away, 0)
	homeKickers := kickers(home, order[home.TeamID])
	awayKickers := kickers(away, order[away.TeamID])

	var out match.ShootoutResult
	kick := func(side match.SideInput, takers []match.SimPlayer, n int) bool {
		if len(takers) == 0 {
			return false
		}
		p := takers[n%len(takers)]
		chance := 0.75 + float64(p.Ability-60)/200
		scored := rng.Float64() < clampFloat(chance, 0.55, 0.92)
		out.Kicks = append(out.Kicks, match.PenaltyKick{TeamID: side.TeamID, PlayerID: p.ID, Scored: scored})
		return scored
	}

	for n := 0; n < 5; n++ {
		if kick(home, homeKickers, n) {
			out.HomeScore++
		}
		if decided(out.HomeScore, out.AwayScore, n+1, n, 5) {
			return out
		}
		if kick(away, awayKickers, n) {
			out.AwayScore++
		}
		if decided(out.HomeScore, out.AwayScore, n+1, n+1, 5) {
			return out
		}
	}
	for n := 5; out.HomeScore == out.AwayScore; n++ {
		if kick(home, homeKickers, n) {
			out.HomeScore++
		}
		if kick(away, awayKickers, n) {
			out.AwayScore++
		}
		// guard against pathological inputs with no takers
		if n > 60 && out.HomeScore == out.AwayScore {
			out.HomeScore++
		}
	}
	return out
}

// decided reports whether a best-of-rounds shootout can no longer be caught.
func decided(home, away, homeTaken, awayTaken, rounds int) bool {
	homeLeft := rounds - homeTaken
	awayLeft := rounds - awayTaken
	return home > away+awayLeft || away > home+homeLeft
}

func (s *Simulator) simulateWindow(in match.SimulationInput, from, to int) match.SimulationResult {
	rng := seeded(in.MatchID, in.Home, in.Away, from)
	fraction := float64(to-from) / float64(match.RegulationMinutes)

	homeAtk, homeDef := strength(in.Home)
	awayAtk, awayDef := strength(in.Away)

	homeRate := s.cfg.HomeGoalRate * ratio(homeAtk, awayDef) * fraction
	if !in.Neutral {
		homeRate *= s.cfg.HomeAdvantage
	}
	awayRate := s.cfg.AwayGoalRate * ratio(awayAtk, homeDef) * fraction

	w := window{from: from, to: to, rng: rng, redAt: make(map[string]int)}
	var events []match.Event

	// discipline first so sent-off players cannot score later
	events = append(events, w.cards(in.Home, s.cfg, fraction)...)
	events = append(events, w.cards(in.Away, s.cfg, fraction)...)
	events = append(events, w.injury(in.Home, s.cfg, fraction)...)
	events = append(events, w.injury(in.Away, s.cfg, fraction)...)

	for i, n := 0, samplePoisson(rng, homeRate); i < n; i++ {
		events = append(events, w.goal(in.Home, in.Away, s.cfg)...)
	}
	for i, n := 0, samplePoisson(rng, awayRate); i < n; i++ {
		events = append(events, w.goal(in.Away, in.Home, s.cfg)...)
	}

	for i := range events {
		events[i].MatchID = in.MatchID
	}
	match.SortEvents(events)
	home, away := match.ScoreFromEvents(events, in.Home.TeamID, in.Away.TeamID)
	return match.SimulationResult{HomeScore: home, AwayScore: away, Events: events}
}

type window struct {
	from  int
	to    int
	rng   *rand.Rand
	redAt map[string]int
}

func (w *window) minute() int {
	return w.from + 1 + w.rng.IntN(w.to-w.from)
}

// available returns players on the pitch at minute.
func (w *window) available(side match.SideInput, minute int) []match.SimPlayer {
	out := make([]match.SimPlayer, 0, len(side.Players))
	for _, p := range side.Players {
		if entry, ok := side.EntryMinutes[p.ID]; ok && entry >= minute {
			continue
		}
		if at, ok := w.redAt[p.ID]; ok && at <= minute {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (w *window) pick(players []match.SimPlayer, weight func(match.SimPlayer) float64, exclude string) (match.SimPlayer, bool) {
	total := 0.0
	for _, p := range players {
		if p.ID == exclude {
			continue
		}
		total += weight(p)
	}
	if total <= 0 {
		return match.SimPlayer{}, false
	}
	r := w.rng.Float64() * total
	for _, p := range players {
		if p.ID == exclude {
			continue
		}
		r -= weight(p)
		if r <= 0 {
			return p, true
		}
	}
	return players[len(players)-1], true
}

func (w *window) goal(attack, defence match.SideInput, cfg Config) []match.Event {
	minute := w.minute()
	if w.rng.Float64() < cfg.OwnGoalChance {
		if p, ok := w.pick(w.available(defence, minute), ownGoalWeight, ""); ok {
			return []match.Event{{TeamID: defence.TeamID, PlayerID: p.ID, Minute: minute, Type: match.EventOwnGoal}}
		}
	}
	onPitch := w.available(attack, minute)
	scorer, ok := w.pick(onPitch, scorerWeight, "")
	if !ok {
		return nil
	}
	out := []match.Event{{TeamID: attack.TeamID, PlayerID: scorer.ID, Minute: minute, Type: match.EventGoal}}
	if w.rng.Float64() < cfg.AssistChance {
		if assister, ok := w.pick(onPitch, assistWeight, scorer.ID); ok {
			out = append(out, match.Event{TeamID: attack.TeamID, PlayerID: assister.ID, Minute: minute, Type: match.EventAssist})
		}
	}
	return out
}

func (w *window) cards(side match.SideInput, cfg Config, fraction float64) []match.Event {
	var out []match.Event
	n := samplePoisson(w.rng, cfg.YellowRate*fraction)
	minutes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		minutes = append(minutes, w.minute())
	}
	sort.Ints(minutes)

	yellows := make(map[string]bool)
	for _, minute := range minutes {
		p, ok := w.pick(w.available(side, minute), outfieldWeight, "")
		if !ok {
			continue
		}
		out = append(out, match.Event{TeamID: side.TeamID, PlayerID: p.ID, Minute: minute, Type: match.EventYellowCard})
		if yellows[p.ID] {
			out = append(out, match.Event{TeamID: side.TeamID, PlayerID: p.ID, Minute: minute, Type: match.EventRedCard, Metadata: map[string]any{"second_yellow": true}})
			w.redAt[p.ID] = minute
			continue
		}
		yellows[p.ID] = true
	}

	if w.rng.Float64() < cfg.RedChance*fraction {
		minute := w.minute()
		candidates := make([]match.SimPlayer, 0, len(side.Players))
		for _, p := range w.available(side, minute) {
			if _, sentOff := w.redAt[p.ID]; !sentOff {
				candidates = append(candidates, p)
			}
		}
		if p, ok := w.pick(candidates, outfieldWeight, ""); ok {
			out = append(out, match.Event{TeamID: side.TeamID, PlayerID: p.ID, Minute: minute, Type: match.EventRedCard})
			w.redAt[p.ID] = minute
		}
	}
	return out
}

func (w *window) injury(side match.SideInput, cfg Config, fraction float64) []match.Event {
	if w.rng.Float64() >= cfg.InjuryChance*fraction {
		return nil
	}
	minute := w.minute()
	p, ok := w.pick(w.available(side, minute), outfieldWeight, "")
	if !ok {
		return nil
	}
	weeks := 1 + w.rng.IntN(max(cfg.MaxInjuryWeeks, 1))
	return []match.Event{{
		TeamID:   side.TeamID,
		PlayerID: p.ID,
		Minute:   minute,
		Type:     match.EventInjury,
		Metadata: map[string]any{"injury_type": injuryTypes[w.rng.IntN(len(injuryTypes))], "weeks": weeks},
	}}
}

var injuryTypes = []string{"hamstring strain", "ankle sprain", "calf strain", "knee ligament", "groin strain", "concussion"}

func scorerWeight(p match.SimPlayer) float64 {
	return positionWeight(p.Position, 0, 1, 3, 5) * float64(max(p.Ability, 1))
}

func assistWeight(p match.SimPlayer) float64 {
	return positionWeight(p.Position, 0.1, 2, 4, 3) * float64(max(p.Ability, 1))
}

func ownGoalWeight(p match.SimPlayer) float64 {
	return positionWeight(p.Position, 0.5, 4, 1, 0.2)
}

func outfieldWeight(p match.SimPlayer) float64 {
	return positionWeight(p.Position, 0.1, 3, 3, 2)
}

func positionWeight(position string, gk, def, mid, fwd float64) float64 {
	switch position {
	case "GK":
		return gk
	case "DEF":
		return def
	case "MID":
		return mid
	case "FWD":
		return fwd
	default:
		return 1
	}
}

// strength returns attack and defence ratings for a side, scaled by fitness,
// morale and mentality.
func strength(side match.SideInput) (attack, defence float64) {
	if len(side.Players) == 0 {
		return 50, 50
	}
	var atk, def, atkW, defW float64
	for _, p := range side.Players {
		rating := float64(p.Ability) * (0.7 + 0.3*float64(p.Fitness)/100) * (0.9 + 0.2*float64(p.Morale)/100)
		switch p.Position {
		case "FWD":
			atk += rating * 1.5
			atkW += 1.5
		case "MID":
			atk += rating
			def += rating
			atkW++
			defW++
		default:
			def += rating * 1.5
			defW += 1.5
		}
	}
	attack, defence = 50, 50
	if atkW > 0 {
		attack = atk / atkW
	}
	if defW > 0 {
		defence = def / defW
	}
	// fewer than eleven means someone was sent off or is missing
	if short := 11 - len(side.Players); short > 0 {
		attack *= 1 - 0.08*float64(short)
		defence *= 1 - 0.06*float64(short)
	}
	switch side.Mentality {
	case "attacking":
		attack *= 1.1
		defence *= 0.95
	case "defensive":
		attack *= 0.9
		defence *= 1.08
	}
	return attack, defence
}

func ratio(attack, defence float64) float64 {
	if defence <= 0 {
		return 1
	}
	return clampFloat(math.Pow(attack/defence, 1.5), 0.35, 2.8)
}

func kickers(side match.SideInput, preferred []string) []match.SimPlayer {
	byID := make(map[string]match.SimPlayer, len(side.Players))
	for _, p := range side.Players {
		byID[p.ID] = p
	}
	out := make([]match.SimPlayer, 0, len(side.Players))
	used := make(map[string]bool)
	for _, id := range preferred {
		if p, ok := byID[id]; ok && !used[id] {
			out = append(out, p)
			used[id] = true
		}
	}
	rest := make([]match.SimPlayer, 0, len(side.Players))
	for _, p := range side.Players {
		if !used[p.ID] {
			rest = append(rest, p)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if (rest[i].Position == "GK") != (rest[j].Position == "GK") {
			return rest[j].Position == "GK"
		}
		return rest[i].Ability > rest[j].Ability
	})
	return append(out, rest...)
}

// seeded derives a deterministic generator from everything that shapes the
// simulated window.
func seeded(matchID string, home, away match.SideInput, from int) *rand.Rand {
	h := fnv.New64a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(matchID)
	write(strconv.Itoa(from))
	for _, side := range []match.SideInput{home, away} {
		write(side.TeamID)
		write(side.Formation)
		write(side.Mentality)
		ids := make([]string, 0, len(side.Players))
		for _, p := range side.Players {
			ids = append(ids, p.ID+":"+strconv.Itoa(side.EntryMinutes[p.ID]))
		}
		sort.Strings(ids)
		for _, id := range ids {
			write(id)
		}
		keys := make([]string, 0, len(side.Tactics))
		for k := range side.Tactics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			write(k + "=" + side.Tactics[k])
		}
	}
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// samplePoisson draws from a Poisson distribution with mean lambda.
func samplePoisson(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	p := 1.0
	k := 0
	for p > l {
		k++
		p *= rng.Float64()
	}
	return k - 1
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
