package competition

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateRoundRobin(t *testing.T) {
	start := time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	Convey("Given four teams", t, func() {
		teams := []string{"a", "b", "c", "d"}

		Convey("When a double round robin is generated", func() {
			pairings, err := GenerateRoundRobin(teams, start, week)
			So(err, ShouldBeNil)

			Convey("Then there are six rounds of two matches", func() {
				So(len(pairings), ShouldEqual, 12)
				perRound := map[int]int{}
				for _, p := range pairings {
					perRound[p.RoundNumber]++
				}
				So(len(perRound), ShouldEqual, 6)
				for _, count := range perRound {
					So(count, ShouldEqual, 2)
				}
			})

			Convey("Then every ordered pair plays exactly once", func() {
				seen := map[[2]string]int{}
				for _, p := range pairings {
					seen[[2]string{p.HomeTeamID, p.AwayTeamID}]++
				}
				So(len(seen), ShouldEqual, 12)
				for _, count := range seen {
					So(count, ShouldEqual, 1)
				}
			})

			Convey("Then no team plays twice in one round", func() {
				byRound := map[int]map[string]bool{}
				for _, p := range pairings {
					if byRound[p.RoundNumber] == nil {
						byRound[p.RoundNumber] = map[string]bool{}
					}
					So(byRound[p.RoundNumber][p.HomeTeamID], ShouldBeFalse)
					So(byRound[p.RoundNumber][p.AwayTeamID], ShouldBeFalse)
					byRound[p.RoundNumber][p.HomeTeamID] = true
					byRound[p.RoundNumber][p.AwayTeamID] = true
				}
			})

			Convey("Then round dates follow the interval", func() {
				for _, p := range pairings {
					So(p.Date.Equal(start.Add(time.Duration(p.RoundNumber-1)*week)), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given an odd number of teams", t, func() {
		pairings, err := GenerateRoundRobin([]string{"a", "b", "c"}, start, week)
		So(err, ShouldBeNil)

		Convey("Then byes are skipped", func() {
			So(len(pairings), ShouldEqual, 6)
			for _, p := range pairings {
				So(p.HomeTeamID, ShouldNotBeEmpty)
				So(p.AwayTeamID, ShouldNotBeEmpty)
			}
		})
	})

	Convey("Given a single team", t, func() {
		_, err := GenerateRoundRobin([]string{"a"}, start, week)
		So(err, ShouldNotBeNil)
	})
}

func TestSeedPairs(t *testing.T) {
	Convey("Seeds pair best against worst", t, func() {
		pairs := SeedPairs([]string{"1", "2", "3", "4", "5", "6"})
		So(pairs, ShouldResemble, [][2]string{{"1", "6"}, {"2", "5"}, {"3", "4"}})
	})

	Convey("Round names follow the teams left", t, func() {
		So(RoundName(2), ShouldEqual, "Final")
		So(RoundName(4), ShouldEqual, "Semi-finals")
		So(RoundName(16), ShouldEqual, "Round of 16")
	})
}
