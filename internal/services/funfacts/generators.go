package funfacts

import (
	"fmt"
	"math"

	"github.com/mcoot/chessladder/internal/dependencies/random"
	"github.com/mcoot/chessladder/internal/model"
)

const (
	colourGapPercent   = 15
	kryptoniteMinGames = 4
	kryptoniteStreak   = 4
	droughtDays        = 10
	streakLength       = 3
	busyDayGames       = 5
	drawishMinGames    = 5
	drawishPercent     = 25
	upsetGap           = 100
	milestoneEvery     = 100
)

type generator struct {
	kind Kind
	fn   func(d *dataset, r random.Random) (string, bool)
}

var generators = []generator{
	{KindWinRate, winRate},
	{KindColour, colour},
	{KindKryptonite, kryptonite},
	{KindDeadHeat, deadHeat},
	{KindDrought, drought},
	{KindWinStreak, winStreak},
	{KindLossStreak, lossStreak},
	{KindUnbeaten, unbeaten},
	{KindBusyDay, busyDay},
	{KindDrawish, drawish},
	{KindUpset, upset},
	{KindMilestone, milestone},
}

type record struct {
	wins, losses, draws int
}

func (r record) games() int {
	return r.wins + r.losses + r.draws
}

func tally(id model.PlayerID, matches []*model.Match) record {
	var rec record
	for _, m := range matches {
		if !m.Involves(id) {
			continue
		}
		switch m.Winner() {
		case id:
			rec.wins++
		case "":
			rec.draws++
		default:
			rec.losses++
		}
	}
	return rec
}

func percent(n, of int) int {
	if of == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(of)))
}

// streak counts consecutive matches from the newest for which hit holds
func streak(matches []*model.Match, hit func(m *model.Match) bool) int {
	n := 0
	for _, m := range matches {
		if !hit(m) {
			break
		}
		n++
	}
	return n
}

func (d *dataset) active() []*model.Player {
	var out []*model.Player
	for _, p := range d.players {
		if len(d.games[p.ID]) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func (d *dataset) headToHead(a, b model.PlayerID) []*model.Match {
	var out []*model.Match
	for _, m := range d.games[a] {
		if m.Opponent(a) == b {
			out = append(out, m)
		}
	}
	return out
}

func winRate(d *dataset, r random.Random) (string, bool) {
	active := d.active()
	if len(active) == 0 {
		return "", false
	}
	p := pick(r, active)
	games := d.games[p.ID]
	rec := tally(p.ID, games)
	return fmt.Sprintf("%s has won %d%% of their %d games.", p.Name, percent(rec.wins, len(games)), len(games)), true
}

func colour(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, p := range d.players {
		var white, black, whiteWins, blackWins int
		for _, m := range d.games[p.ID] {
			if m.PlayerA == p.ID {
				white++
				if m.Outcome == model.OutcomeAWon {
					whiteWins++
				}
			} else {
				black++
				if m.Outcome == model.OutcomeBWon {
					blackWins++
				}
			}
		}
		if white == 0 || black == 0 {
			continue
		}
		whiteRate, blackRate := percent(whiteWins, white), percent(blackWins, black)
		switch {
		case whiteRate-blackRate > colourGapPercent:
			candidates = append(candidates, fmt.Sprintf("%s wins more often as white (%d%%) than as black (%d%%).", p.Name, whiteRate, blackRate))
		case blackRate-whiteRate > colourGapPercent:
			candidates = append(candidates, fmt.Sprintf("%s wins more often as black (%d%%) than as white (%d%%).", p.Name, blackRate, whiteRate))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func kryptonite(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, victim := range d.players {
		for _, nemesis := range d.players {
			if victim.ID == nemesis.ID {
				continue
			}
			h2h := d.headToHead(victim.ID, nemesis.ID)
			if len(h2h) < kryptoniteMinGames {
				continue
			}
			n := streak(h2h, func(m *model.Match) bool { return m.Winner() == nemesis.ID })
			if n >= kryptoniteStreak {
				candidates = append(candidates, fmt.Sprintf("%s is %s's kryptonite: %s lost the last %d games between them.", nemesis.Name, victim.Name, victim.Name, n))
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func deadHeat(d *dataset, _ random.Random) (string, bool) {
	week := since(d.matches, d.startOfWeek())
	var active []*model.Player
	records := make(map[model.PlayerID]record)
	for _, p := range d.players {
		rec := tally(p.ID, week)
		if rec.games() > 0 {
			active = append(active, p)
			records[p.ID] = rec
		}
	}
	for i, a := range active {
		for _, b := range active[i+1:] {
			if records[a.ID] == records[b.ID] {
				rec := records[a.ID]
				return fmt.Sprintf("%s and %s are dead level this week at %dW %dL %dD.", a.Name, b.Name, rec.wins, rec.losses, rec.draws), true
			}
		}
	}
	return "", false
}

func drought(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, p := range d.players {
		for _, opp := range d.players {
			if p.ID == opp.ID {
				continue
			}
			for _, m := range d.headToHead(p.ID, opp.ID) {
				if m.Winner() != p.ID {
					continue
				}
				days := int(math.Ceil(d.now.Sub(m.PlayedAt).Hours() / 24))
				if days > droughtDays {
					candidates = append(candidates, fmt.Sprintf("%s hasn't beaten %s since %s (%d days ago).",
						p.Name, opp.Name, m.PlayedAt.In(d.location).Format("2 Jan"), days))
				}
				break
			}
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func winStreak(d *dataset, r random.Random) (string, bool) {
	week := since(d.matches, d.startOfWeek())
	var candidates []string
	for _, p := range d.players {
		var games []*model.Match
		for _, m := range week {
			if m.Involves(p.ID) {
				games = append(games, m)
			}
		}
		n := streak(games, func(m *model.Match) bool { return m.Winner() == p.ID })
		if n >= streakLength {
			candidates = append(candidates, fmt.Sprintf("%s is on a %d game winning streak this week.", p.Name, n))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func lossStreak(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, p := range d.players {
		n := streak(d.games[p.ID], func(m *model.Match) bool { return m.Loser() == p.ID })
		if n >= streakLength {
			candidates = append(candidates, fmt.Sprintf("%s has lost their last %d games.", p.Name, n))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func unbeaten(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, p := range d.players {
		for _, m := range d.games[p.ID] {
			if m.Loser() != p.ID {
				continue
			}
			if d.now.Sub(m.PlayedAt).Hours() >= 24 {
				candidates = append(candidates, fmt.Sprintf("%s hasn't lost since %s.", p.Name, m.PlayedAt.In(d.location).Format("Monday 2 January")))
			}
			break
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func busyDay(d *dataset, _ random.Random) (string, bool) {
	today := since(d.matches, d.startOfDay())
	if len(today) < busyDayGames {
		return "", false
	}
	return fmt.Sprintf("%d games have been played today.", len(today)), true
}

func drawish(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, p := range d.players {
		games := d.games[p.ID]
		if len(games) < drawishMinGames {
			continue
		}
		rec := tally(p.ID, games)
		if rate := percent(rec.draws, len(games)); rate > drawishPercent {
			candidates = append(candidates, fmt.Sprintf("%s draws %d%% of their games.", p.Name, rate))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func upset(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, m := range since(d.matches, d.startOfDay()) {
		winner, loser := d.byID[m.Winner()], d.byID[m.Loser()]
		if winner == nil || loser == nil {
			continue
		}
		if winner.CurrentElo < loser.CurrentElo-upsetGap {
			candidates = append(candidates, fmt.Sprintf("Upset! %s (%d) beat %s (%d) today.", winner.Name, winner.CurrentElo, loser.Name, loser.CurrentElo))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}

func milestone(d *dataset, r random.Random) (string, bool) {
	var candidates []string
	for _, p := range d.players {
		if n := len(d.games[p.ID]); n > 0 && n%milestoneEvery == 0 {
			candidates = append(candidates, fmt.Sprintf("%s has played %d games on the ladder!", p.Name, n))
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return pick(r, candidates), true
}
