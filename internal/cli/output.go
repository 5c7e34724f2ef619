package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mcoot/chessladder/internal/api/response"
)

const dateTimeFormat = "2006-01-02 15:04"

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case response.Player:
		o.printPlayer(v)
	case response.PlayerList:
		o.printPlayerList(v)
	case response.PlayerHistory:
		o.printHistory(v)
	case response.DeletePlayer:
		fmt.Fprintf(o.w, "Player deleted (%d matches removed)\n", v.DeletedMatches)
	case response.Match:
		o.printMatch(v)
	case response.MatchList:
		o.printMatchList(v)
	case response.RecordedMatch:
		o.printRecordedMatch(v)
	case response.Scoreboard:
		o.printScoreboard(v)
	case response.FunFact:
		fmt.Fprintln(o.w, v.Text)
	case response.Recalculate:
		o.printRecalculate(v)
	case response.Verify:
		o.printVerify(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) table() *tabwriter.Writer {
	return tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Elo: %d\n", p.CurrentElo)
}

func (o *Output) printPlayerList(l response.PlayerList) {
	if len(l.Players) == 0 {
		fmt.Fprintln(o.w, "No players")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "ID\tNAME\tELO")
	for _, p := range l.Players {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.ID, p.Name, p.CurrentElo)
	}
	_ = tw.Flush()
}

func (o *Output) printHistory(h response.PlayerHistory) {
	s := h.Stats
	o.printPlayer(h.Player)
	fmt.Fprintf(o.w, "Peak: %d  Lowest: %d\n", s.PeakElo, s.LowestElo)
	fmt.Fprintf(o.w, "Record: %dW %dL %dD from %d games (%.1f%% won)\n",
		s.Wins, s.Losses, s.Draws, s.GamesPlayed, s.WinRate)
	fmt.Fprintf(o.w, "Colours: %d as white, %d as black\n", s.GamesAsWhite, s.GamesAsBlack)

	if len(h.Matches) == 0 {
		return
	}
	fmt.Fprintln(o.w)
	tw := o.table()
	fmt.Fprintln(tw, "PLAYED\tRESULT\tCOLOUR\tOPPONENT\tELO")
	for _, m := range h.Matches {
		colour := "black"
		if m.AsWhite {
			colour = "white"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s (%d)\t%d -> %d\n",
			m.PlayedAt.Local().Format(dateTimeFormat), m.Result, colour,
			m.OpponentName, m.OpponentElo, m.EloBefore, m.EloAfter)
	}
	_ = tw.Flush()
}

func (o *Output) printMatch(m response.Match) {
	fmt.Fprintf(o.w, "Match: %s (#%d)\n", m.ID, m.Seq)
	fmt.Fprintf(o.w, "White: %s\n", playerLabel(m.PlayerAName, m.PlayerAID))
	fmt.Fprintf(o.w, "Black: %s\n", playerLabel(m.PlayerBName, m.PlayerBID))
	fmt.Fprintf(o.w, "Result: %s\n", m.Result)
	fmt.Fprintf(o.w, "Played: %s\n", m.PlayedAt.Local().Format(dateTimeFormat))
}

func (o *Output) printMatchList(l response.MatchList) {
	if len(l.Matches) == 0 {
		fmt.Fprintln(o.w, "No matches")
		return
	}
	tw := o.table()
	fmt.Fprintln(tw, "ID\tPLAYED\tWHITE\tBLACK\tRESULT")
	for _, m := range l.Matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.PlayedAt.Local().Format(dateTimeFormat),
			playerLabel(m.PlayerAName, m.PlayerAID), playerLabel(m.PlayerBName, m.PlayerBID),
			m.Result)
	}
	_ = tw.Flush()
}

func (o *Output) printRecordedMatch(r response.RecordedMatch) {
	fmt.Fprintf(o.w, "Recorded match %s\n", r.Match.ID)
	fmt.Fprintf(o.w, "  %s: %d\n", r.PlayerA.Name, r.PlayerA.CurrentElo)
	fmt.Fprintf(o.w, "  %s: %d\n", r.PlayerB.Name, r.PlayerB.CurrentElo)
	if r.Replayed {
		fmt.Fprintln(o.w, "Ladder recalculated from history")
	}
}

func (o *Output) printScoreboard(b response.Scoreboard) {
	switch {
	case b.From != nil && b.To != nil:
		fmt.Fprintf(o.w, "Scoreboard (%s): %s to %s\n", b.Period,
			b.From.Format(time.DateOnly), b.To.Format(time.DateOnly))
	default:
		fmt.Fprintf(o.w, "Scoreboard (%s)\n", b.Period)
	}
	fmt.Fprintf(o.w, "Matches: %d\n", b.Matches)
	if b.Leader != nil {
		fmt.Fprintf(o.w, "Leader: %s (%d)\n", b.Leader.Name, b.Leader.Rating)
	}
	if len(b.Entries) == 0 {
		return
	}
	fmt.Fprintln(o.w)
	tw := o.table()
	fmt.Fprintln(tw, "#\tNAME\tELO\tW\tL\tD\tPLAYED")
	for _, e := range b.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			e.Rank, e.Name, e.Rating, e.Wins, e.Losses, e.Draws, e.GamesPlayed)
	}
	_ = tw.Flush()
}

func (o *Output) printRecalculate(r response.Recalculate) {
	fmt.Fprintf(o.w, "Recalculated %d players from %d matches\n", r.Players, r.Matches)
}

func (o *Output) printVerify(v response.Verify) {
	if v.Consistent {
		fmt.Fprintf(o.w, "Ladder consistent: %d players, %d matches\n", v.Players, v.Matches)
		return
	}
	fmt.Fprintf(o.w, "Ladder inconsistent: %d of %d players diverge\n", len(v.Divergences), v.Players)
	tw := o.table()
	fmt.Fprintln(tw, "ID\tNAME\tSTORED\tREPLAYED")
	for _, d := range v.Divergences {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", d.PlayerID, d.Name, d.Stored, d.Replayed)
	}
	_ = tw.Flush()
}

func playerLabel(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
