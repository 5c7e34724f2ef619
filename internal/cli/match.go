package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessladder/internal/api/request"
	"github.com/mcoot/chessladder/internal/api/response"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands",
	}

	cmd.AddCommand(newMatchRecordCmd())
	cmd.AddCommand(newMatchListCmd())
	cmd.AddCommand(newMatchEditCmd())
	cmd.AddCommand(newMatchDeleteCmd())

	return cmd
}

func newMatchRecordCmd() *cobra.Command {
	var a, b, result, playedAt string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a finished match",
		Long: `Record a finished match between two players.

Player A plays white. The result is one of:
  - A_WON (white won)
  - B_WON (black won)
  - DRAW

--played-at back-dates the match (YYYY-MM-DD or RFC 3339). Recording a
match earlier than the latest one recalculates the whole ladder.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.RecordMatchRequest{PlayerAID: a, PlayerBID: b, Result: result}
			if playedAt != "" {
				t, err := parseTimeFlag(playedAt)
				if err != nil {
					return fmt.Errorf("--played-at: %w", err)
				}
				req.PlayedAt = &t
			}

			var recorded response.RecordedMatch
			if err := client.Post("/api/v1/matches", req, &recorded); err != nil {
				return err
			}

			output(cmd).Print(recorded)
			return nil
		},
	}

	cmd.Flags().StringVar(&a, "a", "", "Player A (white) ID (required)")
	cmd.Flags().StringVar(&b, "b", "", "Player B (black) ID (required)")
	cmd.Flags().StringVar(&result, "result", "", "A_WON, B_WON or DRAW (required)")
	cmd.Flags().StringVar(&playedAt, "played-at", "", "When the match was played")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

func newMatchListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent matches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/matches"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}

			var result response.MatchList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum matches to show (server default if unset)")

	return cmd
}

func newMatchEditCmd() *cobra.Command {
	var result string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct a match result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var updated response.Match
			path := "/api/v1/matches/" + url.PathEscape(args[0])
			if err := client.Put(path, request.UpdateMatchRequest{Result: result}, &updated); err != nil {
				return err
			}

			output(cmd).Print(updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&result, "result", "", "A_WON, B_WON or DRAW (required)")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

func newMatchDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a match and recalculate the ladder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/matches/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}

			output(cmd).PrintMessage("Match deleted")
			return nil
		},
	}
}

// parseTimeFlag accepts RFC 3339 or a local calendar date
func parseTimeFlag(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", raw)
	}
	return t, nil
}
