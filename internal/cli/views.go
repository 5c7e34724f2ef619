package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessladder/internal/api/response"
)

func newScoreboardCmd() *cobra.Command {
	var period, date, from, to string

	cmd := &cobra.Command{
		Use:   "scoreboard",
		Short: "Show the ranked scoreboard",
		Long: `Show the ranked scoreboard for a period.

Periods:
  - week: the ladder week containing --date (default today)
  - all: every match ever played
  - range: matches between --from and --to

Dates are YYYY-MM-DD in the ladder's time zone, or RFC 3339.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for key, val := range map[string]string{"period": period, "date": date, "from": from, "to": to} {
				if val != "" {
					q.Set(key, val)
				}
			}
			path := "/api/v1/scoreboard"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var result response.Scoreboard
			if err := client.Get(path, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "week, all or range (default week)")
	cmd.Flags().StringVar(&date, "date", "", "Any day in the week to show")
	cmd.Flags().StringVar(&from, "from", "", "Range start (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Range end (exclusive)")

	return cmd
}

func newFactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fact",
		Short: "Show a fun fact about the ladder",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.FunFact
			if err := client.Get("/api/v1/fun-facts", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
