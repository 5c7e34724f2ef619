package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/chessladder/internal/events"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream ladder change events",
		Long: `Connect to the server's SSE endpoint and stream ladder changes in real-time.

Events include:
  - player_registered: A player joined the ladder
  - player_deleted: A player and their matches were removed
  - match_recorded: A result was recorded
  - match_edited: A result was corrected
  - match_deleted: A match was removed
  - ladder_recomputed: Every rating was rebuilt from history

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return streamEvents(ctx, cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent is one received event in --json output
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, jsonOutput bool) error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	err = events.Decode(resp.Body, func(msg events.Message) error {
		printEvent(w, msg, jsonOutput)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

func printEvent(w io.Writer, msg events.Message, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		data, _ := json.Marshal(SSEEvent{Time: now, Event: msg.Event, Data: msg.Data})
		fmt.Fprintln(w, string(data))
		return
	}

	if msg.Event == "connected" {
		fmt.Fprintln(w, "Connected to ladder events")
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", now.Format(time.DateTime), msg.Event, describeEvent(msg.Data))
}

// describeEvent summarises a payload on one line, falling back to the raw data
func describeEvent(data string) string {
	var p events.Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return strings.ReplaceAll(data, "\n", " ")
	}
	var parts []string
	if p.PlayerID != "" {
		parts = append(parts, "player "+p.PlayerID)
	}
	if p.MatchID != "" {
		parts = append(parts, "match "+p.MatchID)
	}
	for _, r := range p.Ratings {
		parts = append(parts, fmt.Sprintf("%s=%d", r.PlayerID, r.Rating))
	}
	return strings.Join(parts, " ")
}
