package e2e_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessladder/internal/api"
	"github.com/mcoot/chessladder/internal/api/response"
	"github.com/mcoot/chessladder/internal/config"
	"github.com/mcoot/chessladder/internal/factory"
	"github.com/mcoot/chessladder/internal/testutil"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "ladder-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ladder")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func (r *cliRunner) runText(args ...string) (string, error) {
	fullArgs := append([]string{"--server", r.serverURL}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T, storageCfg config.StorageConfig) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := testutil.NopLogger()
	app, err := factory.New(context.Background(), factory.Config{
		Storage: storageCfg,
		Ladder:  config.Default().Ladder,
		Logger:  logger,
	})
	require.NoError(t, err)

	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		LadderController:  app.LadderController,
		ScoreboardService: app.ScoreboardService,
		HistoryService:    app.HistoryService,
		FunFactsService:   app.FunFactsService,
		Events:            app.Events,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	server.RegisterOnShutdown(app.Events.Close)

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

func decode[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t, config.StorageConfig{})
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "ok", decode[response.Health](t, output).Status)
}

func TestCLI_LadderFlow(t *testing.T) {
	ts := startTestServer(t, config.StorageConfig{})
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "add", "--name", "alice")
	require.NoError(t, err, "output: %s", output)
	alice := decode[response.Player](t, output)
	assert.Equal(t, 1200, alice.CurrentElo)

	output, err = cli.run("player", "add", "--name", "bob")
	require.NoError(t, err, "output: %s", output)
	bob := decode[response.Player](t, output)

	// Two wins for alice
	output, err = cli.run("match", "record", "--a", alice.ID, "--b", bob.ID, "--result", "A_WON")
	require.NoError(t, err, "output: %s", output)
	first := decode[response.RecordedMatch](t, output)
	assert.Equal(t, 1248, first.PlayerA.CurrentElo)
	assert.Equal(t, 1152, first.PlayerB.CurrentElo)

	output, err = cli.run("match", "record", "--a", bob.ID, "--b", alice.ID, "--result", "B_WON")
	require.NoError(t, err, "output: %s", output)
	second := decode[response.RecordedMatch](t, output)
	assert.Equal(t, 1283, second.PlayerB.CurrentElo)
	assert.Equal(t, 1117, second.PlayerA.CurrentElo)

	output, err = cli.run("scoreboard")
	require.NoError(t, err, "output: %s", output)
	board := decode[response.Scoreboard](t, output)
	assert.Equal(t, 2, board.Matches)
	require.NotNil(t, board.Leader)
	assert.Equal(t, "alice", board.Leader.Name)

	output, err = cli.run("player", "show", alice.ID)
	require.NoError(t, err, "output: %s", output)
	history := decode[response.PlayerHistory](t, output)
	assert.Equal(t, 2, history.Stats.Wins)
	assert.Equal(t, 1283, history.Stats.PeakElo)
	assert.Len(t, history.Checkpoints, 3)

	// Correcting the first result replays the ladder
	output, err = cli.run("match", "edit", first.Match.ID, "--result", "DRAW")
	require.NoError(t, err, "output: %s", output)

	output, err = cli.run("verify")
	require.NoError(t, err, "output: %s", output)
	assert.True(t, decode[response.Verify](t, output).Consistent)

	output, err = cli.run("fact")
	require.NoError(t, err, "output: %s", output)
	assert.NotEmpty(t, decode[response.FunFact](t, output).Text)

	output, err = cli.runText("scoreboard", "--period", "all")
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "Leader: alice")
}

func TestCLI_Transfer(t *testing.T) {
	dir := t.TempDir()
	sqlitePath := filepath.Join(dir, "ladder.db")

	ts := startTestServer(t, config.StorageConfig{Type: config.StorageSQLite, SQLitePath: sqlitePath})
	cli := newCLIRunner(t, ts.addr)

	for _, name := range []string{"alice", "bob"} {
		output, err := cli.run("player", "add", "--name", name)
		require.NoError(t, err, "output: %s", output)
	}
	ts.shutdown()

	boltPath := filepath.Join(dir, "ladder.bolt")
	output, err := cli.runText("transfer", "--from-type", "sqlite", "--from", sqlitePath, "--to-type", "bolt", "--to", boltPath)
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "Transferred 2 players and 0 matches")

	ts = startTestServer(t, config.StorageConfig{Type: config.StorageBolt, BoltPath: boltPath})
	defer ts.shutdown()
	cli.serverURL = ts.addr

	output, err = cli.run("player", "list")
	require.NoError(t, err, "output: %s", output)
	assert.Len(t, decode[response.PlayerList](t, output).Players, 2)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t, config.StorageConfig{})
	defer ts.shutdown()

	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("player", "show", "nobody")
	assert.Error(t, err)
	assert.Contains(t, output, "PLAYER_NOT_FOUND")

	output, err = cli.run("player", "add", "--name", "alice")
	require.NoError(t, err, "output: %s", output)
	alice := decode[response.Player](t, output)

	output, err = cli.run("match", "record", "--a", alice.ID, "--b", alice.ID, "--result", "DRAW")
	assert.Error(t, err)
	assert.Contains(t, output, "SELF_MATCH")

	output, err = cli.run("scoreboard", "--period", "fortnight")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "period")
}
