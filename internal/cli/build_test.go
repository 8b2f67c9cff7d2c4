package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/store"
	"github.com/roach88/xmatch/internal/testutil"
)

func noSleep(context.Context, time.Duration) error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoStarCatalog() *testutil.StubCatalog {
	return &testutil.StubCatalog{
		Entries: []catalog.SourceEntry{
			{ID: 1, RA: 10, Dec: 20, Magnitude: 8.5},
			{ID: 2, RA: 200, Dec: -45, Magnitude: 9.9},
		},
		Cones: map[testutil.Point][]catalog.Candidate{
			{RA: 10, Dec: 20}: {{ID: 555, RA: 10.0001, Dec: 20.0001}},
		},
	}
}

func manyStarCatalog(n int) *testutil.StubCatalog {
	stub := &testutil.StubCatalog{Cones: map[testutil.Point][]catalog.Candidate{}}
	for i := 0; i < n; i++ {
		ra := float64(i) * 0.25
		stub.Entries = append(stub.Entries, catalog.SourceEntry{ID: int64(i + 1), RA: ra, Dec: -30, Magnitude: 6})
		stub.Cones[testutil.Point{RA: ra, Dec: -30}] = []catalog.Candidate{{ID: int64(5000 + i), RA: ra, Dec: -30.0001}}
	}
	return stub
}

func executeBuild(t *testing.T, format string, src catalog.Source, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := &BuildOptions{
		RootOptions: &RootOptions{Format: format},
		Source:      src,
		RunIDs:      testutil.NewFixedRunID("run-cli"),
		Sleep:       noSleep,
	}
	cmd := newBuildCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestBuild_TextOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "xmatch.db")

	out, err := executeBuild(t, "text", twoStarCatalog(), "-o", dbPath, "-m", "10")
	require.NoError(t, err)

	assert.Contains(t, out, "Building Gaia DR3 / SAO cross-match database")
	assert.Contains(t, out, "Run ID:           run-cli")
	assert.Contains(t, out, "Matched:          1")
	assert.Contains(t, out, "Failed:           1")
	assert.Contains(t, out, "Success rate:     50.0%")
	assert.Contains(t, out, "Records:          1")

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestBuild_JSONOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "xmatch.db")

	out, err := executeBuild(t, "json", twoStarCatalog(), "-o", dbPath, "--max-magnitude", "10", "--nearest")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RunID       string  `json:"run_id"`
			Status      string  `json:"status"`
			Matched     int     `json:"matched"`
			Failed      int     `json:"failed"`
			Total       int     `json:"total"`
			SuccessRate float64 `json:"success_rate"`
			Store       struct {
				Count int64 `json:"count"`
			} `json:"store"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-cli", resp.Data.RunID)
	assert.Equal(t, "done", resp.Data.Status)
	assert.Equal(t, 1, resp.Data.Matched)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, 2, resp.Data.Total)
	assert.InDelta(t, 50.0, resp.Data.SuccessRate, 1e-9)
	assert.Equal(t, int64(1), resp.Data.Store.Count)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	meta, err := st.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nearest", meta["selection"])
}

func TestBuild_EmptyCatalogExitsOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "xmatch.db")

	out, err := executeBuild(t, "json", &testutil.StubCatalog{}, "-o", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, catalog.ErrEmptyResult)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeBuild, resp.Error.Code)
}

func TestBuild_FailureStillPrintsSummary(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "xmatch.db")

	out, err := executeBuild(t, "text", &testutil.StubCatalog{}, "-o", dbPath)
	require.Error(t, err)
	assert.Contains(t, out, "Cross-match summary")
	assert.Contains(t, out, "Status:           failed")
	assert.NotContains(t, out, "Error:")
	assert.Contains(t, err.Error(), "build failed reaching catalog_fetched")
}

func TestBuild_InvalidOptionsExitTwo(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too many workers", []string{"--workers", "99"}},
		{"zero radius", []string{"--radius", "0"}},
		{"zero batch", []string{"--batch-size", "0"}},
		{"magnitude out of range", []string{"-m", "45"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := twoStarCatalog()
			args := append([]string{"-o", filepath.Join(t.TempDir(), "x.db")}, tt.args...)
			_, err := executeBuild(t, "text", stub, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Empty(t, stub.ConeCalls())
		})
	}
}

func TestBuild_TestModeLimitsEntries(t *testing.T) {
	stub := manyStarCatalog(150)

	out, err := executeBuild(t, "text", stub, "-o", filepath.Join(t.TempDir(), "x.db"), "--test")
	require.NoError(t, err)
	assert.Len(t, stub.ConeCalls(), 100)
	assert.Contains(t, out, "Test mode: first 100 entries")
	assert.Contains(t, out, "Processed 100/100 (matched 100, failed 0)")
}

func TestBuild_ConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "xmatch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
output: "`+filepath.Join(dir, "from-config.db")+`"
max_magnitude: 10
batch_size: 1
`), 0o644))

	buf := &bytes.Buffer{}
	opts := &BuildOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfgPath},
		Source:      twoStarCatalog(),
		Sleep:       noSleep,
	}
	cmd := newBuildCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	flagPath := filepath.Join(dir, "from-flag.db")
	cmd.SetArgs([]string{"-o", flagPath})

	require.NoError(t, cmd.Execute())

	_, err := os.Stat(flagPath)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "from-config.db"))
	assert.True(t, os.IsNotExist(err))
	// max_magnitude from the file admits the 9.9 star.
	assert.Contains(t, buf.String(), "Source entries:   2")
}

func TestBuild_InterruptExitsOneAndKeepsStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "xmatch.db")
	stub := manyStarCatalog(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub.OnCone = func(context.Context, testutil.Point) { cancel() }

	opts := &BuildOptions{
		RootOptions: &RootOptions{Format: "text"},
		Source:      stub,
		Sleep:       noSleep,
	}
	cmd := newBuildCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-o", dbPath})

	err := cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Less(t, len(stub.ConeCalls()), 10)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(stub.ConeCalls())), n)
}

func TestSignalContext_StopCancels(t *testing.T) {
	ctx, stop := signalContext(context.Background(), quietLogger())
	require.NoError(t, ctx.Err())
	stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
