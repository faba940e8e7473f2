package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/upgradeviz/internal/render"
)

func TestRenderCommand_StdinToStdout(t *testing.T) {
	stdout, stderr, err := execute(t, sampleLog(), "render")
	require.NoError(t, err, "malformed lines must not fail the command")

	assert.True(t, strings.HasPrefix(stdout, `<?xml version="1.0"`))
	assert.Contains(t, stdout, "<svg")
	for _, gw := range []string{"gw-1", "gw-2", "gw-3", "gw-4"} {
		assert.Contains(t, stdout, gw)
	}
	assert.Contains(t, stderr, "not-a-timestamp", "malformed line should be reported on stderr")
}

func TestRenderCommand_Deterministic(t *testing.T) {
	first, _, err := execute(t, sampleLog(), "render")
	require.NoError(t, err)
	second, _, err := execute(t, sampleLog(), "render")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderCommand_EmptyInput(t *testing.T) {
	stdout, _, err := execute(t, "", "render")
	require.NoError(t, err)
	assert.Contains(t, stdout, render.EmptyMessage)
}

func TestRenderCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "upgrade.log", sampleLog())
	out := filepath.Join(dir, "timeline.svg")

	stdout, _, err := execute(t, "", "render", in, "-o", out, "--title", "Nightly rollout")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Wrote "+out)
	assert.Contains(t, stdout, "4 records")

	doc, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Nightly rollout")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRenderCommand_OutputFileJSON(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "timeline.svg")

	stdout, _, err := execute(t, sampleLog(), "--format", "json", "render", "-o", out)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, out, resp.Data.Output)
	assert.Equal(t, 4, resp.Data.Records)
	assert.True(t, resp.Data.InProgress, "gw-3 never completes")
	assert.Positive(t, resp.Data.Bytes)
	assert.Len(t, resp.Data.Summary.Diagnostics, 1)
	assert.Empty(t, resp.Data.RunID)
}

func TestRenderCommand_Config(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "upgradeviz.yaml", "chart:\n  title: From config\n")

	stdout, _, err := execute(t, sampleLog(), "--config", cfg, "render")
	require.NoError(t, err)
	assert.Contains(t, stdout, "From config")
}

func TestRenderCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "upgrade.log", sampleLog())

	tests := []struct {
		name    string
		args    []string
		code    int
		errCode string
		msg     string
	}{
		{
			name:    "missing input",
			args:    []string{"render", filepath.Join(dir, "missing.log")},
			code:    ExitCommandError,
			errCode: ErrCodeNotFound,
			msg:     "failed to open input",
		},
		{
			name:    "missing config",
			args:    []string{"--config", filepath.Join(dir, "missing.yaml"), "render", in},
			code:    ExitCommandError,
			errCode: ErrCodeConfigInvalid,
			msg:     "failed to load config",
		},
		{
			name:    "bad clock",
			args:    []string{"render", in, "--now", "sundial"},
			code:    ExitCommandError,
			errCode: ErrCodeConfigInvalid,
			msg:     "invalid chart options",
		},
		{
			name: "follow stdin",
			args: []string{"render", "--follow", "-o", filepath.Join(dir, "out.svg")},
			code: ExitCommandError,
			msg:  "--follow needs a log file argument",
		},
		{
			name: "follow stdout",
			args: []string{"render", in, "--follow"},
			code: ExitCommandError,
			msg:  "--follow needs --output",
		},
		{
			name: "follow with db",
			args: []string{"render", in, "--follow", "-o", filepath.Join(dir, "out.svg"), "--db", filepath.Join(dir, "runs.db")},
			code: ExitCommandError,
			msg:  "--db cannot be combined with --follow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Equal(t, tt.code, GetExitCode(err))
			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, GetErrorCode(err))
			}
		})
	}
}

func TestRecordsCommand_Text(t *testing.T) {
	stdout, _, err := execute(t, sampleLog(), "records")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Contains(t, lines[0], "Entity")
	assert.Contains(t, lines[2], "gw-1")
	assert.Contains(t, lines[2], "explicit")
	assert.Contains(t, lines[2], "8.7 -> 9.1")
	assert.Contains(t, lines[3], "gw-2")
	assert.Contains(t, lines[3], "installing")
	assert.Contains(t, lines[4], "gw-3")
	assert.Contains(t, lines[4], "in_progress")
	assert.Contains(t, lines[5], "gw-4")
	assert.Contains(t, lines[5], "retroactive")
	assert.Contains(t, stdout, "Overall start: 2025-07-23 00:00:00.000")
}

func TestRecordsCommand_Empty(t *testing.T) {
	stdout, _, err := execute(t, "", "records")
	require.NoError(t, err)
	assert.Equal(t, render.EmptyMessage+"\n", stdout)
}

func TestRecordsCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, sampleLog(), "--format", "json", "records")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			SchemaVersion string           `json:"schema_version"`
			OverallStart  string           `json:"overall_start"`
			Records       []map[string]any `json:"records"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1", resp.Data.SchemaVersion)
	assert.Equal(t, "2025-07-23T00:00:00.000000Z", resp.Data.OverallStart)
	require.Len(t, resp.Data.Records, 4)

	gw1 := resp.Data.Records[0]
	assert.Equal(t, "gw-1", gw1["entity"])
	assert.Equal(t, "complete", gw1["status"])
	assert.Equal(t, float64(180_000_000), gw1["duration_us"])

	gw3 := resp.Data.Records[2]
	assert.Equal(t, "in_progress", gw3["status"])
	assert.NotContains(t, gw3, "end")
	assert.NotContains(t, gw3, "duration_us")
}

func TestStatsCommand_Text(t *testing.T) {
	stdout, _, err := execute(t, sampleLog(), "stats")
	require.NoError(t, err)

	assert.Contains(t, stdout, "UPGRADE TIME STATISTICS")
	assert.Contains(t, stdout, "Total upgrades:       4")
	assert.Contains(t, stdout, "Completed upgrades:   3")
	assert.Contains(t, stdout, "In-progress upgrades: 1")
	assert.Contains(t, stdout, "Retroactive records:  1")
	assert.Contains(t, stdout, "(gw-1)")
	assert.Contains(t, stdout, "(gw-2)")
}

func TestStatsCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, sampleLog(), "--format", "json", "stats")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   StatsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "stdin", resp.Data.Source)

	r := resp.Data.Report
	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 2, r.Measured)
	assert.Equal(t, "gw-1", r.Min.Entity)
	assert.InDelta(t, 3.0, r.Min.Minutes, 1e-9)
	assert.Equal(t, "gw-2", r.Max.Entity)
	assert.InDelta(t, 7.0, r.Max.Minutes, 1e-9)
	assert.InDelta(t, 5.0, r.AvgMinutes, 1e-9)
	assert.Len(t, resp.Data.Summary.Diagnostics, 1)
}

func TestStatsCommand_NoDurations(t *testing.T) {
	stdout, _, err := execute(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No completed upgrades with an observed start.")
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	in := writeFile(t, dir, "upgrade.log", sampleLog())

	var runIDs []string
	for i := 0; i < 2; i++ {
		stdout, _, err := execute(t, "", "--format", "json", "render", in, "-o", filepath.Join(dir, "out.svg"), "--db", db)
		require.NoError(t, err)

		var resp struct {
			Data RenderResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		require.NotEmpty(t, resp.Data.RunID)
		runIDs = append(runIDs, resp.Data.RunID)
	}

	t.Run("text", func(t *testing.T) {
		stdout, _, err := execute(t, "", "history", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, stdout, runIDs[0])
		assert.Contains(t, stdout, runIDs[1])
		assert.Contains(t, stdout, "2 run(s)")
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute(t, "", "--format", "json", "history", "--db", db)
		require.NoError(t, err)

		var resp struct {
			Data []RunSummary `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		require.Len(t, resp.Data, 2)
		for _, run := range resp.Data {
			assert.Equal(t, in, run.Source)
			assert.Equal(t, 4, run.Records)
			assert.Equal(t, 1, run.Diagnostics)
			assert.Equal(t, 8, run.Lines)
		}
	})

	t.Run("entity", func(t *testing.T) {
		stdout, _, err := execute(t, "", "--format", "json", "history", "--db", db, "--entity", "gw-1")
		require.NoError(t, err)

		var resp struct {
			Data []EntityRun `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
		require.Len(t, resp.Data, 2)
		for _, e := range resp.Data {
			assert.Equal(t, "gw-1", e.Record["entity"])
			assert.Equal(t, "complete", e.Record["status"])
		}
	})

	t.Run("unknown entity", func(t *testing.T) {
		stdout, _, err := execute(t, "", "history", "--db", db, "--entity", "gw-404")
		require.NoError(t, err)
		assert.Equal(t, "No archived records for gw-404.\n", stdout)
	})
}

func TestHistoryCommand_EmptyArchive(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	stdout, _, err := execute(t, "", "history", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs archived.\n", stdout)
}

func TestHistoryCommand_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}
