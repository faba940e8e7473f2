package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/upgradeviz/internal/testutil"
)

// execute runs the root command with stdin and returns what it wrote.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// sampleLog has two completed upgrades with observed starts, one still
// installing, one retroactive completion and one malformed line.
func sampleLog() string {
	return testutil.Join(
		testutil.OverallStartLine(testutil.At(0)),
		testutil.ExplicitStartLine(testutil.At(2*time.Second), "gw-1", "9.1"),
		testutil.InstallingLine(testutil.At(5*time.Second), "gw-2"),
		testutil.InstallingLine(testutil.At(8*time.Second), "gw-3"),
		testutil.CompleteLine(testutil.At(3*time.Minute+2*time.Second), "gw-1", "8.7", "9.1"),
		testutil.CompleteLine(testutil.At(7*time.Minute+5*time.Second), "gw-2", "8.7", "9.1"),
		"not-a-timestamp Upgrading gw-9 to version 9.1",
		testutil.CompleteLine(testutil.At(10*time.Minute), "gw-4", "8.7", "9.1"),
	)
}

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
