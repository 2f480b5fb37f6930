package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--db", db, "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestContactLifecycle(t *testing.T) {
	t.Setenv("WARMTH_REFRESH_INTERVAL", "0s")
	db := filepath.Join(t.TempDir(), "warmth.db")

	out, err := run(t, db, "contact", "add", "c-1", "--name", "Ada", "--mode", "slow")
	require.NoError(t, err)
	assert.Contains(t, out, "c-1")
	assert.Contains(t, out, "100.00")
	assert.Contains(t, out, "slow")

	out, err = run(t, db, "show", "c-1")
	require.NoError(t, err)
	assert.Contains(t, out, "hot")

	out, err = run(t, db, "mode", "c-1", "fast")
	require.NoError(t, err)
	assert.Contains(t, out, "slow -> fast")

	out, err = run(t, db, "contact", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada")

	out, err = run(t, db, "history", "c-1", "--window", "1d")
	require.NoError(t, err)
	assert.Contains(t, out, "provision")
	assert.Contains(t, out, "mode_switch")

	_, err = run(t, db, "contact", "rm", "c-1")
	require.NoError(t, err)

	_, err = run(t, db, "show", "c-1")
	assert.Error(t, err)
}

func TestTouchRejectsUnknownKind(t *testing.T) {
	db := filepath.Join(t.TempDir(), "warmth.db")
	_, err := run(t, db, "touch", "c-1", "carrier-pigeon")
	assert.Error(t, err)
}

func TestModesCommand(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "warmth.db"), "modes")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "slow"))
	assert.Contains(t, lines[3], "diagnostic")
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "warmth.db")
	events := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(events, []byte(strings.Join([]string{
		`{"event":"contact","contact_id":"c-9","display_name":"Grace"}`,
		`{"event":"interaction","contact_id":"c-9","kind":"call"}`,
		`{"event":"interaction","contact_id":"nobody","kind":"call"}`,
		`garbage`,
	}, "\n")), 0644))

	out, err := run(t, db, "import", events)
	require.NoError(t, err)
	assert.Contains(t, out, "line 4: skipped")
	assert.Contains(t, out, "line 3: interaction nobody")
	assert.Contains(t, out, "applied 2, failed 1, skipped 1")
}
