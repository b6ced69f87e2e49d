package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	code := 1

	_, err := l.Record(ctx, Entry{
		ScenePath:      "/show/shot020/scenes/shot020.scene",
		JobName:        "shot020",
		OutputDir:      "/farm/jobs",
		Layers:         []string{"Beauty"},
		JobFiles:       []string{"/farm/jobs/shot020_BEAUTY_SmedgeSettings.sj"},
		MirrorExitCode: &code,
	})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{
		ScenePath: "/show/shot030/scenes/shot030.scene",
		JobName:   "shot030",
		Err:       errors.New("robocopy failed (exit 16)"),
	})
	require.NoError(t, err)

	rows, err := l.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "shot030", rows[0].JobName)
	assert.Equal(t, StatusFailed, rows[0].Status)
	assert.Contains(t, rows[0].Error, "exit 16")
	assert.Empty(t, rows[0].LayerList())

	assert.Equal(t, StatusSucceeded, rows[1].Status)
	assert.Equal(t, []string{"Beauty"}, rows[1].LayerList())
	assert.Equal(t, []string{"/farm/jobs/shot020_BEAUTY_SmedgeSettings.sj"}, rows[1].JobFileList())
	require.NotNil(t, rows[1].MirrorExitCode)
	assert.Equal(t, 1, *rows[1].MirrorExitCode)

	filtered, err := l.Recent(ctx, 10, "/show/shot020/scenes/shot020.scene")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "shot020", filtered[0].JobName)

	limited, err := l.Recent(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}
