package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestNew(t *testing.T) {
	u := New(true, true)
	assert.True(t, u.Verbose)
	assert.True(t, u.DryRun)
	assert.NotNil(t, u.Out)
	assert.NotNil(t, u.ErrOut)
}

func TestLeveledOutput(t *testing.T) {
	t.Run("info and success go to stdout", func(t *testing.T) {
		u, out, errOut := newTestUI()
		u.Info("drafting %s", "HELP-1")
		u.Success("posted %d", 3)
		assert.Contains(t, out.String(), "drafting HELP-1")
		assert.Contains(t, out.String(), "posted 3")
		assert.Empty(t, errOut.String())
	})

	t.Run("warning and error go to stderr", func(t *testing.T) {
		u, out, errOut := newTestUI()
		u.Warning("post failed for %s", "HELP-2")
		u.Error("no index at %s", "/tmp/docs.db")
		assert.Contains(t, errOut.String(), "post failed for HELP-2")
		assert.Contains(t, errOut.String(), "no index at /tmp/docs.db")
		assert.Empty(t, out.String())
	})
}

func TestVerboseLog(t *testing.T) {
	u, out, _ := newTestUI()

	u.VerboseLog("JQL: %s", "project = HELP")
	assert.Empty(t, out.String())

	u.Verbose = true
	u.VerboseLog("JQL: %s", "project = HELP")
	assert.Contains(t, out.String(), "JQL: project = HELP")
}

func TestDryRunMsg(t *testing.T) {
	u, _, errOut := newTestUI()

	u.DryRunMsg("would post to %s", "HELP-1")
	assert.Empty(t, errOut.String())

	u.DryRun = true
	u.DryRunMsg("would post to %s", "HELP-1")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would post to HELP-1")
}

func TestStatusColor(t *testing.T) {
	for _, status := range []string{"posted", "drafted", "skipped", "failed"} {
		assert.Contains(t, StatusColor(status), status)
	}
	assert.Contains(t, StatusColor("POSTED"), "POSTED")
	assert.Equal(t, "unknown", StatusColor("unknown"))
}

func TestScoreColor(t *testing.T) {
	assert.Contains(t, ScoreColor(0.914), "0.914")
	assert.Contains(t, ScoreColor(0.6), "0.600")
	assert.Contains(t, ScoreColor(0.2), "0.200")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Issue", "Status"})
	require.NotNil(t, table)

	require.NoError(t, table.Append([]string{"HELP-1", "drafted"}))
	require.NoError(t, table.Append([]string{"HELP-2", "skipped"}))
	require.NoError(t, table.Render())

	rendered := out.String()
	assert.Contains(t, rendered, "HELP-1")
	assert.Contains(t, rendered, "HELP-2")
	assert.Contains(t, rendered, "Issue")
}
