package app

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
)

func intPtr(v int) *int { return &v }

func TestSyncOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		expected pkgsync.RunOptions
	}{
		{
			name:     "defaults leave threshold to the configuration",
			args:     nil,
			expected: pkgsync.RunOptions{},
		},
		{
			name:     "all flags",
			args:     []string{"--limit", "20", "--dry-run", "--threshold", "0"},
			expected: pkgsync.RunOptions{DryRun: true, ItemLimit: 20, QualityThreshold: intPtr(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := newSyncCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			opts, err := syncOptions(cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, opts)
		})
	}
}

func TestSyncCmd_RejectsUnknownPipeline(t *testing.T) {
	t.Parallel()

	cmd := newSyncCmd()
	assert.Error(t, cmd.Args(cmd, []string{"plugins"}))
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"skills"}))
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	report := &pkgsync.Report{
		RunID:       "run-1",
		Pipeline:    "skills",
		DryRun:      true,
		TotalFound:  40,
		Discovered:  20,
		Qualified:   12,
		Fetched:     11,
		Validated:   10,
		Added:       3,
		Updated:     6,
		Removed:     1,
		Total:       18,
		FetchFailed: 1,
		FailedCount: 12,
		Failures:    []string{"acme/tools/skills/lint/SKILL.md: missing required field: description"},
		Preview: []pkgsync.PreviewEntry{
			{Key: "acme-tools/lint", Description: "Lints things", Stars: intPtr(42)},
			{Key: "solo/x/SKILL.md", Description: "No stars"},
		},
		RepoPreview: []pkgsync.PreviewEntry{
			{Key: "acme/tools", Description: "3 skills: lint, fmt, test", Stars: intPtr(42)},
		},
		SkillRepos: &writer.Summary{Added: 1, Total: 4},
		DurationMs: 1500,
	}

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, report))
	out := buf.String()

	assert.Contains(t, out, "skills (dry run)")
	assert.Contains(t, out, "20 of 40 found")
	assert.Contains(t, out, "3 / 6 / 1")
	assert.Contains(t, out, "1 added, 0 updated, 0 removed, 4 total")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "missing required field: description")
	assert.Contains(t, out, "... and 11 more")
	assert.Contains(t, out, "Top records by popularity:")
	assert.Contains(t, out, "Top skill repositories by popularity:")
	assert.Contains(t, out, "3 skills: lint, fmt, test")
	assert.Less(t, strings.Index(out, "Top records"), strings.Index(out, "Top skill repositories"))
	assert.Contains(t, out, "acme-tools/lint")
	assert.Contains(t, out, "42")
	assert.Regexp(t, `2\W+solo/x/SKILL\.md\W+-\W+No stars`, out)
}

func TestPrintReport_NoPreview(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, &pkgsync.Report{Pipeline: "marketplaces"}))
	assert.Contains(t, buf.String(), "marketplaces (write)")
	assert.NotContains(t, buf.String(), "Top records")
	assert.NotContains(t, buf.String(), "Top skill repositories")
	assert.NotContains(t, buf.String(), "Skill repos")
}

func TestPrintReport_ExcludedRepos(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, &pkgsync.Report{Pipeline: "skills", ExcludedRepos: 3}))
	assert.Regexp(t, `Excluded repos:\s+3`, buf.String())
}

func TestDefaultOutput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "json", defaultOutput(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "report")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "json", defaultOutput(f))
}

func TestWriteReport_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, &pkgsync.Report{RunID: "run-2", Added: 5}, "json"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-2", decoded["runId"])
	assert.EqualValues(t, 5, decoded["added"])
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--format", "json"})
	require.NoError(t, cmd.Execute())

	var info map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}
