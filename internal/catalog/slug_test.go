package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

func TestRepoToSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "anthropics-claude-code", catalog.RepoToSlug("anthropics/claude-code"))
	assert.Equal(t, "acme-tools", catalog.RepoToSlug("Acme/Tools"))
}

func TestSkillPathDerivations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		repo        string
		filePath    string
		wantName    string
		wantID      string
		wantDir     string
		wantInstall string
	}{
		{
			name:        "nested skill",
			repo:        "Acme/tools",
			filePath:    "skills/pdf/SKILL.md",
			wantName:    "pdf",
			wantID:      "Acme-tools/pdf",
			wantDir:     "skills/pdf",
			wantInstall: "claude skill add Acme/tools:pdf",
		},
		{
			name:        "dot directory",
			repo:        "bob/dots",
			filePath:    ".claude/skills/commit/SKILL.md",
			wantName:    "commit",
			wantID:      "bob-dots/commit",
			wantDir:     ".claude/skills/commit",
			wantInstall: "claude skill add bob/dots:commit",
		},
		{
			name:        "root level skill",
			repo:        "solo/skill",
			filePath:    "SKILL.md",
			wantName:    "unknown",
			wantID:      "solo-skill/unknown",
			wantDir:     "",
			wantInstall: "claude skill add solo/skill:unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantName, catalog.SkillName(tt.filePath))
			assert.Equal(t, tt.wantID, catalog.SkillID(tt.repo, tt.filePath))
			assert.Equal(t, tt.wantDir, catalog.SkillDir(tt.filePath))
			assert.Equal(t, tt.wantInstall, catalog.InstallCommand(tt.repo, catalog.SkillName(tt.filePath)))
		})
	}
}
