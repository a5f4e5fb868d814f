package catalog

import (
	"path"
	"strings"
)

// SkillFileName is the marker file of a skill
const SkillFileName = "SKILL.md"

// RepoToSlug converts "owner/name" to a lowercase URL safe slug "owner-name"
func RepoToSlug(repo string) string {
	return strings.ToLower(strings.ReplaceAll(repo, "/", "-"))
}

// SkillRepoSlug converts "owner/name" to "owner-name" keeping case. It is
// part of skill IDs, which must stay stable for already persisted skills.
func SkillRepoSlug(repo string) string {
	return strings.Replace(repo, "/", "-", 1)
}

// SkillName returns the name of the directory holding a SKILL.md file,
// or "unknown" for a file at the repository root.
func SkillName(filePath string) string {
	dir := path.Dir(filePath)
	if dir == "." || dir == "/" || dir == "" {
		return "unknown"
	}
	return path.Base(dir)
}

// SkillID derives the stable key of a skill from its repository and file path
func SkillID(repo, filePath string) string {
	return SkillRepoSlug(repo) + "/" + SkillName(filePath)
}

// SkillDir returns the skill directory for a SKILL.md path, empty at the root
func SkillDir(filePath string) string {
	if filePath == SkillFileName {
		return ""
	}
	return strings.TrimSuffix(filePath, "/"+SkillFileName)
}

// InstallCommand returns the CLI command that installs a skill
func InstallCommand(repo, skillName string) string {
	return "claude skill add " + repo + ":" + skillName
}
