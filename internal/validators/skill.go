package validators

import (
	"strings"
	"time"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

// Skill validation messages
const (
	msgNoFrontmatter      = "No valid YAML frontmatter found"
	msgInvalidFrontmatter = "Invalid SKILL.md frontmatter: "
)

var skillSchema = mustCompileSchema(skillSchemaFile)

// ValidateSkill checks a SKILL.md file and derives its record. It performs
// no I/O; popularity is the value looked up for the source repository and
// is copied onto the record as is.
func ValidateSkill(content catalog.CandidateContent, popularity *int, now time.Time) Result[catalog.Skill] {
	repo, path := content.SourceRepo, content.FilePath

	frontmatter, err := ParseFrontmatter(content.RawText)
	if err != nil {
		return invalid[catalog.Skill](repo, path, msgNoFrontmatter)
	}

	if issues := schemaErrors(skillSchema, frontmatter); len(issues) > 0 {
		return invalid[catalog.Skill](repo, path, msgInvalidFrontmatter+strings.Join(issues, ", "))
	}

	name := catalog.SkillName(path)
	discovered := now.UTC()
	record := &catalog.Skill{
		ID:             catalog.SkillID(repo, path),
		Name:           frontmatter["name"].(string),
		Description:    frontmatter["description"].(string),
		SourceRepo:     repo,
		RepoSlug:       catalog.SkillRepoSlug(repo),
		RelativePath:   catalog.SkillDir(path),
		Popularity:     popularity,
		InstallCommand: catalog.InstallCommand(repo, name),
		DiscoveredAt:   &discovered,
	}
	if license, ok := frontmatter["license"].(string); ok {
		record.License = license
	}
	return valid(repo, path, record)
}
