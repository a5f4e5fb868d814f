package validators

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

// Marketplace validation messages
const (
	msgInvalidJSON          = "Invalid JSON format"
	msgInvalidMarketplace   = "Invalid marketplace.json schema: "
	msgNotAccessibleFormat  = "Repository %s is not publicly accessible"
	msgPluginMissingFormat  = "Plugin %s missing required fields"
	unknownPluginName       = "unknown"
	marketplaceErrSeparator = ", "
)

//go:generate mockgen -destination=mocks/mock_repository_info.go -package=mocks -source=marketplace.go RepositoryInfo

// RepositoryInfo answers the repository level questions a marketplace
// validation needs. Lookups that fail report the repository as inaccessible
// and the description as empty.
type RepositoryInfo interface {
	IsAccessible(ctx context.Context, repo string) bool
	Description(ctx context.Context, repo string) string
}

// MarketplaceValidator validates marketplace manifests
type MarketplaceValidator struct {
	repos  RepositoryInfo
	schema *jsonschema.Schema
	now    func() time.Time
}

// MarketplaceValidatorOption configures a MarketplaceValidator
type MarketplaceValidatorOption func(*MarketplaceValidator)

// WithClock overrides the time source used for record timestamps
func WithClock(now func() time.Time) MarketplaceValidatorOption {
	return func(v *MarketplaceValidator) {
		v.now = now
	}
}

// NewMarketplaceValidator creates a validator backed by repos
func NewMarketplaceValidator(repos RepositoryInfo, opts ...MarketplaceValidatorOption) (*MarketplaceValidator, error) {
	schema, err := compileSchema(marketplaceSchemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile marketplace schema: %w", err)
	}

	v := &MarketplaceValidator{
		repos:  repos,
		schema: schema,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate checks one fetched marketplace manifest and derives its record.
// Stages run in order and the first failing stage decides the errors, except
// for the plugin check which reports every incomplete plugin.
func (v *MarketplaceValidator) Validate(ctx context.Context, content catalog.CandidateContent) Result[catalog.Marketplace] {
	repo, path := content.SourceRepo, content.FilePath

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(content.RawText))
	if err != nil {
		return invalid[catalog.Marketplace](repo, path, msgInvalidJSON)
	}

	if issues := schemaErrors(v.schema, doc); len(issues) > 0 {
		return invalid[catalog.Marketplace](repo, path,
			msgInvalidMarketplace+strings.Join(issues, marketplaceErrSeparator))
	}

	if !v.repos.IsAccessible(ctx, repo) {
		return invalid[catalog.Marketplace](repo, path, fmt.Sprintf(msgNotAccessibleFormat, repo))
	}

	manifest := gjson.Parse(content.RawText)

	description := firstNonEmpty(
		manifest.Get("description").String(),
		manifest.Get("metadata.description").String(),
	)
	if description == "" {
		description = v.repos.Description(ctx, repo)
	}

	plugins := manifest.Get("plugins").Array()

	var errs []string
	for _, plugin := range plugins {
		name := plugin.Get("name").String()
		if name == "" || !truthy(plugin.Get("source")) {
			if name == "" {
				name = unknownPluginName
			}
			errs = append(errs, fmt.Sprintf(msgPluginMissingFormat, name))
		}
	}
	if len(errs) > 0 {
		return invalid[catalog.Marketplace](repo, path, errs...)
	}

	now := v.now().UTC()
	record := &catalog.Marketplace{
		SourceRepo:       repo,
		Slug:             catalog.RepoToSlug(repo),
		HumanDescription: description,
		ItemCount:        len(plugins),
		Categories:       pluginCategories(plugins),
		PluginKeywords:   catalog.AggregatePluginKeywords(pluginSummaries(plugins)),
		DiscoveredAt:     &now,
		LastUpdated:      &now,
		Origin:           catalog.OriginAuto,
	}
	return valid(repo, path, record)
}

// pluginCategories returns the lowercased categories in first-seen order
func pluginCategories(plugins []gjson.Result) []string {
	var categories []string
	for _, plugin := range plugins {
		category := strings.ToLower(plugin.Get("category").String())
		if category != "" && !slices.Contains(categories, category) {
			categories = append(categories, category)
		}
	}
	if len(categories) == 0 {
		categories = []string{catalog.DefaultCategory}
	}
	return categories
}

func pluginSummaries(plugins []gjson.Result) []catalog.Plugin {
	summaries := make([]catalog.Plugin, 0, len(plugins))
	for _, plugin := range plugins {
		summary := catalog.Plugin{
			Name:        plugin.Get("name").String(),
			Description: plugin.Get("description").String(),
		}
		for _, keyword := range plugin.Get("keywords").Array() {
			summary.Keywords = append(summary.Keywords, keyword.String())
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// truthy mirrors how a manifest field counts as present: empty strings,
// false, zero and null do not.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
