package validators_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/validators"
	"github.com/stacklok/toolhive-catalog/internal/validators/mocks"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func newValidator(t *testing.T, repos validators.RepositoryInfo) *validators.MarketplaceValidator {
	t.Helper()
	v, err := validators.NewMarketplaceValidator(repos, validators.WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return v
}

func candidate(repo, raw string) catalog.CandidateContent {
	return catalog.CandidateContent{
		SourceRepo: repo,
		FilePath:   ".claude-plugin/marketplace.json",
		RawText:    raw,
	}
}

func TestMarketplaceValidator_Valid(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	repos := mocks.NewMockRepositoryInfo(ctrl)
	repos.EXPECT().IsAccessible(gomock.Any(), "Acme/Market").Return(true)

	raw := `{
		"name": "acme",
		"description": "Acme plugins",
		"plugins": [
			{"name": "code-review", "source": "./review", "category": "Development", "keywords": ["Lint"]},
			{"name": "deploy", "source": {"source": "github", "repo": "acme/deploy"}, "category": "development",
			 "description": "Deploys applications everywhere"},
			{"name": "notes", "source": "./notes", "category": "Productivity"}
		]
	}`

	result := newValidator(t, repos).Validate(context.Background(), candidate("Acme/Market", raw))

	require.True(t, result.Valid(), "errors: %v", result.Errors)
	m := result.Record
	assert.Equal(t, "Acme/Market", m.SourceRepo)
	assert.Equal(t, "acme-market", m.Slug)
	assert.Equal(t, "Acme plugins", m.HumanDescription)
	assert.Equal(t, 3, m.ItemCount)
	assert.Equal(t, []string{"development", "productivity"}, m.Categories)
	assert.Equal(t, []string{"applications", "code", "deploy", "deploys", "everywhere", "lint", "notes", "review"}, m.PluginKeywords)
	assert.Equal(t, catalog.OriginAuto, m.Origin)
	require.NotNil(t, m.DiscoveredAt)
	require.NotNil(t, m.LastUpdated)
	assert.Equal(t, fixedNow, *m.DiscoveredAt)
	assert.Equal(t, fixedNow, *m.LastUpdated)
	assert.Nil(t, m.Popularity)
}

func TestMarketplaceValidator_DescriptionFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		raw             string
		repoDescription string
		expected        string
	}{
		{
			name:     "metadata description",
			raw:      `{"name":"m","metadata":{"description":"From metadata"},"plugins":[]}`,
			expected: "From metadata",
		},
		{
			name:            "repository description",
			raw:             `{"name":"m","plugins":[]}`,
			repoDescription: "From repository",
			expected:        "From repository",
		},
		{
			name:     "empty description is allowed",
			raw:      `{"name":"m","plugins":[]}`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			repos := mocks.NewMockRepositoryInfo(ctrl)
			repos.EXPECT().IsAccessible(gomock.Any(), "acme/market").Return(true)
			if tt.expected != "From metadata" {
				repos.EXPECT().Description(gomock.Any(), "acme/market").Return(tt.repoDescription)
			}

			result := newValidator(t, repos).Validate(context.Background(), candidate("acme/market", tt.raw))

			require.True(t, result.Valid(), "errors: %v", result.Errors)
			assert.Equal(t, tt.expected, result.Record.HumanDescription)
			assert.Equal(t, 0, result.Record.ItemCount)
			assert.Equal(t, []string{catalog.DefaultCategory}, result.Record.Categories)
		})
	}
}

func TestMarketplaceValidator_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		raw            string
		accessible     *bool
		expectedErrors []string
		expectedPrefix string
	}{
		{
			name:           "invalid json",
			raw:            `{"name": "m", "plugins": [`,
			expectedErrors: []string{"Invalid JSON format"},
		},
		{
			name:           "missing plugins",
			raw:            `{"name": "m"}`,
			expectedPrefix: "Invalid marketplace.json schema: ",
		},
		{
			name:           "plugins not an array",
			raw:            `{"name": "m", "plugins": {}}`,
			expectedPrefix: "Invalid marketplace.json schema: ",
		},
		{
			name:           "not accessible",
			raw:            `{"name": "m", "plugins": []}`,
			accessible:     boolPtr(false),
			expectedErrors: []string{"Repository acme/market is not publicly accessible"},
		},
		{
			name:       "plugins missing fields",
			raw:        `{"name": "m", "description": "d", "plugins": [{"name": "a"}, {"source": "./b"}, {"name": "ok", "source": "./ok"}]}`,
			accessible: boolPtr(true),
			expectedErrors: []string{
				"Plugin a missing required fields",
				"Plugin unknown missing required fields",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			repos := mocks.NewMockRepositoryInfo(ctrl)
			if tt.accessible != nil {
				repos.EXPECT().IsAccessible(gomock.Any(), "acme/market").Return(*tt.accessible)
			}

			result := newValidator(t, repos).Validate(context.Background(), candidate("acme/market", tt.raw))

			assert.False(t, result.Valid())
			assert.Nil(t, result.Record)
			if tt.expectedPrefix != "" {
				require.Len(t, result.Errors, 1)
				assert.True(t, strings.HasPrefix(result.Errors[0], tt.expectedPrefix), result.Errors[0])
				assert.Greater(t, len(result.Errors[0]), len(tt.expectedPrefix))
				return
			}
			assert.Equal(t, tt.expectedErrors, result.Errors)
		})
	}
}

func boolPtr(v bool) *bool { return &v }
