package sync_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/github"
	githubmocks "github.com/stacklok/toolhive-catalog/internal/github/mocks"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	storagemocks "github.com/stacklok/toolhive-catalog/internal/storage/mocks"
	"github.com/stacklok/toolhive-catalog/internal/sync"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func noSleep(context.Context, time.Duration) error { return nil }

func intPtr(v int) *int { return &v }

// fakeRepo describes one repository served by the API mock
type fakeRepo struct {
	stars   int
	private bool
	// files maps a path on the main branch to its content
	files map[string]string
}

// apiFixture wires a gomock API to a set of fake repositories
type apiFixture struct {
	api   *githubmocks.MockAPI
	repos map[string]fakeRepo

	mu      gosync.Mutex
	fetched []string
}

func newAPIFixture(t *testing.T, repos map[string]fakeRepo, order []string) *apiFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &apiFixture{api: githubmocks.NewMockAPI(ctrl), repos: repos}

	var items []github.SearchItem
	for _, name := range order {
		paths := make([]string, 0, len(repos[name].files))
		for path := range repos[name].files {
			paths = append(paths, path)
		}
		slices.Sort(paths)
		for _, path := range paths {
			items = append(items, github.SearchItem{Repo: name, Path: path})
		}
	}

	f.api.EXPECT().SearchCode(gomock.Any(), "test-query", 1, 100).
		Return(&github.SearchPage{TotalCount: len(items), Items: items}, nil).AnyTimes()

	f.api.EXPECT().GetRepository(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, repo string) (*github.Repository, error) {
			r, ok := f.repos[repo]
			if !ok {
				return nil, errors.New("not found")
			}
			return &github.Repository{FullName: repo, Stars: r.stars, Private: r.private}, nil
		}).AnyTimes()

	f.api.EXPECT().GetContent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, repo, path, ref string) (github.ContentResult, error) {
			f.mu.Lock()
			f.fetched = append(f.fetched, repo)
			f.mu.Unlock()

			content, ok := f.repos[repo].files[path]
			if !ok || ref != "main" {
				return github.ContentResult{Status: github.ContentNotFound}, nil
			}
			return github.ContentResult{Status: github.ContentFound, Data: []byte(content)}, nil
		}).AnyTimes()

	return f
}

func (f *apiFixture) fetchedRepos() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Compact(slices.Sorted(slices.Values(f.fetched)))
}

func skillDoc(name string) string {
	return fmt.Sprintf("---\nname: %s\ndescription: Does %s things\n---\n# %s\n", name, name, name)
}

func skillFiles(names ...string) map[string]string {
	files := make(map[string]string, len(names))
	for _, name := range names {
		files["skills/"+name+"/SKILL.md"] = skillDoc(name)
	}
	return files
}

func newManager(api github.API, store storage.BlobStore) sync.Manager {
	return sync.NewManager(config.NewDefaultConfig(), api, store,
		sync.WithClock(func() time.Time { return fixedNow }),
		sync.WithSleep(noSleep))
}

func runOpts() sync.RunOptions {
	return sync.RunOptions{Queries: []string{"test-query"}, QualityThreshold: intPtr(5)}
}

func TestManager_SkillsQualityGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/alpha": {stars: 10, files: skillFiles("a1", "a2", "a3", "a4")},
		"acme/beta":  {stars: 2, files: skillFiles("b1", "b2", "b3", "b4")},
		"acme/gamma": {stars: 6, files: skillFiles("c1", "c2", "c3", "c4")},
	}, []string{"acme/alpha", "acme/beta", "acme/gamma"})
	store := storage.NewMemoryStore()

	report, runErr := newManager(fixture.api, store).Run(ctx, config.PipelineSkills, runOpts())
	require.Nil(t, runErr)
	require.NotNil(t, report)

	assert.Equal(t, config.PipelineSkills, report.Pipeline)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 12, report.TotalFound)
	assert.Equal(t, 12, report.Discovered)
	assert.Equal(t, 8, report.Qualified)
	assert.Equal(t, 8, report.Fetched)
	assert.Equal(t, 8, report.Validated)
	assert.Equal(t, 8, report.Added)
	assert.Equal(t, 8, report.Total)
	assert.Zero(t, report.FailedCount)
	require.NotNil(t, report.SkillRepos)
	assert.Equal(t, writer.Summary{Added: 2, Total: 2}, *report.SkillRepos)

	// Content is never requested for repositories below the threshold
	assert.Equal(t, []string{"acme/alpha", "acme/gamma"}, fixture.fetchedRepos())

	data, err := store.Get(ctx, writer.SkillsKey)
	require.NoError(t, err)
	skills, err := writer.DecodeSet[catalog.Skill](data)
	require.NoError(t, err)
	assert.Equal(t, 8, skills.Len())
	a1, ok := skills.Get("acme-alpha/a1")
	require.True(t, ok)
	assert.Equal(t, 10, *a1.Popularity)
	assert.Equal(t, "claude skill add acme/alpha:a1", a1.InstallCommand)

	data, err = store.Get(ctx, writer.SkillReposKey)
	require.NoError(t, err)
	repos, err := writer.DecodeSet[catalog.SkillRepo](data)
	require.NoError(t, err)
	gamma, ok := repos.Get("acme/gamma")
	require.True(t, ok)
	assert.Equal(t, 4, gamma.ItemCount)
	assert.Equal(t, "c1, c2, c3, c4", gamma.AggregatedDescription)
	require.NotNil(t, gamma.PopularityAt)
	assert.True(t, gamma.PopularityAt.Equal(fixedNow))

	// Preview is ordered by popularity
	require.Len(t, report.Preview, 8)
	assert.Equal(t, "acme-alpha/a1", report.Preview[0].Key)
	assert.Equal(t, "acme-gamma/c1", report.Preview[4].Key)

	require.Len(t, report.RepoPreview, 2)
	assert.Equal(t, "acme/alpha", report.RepoPreview[0].Key)
	assert.Equal(t, "4 skills: a1, a2, a3, a4", report.RepoPreview[0].Description)
	assert.Equal(t, 10, *report.RepoPreview[0].Stars)
	assert.Equal(t, "acme/gamma", report.RepoPreview[1].Key)
}

func TestManager_SkillsRemovesVanishedAndKeepsOutOfScope(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()

	stored := []byte(`[
  {"id": "acme-alpha/gone", "name": "gone", "description": "x", "repo": "acme/alpha", "repoSlug": "acme-alpha", "path": "skills/gone", "installCommand": "i"},
  {"id": "other-repo/kept", "name": "kept", "description": "y", "repo": "other/repo", "repoSlug": "other-repo", "path": "skills/kept", "installCommand": "i", "featured": true}
]`)
	require.NoError(t, store.Put(ctx, writer.SkillsKey, stored))

	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/alpha": {stars: 10, files: map[string]string{
			"skills/a1/SKILL.md":   skillDoc("a1"),
			"skills/gone/SKILL.md": "no frontmatter here",
		}},
	}, []string{"acme/alpha"})

	report, runErr := newManager(fixture.api, store).Run(ctx, config.PipelineSkills, runOpts())
	require.Nil(t, runErr)

	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.ValidationFailed)
	assert.Equal(t, 1, report.FailedCount)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "acme/alpha/skills/gone/SKILL.md: No valid YAML frontmatter found")

	data, err := store.Get(ctx, writer.SkillsKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"featured": true`)
	assert.NotContains(t, string(data), "acme-alpha/gone")
}

func TestManager_MarketplacesPreservesManualRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()

	discovered := "2025-01-01T00:00:00Z"
	stored := []byte(`[
  {"repo": "acme/plugins", "slug": "acme-plugins", "description": "curated", "pluginCount": 1, "categories": ["tools"], "discoveredAt": "` + discovered + `", "source": "manual"}
]`)
	require.NoError(t, store.Put(ctx, writer.MarketplacesKey, stored))

	manifest := `{
  "name": "acme",
  "description": "Acme plugins",
  "plugins": [
    {"name": "deploy-helper", "source": "./deploy", "category": "DevOps"},
    {"name": "notes", "source": "./notes"}
  ]
}`
	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/plugins": {stars: 42, files: map[string]string{".claude-plugin/marketplace.json": manifest}},
	}, []string{"acme/plugins"})

	report, runErr := newManager(fixture.api, store).Run(ctx, config.PipelineMarketplaces, runOpts())
	require.Nil(t, runErr)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Total)
	assert.Nil(t, report.SkillRepos)
	assert.Empty(t, report.RepoPreview)

	data, err := store.Get(ctx, writer.MarketplacesKey)
	require.NoError(t, err)
	set, err := writer.DecodeSet[catalog.Marketplace](data)
	require.NoError(t, err)

	m, ok := set.Get("acme/plugins")
	require.True(t, ok)
	assert.Equal(t, catalog.OriginManual, m.Origin)
	assert.Equal(t, discovered, m.DiscoveredAt.Format(time.RFC3339))
	assert.Equal(t, 2, m.ItemCount)
	assert.Equal(t, []string{"devops"}, m.Categories)
	assert.Equal(t, "Acme plugins", m.HumanDescription)
	require.NotNil(t, m.Popularity)
	assert.Equal(t, 42, *m.Popularity)
	require.NotNil(t, m.PopularityAt)
	assert.True(t, m.PopularityAt.Equal(fixedNow))
}

func TestManager_DryRunLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/alpha": {stars: 10, files: skillFiles("a1", "a2")},
	}, []string{"acme/alpha"})

	opts := runOpts()
	opts.DryRun = true
	report, runErr := newManager(fixture.api, store).Run(ctx, config.PipelineSkills, opts)
	require.Nil(t, runErr)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Added)

	_, err := store.Get(ctx, writer.SkillsKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestManager_ItemLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/alpha": {stars: 10, files: skillFiles("a1", "a2", "a3")},
		"acme/beta":  {stars: 10, files: skillFiles("b1")},
	}, []string{"acme/alpha", "acme/beta"})

	// The limit counts repositories, so every hit of acme/alpha is kept
	opts := runOpts()
	opts.ItemLimit = 1
	report, runErr := newManager(fixture.api, storage.NewMemoryStore()).Run(ctx, config.PipelineSkills, opts)
	require.Nil(t, runErr)
	assert.Equal(t, 4, report.TotalFound)
	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 3, report.Added)
	assert.Equal(t, []string{"acme/alpha"}, fixture.fetchedRepos())
}

func TestManager_ItemLimitKeepsStoredSkillCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	repos := map[string]fakeRepo{
		"acme/kit":   {stars: 10, files: skillFiles("alpha", "beta", "gamma")},
		"acme/other": {stars: 10, files: skillFiles("solo")},
	}

	full := newAPIFixture(t, repos, []string{"acme/kit", "acme/other"})
	_, runErr := newManager(full.api, store).Run(ctx, config.PipelineSkills, runOpts())
	require.Nil(t, runErr)

	for _, limit := range []int{1, 2} {
		limited := newAPIFixture(t, repos, []string{"acme/kit", "acme/other"})
		opts := runOpts()
		opts.ItemLimit = limit
		report, runErr := newManager(limited.api, store).Run(ctx, config.PipelineSkills, opts)
		require.Nil(t, runErr)
		assert.Zero(t, report.Removed, "limit %d", limit)

		data, err := store.Get(ctx, writer.SkillReposKey)
		require.NoError(t, err)
		set, err := writer.DecodeSet[catalog.SkillRepo](data)
		require.NoError(t, err)
		kit, ok := set.Get("acme/kit")
		require.True(t, ok)
		assert.Equal(t, 3, kit.ItemCount, "limit %d", limit)

		skills, err := store.Get(ctx, writer.SkillsKey)
		require.NoError(t, err)
		skillSet, err := writer.DecodeSet[catalog.Skill](skills)
		require.NoError(t, err)
		for _, id := range []string{"acme-kit/alpha", "acme-kit/beta", "acme-kit/gamma", "acme-other/solo"} {
			_, ok := skillSet.Get(id)
			assert.True(t, ok, "limit %d lost %s", limit, id)
		}
	}
}

func TestManager_RunErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pipeline   string
		opts       sync.RunOptions
		searchErr  error
		wantReason string
	}{
		{
			name:       "unknown pipeline",
			pipeline:   "plugins",
			opts:       runOpts(),
			wantReason: sync.ReasonConfiguration,
		},
		{
			name:       "negative threshold",
			pipeline:   config.PipelineSkills,
			opts:       sync.RunOptions{QualityThreshold: intPtr(-1)},
			wantReason: sync.ReasonConfiguration,
		},
		{
			name:       "search rate limited",
			pipeline:   config.PipelineSkills,
			opts:       runOpts(),
			searchErr:  github.ErrRateLimited,
			wantReason: sync.ReasonSearchRateLimited,
		},
		{
			name:       "missing credential",
			pipeline:   config.PipelineMarketplaces,
			opts:       runOpts(),
			searchErr:  github.ErrMissingCredential,
			wantReason: sync.ReasonConfiguration,
		},
		{
			name:       "search failure",
			pipeline:   config.PipelineMarketplaces,
			opts:       runOpts(),
			searchErr:  errors.New("connection reset"),
			wantReason: sync.ReasonSearchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			api := githubmocks.NewMockAPI(ctrl)
			if tt.searchErr != nil {
				api.EXPECT().SearchCode(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, tt.searchErr)
			}

			report, runErr := newManager(api, storage.NewMemoryStore()).Run(context.Background(), tt.pipeline, tt.opts)
			require.NotNil(t, runErr)
			assert.Nil(t, report)
			assert.Equal(t, tt.wantReason, runErr.Reason)
			if tt.searchErr != nil {
				assert.ErrorIs(t, runErr, tt.searchErr)
			}
		})
	}
}

func TestManager_NilAPI(t *testing.T) {
	t.Parallel()

	report, runErr := sync.NewManager(config.NewDefaultConfig(), nil, storage.NewMemoryStore()).
		Run(context.Background(), config.PipelineSkills, sync.RunOptions{})
	require.NotNil(t, runErr)
	assert.Nil(t, report)
	assert.Equal(t, sync.ReasonConfiguration, runErr.Reason)
	assert.ErrorIs(t, runErr, github.ErrMissingCredential)
}

func TestManager_StoreFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(store *storagemocks.MockBlobStore)
		wantReport bool
		wantReason string
	}{
		{
			name: "load failure aborts without report",
			setup: func(store *storagemocks.MockBlobStore) {
				store.EXPECT().Get(gomock.Any(), writer.SkillsKey).Return(nil, errors.New("bucket unreachable"))
			},
			wantReason: sync.ReasonLoadFailed,
		},
		{
			name: "write failure still returns report",
			setup: func(store *storagemocks.MockBlobStore) {
				store.EXPECT().Get(gomock.Any(), writer.SkillsKey).Return(nil, storage.ErrNotFound)
				store.EXPECT().Put(gomock.Any(), writer.SkillsKey, gomock.Any()).Return(errors.New("permission denied"))
			},
			wantReport: true,
			wantReason: sync.ReasonPersistFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fixture := newAPIFixture(t, map[string]fakeRepo{
				"acme/alpha": {stars: 10, files: skillFiles("a1")},
			}, []string{"acme/alpha"})
			store := storagemocks.NewMockBlobStore(gomock.NewController(t))
			tt.setup(store)

			report, runErr := newManager(fixture.api, store).Run(context.Background(), config.PipelineSkills, runOpts())
			require.NotNil(t, runErr)
			assert.Equal(t, tt.wantReason, runErr.Reason)
			if tt.wantReport {
				require.NotNil(t, report)
				assert.Equal(t, 1, report.Added)
			} else {
				assert.Nil(t, report)
			}
		})
	}
}

func TestManager_RepositoryFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()

	// A skill from a repository that is now excluded was stored earlier
	stored := []byte(`[
  {"id": "spam-bot/old", "name": "old", "description": "x", "repo": "spam/bot", "repoSlug": "spam-bot", "path": "skills/old", "installCommand": "i"}
]`)
	require.NoError(t, store.Put(ctx, writer.SkillsKey, stored))

	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/alpha": {stars: 10, files: skillFiles("a1")},
		"spam/bot":   {stars: 50, files: skillFiles("old", "s2")},
	}, []string{"acme/alpha", "spam/bot"})

	cfg := config.NewDefaultConfig()
	cfg.Pipelines.Skills.Filter = &config.FilterConfig{Exclude: []string{"spam/*"}}
	manager := sync.NewManager(cfg, fixture.api, store,
		sync.WithClock(func() time.Time { return fixedNow }),
		sync.WithSleep(noSleep))

	report, runErr := manager.Run(ctx, config.PipelineSkills, runOpts())
	require.Nil(t, runErr)

	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 1, report.ExcludedRepos)
	assert.Equal(t, 1, report.Qualified)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Total)

	// Excluded repositories are never fetched
	assert.Equal(t, []string{"acme/alpha"}, fixture.fetchedRepos())

	data, err := store.Get(ctx, writer.SkillsKey)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "spam-bot/old")
}

func TestManager_ConfigSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixture := newAPIFixture(t, map[string]fakeRepo{
		"acme/alpha": {stars: 10, files: skillFiles("a1")},
		"acme/beta":  {stars: 10, files: skillFiles("b1")},
	}, []string{"acme/alpha", "acme/beta"})

	var (
		mu      gosync.Mutex
		current = config.NewDefaultConfig()
	)
	source := func() *config.Config {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	manager := sync.NewManager(nil, fixture.api, storage.NewMemoryStore(),
		sync.WithConfigSource(source),
		sync.WithClock(func() time.Time { return fixedNow }),
		sync.WithSleep(noSleep))

	report, runErr := manager.Run(ctx, config.PipelineSkills, runOpts())
	require.Nil(t, runErr)
	assert.Equal(t, 2, report.Total)

	// A reloaded configuration applies from the next run
	reloaded := config.NewDefaultConfig()
	reloaded.Pipelines.Skills.Filter = &config.FilterConfig{Include: []string{"acme/alpha"}}
	mu.Lock()
	current = reloaded
	mu.Unlock()

	report, runErr = manager.Run(ctx, config.PipelineSkills, runOpts())
	require.Nil(t, runErr)
	assert.Equal(t, 1, report.ExcludedRepos)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Total)

	broken := config.NewDefaultConfig()
	broken.Pipelines.Skills.Filter = &config.FilterConfig{Include: []string{"acme/["}}
	mu.Lock()
	current = broken
	mu.Unlock()

	_, runErr = manager.Run(ctx, config.PipelineSkills, runOpts())
	require.NotNil(t, runErr)
	assert.Equal(t, sync.ReasonConfiguration, runErr.Reason)
	assert.Contains(t, runErr.Message, "Invalid repository filter")
}
