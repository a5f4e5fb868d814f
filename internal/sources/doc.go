// Package sources implements the discovery stages that talk to GitHub.
//
// Stages run in a fixed order and each one completes for the whole batch
// before the next starts:
//
//   - CatalogSearcher pages through code search results and deduplicates hits
//   - RepoFilter drops hits from repositories matching the configured globs
//   - PopularityFetcher looks up repository stars in paced batches
//   - FilterByPopularity drops hits from repositories below the quality threshold
//   - ContentFetcher downloads the surviving files, trying main then master
//   - RepositoryInspector answers liveness and description lookups for validation
//
// Per-item failures are collected as Failure values and never abort a stage.
// Only search failures are returned as errors, since without hits there is
// nothing to reconcile.
package sources
