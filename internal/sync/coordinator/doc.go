// Package coordinator schedules the catalog pipelines in serve mode.
//
// Each pipeline gets its own loop, run under an errgroup, that fires at the
// pipeline's configured sync interval with a random jitter of ±10%. On
// start a pipeline runs immediately when its last successful run is older
// than its interval, so restarts do not trigger extra runs.
//
// # Single Writer
//
// Runs of the same pipeline never overlap within a process. Trigger takes a
// per-pipeline lock with TryLock and fails fast with ErrRunInProgress when
// it is held; scheduled ticks that collide with a manual trigger are
// skipped.
//
// Across processes the guarantee depends on the store. WithLocker adds a
// second, store level lock taken after the in-process one: the file store
// uses a lock file under its data directory and the PostgreSQL store an
// advisory lock. Other stores have no cross-process lock, so deployments
// that run several replicas against them must disable scheduling on all
// but one.
//
// # Status Persistence
//
// Every run writes a status.RunStatus twice: once as Running when it
// starts and once as Complete or Failed when it ends, carrying the run's
// Report. A status write failure is logged and never fails the run.
//
// # Usage Example
//
//	manager := sync.NewManager(cfg, api, store)
//	coord := coordinator.New(manager, status.NewStatusPersistence(store), cfg)
//
//	go coord.Start(ctx)
//
//	// ... serve the API, which calls coord.Trigger ...
//
//	coord.Stop()
package coordinator
