// Package sync runs the catalog discovery pipelines.
//
// A run moves through fixed stages, each starting only once every item of
// the previous stage has settled:
//
//	search -> [filter] -> popularity -> gate -> fetch -> validate -> [aggregate] -> reconcile
//
// The marketplaces pipeline reconciles marketplaces.json. The skills
// pipeline reconciles skills.json and then skill-repos.json, the per
// repository summaries aggregated from the validated skills.
//
// Per-item failures (a file that cannot be fetched, a manifest that does
// not validate) are counted in the Report and never abort a run. Only
// stage-level failures are returned as an *Error, tagged with a Reason:
// missing configuration or credentials, a rate limited or failing search,
// and a store that cannot be read or written. When the write fails the
// Report is still returned alongside the error.
//
// The coordinator subpackage schedules periodic runs and records their
// status; the writer subpackage owns the persisted record sets.
package sync
