// Package catalog defines the records the discovery pipelines produce and
// persist: marketplaces, skills and per-repository skill summaries, along with
// the derivations shared between pipeline stages (slugs, aggregation,
// plugin keywords).
//
// JSON field names are read by a separately deployed frontend and must stay
// backward compatible. New fields may be added; existing ones never renamed.
package catalog
