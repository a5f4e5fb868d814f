package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/github"
	"github.com/stacklok/toolhive-catalog/internal/otel"
	"github.com/stacklok/toolhive-catalog/internal/ratelimit"
	"github.com/stacklok/toolhive-catalog/internal/sources"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	"github.com/stacklok/toolhive-catalog/internal/telemetry"
)

// Run failure reasons
const (
	ReasonConfiguration     = "ConfigurationInvalid"
	ReasonSearchRateLimited = "SearchRateLimited"
	ReasonSearchFailed      = "SearchFailed"
	ReasonLoadFailed        = "LoadFailed"
	ReasonPersistFailed     = "PersistFailed"
	ReasonCancelled         = "Cancelled"
)

// Stage names used for spans and metrics
const (
	stageSearch     = "search"
	stageFilter     = "filter"
	stagePopularity = "popularity"
	stageGate       = "gate"
	stageFetch      = "fetch"
	stageValidate   = "validate"
	stageAggregate  = "aggregate"
	stageReconcile  = "reconcile"
)

// Error is a run-level failure. Per-item failures never surface as an Error;
// they are counted in the Report.
type Error struct {
	Err     error
	Message string
	Reason  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason string, err error, format string, args ...any) *Error {
	return &Error{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Reason:  reason,
	}
}

// RunOptions override the pipeline configuration for a single run
type RunOptions struct {
	// DryRun computes the reconciled sets without writing them
	DryRun bool

	// ItemLimit caps the processed repositories, keeping every search hit of
	// each kept repository; zero uses the configured limit
	ItemLimit int

	// QualityThreshold overrides the configured minimum popularity
	QualityThreshold *int

	// Queries overrides the configured search query variants
	Queries []string
}

// Manager runs discovery pipelines
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/toolhive-catalog/internal/sync Manager
type Manager interface {
	// Run executes one pipeline end to end. The report is returned whenever
	// the run got as far as reconciling, including when persisting failed.
	Run(ctx context.Context, pipeline string, opts RunOptions) (*Report, *Error)
}

// Option configures the default manager
type Option func(*defaultManager)

// WithTracer sets the tracer for pipeline spans
func WithTracer(tracer trace.Tracer) Option {
	return func(m *defaultManager) {
		m.tracer = tracer
	}
}

// WithMetrics sets the pipeline metrics recorder
func WithMetrics(metrics *telemetry.PipelineMetrics) Option {
	return func(m *defaultManager) {
		m.metrics = metrics
	}
}

// WithConfigSource makes every run read the configuration returned by source
// instead of the one given to NewManager. Each run takes a single snapshot.
func WithConfigSource(source func() *config.Config) Option {
	return func(m *defaultManager) {
		m.configSource = source
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *defaultManager) {
		m.now = now
	}
}

// WithSleep overrides the wait used between batches and retries
func WithSleep(sleep ratelimit.SleepFunc) Option {
	return func(m *defaultManager) {
		m.sleep = sleep
	}
}

type defaultManager struct {
	cfg          *config.Config
	configSource func() *config.Config
	api          github.API
	store        storage.BlobStore
	tracer       trace.Tracer
	metrics      *telemetry.PipelineMetrics
	now          func() time.Time
	sleep        ratelimit.SleepFunc
}

// NewManager creates a Manager that discovers through api and persists into store
func NewManager(cfg *config.Config, api github.API, store storage.BlobStore, opts ...Option) Manager {
	m := &defaultManager{
		cfg:   cfg,
		api:   api,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// runPlan is the resolved configuration of one run
type runPlan struct {
	cfg       *config.Config
	filter    *sources.RepoFilter
	pipeline  string
	runID     string
	queries   []string
	threshold int
	limit     int
	dryRun    bool
	startedAt time.Time
}

// Run implements Manager
func (m *defaultManager) Run(ctx context.Context, pipeline string, opts RunOptions) (*Report, *Error) {
	plan, runErr := m.plan(pipeline, opts)
	if runErr != nil {
		return nil, runErr
	}

	ctx, span := otel.StartSpan(ctx, m.tracer, "pipeline.run",
		trace.WithAttributes(
			otel.AttrPipeline.String(plan.pipeline),
			otel.AttrRunID.String(plan.runID),
			otel.AttrDryRun.Bool(plan.dryRun),
			otel.AttrItemLimit.Int(plan.limit),
			otel.AttrThreshold.Int(plan.threshold),
			otel.AttrQueryCount.Int(len(plan.queries)),
		),
	)
	defer span.End()

	logger := slog.With("pipeline", plan.pipeline, "run_id", plan.runID)
	logger.Info("Starting pipeline run",
		"dry_run", plan.dryRun,
		"limit", plan.limit,
		"threshold", plan.threshold,
		"queries", len(plan.queries))

	var (
		report *Report
		err    *Error
	)
	switch plan.pipeline {
	case config.PipelineMarketplaces:
		report, err = m.runMarketplaces(ctx, plan)
	case config.PipelineSkills:
		report, err = m.runSkills(ctx, plan)
	}

	duration := m.now().Sub(plan.startedAt)
	m.metrics.RecordRunDuration(ctx, plan.pipeline, duration, err == nil)

	if report != nil {
		report.DurationMs = duration.Milliseconds()
	}
	if err != nil {
		otel.RecordError(span, err)
		logger.Error("Pipeline run failed", "reason", err.Reason, "error", err.Err)
		return report, err
	}

	logger.Info("Pipeline run completed",
		"discovered", report.Discovered,
		"validated", report.Validated,
		"added", report.Added,
		"updated", report.Updated,
		"removed", report.Removed,
		"total", report.Total,
		"failed", report.FailedCount,
		"duration", duration)
	return report, nil
}

func (m *defaultManager) plan(pipeline string, opts RunOptions) (runPlan, *Error) {
	cfg := m.cfg
	if m.configSource != nil {
		cfg = m.configSource()
	}
	if cfg == nil {
		return runPlan{}, newError(ReasonConfiguration, errors.New("config is nil"), "Configuration is missing")
	}
	if m.api == nil {
		return runPlan{}, newError(ReasonConfiguration, github.ErrMissingCredential,
			"GitHub client is not configured: %v", github.ErrMissingCredential)
	}
	if m.store == nil {
		return runPlan{}, newError(ReasonConfiguration, errors.New("store is nil"), "Record store is not configured")
	}

	pcfg, err := cfg.Pipeline(pipeline)
	if err != nil {
		return runPlan{}, newError(ReasonConfiguration, err, "Invalid pipeline: %v", err)
	}

	var filter *sources.RepoFilter
	if pcfg.Filter != nil {
		filter, err = sources.NewRepoFilter(pcfg.Filter.Include, pcfg.Filter.Exclude)
		if err != nil {
			return runPlan{}, newError(ReasonConfiguration, err, "Invalid repository filter: %v", err)
		}
	}

	plan := runPlan{
		cfg:       cfg,
		filter:    filter,
		pipeline:  pipeline,
		runID:     uuid.NewString(),
		queries:   pcfg.Queries,
		threshold: pcfg.GetQualityThreshold(),
		limit:     pcfg.ItemLimit,
		dryRun:    opts.DryRun,
		startedAt: m.now(),
	}
	if len(opts.Queries) > 0 {
		plan.queries = opts.Queries
	}
	if opts.QualityThreshold != nil {
		if *opts.QualityThreshold < 0 {
			return runPlan{}, newError(ReasonConfiguration, errors.New("negative threshold"),
				"Quality threshold cannot be negative: %d", *opts.QualityThreshold)
		}
		plan.threshold = *opts.QualityThreshold
	}
	if opts.ItemLimit < 0 {
		return runPlan{}, newError(ReasonConfiguration, errors.New("negative limit"),
			"Item limit cannot be negative: %d", opts.ItemLimit)
	}
	if opts.ItemLimit > 0 {
		plan.limit = opts.ItemLimit
	}
	if len(plan.queries) == 0 {
		return runPlan{}, newError(ReasonConfiguration, errors.New("no queries"),
			"Pipeline %s has no search queries", pipeline)
	}

	return plan, nil
}

func (m *defaultManager) retryOptions(policy config.CallPolicy, label string) ratelimit.RetryOptions {
	return ratelimit.RetryOptions{
		MaxRetries: policy.GetMaxRetries(),
		BaseDelay:  policy.GetBaseDelay(),
		MaxDelay:   policy.GetMaxDelay(),
		Label:      label,
		Sleep:      m.sleep,
	}
}

func (m *defaultManager) batchOptions(policy config.CallPolicy) ratelimit.BatchOptions {
	return ratelimit.BatchOptions{
		Concurrency:         policy.GetConcurrency(),
		DelayBetweenBatches: policy.GetDelayBetweenBatches(),
		Sleep:               m.sleep,
	}
}

// searchError maps a search failure to its run-level reason
func searchError(err error) *Error {
	switch {
	case errors.Is(err, github.ErrMissingCredential):
		return newError(ReasonConfiguration, err, "Search is not configured: %v", err)
	case errors.Is(err, github.ErrRateLimited), ratelimit.IsRateLimited(err):
		return newError(ReasonSearchRateLimited, err, "Search was rate limited: %v", err)
	default:
		return newError(ReasonSearchFailed, err, "Search failed: %v", err)
	}
}
