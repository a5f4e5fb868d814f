package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/status"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
)

// ErrRunInProgress is returned by Trigger while a run of the same pipeline is active
var ErrRunInProgress = errors.New("a run is already in progress for this pipeline")

//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks -source=coordinator.go Coordinator

// Coordinator schedules pipeline runs and guarantees a single writer per
// pipeline within the process
type Coordinator interface {
	// Start runs every pipeline at its configured interval.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduling loops
	Stop() error

	// Trigger runs a pipeline now. It fails with ErrRunInProgress when the
	// pipeline is already running, and with a *pkgsync.Error when the run
	// fails; the report is returned whenever the run produced one.
	Trigger(ctx context.Context, pipeline string, opts pkgsync.RunOptions) (*pkgsync.Report, error)
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager   pkgsync.Manager
	config    *config.Config
	statusSvc status.StatusPersistence
	pipelines []string
	now       func() time.Time
	locker    storage.Locker

	// running holds one lock per pipeline
	running map[string]*sync.Mutex

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *defaultCoordinator) {
		c.now = now
	}
}

// WithLocker excludes runs of the same pipeline in other processes
func WithLocker(locker storage.Locker) Option {
	return func(c *defaultCoordinator) {
		c.locker = locker
	}
}

// WithPipelines restricts scheduling to the given pipelines
func WithPipelines(pipelines ...string) Option {
	return func(c *defaultCoordinator) {
		c.pipelines = pipelines
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	statusSvc status.StatusPersistence,
	cfg *config.Config,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		manager:   manager,
		statusSvc: statusSvc,
		config:    cfg,
		pipelines: []string{config.PipelineMarketplaces, config.PipelineSkills},
		now:       time.Now,
		running: map[string]*sync.Mutex{
			config.PipelineMarketplaces: {},
			config.PipelineSkills:       {},
		},
		done: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background scheduling for every pipeline
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting background sync coordinator", "pipelines", c.pipelines)

	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		close(c.done)
		slog.Info("Background sync coordinator shutting down")
	}()

	g, gctx := errgroup.WithContext(coordCtx)
	for _, pipeline := range c.pipelines {
		pcfg, err := c.config.Pipeline(pipeline)
		if err != nil {
			return fmt.Errorf("failed to schedule pipeline: %w", err)
		}
		interval := getSyncInterval(pcfg.SyncPolicy)
		g.Go(func() error {
			c.schedule(gctx, pipeline, interval)
			return nil
		})
	}

	return g.Wait()
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}

// schedule runs one pipeline every interval until ctx is done. The first
// run happens immediately when the last success is older than interval.
func (c *defaultCoordinator) schedule(ctx context.Context, pipeline string, interval time.Duration) {
	logger := slog.With("pipeline", pipeline)

	current, err := c.statusSvc.LoadStatus(ctx, pipeline)
	if err != nil {
		logger.Warn("Failed to load run status, running now", "error", err)
		current = &status.RunStatus{Pipeline: pipeline}
	}
	if isDue(current.LastSuccess, interval, c.now()) {
		c.runScheduled(ctx, pipeline)
	}

	next := withJitter(interval)
	logger.Info("Configured pipeline sync interval", "base_interval", interval, "actual_interval", next)
	timer := time.NewTimer(next)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			c.runScheduled(ctx, pipeline)
			timer.Reset(withJitter(interval))
		case <-ctx.Done():
			logger.Info("Pipeline scheduler stopping")
			return
		}
	}
}

func (c *defaultCoordinator) runScheduled(ctx context.Context, pipeline string) {
	_, err := c.Trigger(ctx, pipeline, pkgsync.RunOptions{})
	if errors.Is(err, ErrRunInProgress) {
		slog.Debug("Skipping scheduled run, pipeline already running", "pipeline", pipeline)
	}
}
