package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-catalog/internal/status"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
)

// Trigger runs a pipeline now and records its status
func (c *defaultCoordinator) Trigger(
	ctx context.Context, pipeline string, opts pkgsync.RunOptions,
) (*pkgsync.Report, error) {
	lock, ok := c.running[pipeline]
	if !ok {
		return nil, &pkgsync.Error{
			Err:     errors.New("unknown pipeline"),
			Message: fmt.Sprintf("Unknown pipeline '%s'", pipeline),
			Reason:  pkgsync.ReasonConfiguration,
		}
	}
	if !lock.TryLock() {
		return nil, ErrRunInProgress
	}
	defer lock.Unlock()

	if c.locker != nil {
		unlock, ok, err := c.locker.TryLock(ctx, "pipeline-"+pipeline)
		if err != nil {
			return nil, &pkgsync.Error{
				Err:     err,
				Message: fmt.Sprintf("Failed to take the run lock of pipeline %s: %v", pipeline, err),
				Reason:  pkgsync.ReasonLoadFailed,
			}
		}
		if !ok {
			slog.Info("Pipeline is running in another process", "pipeline", pipeline)
			return nil, ErrRunInProgress
		}
		defer unlock()
	}

	return c.performRun(ctx, pipeline, opts)
}

// performRun executes a run and persists the status before and after it
func (c *defaultCoordinator) performRun(
	ctx context.Context, pipeline string, opts pkgsync.RunOptions,
) (*pkgsync.Report, error) {
	runStatus, err := c.statusSvc.LoadStatus(ctx, pipeline)
	if err != nil {
		slog.Warn("Failed to load run status, starting fresh", "pipeline", pipeline, "error", err)
		runStatus = &status.RunStatus{Pipeline: pipeline}
	}

	started := c.now().UTC()
	runStatus.Phase = status.RunPhaseRunning
	runStatus.Message = "Run in progress"
	runStatus.Reason = ""
	runStatus.LastAttempt = &started
	runStatus.AttemptCount++
	if pcfg, err := c.config.Pipeline(pipeline); err == nil && pcfg.SyncPolicy != nil {
		runStatus.SyncInterval = pcfg.SyncPolicy.Interval
	}

	// Persist the running state immediately so it's visible
	if err := c.statusSvc.SaveStatus(ctx, pipeline, runStatus); err != nil {
		slog.Warn("Failed to persist running status", "pipeline", pipeline, "error", err)
	}

	slog.Info("Starting run", "pipeline", pipeline, "attempt", runStatus.AttemptCount, "dry_run", opts.DryRun)

	// Set up the final status update in a defer block so a panicking
	// pipeline never leaves the status stuck in Running.
	runStatus.Phase = status.RunPhaseFailed
	runStatus.Message = fmt.Sprintf("Unexpected failure while running pipeline %s", pipeline)
	defer func() {
		if err := c.statusSvc.SaveStatus(context.WithoutCancel(ctx), pipeline, runStatus); err != nil {
			slog.Error("Failed to persist final run status", "pipeline", pipeline, "error", err)
		}
	}()

	report, runErr := c.manager.Run(ctx, pipeline, opts)
	if report != nil {
		runStatus.RunID = report.RunID
		runStatus.LastReport = report
	}

	if runErr != nil {
		runStatus.Phase = status.RunPhaseFailed
		runStatus.Message = runErr.Message
		runStatus.Reason = runErr.Reason
		return report, runErr
	}

	finished := c.now().UTC()
	runStatus.Phase = status.RunPhaseComplete
	runStatus.Message = "Run completed successfully"
	if opts.DryRun {
		runStatus.Message = "Dry run completed successfully"
	} else {
		runStatus.LastSuccess = &finished
	}
	runStatus.AttemptCount = 0
	return report, nil
}
