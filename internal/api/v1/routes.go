// Package v1 provides the catalog API: pipeline triggers, persisted record
// sets and run status.
package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-catalog/internal/api/common"
	"github.com/stacklok/toolhive-catalog/internal/auth"
	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/status"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
	"github.com/stacklok/toolhive-catalog/internal/sync/coordinator"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
)

// CatalogCacheControl is sent with every record set
const CatalogCacheControl = "public, max-age=300"

// catalogSets maps the public set names to their store keys
var catalogSets = map[string]string{
	"marketplaces": writer.MarketplacesKey,
	"skills":       writer.SkillsKey,
	"skill-repos":  writer.SkillReposKey,
}

var pipelines = []string{config.PipelineMarketplaces, config.PipelineSkills}

// Routes holds the dependencies of the catalog API handlers
type Routes struct {
	coord     coordinator.Coordinator
	store     storage.BlobStore
	statusSvc status.StatusPersistence
}

// NewRoutes creates a new Routes instance
func NewRoutes(coord coordinator.Coordinator, store storage.BlobStore, statusSvc status.StatusPersistence) *Routes {
	return &Routes{
		coord:     coord,
		store:     store,
		statusSvc: statusSvc,
	}
}

// Router creates the catalog API router. The trigger endpoint requires
// triggerSecret as a bearer token unless it is empty.
func Router(routes *Routes, triggerSecret string) http.Handler {
	r := chi.NewRouter()

	r.With(auth.BearerSecret(triggerSecret)).Post("/sync/{pipeline}", routes.triggerSync)
	r.Get("/catalog/{set}", routes.getCatalogSet)
	r.Get("/status", routes.getStatus)
	r.Get("/status/{pipeline}", routes.getPipelineStatus)

	return r
}

// triggerSync handles POST /v1/sync/{pipeline}?dryRun=&limit=&threshold=
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := pipelineParam(w, r)
	if !ok {
		return
	}

	opts, err := runOptions(r)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := rr.coord.Trigger(r.Context(), pipeline, opts)
	if errors.Is(err, coordinator.ErrRunInProgress) {
		common.WriteErrorResponse(w, "A run of pipeline "+pipeline+" is already in progress", http.StatusConflict)
		return
	}

	var runErr *pkgsync.Error
	if errors.As(err, &runErr) {
		common.WriteJSONResponse(w, SyncResponse{
			Report: report,
			Error:  runErr.Message,
			Reason: runErr.Reason,
		}, statusForReason(runErr.Reason))
		return
	}
	if err != nil {
		slog.Error("Pipeline trigger failed", "pipeline", pipeline, "error", err)
		common.WriteErrorResponse(w, "Pipeline run failed", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, SyncResponse{Report: report}, http.StatusOK)
}

// getCatalogSet handles GET /v1/catalog/{set}
func (rr *Routes) getCatalogSet(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "set")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, ok := catalogSets[strings.TrimSuffix(name, ".json")]
	if !ok {
		common.WriteErrorResponse(w, "Unknown catalog set '"+name+"'", http.StatusNotFound)
		return
	}

	data, err := rr.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			common.WriteErrorResponse(w, "Catalog set '"+name+"' has not been published yet", http.StatusNotFound)
			return
		}
		slog.Error("Failed to read catalog set", "key", key, "error", err)
		common.WriteErrorResponse(w, "Failed to read catalog set", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", CatalogCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// getStatus handles GET /v1/status
func (rr *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	all, err := rr.statusSvc.LoadAllStatus(r.Context(), pipelines)
	if err != nil {
		slog.Error("Failed to load run status", "error", err)
		common.WriteErrorResponse(w, "Failed to load run status", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, StatusResponse{Pipelines: all}, http.StatusOK)
}

// getPipelineStatus handles GET /v1/status/{pipeline}
func (rr *Routes) getPipelineStatus(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := pipelineParam(w, r)
	if !ok {
		return
	}

	runStatus, err := rr.statusSvc.LoadStatus(r.Context(), pipeline)
	if err != nil {
		slog.Error("Failed to load run status", "pipeline", pipeline, "error", err)
		common.WriteErrorResponse(w, "Failed to load run status", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, runStatus, http.StatusOK)
}

// pipelineParam reads and checks the pipeline URL parameter, writing the
// error response itself when it is invalid
func pipelineParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	pipeline, err := common.GetAndValidateURLParam(r, "pipeline")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	if pipeline != config.PipelineMarketplaces && pipeline != config.PipelineSkills {
		common.WriteErrorResponse(w, "Unknown pipeline '"+pipeline+"'", http.StatusNotFound)
		return "", false
	}
	return pipeline, true
}

func runOptions(r *http.Request) (pkgsync.RunOptions, error) {
	var opts pkgsync.RunOptions

	dryRun, err := common.QueryBool(r, "dryRun")
	if err != nil {
		return opts, err
	}
	opts.DryRun = dryRun

	limit, _, err := common.QueryNonNegativeInt(r, "limit")
	if err != nil {
		return opts, err
	}
	opts.ItemLimit = limit

	threshold, set, err := common.QueryNonNegativeInt(r, "threshold")
	if err != nil {
		return opts, err
	}
	if set {
		opts.QualityThreshold = &threshold
	}

	return opts, nil
}

func statusForReason(reason string) int {
	switch reason {
	case pkgsync.ReasonSearchRateLimited, pkgsync.ReasonCancelled:
		return http.StatusServiceUnavailable
	case pkgsync.ReasonSearchFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
