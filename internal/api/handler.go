package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/j-veylop/energy-kpi/internal/cache"
	"github.com/j-veylop/energy-kpi/internal/db"
	"github.com/j-veylop/energy-kpi/internal/interval"
	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
)

// Store is the persistence used by the metadata, timeseries, factor and config routes.
type Store interface {
	CreateMeta(ctx context.Context, in models.MetaInput) (*models.Meta, error)
	ListMeta(ctx context.Context, page models.Pagination) ([]models.Meta, error)
	GetMetaByIdentifier(ctx context.Context, identifier string) (*models.Meta, error)
	InsertDatapoints(ctx context.Context, points []models.NewDatapoint) ([]models.Datapoint, error)
	GetDatapoints(ctx context.Context, metaID int64, rng models.TimeRange) ([]models.Datapoint, error)
	ResampleDatapoints(ctx context.Context, metaID int64, rng models.TimeRange, w interval.BucketWidth) ([]models.ResampledDatapoint, error)
	CreateEmissionFactor(ctx context.Context, in models.EmissionFactorInput) (*models.EmissionFactor, error)
	ListEmissionFactors(ctx context.Context, filter models.EmissionFactorFilter) ([]models.EmissionFactor, error)
	PutConfig(ctx context.Context, doc json.RawMessage) error
	GetConfig(ctx context.Context) (json.RawMessage, error)
	PingContext(ctx context.Context) error
}

type pingResponse struct {
	Message string `json:"message"`
}

// handlePing answers the liveness probe of the original frontend.
func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{Message: "0xDECAFBAD"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.PingContext(ctx); err != nil {
		logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateMeta(w http.ResponseWriter, r *http.Request) {
	var in models.MetaInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Identifier == "" || in.Unit == "" {
		writeError(w, r, fmt.Errorf("%w: identifier and unit are required", ErrBadRequest))
		return
	}

	_, err := s.store.GetMetaByIdentifier(r.Context(), in.Identifier)
	switch {
	case err == nil:
		writeError(w, r, fmt.Errorf("meta %s: %w", in.Identifier, ErrConflict))
		return
	case !errors.Is(err, db.ErrNotFound):
		writeError(w, r, err)
		return
	}

	meta, err := s.store.CreateMeta(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// handleListMeta serves a page of metadata, cached per page for the cache TTL.
func (s *Server) handleListMeta(w http.ResponseWriter, r *http.Request) {
	page, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := cache.MetaKey(page.Page, page.PerPage)
	if raw, err := s.cache.Get(r.Context(), key); err == nil {
		var rows models.MetaRows
		if err := json.Unmarshal([]byte(raw), &rows); err == nil {
			s.metrics.ObserveCache("meta", metrics.CacheHit)
			writeJSON(w, http.StatusOK, rows)
			return
		}
	}
	s.metrics.ObserveCache("meta", metrics.CacheMiss)

	metas, err := s.store.ListMeta(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows := models.MetaRows{Values: metas}

	if raw, err := json.Marshal(rows); err == nil {
		if err := s.cache.Set(r.Context(), key, string(raw), s.config.CacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
			logger.Warn("failed to cache meta page", "key", key, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleGetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.store.GetMetaByIdentifier(r.Context(), r.PathValue("identifier"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleInsertTimeseries(w http.ResponseWriter, r *http.Request) {
	var body models.TimeseriesBody[models.NewDatapoint]
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	for i, dp := range body.Timeseries {
		if dp.Identifier == "" || dp.Timestamp.IsZero() {
			writeError(w, r, fmt.Errorf("%w: reading %d needs an identifier and a timestamp", ErrBadRequest, i))
			return
		}
	}

	stored, err := s.store.InsertDatapoints(r.Context(), body.Timeseries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.TimeseriesBody[models.Datapoint]{Timeseries: stored})
}

func (s *Server) handleGetTimeseries(w http.ResponseWriter, r *http.Request) {
	meta, rng, ok := s.seriesRequest(w, r)
	if !ok {
		return
	}

	points, err := s.store.GetDatapoints(r.Context(), meta.ID, rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Timeseries{Meta: *meta, Datapoints: points})
}

func (s *Server) handleResampleTimeseries(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		raw = interval.Default
	}
	iv, err := interval.ParseStrict(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	meta, rng, ok := s.seriesRequest(w, r)
	if !ok {
		return
	}

	points, err := s.store.ResampleDatapoints(r.Context(), meta.ID, rng, iv.Width())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ResampledTimeseries{Meta: *meta, Datapoints: points})
}

// seriesRequest resolves the identifier path value and the query window.
// It writes the error response itself and reports whether to continue.
func (s *Server) seriesRequest(w http.ResponseWriter, r *http.Request) (*models.Meta, models.TimeRange, bool) {
	from, to, err := parseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return nil, models.TimeRange{}, false
	}

	meta, err := s.store.GetMetaByIdentifier(r.Context(), r.PathValue("identifier"))
	if err != nil {
		writeError(w, r, err)
		return nil, models.TimeRange{}, false
	}
	return meta, models.ResolveTimeRange(from, to, s.now()), true
}

func (s *Server) handleListFactors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	factors, err := s.store.ListEmissionFactors(r.Context(), models.EmissionFactorFilter{
		Source:  q.Get("source"),
		Carrier: q.Get("carrier"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, factors)
}

func (s *Server) handleCreateFactor(w http.ResponseWriter, r *http.Request) {
	var in models.EmissionFactorInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Carrier == "" || in.Unit == "" || in.Source == "" {
		writeError(w, r, fmt.Errorf("%w: carrier, unit and source are required", ErrBadRequest))
		return
	}
	if in.Factor < 0 {
		writeError(w, r, fmt.Errorf("%w: factor must not be negative", ErrBadRequest))
		return
	}

	factor, err := s.store.CreateEmissionFactor(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, factor)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := readRawJSON(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.PutConfig(r.Context(), doc); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetConfig(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
