package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 8 << 20

// parseTime reads an optional RFC 3339 timestamp.
func parseTime(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", ErrBadRequest, name)
	}
	t = t.UTC()
	return &t, nil
}

// parseRange reads the optional from and to parameters.
func parseRange(q url.Values) (from, to *time.Time, err error) {
	if from, err = parseTime(q, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = parseTime(q, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// parseKPIQuery reads the window, interval and source of a KPI request.
// The interval is validated by the KPI service.
func parseKPIQuery(r *http.Request) (kpi.Query, error) {
	q := r.URL.Query()
	from, to, err := parseRange(q)
	if err != nil {
		return kpi.Query{}, err
	}
	return kpi.Query{
		From:     from,
		To:       to,
		Interval: q.Get("interval"),
		Source:   q.Get("source"),
	}, nil
}

// parsePagination reads page and per_page, applying the defaults.
func parsePagination(q url.Values) (models.Pagination, error) {
	p := models.DefaultPagination()

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return p, fmt.Errorf("%w: page must be a non-negative integer", ErrBadRequest)
		}
		p.Page = page
	}
	if raw := q.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage <= 0 {
			return p, fmt.Errorf("%w: per_page must be a positive integer", ErrBadRequest)
		}
		p.PerPage = perPage
	}
	return p, nil
}

// decodeJSON decodes a size-limited request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", ErrBadRequest, err)
	}
	return nil
}

// readRawJSON reads a size-limited body that must be a valid JSON document.
func readRawJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", ErrBadRequest, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body must be valid JSON", ErrBadRequest)
	}
	return json.RawMessage(body), nil
}
