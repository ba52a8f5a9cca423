package prices

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/energy-kpi/internal/db"
	"github.com/j-veylop/energy-kpi/internal/metrics"
	"github.com/j-veylop/energy-kpi/internal/models"
)

var (
	chunk1 = time.Date(2024, 5, 27, 0, 0, 0, 0, time.UTC)
	chunk2 = chunk1.Add(7 * 24 * time.Hour)
)

func newSmardServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/4169/DE/index_hour.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"timestamps":[%d,%d]}`, chunk1.UnixMilli(), chunk2.UnixMilli())
	})
	mux.HandleFunc(fmt.Sprintf("/4169/DE/4169_DE_hour_%d.json", chunk1.UnixMilli()), func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprintf(w, `{"series":[[%d,80.5],[%d,null]]}`,
			chunk2.Add(-2*time.Hour).UnixMilli(), chunk2.Add(-time.Hour).UnixMilli())
	})
	mux.HandleFunc(fmt.Sprintf("/4169/DE/4169_DE_hour_%d.json", chunk2.UnixMilli()), func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprintf(w, `{"series":[[%d,100],[%d,120.25],[%d,null]]}`,
			chunk2.UnixMilli(), chunk2.Add(time.Hour).UnixMilli(), chunk2.Add(2*time.Hour).UnixMilli())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchSeries(t *testing.T) {
	var hits int32
	srv := newSmardServer(t, &hits)
	c := NewClient(srv.URL, "", "", "")

	index, err := c.FetchIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{chunk1.UnixMilli(), chunk2.UnixMilli()}, index)

	points, err := c.FetchSeries(context.Background(), chunk2.UnixMilli())
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, chunk2, points[0].Timestamp)
	assert.InDelta(t, 120.25, *points[1].Price, 1e-9)
	assert.Nil(t, points[2].Price)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, "", "", "").FetchIndex(ctx)
	assert.Error(t, err)
}

func TestChunksCovering(t *testing.T) {
	index := []int64{chunk1.UnixMilli(), chunk2.UnixMilli()}

	assert.Equal(t, []int64{chunk2.UnixMilli()}, chunksCovering(index, chunk2.Add(time.Hour), chunk2.Add(2*time.Hour)))
	assert.Equal(t, index, chunksCovering(index, chunk1.Add(time.Hour), chunk2.Add(time.Hour)))
	assert.Equal(t, []int64{chunk1.UnixMilli()}, chunksCovering(index, chunk1, chunk1.Add(time.Hour)))
	assert.Empty(t, chunksCovering(index, chunk1.Add(-48*time.Hour), chunk1.Add(-24*time.Hour)))
}

func TestPoll(t *testing.T) {
	var hits int32
	srv := newSmardServer(t, &hits)

	store, err := db.New(filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := New(NewClient(srv.URL, "", "", ""), store, metrics.New(), Config{Lookback: 3 * time.Hour})
	svc.now = func() time.Time { return chunk2.Add(90 * time.Minute) }

	inserted, err := svc.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	meta, err := store.GetMetaByIdentifier(context.Background(), models.GridPriceIdentifier)
	require.NoError(t, err)
	assert.Equal(t, "EUR/MWh", meta.Unit)
	require.NotNil(t, meta.MaxTimestamp)
	assert.Equal(t, chunk2.Add(time.Hour), *meta.MaxTimestamp)

	// Nothing new on the second poll
	inserted, err = svc.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}
