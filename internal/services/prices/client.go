// Package prices polls day-ahead grid prices from SMARD and stores them as the grid_price series.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/j-veylop/energy-kpi/internal/logger"
)

const (
	// DefaultBaseURL is the SMARD chart data endpoint.
	DefaultBaseURL = "https://www.smard.de/app/chart_data"

	// DefaultFilter is the German/Luxembourg day-ahead price in EUR/MWh.
	DefaultFilter = "4169"

	DefaultRegion     = "DE"
	DefaultResolution = "hour"
)

// Point is a single price reading. A nil price marks a slot SMARD has not published yet.
type Point struct {
	Timestamp time.Time
	Price     *float64
}

type indexResponse struct {
	Timestamps []int64 `json:"timestamps"`
}

type seriesResponse struct {
	Series [][2]*float64 `json:"series"`
}

// Client fetches chart data from SMARD.
type Client struct {
	httpClient *http.Client
	baseURL    string
	filter     string
	region     string
	resolution string
}

// NewClient creates a client. Empty arguments take the SMARD defaults.
func NewClient(baseURL, filter, region, resolution string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if filter == "" {
		filter = DefaultFilter
	}
	if region == "" {
		region = DefaultRegion
	}
	if resolution == "" {
		resolution = DefaultResolution
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		filter:     filter,
		region:     region,
		resolution: resolution,
	}
}

// FetchIndex returns the start timestamps (unix ms) of the available data chunks.
func (c *Client) FetchIndex(ctx context.Context) ([]int64, error) {
	url := fmt.Sprintf("%s/%s/%s/index_%s.json", c.baseURL, c.filter, c.region, c.resolution)

	var resp indexResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch price index: %w", err)
	}
	return resp.Timestamps, nil
}

// FetchSeries returns the points of the chunk starting at chunk (unix ms).
func (c *Client) FetchSeries(ctx context.Context, chunk int64) ([]Point, error) {
	url := fmt.Sprintf("%s/%s/%s/%s_%s_%s_%d.json",
		c.baseURL, c.filter, c.region, c.filter, c.region, c.resolution, chunk)

	var resp seriesResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch price chunk %d: %w", chunk, err)
	}

	points := make([]Point, 0, len(resp.Series))
	for _, row := range resp.Series {
		if row[0] == nil {
			continue
		}
		points = append(points, Point{
			Timestamp: time.UnixMilli(int64(*row[0])).UTC(),
			Price:     row[1],
		})
	}
	return points, nil
}

// getJSON performs a GET with retry and exponential backoff and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	var err error

	backoff := 500 * time.Millisecond
	for i := range 3 {
		err = c.doGetJSON(ctx, url, v)
		if err == nil {
			return nil
		}

		if i < 2 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return err
}

func (c *Client) doGetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
