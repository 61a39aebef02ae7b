package fooddata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/gather-kitchen/nutrition-label-server/internal/units"
)

// RemoteClient answers ingredient searches from the FoodData Central REST
// API. Transient failures are retried with backoff before surfacing.
type RemoteClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *slog.Logger
}

var _ Lookup = (*RemoteClient)(nil)

// NewRemoteClient creates a FoodData Central API client.
func NewRemoteClient(baseURL, apiKey string, logger *slog.Logger) *RemoteClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	return &RemoteClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  retryClient.StandardClient(),
		log:     logger,
	}
}

// Close is a no-op; the underlying transport manages its own connections.
func (c *RemoteClient) Close() error {
	return nil
}

// SearchFoods queries the /v1/foods/search endpoint.
func (c *RemoteClient) SearchFoods(ctx context.Context, query string, limit int) ([]Food, error) {
	start := time.Now()
	c.log.Debug("Remote SearchFoods starting", "query", query, "limit", limit)

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(limit))

	endpoint := c.baseURL + "/v1/foods/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("FDC search request failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("fdc search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fdc search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fdc response: %w", err)
	}

	results := parseSearchResponse(body)
	c.log.Info("Remote SearchFoods completed", "count", len(results), "duration", time.Since(start))
	return results, nil
}

// parseSearchResponse extracts candidates from the search payload. Fields
// the API omits simply stay zero; a malformed payload yields no results
// rather than an error, matching the lookup contract of returning what
// could be read.
func parseSearchResponse(body []byte) []Food {
	var results []Food

	gjson.GetBytes(body, "foods").ForEach(func(_, entry gjson.Result) bool {
		food := Food{
			FdcID:       entry.Get("fdcId").Int(),
			Description: entry.Get("description").String(),
			DataType:    entry.Get("dataType").String(),
			Category:    entry.Get("foodCategory").String(),
		}

		amounts := make(map[int64]float64)
		entry.Get("foodNutrients").ForEach(func(_, n gjson.Result) bool {
			amounts[n.Get("nutrientId").Int()] = n.Get("value").Float()
			return true
		})
		food.Per100g = ProfileFromNutrients(amounts)

		entry.Get("foodMeasures").ForEach(func(_, m gjson.Result) bool {
			food.Portions = append(food.Portions, portionFromMeasure(
				m.Get("disseminationText").String(),
				m.Get("modifier").String(),
				m.Get("gramWeight").Float(),
			))
			return true
		})

		results = append(results, food)
		return true
	})

	return results
}

func portionFromMeasure(text, modifier string, grams float64) units.Portion {
	return units.Portion{Unit: text, Modifier: modifier, GramWeight: grams}
}

// HealthCheck issues a minimal search to verify reachability and the key.
func (c *RemoteClient) HealthCheck(ctx context.Context) error {
	_, err := c.SearchFoods(ctx, "salt", 1)
	return err
}
