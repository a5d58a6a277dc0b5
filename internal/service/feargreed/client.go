package feargreed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/service"
	xhttp "RiskPulse/pkg/http"
)

// Client reads the alternative.me Fear & Greed index.
type Client struct {
	url      string
	attempts int
	client   *xhttp.Client
}

type Config struct {
	URL      string
	Timeout  time.Duration
	Attempts int
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:      cfg.URL,
		attempts: cfg.Attempts,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

var _ service.FearGreedSource = (*Client)(nil)

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

// Latest fetches the most recent reading.
func (c *Client) Latest(ctx context.Context) (models.FearGreedReading, error) {
	var resp fngResponse
	err := c.client.SendAndParseWithRetry(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.url,
		QueryParams: map[string][]string{"limit": {"1"}},
	}, &resp, c.attempts, 200*time.Millisecond)
	if err != nil {
		return models.FearGreedReading{}, fmt.Errorf("fear greed fetch: %w", err)
	}
	return parseReading(resp)
}

func parseReading(resp fngResponse) (models.FearGreedReading, error) {
	if resp.Metadata.Error != nil && *resp.Metadata.Error != "" {
		return models.FearGreedReading{}, fmt.Errorf("fear greed api: %s", *resp.Metadata.Error)
	}
	if len(resp.Data) == 0 {
		return models.FearGreedReading{}, fmt.Errorf("fear greed api: empty data")
	}
	d := resp.Data[0]
	v, err := strconv.Atoi(d.Value)
	if err != nil || v < 0 || v > 100 {
		return models.FearGreedReading{}, fmt.Errorf("fear greed api: bad value %q", d.Value)
	}
	r := models.FearGreedReading{Value: v, Classification: d.Classification}
	if ts, err := strconv.ParseInt(d.Timestamp, 10, 64); err == nil {
		r.Timestamp = time.Unix(ts, 0).UTC()
	}
	return r, nil
}
