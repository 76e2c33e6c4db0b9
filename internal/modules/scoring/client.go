// README: HTTP client for the remote scoring oracle (POST /predict/batch).
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type batchRequest struct {
	Requests []Request `json:"requests"`
}

// HTTPClient sends the whole candidate batch in one call. It never retries;
// the oracle is side-effect free so callers may retry the dispatch.
type HTTPClient struct {
	url     string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

func NewHTTPClient(url string, timeout time.Duration, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		url:     url,
		timeout: timeout,
		http:    &http.Client{},
		log:     log,
	}
}

func (c *HTTPClient) Score(ctx context.Context, reqs []Request) ([]Prediction, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(batchRequest{Requests: reqs})
	if err != nil {
		return nil, fmt.Errorf("%w: encode batch: %v", ErrUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.fail("oracle request failed", err, start)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, c.fail("oracle returned non-success status", fmt.Errorf("status %d: %s", resp.StatusCode, snippet), start)
	}

	var preds []Prediction
	if err := json.NewDecoder(resp.Body).Decode(&preds); err != nil {
		return nil, c.fail("oracle response undecodable", err, start)
	}
	ordered, err := alignPredictions(reqs, preds)
	if err != nil {
		return nil, c.fail("oracle response mismatched", err, start)
	}
	c.log.Debug("oracle scored batch", zap.Int("size", len(reqs)), zap.Duration("latency", time.Since(start)))
	return ordered, nil
}

func (c *HTTPClient) fail(msg string, err error, start time.Time) error {
	c.log.Error(msg, zap.String("url", c.url), zap.Duration("latency", time.Since(start)), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// alignPredictions checks the response has exactly one valid prediction per
// requested driver and returns them in request order.
func alignPredictions(reqs []Request, preds []Prediction) ([]Prediction, error) {
	if len(preds) != len(reqs) {
		return nil, fmt.Errorf("got %d predictions for %d requests", len(preds), len(reqs))
	}
	byDriver := make(map[string]float64, len(preds))
	for _, p := range preds {
		if _, dup := byDriver[p.DriverID]; dup {
			return nil, fmt.Errorf("duplicate prediction for driver %q", p.DriverID)
		}
		if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 1 {
			return nil, fmt.Errorf("probability %v for driver %q outside [0,1]", p.Probability, p.DriverID)
		}
		byDriver[p.DriverID] = p.Probability
	}
	out := make([]Prediction, len(reqs))
	for i, r := range reqs {
		prob, ok := byDriver[r.DriverID]
		if !ok {
			return nil, fmt.Errorf("no prediction for driver %q", r.DriverID)
		}
		out[i] = Prediction{DriverID: r.DriverID, Probability: prob}
	}
	return out, nil
}
