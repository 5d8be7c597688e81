package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/rally/pkg/logger"
)

// errUnexpectedStatus is returned when the service answers with a status
// the caller did not ask for.
var errUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: config.BaseURL,
	}
}

// do sends a request with an optional JSON body and decodes a JSON answer
// into out when the status is one of want.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, headers map[string]string, out any, want ...int) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	for _, code := range want {
		if resp.StatusCode != code {
			continue
		}
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
			}
		}
		return resp.StatusCode, nil
	}
	return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", errUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
}

// submitRallies submits every rally's rows concurrently. Each submission is
// sent a second time with the same idempotency key, which the service must
// reject as a duplicate.
func submitRallies(ctx context.Context, config *Config, client *HTTPClient, season *Season, stats *Stats) error {
	logger.Get().Info(ctx, "submitting results",
		logger.Int("rallies", len(season.Rallies)),
		logger.Int("workers", config.Workers))

	var (
		submitted  int64
		duplicates int64
		failed     int64
		rows       int64
	)

	jobs := make(chan int, config.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < max(config.Workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				plan := season.Rallies[idx]
				n, dup, err := submitOnce(ctx, client, plan)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					logger.Get().Warn(ctx, "submission failed", logger.String("rally", plan.Name), logger.Error(err))
					continue
				}
				atomic.AddInt64(&submitted, 1)
				atomic.AddInt64(&rows, int64(n))
				if dup {
					atomic.AddInt64(&duplicates, 1)
				}
				if config.Verbose {
					logger.Get().Debug(ctx, "rally submitted", logger.String("rally", plan.Name), logger.Int("rows", n))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range season.Rallies {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	stats.Submissions = int(atomic.LoadInt64(&submitted))
	stats.Duplicates = int(atomic.LoadInt64(&duplicates))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.RowsSubmitted = int(atomic.LoadInt64(&rows))

	logger.Get().Info(ctx, "submission completed",
		logger.Int("submitted", stats.Submissions),
		logger.Int("duplicatesRejected", stats.Duplicates),
		logger.Int("failed", stats.Failed))

	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", stats.Failed, len(season.Rallies))
	}
	return ctx.Err()
}

// submitOnce posts plan and replays it with the same key. dup reports
// whether the replay was rejected.
func submitOnce(ctx context.Context, client *HTTPClient, plan RallyPlan) (n int, dup bool, err error) {
	path := "/rallies/" + plan.id + "/results"
	headers := map[string]string{"Idempotency-Key": plan.IdempotencyKey}
	body := map[string]any{"results": plan.Rows}

	var out struct {
		Count int `json:"count"`
	}
	if _, err := client.do(ctx, http.MethodPost, path, body, headers, &out, http.StatusCreated); err != nil {
		return 0, false, err
	}

	if _, err := client.do(ctx, http.MethodPost, path, body, headers, nil, http.StatusConflict); err != nil {
		return out.Count, false, fmt.Errorf("replay with key %s: %w", plan.IdempotencyKey, err)
	}
	return out.Count, true, nil
}
