package feeder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/saberlens/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

type urlObservation struct {
	URL string `json:"url"`
}

type responseObservation struct {
	URL     string        `json:"url"`
	Payload ScoresPayload `json:"payload"`
}

type observeAck struct {
	Status  string `json:"status"`
	Entries *int   `json:"entries"`
}

// submitResponses posts every page's response observation using a worker pool.
func submitResponses(ctx context.Context, config *Config, pages []Page, stats *Stats) error {
	logger.Get().Info(ctx, "submitting responses",
		logger.Int("pages", len(pages)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/observe/response"

	var posted, failed atomic.Int64

	pageChan := make(chan Page, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pageChan {
				if ctx.Err() != nil {
					return
				}
				if err := submitResponse(ctx, client, url, page); err != nil {
					failed.Add(1)
					logger.Get().Warn(ctx, "response rejected", logger.Int("page", page.Number), logger.Error(err))
					continue
				}
				posted.Add(1)
				if config.Verbose {
					logger.Get().Info(ctx, "response accepted", logger.Int("page", page.Number))
				}
			}
		}()
	}

	go func() {
		defer close(pageChan)
		for _, page := range pages {
			select {
			case <-ctx.Done():
				return
			case pageChan <- page:
			}
		}
	}()

	wg.Wait()

	stats.ResponsesPosted = int(posted.Load())
	stats.ResponsesFailed = int(failed.Load())
	logger.Get().Info(ctx, "response submission completed",
		logger.Int("posted", stats.ResponsesPosted),
		logger.Int("failed", stats.ResponsesFailed))

	if stats.ResponsesFailed > 0 {
		return fmt.Errorf("%d of %d responses rejected", stats.ResponsesFailed, len(pages))
	}
	return nil
}

// submitResponse posts one response observation and checks the acknowledged
// entry count.
func submitResponse(ctx context.Context, client *HTTPClient, url string, page Page) error {
	resp, err := client.Post(ctx, url, responseObservation{URL: page.APIURL, Payload: page.Payload})
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var ack observeAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return fmt.Errorf("decode ack: %w", err)
	}
	if want := validEntries(page.Payload); ack.Entries == nil || *ack.Entries != want {
		return fmt.Errorf("acknowledged %v entries, want %d", ack.Entries, want)
	}
	return nil
}

// navigate posts a navigation observation.
func navigate(ctx context.Context, client *HTTPClient, baseURL, siteURL string) error {
	resp, err := client.Post(ctx, baseURL+"/observe/navigation", urlObservation{URL: siteURL})
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("navigation status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}

// pollBatch fetches url until it returns a batch or timeout passes.
func pollBatch(ctx context.Context, client *HTTPClient, url string, timeout time.Duration, accept func(*Batch) bool) (*Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		resp, err := client.Get(ctx, url)
		if err == nil {
			body, rerr := readResponseBody(resp)
			if rerr == nil && resp.StatusCode == StatusOK {
				var b Batch
				if err := json.Unmarshal(body, &b); err != nil {
					return nil, fmt.Errorf("decode batch: %w", err)
				}
				if accept(&b) {
					return &b, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no batch at %s: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}

func validEntries(p ScoresPayload) int {
	n := 0
	for _, ps := range p.PlayerScores {
		if ps.Score.Multiplier != 0 {
			n++
		}
	}
	return n
}
