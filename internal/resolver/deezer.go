package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	deezerBaseURL = "https://api.deezer.com"
	userAgent     = "kindred/0.1 (https://github.com/jmorel/kindred)"
	rateLimitDur  = 200 * time.Millisecond // Deezer allows 50 requests per 5 seconds

	maxRetries   = 3
	initialDelay = 2 * time.Second
	maxDelay     = 30 * time.Second
)

// DeezerClient resolves songs against the Deezer search API. It is the
// default resolver because search needs no credentials and results carry a
// preview MP3 URL the acquirer can download.
type DeezerClient struct {
	baseURL     string
	httpClient  *http.Client
	lastRequest time.Time
	mu          sync.Mutex
}

// NewDeezerClient creates a Deezer API client.
func NewDeezerClient() *DeezerClient {
	return &DeezerClient{
		baseURL:    deezerBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewDeezerClientWithBase creates a client against a custom endpoint.
// Used by tests to point at a local server.
func NewDeezerClientWithBase(baseURL string, httpClient *http.Client) *DeezerClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &DeezerClient{baseURL: baseURL, httpClient: httpClient}
}

type deezerSearchResponse struct {
	Data []deezerTrack `json:"data"`
}

type deezerTrack struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

// Resolve searches for the song and returns the best match.
func (c *DeezerClient) Resolve(ctx context.Context, songName string) (*TrackInfo, error) {
	c.waitForRateLimit()

	params := url.Values{}
	params.Set("q", songName)
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	var result deezerSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, ErrNotFound
	}

	t := result.Data[0]
	return &TrackInfo{
		Title:      t.Title,
		Artist:     t.Artist.Name,
		Album:      t.Album.Title,
		ExternalID: "deezer:" + strconv.FormatInt(t.ID, 10),
		PreviewURL: t.Preview,
	}, nil
}

// waitForRateLimit spaces requests out to stay under Deezer's quota.
func (c *DeezerClient) waitForRateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < rateLimitDur {
		time.Sleep(rateLimitDur - elapsed)
	}
	c.lastRequest = time.Now()
}

// doRequestWithRetry executes an HTTP request with exponential backoff retry.
// Retries on 5xx errors and network errors; 4xx returns immediately.
func (c *DeezerClient) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
			delay = min(delay*2, maxDelay)
			c.waitForRateLimit()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode < 500 {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries+1, lastErr)
}
