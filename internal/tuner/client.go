package tuner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ListingPath is the channel list endpoint served by the Octonet appliance.
const ListingPath = "/channellist.lua?select=json"

// ListingURL returns the channel list URL for a tuner address (host or host:port).
func ListingURL(address string) string {
	return "http://" + address + ListingPath
}

// Client opens byte streams from the tuner over HTTP
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig holds the configuration for Client
type ClientConfig struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a new tuner client
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// Open issues a GET request and returns the response body as a stream.
// The caller owns the returned stream and must close it.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("open %s failed with status %d: %s", url, resp.StatusCode, string(body))
	}

	c.logger.Debug("Tuner stream opened",
		zap.String("url", url),
		zap.Int64("content_length", resp.ContentLength),
	)

	return resp.Body, nil
}
