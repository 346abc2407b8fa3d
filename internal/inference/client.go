// Package inference holds the HTTP clients for the external model services.
// Both services speak a small JSON protocol: images travel as base64 PNG
// payloads, scores as plain floats. Transport failures and non-OK statuses
// surface as errors for the gateway layer to classify.
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
)

// Config holds the connection settings for one model service.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

type client struct {
	http         *http.Client
	baseURL      string
	probeTimeout time.Duration
	logger       *zap.Logger
}

func newClient(cfg Config, logger *zap.Logger) client {
	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}
	probeTimeout := cfg.ConnectTimeout
	if probeTimeout == 0 {
		probeTimeout = 5 * time.Second
	}
	return client{
		http:         &http.Client{Timeout: requestTimeout},
		baseURL:      cfg.BaseURL,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

func (c *client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model service status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *client) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create probe: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe %s: status %d", c.baseURL, resp.StatusCode)
	}
	return nil
}

func encodeImage(img *imaging.Image) (string, error) {
	raw, err := imaging.PNGBytes(img)
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// CleanerClient calls the cleaning model service.
type CleanerClient struct {
	client
}

// NewCleanerClient builds a client for the cleaning service.
func NewCleanerClient(cfg Config, logger *zap.Logger) *CleanerClient {
	return &CleanerClient{client: newClient(cfg, logger.Named("cleaner-client"))}
}

type cleanRequest struct {
	Image string `json:"image"`
}

type cleanResponse struct {
	Image string `json:"image"`
}

// Clean sends one signature image through the cleaning service and returns
// the cleaned pixels.
func (c *CleanerClient) Clean(ctx context.Context, img *imaging.Image) (*imaging.Image, error) {
	payload, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	var resp cleanResponse
	if err := c.postJSON(ctx, "/v1/clean", cleanRequest{Image: payload}, &resp); err != nil {
		c.logger.Warn("clean call failed", zap.Error(err))
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("decode cleaned payload: %w", err)
	}
	cleaned, err := imaging.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cleaned image: %w", err)
	}
	return cleaned, nil
}

// Ping checks the cleaning service health endpoint.
func (c *CleanerClient) Ping(ctx context.Context) error {
	return c.ping(ctx)
}

// MatcherClient calls the matching model service.
type MatcherClient struct {
	client
}

// NewMatcherClient builds a client for the matching service.
func NewMatcherClient(cfg Config, logger *zap.Logger) *MatcherClient {
	return &MatcherClient{client: newClient(cfg, logger.Named("matcher-client"))}
}

type compareRequest struct {
	Image1 string `json:"image1"`
	Image2 string `json:"image2"`
}

type compareResponse struct {
	Score float64 `json:"score"`
}

// Compare sends two signature images to the matching service and returns
// the similarity score it reports.
func (c *MatcherClient) Compare(ctx context.Context, a, b *imaging.Image) (float64, error) {
	first, err := encodeImage(a)
	if err != nil {
		return 0, err
	}
	second, err := encodeImage(b)
	if err != nil {
		return 0, err
	}

	var resp compareResponse
	if err := c.postJSON(ctx, "/v1/compare", compareRequest{Image1: first, Image2: second}, &resp); err != nil {
		c.logger.Warn("compare call failed", zap.Error(err))
		return 0, err
	}
	return resp.Score, nil
}

// Ping checks the matching service health endpoint.
func (c *MatcherClient) Ping(ctx context.Context) error {
	return c.ping(ctx)
}
