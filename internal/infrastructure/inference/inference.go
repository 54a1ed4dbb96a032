package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sellora-tech/catalog-pipeline/internal/cfg"
	"github.com/sellora-tech/catalog-pipeline/internal/usecase"
	"github.com/sellora-tech/catalog-pipeline/pkg/e"
	"github.com/sellora-tech/catalog-pipeline/pkg/jitter"
	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// Client — клиент внешнего сервиса векторизации изображений.
// Один запрос — одно изображение, ответ — вектор фиксированной размерности.
type Client struct {
	httpClient *http.Client
	cfg        *cfg.InferenceCfg
	logger     logger.Logger
}

func NewClient(cfg *cfg.InferenceCfg, logger logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

type embedResponse struct {
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

// EmbedImage выполняет векторизацию с retry-логикой и экспоненциальной задержкой.
func (c *Client) EmbedImage(ctx context.Context, req *usecase.EmbedImageReq) (*usecase.EmbedImageRes, error) {
	const (
		op         = "inference.Client.EmbedImage"
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		res, err := c.embedOnce(ctx, req)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == c.cfg.MaxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			baseJitter,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		c.logger.Warnf("embedding request failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", c.cfg.MaxRetries, lastErr))
}

func (c *Client) embedOnce(ctx context.Context, req *usecase.EmbedImageReq) (*usecase.EmbedImageRes, error) {
	const op = "inference.Client.embedOnce"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/v1/embed", bytes.NewReader(req.Data))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, e.Wrap(op, fmt.Errorf("%w: %d", e.ErrUnexpectedStatus, resp.StatusCode))
	}

	var body embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, e.Wrap(op, err)
	}

	return usecase.NewEmbedImageRes(body.Vector, body.ModelVersion), nil
}
