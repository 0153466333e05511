package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"datalens/internal/config"
	apperrors "datalens/internal/errors"
)

// Fetcher retrieves preset files from the configured asset host by bare
// filename. Requests are rate limited so a long preset list cannot hammer
// the host during startup.
type Fetcher struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFetcher builds a fetcher from the ingest configuration.
func NewFetcher(cfg config.IngestConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.FetchRPS
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.FetchBurst
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		baseURL: strings.TrimRight(cfg.AssetBaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}
}

// Fetch downloads one preset by name. Transport errors and non-2xx
// responses both surface as fetch failures so the coordinator can record
// them uniformly.
func (f *Fetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperrors.FetchFailure(name, err)
	}

	url := f.baseURL + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.FetchFailure(name, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.FetchFailure(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.FetchFailure(name, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.FetchFailure(name, err)
	}

	f.logger.Debug("fetched preset",
		slog.String("name", name),
		slog.Int("bytes", len(data)))
	return data, nil
}
