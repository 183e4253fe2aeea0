package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Checker probes every registered source URL with a HEAD request and
// records the outcome, so a stale or moved source shows up in `gaffer
// check` before an import fails at 2am.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
}

func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			// A redirect still proves the host is alive; don't follow it.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Start probes immediately, then on every interval tick until ctx ends.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckAll(ctx)
		}
	}
}

// CheckAll probes every source once and persists each result.
func (c *Checker) CheckAll(ctx context.Context) {
	sources, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: list sources failed", "error", err)
		return
	}
	if len(sources) == 0 {
		return
	}

	var reachable, down int
	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}

		status, probeErr := c.probe(ctx, src.SourceURL)
		msg := ""
		if probeErr != nil {
			msg = probeErr.Error()
		}
		if err := c.sources.UpdateCheck(src.AdapterID, status, msg); err != nil {
			c.logger.Error("source check: update failed", "adapter", src.AdapterID, "error", err)
		}

		// 2xx and 3xx both count as reachable.
		if status >= 200 && status < 400 {
			reachable++
			continue
		}
		down++
		c.logger.Warn("source unreachable",
			"adapter", src.AdapterID,
			"url", src.SourceURL,
			"status", status,
			"error", msg,
		)
	}
	c.logger.Info("source check complete", "total", reachable+down, "ok", reachable, "failed", down)
}

// probe returns the HTTP status of a HEAD request, or 0 on network error.
func (c *Checker) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
