package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pricewatch/pricewatch/internal/config"
	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/ratelimit"
)

// Parser extracts product fields from fetched page content. Implementations
// never fail hard: every extraction step tolerates missing markup and the
// returned result reports success only when both a name and a price were
// found.
type Parser interface {
	Platform() models.Platform
	Parse(content, url string) *models.ScrapeResult
}

// Scraper runs the fetch pipeline for one platform: retried direct fetch
// through the residential proxy, escalation to the web unlocker on
// persistent block signals, then platform-specific parsing.
//
// The underlying HTTP client is created lazily and reused across calls on
// the same instance; it is not safe for concurrent Scrape calls. Use one
// Scraper per concurrent product and Close it when done.
type Scraper struct {
	cfg     config.ScraperConfig
	parser  Parser
	limiter ratelimit.Limiter
	logger  *slog.Logger

	client *http.Client

	// sleep performs the backoff wait between retry attempts. Swapped out
	// in tests to avoid real multi-second sleeps.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scraper for the given parser.
func New(cfg config.ScraperConfig, parser Parser, logger *slog.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		parser: parser,
		limiter: ratelimit.NewJitterLimiter(
			time.Duration(cfg.DelayMinMs)*time.Millisecond,
			time.Duration(cfg.DelayMaxMs)*time.Millisecond,
		),
		logger: logger.With("component", "scraper", "platform", parser.Platform()),
		sleep:  sleepContext,
	}
}

// ForPlatform creates a Scraper for the given platform, or an error when no
// parser is registered for it.
func ForPlatform(cfg config.ScraperConfig, platform models.Platform, logger *slog.Logger) (*Scraper, error) {
	parser, ok := ParserFor(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return New(cfg, parser, logger), nil
}

// Scrape fetches and parses a single product URL. It never returns an
// error: every failure mode terminates in a well-formed result with
// status, message and HTTP code filled in. The context bounds the whole
// pipeline including delays, backoff and the fallback call.
func (s *Scraper) Scrape(ctx context.Context, url string) *models.ScrapeResult {
	start := time.Now()

	content, httpStatus, err := s.fetchWithRetry(ctx, url)

	// Escalate to the unlocker only on block signals or when no response
	// was ever received.
	if content == "" && (httpStatus == http.StatusForbidden || httpStatus == http.StatusServiceUnavailable || httpStatus == 0) {
		s.logger.Info("escalating to web unlocker", "url", url, "last_status", httpStatus)
		unlockerContent, unlockerStatus, unlockerErr := s.fetchWithUnlocker(ctx, url)
		content = unlockerContent
		// Keep the last direct-fetch status when the unlocker never got a
		// response, so the failure still classifies by what was observed.
		if unlockerStatus != 0 {
			httpStatus = unlockerStatus
		}
		if unlockerErr != nil {
			// Accumulate rather than replace, so the final classification
			// still sees what the direct fetch ran into.
			if err != nil {
				err = fmt.Errorf("%v; %v", err, unlockerErr)
			} else {
				err = unlockerErr
			}
		}
	}

	responseTime := time.Since(start).Milliseconds()

	if content == "" {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}

		status := models.StatusFailed
		if strings.Contains(strings.ToLower(errMsg), "timeout") {
			status = models.StatusTimeout
		}
		if httpStatus == http.StatusForbidden || httpStatus == http.StatusServiceUnavailable {
			status = models.StatusBlocked
		}

		s.logger.Warn("scrape failed", "url", url, "status", status, "http_status", httpStatus, "error", errMsg)

		return &models.ScrapeResult{
			Success:        false,
			Platform:       s.parser.Platform(),
			Currency:       "USD",
			InStock:        true,
			ResponseTimeMs: responseTime,
			Status:         status,
			ErrorMessage:   errMsg,
			HTTPStatusCode: httpStatus,
		}
	}

	result := s.parseContent(content, url)
	result.ResponseTimeMs = responseTime
	result.HTTPStatusCode = httpStatus
	return result
}

// parseContent runs the platform parser under a panic guard so malformed
// markup can never take the pipeline down; fetch metadata is preserved by
// the caller.
func (s *Scraper) parseContent(content, url string) (result *models.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("parser panicked", "url", url, "panic", r)
			result = &models.ScrapeResult{
				Success:      false,
				Platform:     s.parser.Platform(),
				Currency:     "USD",
				InStock:      true,
				Status:       models.StatusFailed,
				ErrorMessage: fmt.Sprintf("Parse error: %v", r),
			}
		}
	}()

	return s.parser.Parse(content, url)
}

// Close releases the reused transport. Safe to call multiple times.
func (s *Scraper) Close() {
	if s.client != nil {
		s.client.CloseIdleConnections()
		s.client = nil
	}
}

// getClient returns the shared client, creating it on first use.
func (s *Scraper) getClient() *http.Client {
	if s.client == nil {
		s.client = newClient(s.cfg.ProxyURL(), time.Duration(s.cfg.TimeoutSeconds)*time.Second)
	}
	return s.client
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
