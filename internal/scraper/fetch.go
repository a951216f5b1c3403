package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxBodySize caps how much of a response body is read. Product pages are
// large but bounded; anything past this is not markup worth parsing.
const maxBodySize = 10 * 1024 * 1024

// fetchWithRetry performs the primary strategy: up to RetryCount direct
// fetches through the proxy transport, each preceded by a randomized
// inter-request delay and carrying freshly randomized headers. A 200
// returns immediately, a 404 is permanent, everything else is transient
// and retried with exponential backoff plus jitter.
//
// Returns the page content, the last observed HTTP status (0 when no
// response was ever received), and the last error.
func (s *Scraper) fetchWithRetry(ctx context.Context, targetURL string) (string, int, error) {
	var lastErr error
	httpStatus := 0

	for attempt := 0; attempt < s.cfg.RetryCount; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", httpStatus, contextError(err)
		}

		content, status, err := s.doRequest(ctx, targetURL)
		if status != 0 {
			httpStatus = status
		}
		if err == nil {
			return content, httpStatus, nil
		}
		lastErr = err

		s.logger.Debug("fetch attempt failed",
			"url", targetURL,
			"attempt", attempt+1,
			"http_status", status,
			"error", err)

		if status == http.StatusNotFound {
			// Permanent: the product is gone, retrying will not help.
			break
		}

		if attempt < s.cfg.RetryCount-1 {
			backoff := time.Duration((float64(int64(1)<<attempt) + rand.Float64()) * float64(time.Second))
			if err := s.sleep(ctx, backoff); err != nil {
				return "", httpStatus, contextError(err)
			}
		}
	}

	return "", httpStatus, lastErr
}

// doRequest issues one GET through the shared proxy client.
func (s *Scraper) doRequest(ctx context.Context, targetURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", 0, fmt.Errorf("invalid request: %w", err)
	}

	for k, v := range RandomHeaders("") {
		if k == "Accept-Encoding" {
			// Let the transport negotiate encoding so the body comes back
			// transparently decompressed.
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := s.getClient().Do(req)
	if err != nil {
		var netErr net.Error
		switch {
		case errors.As(err, &netErr) && netErr.Timeout(),
			errors.Is(err, context.DeadlineExceeded):
			return "", 0, errors.New("request timeout")
		case errors.Is(err, context.Canceled):
			return "", 0, errors.New("request cancelled")
		default:
			return "", 0, fmt.Errorf("connection error: %v", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return "", resp.StatusCode, fmt.Errorf("connection error: %v", err)
		}
		return string(body), resp.StatusCode, nil
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		return "", resp.StatusCode, errors.New("access forbidden - likely blocked")
	case http.StatusNotFound:
		return "", resp.StatusCode, errors.New("product not found")
	case http.StatusServiceUnavailable:
		return "", resp.StatusCode, errors.New("service unavailable - anti-bot triggered")
	default:
		return "", resp.StatusCode, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
}

// fetchWithUnlocker performs the fallback strategy: POST the target URL to
// the web unlocker endpoint, which renders the page (including JS) behind
// its own anti-bot bypass and returns final HTML. Requires a configured
// bearer token; without one this fails immediately with no network call.
func (s *Scraper) fetchWithUnlocker(ctx context.Context, targetURL string) (string, int, error) {
	if s.cfg.UnlockerToken == "" {
		return "", 0, errors.New("web unlocker token not configured")
	}

	form := url.Values{
		"url":       {targetURL},
		"type":      {"html"},
		"js_render": {"True"},
		"header":    {"False"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.UnlockerURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("web unlocker error: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.UnlockerToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("web unlocker error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("web unlocker returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("web unlocker error: %v", err)
	}

	return string(body), resp.StatusCode, nil
}

// contextError maps a context failure during a delay to the pipeline's
// error vocabulary: deadline expiry classifies as a timeout, explicit
// cancellation does not.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("request timeout")
	}
	return errors.New("request cancelled")
}
