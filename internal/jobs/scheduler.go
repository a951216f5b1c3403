package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/pricewatch/pricewatch/internal/config"
	"github.com/pricewatch/pricewatch/internal/models"
)

// maxDuePerPass caps how many products one scheduler pass will scrape.
const maxDuePerPass = 100

// DueLister returns products whose scrape frequency has elapsed.
type DueLister interface {
	GetDue(ctx context.Context, limit int) ([]*models.Product, error)
}

// ScrapeService triggers scrapes of tracked products.
type ScrapeService interface {
	ScrapeProduct(ctx context.Context, productID string) (*models.ScrapeResult, error)
}

// Scheduler periodically scrapes every due product, one at a time with a
// fixed delay in between so the upstream pacing stays intact.
type Scheduler struct {
	products DueLister
	tracker  ScrapeService
	cfg      config.SchedulerConfig
	logger   *slog.Logger
}

func NewScheduler(products DueLister, tracker ScrapeService, cfg config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		products: products,
		tracker:  tracker,
		cfg:      cfg,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start runs the scheduler loop until the context is cancelled. The first
// pass waits for the startup delay so the service settles before scraping.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started",
		"check_interval", s.cfg.CheckInterval,
		"startup_delay", s.cfg.StartupDelay)

	select {
	case <-ctx.Done():
		s.logger.Info("scheduler stopping")
		return
	case <-time.After(s.cfg.StartupDelay):
	}

	s.runPass(ctx)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass scrapes every currently due product.
func (s *Scheduler) runPass(ctx context.Context) {
	due, err := s.products.GetDue(ctx, maxDuePerPass)
	if err != nil {
		s.logger.Error("failed to get due products", "error", err)
		return
	}

	if len(due) == 0 {
		s.logger.Debug("no products due")
		return
	}

	s.logger.Info("scheduler pass started", "due", len(due))

	var succeeded, failed int
	for i, product := range due {
		if i > 0 {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler pass interrupted", "done", i, "due", len(due))
				return
			case <-time.After(s.cfg.ProductDelay):
			}
		}

		result, err := s.tracker.ScrapeProduct(ctx, product.ID)
		switch {
		case err != nil:
			failed++
			s.logger.Error("scheduled scrape failed", "product_id", product.ID, "error", err)
		case result.Success:
			succeeded++
		default:
			failed++
		}
	}

	s.logger.Info("scheduler pass complete",
		"due", len(due),
		"succeeded", succeeded,
		"failed", failed)
}
