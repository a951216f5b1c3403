package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pricewatch/pricewatch/internal/config"
	"github.com/pricewatch/pricewatch/internal/events"
	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/scraper"
)

// ProductStore is the slice of the product repository the service needs.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	ApplyScrape(ctx context.Context, id string, res *models.ScrapeResult) error
	TouchScraped(ctx context.Context, id string) error
}

// HistoryStore records price points and scrape logs.
type HistoryStore interface {
	AddPricePoint(ctx context.Context, productID string, price *float64, currency string, inStock bool) error
	AddLog(ctx context.Context, productID string, res *models.ScrapeResult) error
}

// AlertPublisher queues price drop alerts.
type AlertPublisher interface {
	PublishPriceDrop(ctx context.Context, payload *events.PriceDropPayload) error
}

// ProductScraper is one platform scraper instance.
type ProductScraper interface {
	Scrape(ctx context.Context, url string) *models.ScrapeResult
	Close()
}

// ScraperFactory builds a scraper for a platform. Each call returns a fresh
// instance: scraper transports are not safe for concurrent reuse.
type ScraperFactory func(platform models.Platform) (ProductScraper, error)

// DefaultScraperFactory wires the registry-backed scrapers.
func DefaultScraperFactory(cfg config.ScraperConfig, logger *slog.Logger) ScraperFactory {
	return func(platform models.Platform) (ProductScraper, error) {
		return scraper.ForPlatform(cfg, platform, logger)
	}
}

// Service orchestrates one product scrape end to end: resolve the parser,
// run the pipeline, persist the outcome, queue alerts.
type Service struct {
	products   ProductStore
	history    HistoryStore
	alerts     AlertPublisher
	newScraper ScraperFactory
	logger     *slog.Logger
}

func NewService(products ProductStore, history HistoryStore, alerts AlertPublisher, factory ScraperFactory, logger *slog.Logger) *Service {
	return &Service{
		products:   products,
		history:    history,
		alerts:     alerts,
		newScraper: factory,
		logger:     logger.With("component", "tracker"),
	}
}

// ScrapeProduct scrapes one tracked product and records the outcome. The
// returned result is always well-formed; the error is non-nil only when the
// product itself cannot be loaded.
func (s *Service) ScrapeProduct(ctx context.Context, productID string) (*models.ScrapeResult, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	sc, err := s.newScraper(product.Platform)
	if err != nil {
		result := &models.ScrapeResult{
			Success:      false,
			Platform:     product.Platform,
			Currency:     "USD",
			InStock:      true,
			Status:       models.StatusFailed,
			ErrorMessage: fmt.Sprintf("Unsupported platform: %s", product.Platform),
		}
		s.record(ctx, product, result)
		return result, nil
	}
	defer sc.Close()

	result := sc.Scrape(ctx, product.URL)
	s.record(ctx, product, result)

	return result, nil
}

// record persists the outcome of a scrape: product fields and a history
// point on success, the attempt timestamp otherwise, and a log either way.
func (s *Service) record(ctx context.Context, product *models.Product, result *models.ScrapeResult) {
	if result.Success {
		if err := s.products.ApplyScrape(ctx, product.ID, result); err != nil {
			s.logger.Error("failed to apply scrape", "product_id", product.ID, "error", err)
		}
		if err := s.history.AddPricePoint(ctx, product.ID, result.CurrentPrice, result.Currency, result.InStock); err != nil {
			s.logger.Error("failed to add price point", "product_id", product.ID, "error", err)
		}
		s.maybeAlert(ctx, product, result)
	} else {
		if err := s.products.TouchScraped(ctx, product.ID); err != nil {
			s.logger.Error("failed to touch product", "product_id", product.ID, "error", err)
		}
	}

	if err := s.history.AddLog(ctx, product.ID, result); err != nil {
		s.logger.Error("failed to add scrape log", "product_id", product.ID, "error", err)
	}
}

// maybeAlert queues a price drop event when the scraped price reaches the
// product's alert threshold.
func (s *Service) maybeAlert(ctx context.Context, product *models.Product, result *models.ScrapeResult) {
	if s.alerts == nil || product.PriceAlertThreshold == nil || result.CurrentPrice == nil {
		return
	}
	if *result.CurrentPrice > *product.PriceAlertThreshold {
		return
	}
	// Only alert on the crossing, not on every scrape below the threshold.
	if product.CurrentPrice != nil && *product.CurrentPrice <= *product.PriceAlertThreshold {
		return
	}

	payload := &events.PriceDropPayload{
		ProductID:     product.ID,
		ProductName:   result.Name,
		ProductURL:    product.URL,
		Platform:      product.Platform,
		Currency:      result.Currency,
		NewPrice:      *result.CurrentPrice,
		PreviousPrice: product.CurrentPrice,
		Threshold:     *product.PriceAlertThreshold,
	}

	if err := s.alerts.PublishPriceDrop(ctx, payload); err != nil {
		s.logger.Error("failed to publish price drop", "product_id", product.ID, "error", err)
	}
}
