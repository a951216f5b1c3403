package models

import (
	"time"
)

// Platform identifies a supported e-commerce platform.
type Platform string

const (
	PlatformAmazon  Platform = "amazon"
	PlatformWalmart Platform = "walmart"
	PlatformTarget  Platform = "target"
	PlatformEbay    Platform = "ebay"
	PlatformUnknown Platform = "unknown"
)

// ScrapeStatus is the outcome class of a scrape attempt.
type ScrapeStatus string

const (
	StatusSuccess ScrapeStatus = "success"
	StatusFailed  ScrapeStatus = "failed"
	StatusBlocked ScrapeStatus = "blocked"
	StatusTimeout ScrapeStatus = "timeout"
)

// ScrapeResult is the outcome of a single scrape attempt. Product fields are
// populated only when extraction succeeded; metadata fields are always set.
// Success is true iff both a name and a price were extracted.
type ScrapeResult struct {
	Success  bool     `json:"success"`
	Platform Platform `json:"platform"`

	Name         string   `json:"name,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	Currency     string   `json:"currency"`
	InStock      bool     `json:"in_stock"`
	ImageURL     string   `json:"image_url,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewCount  *int     `json:"review_count,omitempty"`
	SellerName   string   `json:"seller_name,omitempty"`

	ResponseTimeMs int64        `json:"response_time_ms"`
	Status         ScrapeStatus `json:"status"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	HTTPStatusCode int          `json:"http_status_code,omitempty"`
}

// Product is a tracked product record.
type Product struct {
	ID                   string     `json:"id"`
	URL                  string     `json:"url"`
	Platform             Platform   `json:"platform"`
	Name                 string     `json:"name,omitempty"`
	ImageURL             string     `json:"image_url,omitempty"`
	CurrentPrice         *float64   `json:"current_price,omitempty"`
	Currency             string     `json:"currency"`
	InStock              bool       `json:"in_stock"`
	Rating               *float64   `json:"rating,omitempty"`
	ReviewCount          *int       `json:"review_count,omitempty"`
	SellerName           string     `json:"seller_name,omitempty"`
	PriceAlertThreshold  *float64   `json:"price_alert_threshold,omitempty"`
	LowestPrice          *float64   `json:"lowest_price,omitempty"`
	HighestPrice         *float64   `json:"highest_price,omitempty"`
	ScrapeFrequencyHours int        `json:"scrape_frequency_hours"`
	LastScrapedAt        *time.Time `json:"last_scraped_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	IsActive             bool       `json:"is_active"`
}

// PricePoint is one entry in a product's price history.
type PricePoint struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Price      *float64  `json:"price,omitempty"`
	Currency   string    `json:"currency"`
	InStock    bool      `json:"in_stock"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ScrapeLog records one scrape attempt against a product.
type ScrapeLog struct {
	ID             string       `json:"id"`
	ProductID      string       `json:"product_id"`
	Status         ScrapeStatus `json:"status"`
	ResponseTimeMs int64        `json:"response_time_ms"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	HTTPStatusCode int          `json:"http_status_code,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ScrapeStats aggregates scrape log outcomes.
type ScrapeStats struct {
	TotalScrapes      int     `json:"total_scrapes"`
	SuccessfulScrapes int     `json:"successful_scrapes"`
	FailedScrapes     int     `json:"failed_scrapes"`
	BlockedScrapes    int     `json:"blocked_scrapes"`
	SuccessRate       float64 `json:"success_rate"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}
