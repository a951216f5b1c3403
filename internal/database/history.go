package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pricewatch/pricewatch/internal/models"
)

// HistoryRepository persists price history points and scrape logs.
type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AddPricePoint appends one history entry for a product.
func (r *HistoryRepository) AddPricePoint(ctx context.Context, productID string, price *float64, currency string, inStock bool) error {
	if currency == "" {
		currency = "USD"
	}

	query := `
		INSERT INTO price_history (id, product_id, price, currency, in_stock, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		uuid.New().String(), productID, price, currency, inStock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert price point: %w", err)
	}
	return nil
}

// GetHistory returns price points for a product since the given time,
// oldest first.
func (r *HistoryRepository) GetHistory(ctx context.Context, productID string, since time.Time, limit int) ([]*models.PricePoint, error) {
	if limit < 1 || limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, product_id, price, currency, in_stock, recorded_at
		FROM price_history
		WHERE product_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, productID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []*models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Price, &p.Currency, &p.InStock, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return points, nil
}

// AddLog records one scrape attempt.
func (r *HistoryRepository) AddLog(ctx context.Context, productID string, res *models.ScrapeResult) error {
	query := `
		INSERT INTO scrape_logs (id, product_id, status, response_time_ms, error_message, http_status_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		uuid.New().String(), productID, res.Status, res.ResponseTimeMs,
		nullable(res.ErrorMessage), res.HTTPStatusCode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert scrape log: %w", err)
	}
	return nil
}

// GetLogs returns the most recent scrape logs for a product.
func (r *HistoryRepository) GetLogs(ctx context.Context, productID string, limit int) ([]*models.ScrapeLog, int, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM scrape_logs WHERE product_id = $1`, productID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scrape logs: %w", err)
	}

	query := `
		SELECT id, product_id, status, response_time_ms, error_message, http_status_code, created_at
		FROM scrape_logs
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query scrape logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var errMsg *string
		var httpStatus *int
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Status, &l.ResponseTimeMs, &errMsg, &httpStatus, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan scrape log: %w", err)
		}
		if errMsg != nil {
			l.ErrorMessage = *errMsg
		}
		if httpStatus != nil {
			l.HTTPStatusCode = *httpStatus
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return logs, total, nil
}

// GetStats aggregates scrape outcomes across all products.
func (r *HistoryRepository) GetStats(ctx context.Context) (*models.ScrapeStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed' OR status = 'timeout'),
			COUNT(*) FILTER (WHERE status = 'blocked'),
			COALESCE(AVG(response_time_ms), 0)
		FROM scrape_logs`

	var stats models.ScrapeStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalScrapes, &stats.SuccessfulScrapes,
		&stats.FailedScrapes, &stats.BlockedScrapes,
		&stats.AvgResponseTimeMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape stats: %w", err)
	}

	if stats.TotalScrapes > 0 {
		stats.SuccessRate = float64(stats.SuccessfulScrapes) / float64(stats.TotalScrapes)
	}

	return &stats, nil
}
