package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pricewatch/pricewatch/internal/models"
)

// ErrProductNotFound is returned when a product id does not exist.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository persists tracked products.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	id, url, platform, name, image_url, current_price, currency, in_stock,
	rating, review_count, seller_name, price_alert_threshold,
	lowest_price, highest_price, scrape_frequency_hours,
	last_scraped_at, created_at, updated_at, is_active`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	var name, imageURL, sellerName *string

	err := row.Scan(
		&p.ID, &p.URL, &p.Platform, &name, &imageURL, &p.CurrentPrice, &p.Currency, &p.InStock,
		&p.Rating, &p.ReviewCount, &sellerName, &p.PriceAlertThreshold,
		&p.LowestPrice, &p.HighestPrice, &p.ScrapeFrequencyHours,
		&p.LastScrapedAt, &p.CreatedAt, &p.UpdatedAt, &p.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	if name != nil {
		p.Name = *name
	}
	if imageURL != nil {
		p.ImageURL = *imageURL
	}
	if sellerName != nil {
		p.SellerName = *sellerName
	}

	return &p, nil
}

// Create inserts a new tracked product with defaults applied.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.ScrapeFrequencyHours == 0 {
		p.ScrapeFrequencyHours = 24
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.IsActive = true
	p.InStock = true

	query := `
		INSERT INTO products (
			id, url, platform, name, image_url, current_price, currency, in_stock,
			rating, review_count, seller_name, price_alert_threshold,
			lowest_price, highest_price, scrape_frequency_hours,
			last_scraped_at, created_at, updated_at, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.URL, p.Platform, nullable(p.Name), nullable(p.ImageURL), p.CurrentPrice, p.Currency, p.InStock,
		p.Rating, p.ReviewCount, nullable(p.SellerName), p.PriceAlertThreshold,
		p.LowestPrice, p.HighestPrice, p.ScrapeFrequencyHours,
		p.LastScrapedAt, p.CreatedAt, p.UpdatedAt, p.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	return p, nil
}

// GetByID fetches one product.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

// List returns a page of products, newest first, plus the total count.
func (r *ProductRepository) List(ctx context.Context, page, pageSize int, activeOnly bool) ([]*models.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	where := ""
	if activeOnly {
		where = " WHERE is_active"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT` + productColumns + ` FROM products` + where + `
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, total, nil
}

// UpdateSettings applies the user-editable fields.
func (r *ProductRepository) UpdateSettings(ctx context.Context, id string, threshold *float64, frequencyHours *int, isActive *bool) (*models.Product, error) {
	query := `
		UPDATE products SET
			price_alert_threshold = COALESCE($2, price_alert_threshold),
			scrape_frequency_hours = COALESCE($3, scrape_frequency_hours),
			is_active = COALESCE($4, is_active),
			updated_at = $5
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, threshold, frequencyHours, isActive, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrProductNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a product and, via cascade, its history and logs.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ApplyScrape updates a product from a successful scrape: product fields,
// lowest/highest watermarks and the last-scraped timestamp. Empty scraped
// fields keep the stored value.
func (r *ProductRepository) ApplyScrape(ctx context.Context, id string, res *models.ScrapeResult) error {
	query := `
		UPDATE products SET
			name = COALESCE(NULLIF($2, ''), name),
			current_price = COALESCE($3, current_price),
			currency = $4,
			in_stock = $5,
			image_url = COALESCE(NULLIF($6, ''), image_url),
			rating = COALESCE($7, rating),
			review_count = COALESCE($8, review_count),
			seller_name = COALESCE(NULLIF($9, ''), seller_name),
			lowest_price = CASE
				WHEN $3::double precision IS NULL THEN lowest_price
				WHEN lowest_price IS NULL OR $3 < lowest_price THEN $3
				ELSE lowest_price END,
			highest_price = CASE
				WHEN $3::double precision IS NULL THEN highest_price
				WHEN highest_price IS NULL OR $3 > highest_price THEN $3
				ELSE highest_price END,
			last_scraped_at = $10,
			updated_at = $10
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		id, res.Name, res.CurrentPrice, res.Currency, res.InStock,
		res.ImageURL, res.Rating, res.ReviewCount, res.SellerName,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to apply scrape: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// TouchScraped records a scrape attempt time without changing product data,
// used for failed scrapes so the scheduler does not retry immediately.
func (r *ProductRepository) TouchScraped(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE products SET last_scraped_at = $2, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to touch product: %w", err)
	}
	return nil
}

// GetDue returns active products whose scrape frequency has elapsed since
// their last scrape (or that have never been scraped).
func (r *ProductRepository) GetDue(ctx context.Context, limit int) ([]*models.Product, error) {
	query := `SELECT` + productColumns + ` FROM products
		WHERE is_active
			AND (last_scraped_at IS NULL
				OR last_scraped_at + scrape_frequency_hours * INTERVAL '1 hour' <= NOW())
		ORDER BY last_scraped_at ASC NULLS FIRST
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
