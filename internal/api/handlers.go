package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pricewatch/pricewatch/internal/database"
	"github.com/pricewatch/pricewatch/internal/models"
	"github.com/pricewatch/pricewatch/internal/scraper"
)

// maxBatchSize caps how many products one batch scrape request may name.
const maxBatchSize = 10

// ProductStore is the slice of the product repository the handlers need.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, page, pageSize int, activeOnly bool) ([]*models.Product, int, error)
	UpdateSettings(ctx context.Context, id string, threshold *float64, frequencyHours *int, isActive *bool) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}

// HistoryStore is the slice of the history repository the handlers need.
type HistoryStore interface {
	GetHistory(ctx context.Context, productID string, since time.Time, limit int) ([]*models.PricePoint, error)
	GetLogs(ctx context.Context, productID string, limit int) ([]*models.ScrapeLog, int, error)
	GetStats(ctx context.Context) (*models.ScrapeStats, error)
}

// ScrapeService triggers scrapes of tracked products.
type ScrapeService interface {
	ScrapeProduct(ctx context.Context, productID string) (*models.ScrapeResult, error)
}

// OutboxCounter exposes outbox depth for the health check.
type OutboxCounter interface {
	PendingCount(ctx context.Context) (int, error)
	DeadLetterCount(ctx context.Context) (int, error)
}

type Handlers struct {
	products ProductStore
	history  HistoryStore
	tracker  ScrapeService
	outbox   OutboxCounter
	logger   *slog.Logger
}

func NewHandlers(products ProductStore, history HistoryStore, tracker ScrapeService, outbox OutboxCounter, logger *slog.Logger) *Handlers {
	return &Handlers{
		products: products,
		history:  history,
		tracker:  tracker,
		outbox:   outbox,
		logger:   logger.With("component", "api"),
	}
}

// CreateProductRequest represents a new product tracking request
type CreateProductRequest struct {
	URL                 string   `json:"url"`
	PriceAlertThreshold *float64 `json:"price_alert_threshold,omitempty"`
	ScrapeFrequency     int      `json:"scrape_frequency_hours,omitempty"`
}

// CreateProduct handles new product tracking requests
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	platform := scraper.DetectPlatform(req.URL)
	if _, ok := scraper.ParserFor(platform); !ok {
		h.respondError(w, http.StatusBadRequest, "unsupported platform: "+string(platform))
		return
	}

	product := &models.Product{
		URL:                  req.URL,
		Platform:             platform,
		PriceAlertThreshold:  req.PriceAlertThreshold,
		ScrapeFrequencyHours: req.ScrapeFrequency,
	}

	created, err := h.products.Create(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.respondJSON(w, http.StatusCreated, created)
}

// ListProductsResponse wraps a product page with its pagination metadata.
type ListProductsResponse struct {
	Products []*models.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ListProducts handles paginated product listing
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)
	activeOnly := r.URL.Query().Get("active") == "true"

	products, total, err := h.products.List(r.Context(), page, pageSize, activeOnly)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	if products == nil {
		products = []*models.Product{}
	}

	h.respondJSON(w, http.StatusOK, ListProductsResponse{
		Products: products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetProduct handles single product retrieval
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// UpdateProductRequest carries the user-editable product settings. Absent
// fields keep their stored values.
type UpdateProductRequest struct {
	PriceAlertThreshold *float64 `json:"price_alert_threshold,omitempty"`
	ScrapeFrequency     *int     `json:"scrape_frequency_hours,omitempty"`
	IsActive            *bool    `json:"is_active,omitempty"`
}

// UpdateProduct handles partial product settings updates
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ScrapeFrequency != nil && *req.ScrapeFrequency < 1 {
		h.respondError(w, http.StatusBadRequest, "scrape_frequency_hours must be at least 1")
		return
	}

	product, err := h.products.UpdateSettings(r.Context(), id, req.PriceAlertThreshold, req.ScrapeFrequency, req.IsActive)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to update product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// DeleteProduct handles product removal
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to delete product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ScrapeProduct handles on-demand scrapes of one product
func (h *Handlers) ScrapeProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	result, err := h.tracker.ScrapeProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to scrape product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to scrape product")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ScrapeBatchRequest names the products to scrape in one request.
type ScrapeBatchRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// BatchItem is the outcome for one product in a batch scrape.
type BatchItem struct {
	ProductID string               `json:"product_id"`
	Result    *models.ScrapeResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
}

// ScrapeBatch handles on-demand scrapes of up to maxBatchSize products,
// processed sequentially to keep request pacing intact.
func (h *Handlers) ScrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req ScrapeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.ProductIDs) == 0 {
		h.respondError(w, http.StatusBadRequest, "product_ids is required")
		return
	}
	if len(req.ProductIDs) > maxBatchSize {
		h.respondError(w, http.StatusBadRequest, "at most 10 products per batch")
		return
	}

	items := make([]BatchItem, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		item := BatchItem{ProductID: id}

		result, err := h.tracker.ScrapeProduct(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				item.Error = "product not found"
			} else {
				h.logger.Error("batch scrape failed", "product_id", id, "error", err)
				item.Error = "failed to scrape product"
			}
		} else {
			item.Result = result
		}

		items = append(items, item)
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"results": items})
}

// GetStats handles scrape statistics retrieval
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// GetHistory handles price history retrieval for one product
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	if _, err := h.products.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	days := queryInt(r, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	points, err := h.history.GetHistory(r.Context(), id, since, 1000)
	if err != nil {
		h.logger.Error("failed to get history", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get history")
		return
	}

	if points == nil {
		points = []*models.PricePoint{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id,
		"days":       days,
		"points":     points,
	})
}

// GetLogs handles scrape log retrieval for one product
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	if _, err := h.products.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get logs")
		return
	}

	limit := queryInt(r, "limit", 50)

	logs, total, err := h.history.GetLogs(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to get logs", "product_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get logs")
		return
	}

	if logs == nil {
		logs = []*models.ScrapeLog{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": id,
		"total":      total,
		"logs":       logs,
	})
}

// Health reports service liveness plus outbox depth.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "ok",
	}
	status := http.StatusOK

	if h.outbox != nil {
		pending, _ := h.outbox.PendingCount(r.Context())
		deadLetter, _ := h.outbox.DeadLetterCount(r.Context())

		health["outbox"] = map[string]interface{}{
			"pending":     pending,
			"dead_letter": deadLetter,
		}

		if pending > 1000 {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetter > 100 {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

// Root identifies the service.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "pricewatch",
		"platforms": scraper.SupportedPlatforms(),
	})
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
