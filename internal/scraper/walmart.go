package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricewatch/pricewatch/internal/models"
)

var (
	outOfStockPattern  = regexp.MustCompile(`(?i)out of stock|sold out|unavailable`)
	addToCartPattern   = regexp.MustCompile(`(?i)add to cart`)
	reviewsPattern     = regexp.MustCompile(`(?i)\d+\s*reviews?`)
	soldByPattern      = regexp.MustCompile(`(?i)sold by`)
	soldByNamePattern  = regexp.MustCompile(`(?i)sold by\s+(.+?)(?:\s*\||\s*$)`)
	firstNumberPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// WalmartParser extracts product data from Walmart product pages. Walmart
// renders most data through JavaScript, so the embedded JSON-LD product
// schema is preferred; ad-hoc markup scanning is the fallback.
type WalmartParser struct{}

func NewWalmartParser() *WalmartParser {
	return &WalmartParser{}
}

func (p *WalmartParser) Platform() models.Platform {
	return models.PlatformWalmart
}

func (p *WalmartParser) Parse(content, url string) *models.ScrapeResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return &models.ScrapeResult{
			Success:      false,
			Platform:     p.Platform(),
			Currency:     "USD",
			InStock:      true,
			Status:       models.StatusFailed,
			ErrorMessage: fmt.Sprintf("Parse error: %v", err),
		}
	}

	if schema := p.extractProductSchema(doc); schema != nil {
		result := p.parseFromSchema(schema, doc)
		if result.Success {
			return result
		}
		// Schema present but not usable: fall through to markup scanning.
	}

	return p.parseFromHTML(doc)
}

// extractProductSchema finds the first JSON-LD block whose type is
// "Product", scanning array forms too.
func (p *WalmartParser) extractProductSchema(doc *goquery.Document) map[string]any {
	var schema map[string]any

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}

		switch v := data.(type) {
		case []any:
			for _, item := range v {
				if obj, ok := item.(map[string]any); ok && jsonString(obj["@type"]) == "Product" {
					schema = obj
					return false
				}
			}
		case map[string]any:
			if jsonString(v["@type"]) == "Product" {
				schema = v
				return false
			}
		}
		return true
	})

	return schema
}

func (p *WalmartParser) parseFromSchema(data map[string]any, doc *goquery.Document) *models.ScrapeResult {
	name := jsonString(data["name"])

	var price *float64
	currency := "USD"
	inStock := true

	offers, _ := data["offers"].(map[string]any)
	if list, ok := data["offers"].([]any); ok && len(list) > 0 {
		offers, _ = list[0].(map[string]any)
	}

	if offers != nil {
		if raw := offers["price"]; raw != nil {
			price = jsonFloat(raw)
			if price == nil {
				price = ExtractPrice(fmt.Sprintf("%v", raw))
			}
		}
		if c := jsonString(offers["priceCurrency"]); c != "" {
			currency = c
		}
		availability := jsonString(offers["availability"])
		inStock = strings.Contains(strings.ToLower(availability), "instock")
	}

	var rating *float64
	var reviewCount *int
	if aggregate, ok := data["aggregateRating"].(map[string]any); ok {
		rating = jsonFloat(aggregate["ratingValue"])
		reviewCount = jsonInt(aggregate["reviewCount"])
	}

	imageURL := ""
	switch images := data["image"].(type) {
	case []any:
		if len(images) > 0 {
			imageURL = jsonString(images[0])
		}
	case string:
		imageURL = images
	}

	result := &models.ScrapeResult{
		Success:      name != "" && price != nil,
		Platform:     p.Platform(),
		Name:         name,
		CurrentPrice: price,
		Currency:     currency,
		InStock:      inStock,
		ImageURL:     imageURL,
		Rating:       rating,
		ReviewCount:  reviewCount,
		// The schema never carries the marketplace seller.
		SellerName: p.extractSellerHTML(doc),
	}

	if result.Success {
		result.Status = models.StatusSuccess
	} else {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Could not extract product data"
	}

	return result
}

func (p *WalmartParser) parseFromHTML(doc *goquery.Document) *models.ScrapeResult {
	name := p.extractNameHTML(doc)
	price := p.extractPriceHTML(doc)

	result := &models.ScrapeResult{
		Success:      name != "" && price != nil,
		Platform:     p.Platform(),
		Name:         name,
		CurrentPrice: price,
		Currency:     "USD",
		InStock:      p.checkAvailabilityHTML(doc),
		ImageURL:     p.extractImageHTML(doc),
		Rating:       p.extractRatingHTML(doc),
		ReviewCount:  p.extractReviewCountHTML(doc),
		SellerName:   p.extractSellerHTML(doc),
	}

	if result.Success {
		result.Status = models.StatusSuccess
	} else {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Could not extract product data from HTML"
	}

	return result
}

func (p *WalmartParser) extractNameHTML(doc *goquery.Document) string {
	if name := strings.TrimSpace(doc.Find(`h1[itemprop="name"]`).First().Text()); name != "" {
		return name
	}

	if name := strings.TrimSpace(doc.Find(`[data-testid="product-title"]`).First().Text()); name != "" {
		return name
	}

	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func (p *WalmartParser) extractPriceHTML(doc *goquery.Document) *float64 {
	if el := doc.Find(`[itemprop="price"]`).First(); el.Length() > 0 {
		if content, ok := el.Attr("content"); ok {
			if value, err := strconv.ParseFloat(content, 64); err == nil {
				return &value
			}
		}
		if price := ExtractPrice(el.Text()); price != nil {
			return price
		}
	}

	if wrap := doc.Find(`[data-testid="price-wrap"]`).First(); wrap.Length() > 0 {
		if price := ExtractPrice(wrap.Find(`span[class*="price"]`).First().Text()); price != nil {
			return price
		}
	}

	// Last resort: any short dollar-prefixed span.
	var found *float64
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, "$") && len(text) < 20 {
			if price := ExtractPrice(text); price != nil && *price > 0 {
				found = price
				return false
			}
		}
		return true
	})

	return found
}

func (p *WalmartParser) checkAvailabilityHTML(doc *goquery.Document) bool {
	if outOfStockPattern.MatchString(doc.Text()) {
		return false
	}

	hasAddToCart := false
	doc.Find("button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		hasAddToCart = addToCartPattern.MatchString(s.Text())
		return !hasAddToCart
	})
	if hasAddToCart {
		return true
	}

	// No signal either way: assume purchasable.
	return true
}

func (p *WalmartParser) extractRatingHTML(doc *goquery.Document) *float64 {
	if el := doc.Find(`[itemprop="ratingValue"]`).First(); el.Length() > 0 {
		if content, ok := el.Attr("content"); ok {
			if value, err := strconv.ParseFloat(content, 64); err == nil {
				return &value
			}
		}
	}

	if el := doc.Find(`span[class*="rating"]`).First(); el.Length() > 0 {
		if match := firstNumberPattern.FindStringSubmatch(strings.TrimSpace(el.Text())); match != nil {
			if value, err := strconv.ParseFloat(match[1], 64); err == nil {
				return &value
			}
		}
	}

	return nil
}

func (p *WalmartParser) extractReviewCountHTML(doc *goquery.Document) *int {
	if el := doc.Find(`[itemprop="reviewCount"]`).First(); el.Length() > 0 {
		if content, ok := el.Attr("content"); ok {
			if value, err := strconv.Atoi(content); err == nil {
				return &value
			}
		}
	}

	var found *int
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if reviewsPattern.MatchString(s.Text()) {
			found = ExtractReviewCount(s.Text())
			return found == nil
		}
		return true
	})

	return found
}

// extractSellerHTML looks for a "sold by" section and takes the anchor text
// inside it, falling back to the text that follows the phrase. Matches the
// deepest element containing the phrase so ancestor containers do not
// swallow the lookup.
func (p *WalmartParser) extractSellerHTML(doc *goquery.Document) string {
	seller := ""

	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !soldByPattern.MatchString(s.Text()) {
			return true
		}

		deeper := false
		s.Children().Each(func(_ int, c *goquery.Selection) {
			if soldByPattern.MatchString(c.Text()) {
				deeper = true
			}
		})
		if deeper {
			return true
		}

		if link := strings.TrimSpace(s.Find("a").First().Text()); link != "" {
			seller = link
			return false
		}
		if match := soldByNamePattern.FindStringSubmatch(strings.TrimSpace(s.Text())); match != nil {
			seller = strings.TrimSpace(match[1])
			return false
		}
		return true
	})

	return seller
}

func (p *WalmartParser) extractImageHTML(doc *goquery.Document) string {
	if src, ok := doc.Find(`img[data-testid="hero-image"]`).First().Attr("src"); ok && src != "" {
		return src
	}

	if src, ok := doc.Find(`img[itemprop="image"]`).First().Attr("src"); ok && src != "" {
		return src
	}

	found := ""
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		lower := strings.ToLower(src)
		if strings.Contains(lower, "product") && (strings.Contains(lower, "large") || strings.Contains(lower, "xlarge")) {
			found = src
			return false
		}
		return true
	})

	return found
}

func jsonString(v any) string {
	s, _ := v.(string)
	return s
}

func jsonFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		if value, err := strconv.ParseFloat(n, 64); err == nil {
			return &value
		}
	}
	return nil
}

func jsonInt(v any) *int {
	switch n := v.(type) {
	case float64:
		value := int(n)
		return &value
	case string:
		if value, err := strconv.Atoi(n); err == nil {
			return &value
		}
	}
	return nil
}
