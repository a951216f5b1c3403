package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricewatch/pricewatch/internal/models"
)

// AmazonParser extracts product data from Amazon product pages. Amazon
// serves several page layouts, so every field is tried against an ordered
// list of candidate elements with the first match winning.
type AmazonParser struct{}

func NewAmazonParser() *AmazonParser {
	return &AmazonParser{}
}

func (p *AmazonParser) Platform() models.Platform {
	return models.PlatformAmazon
}

func (p *AmazonParser) Parse(content, url string) *models.ScrapeResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return &models.ScrapeResult{
			Success:      false,
			Platform:     p.Platform(),
			Currency:     detectCurrency(url),
			InStock:      true,
			Status:       models.StatusFailed,
			ErrorMessage: fmt.Sprintf("Parse error: %v", err),
		}
	}

	name := p.extractName(doc)
	price := p.extractPrice(doc)

	result := &models.ScrapeResult{
		Success:      name != "" && price != nil,
		Platform:     p.Platform(),
		Name:         name,
		CurrentPrice: price,
		Currency:     detectCurrency(url),
		InStock:      p.checkAvailability(doc),
		ImageURL:     p.extractImage(doc),
		Rating:       p.extractRating(doc),
		ReviewCount:  p.extractReviewCount(doc),
		SellerName:   p.extractSeller(doc),
	}

	if result.Success {
		result.Status = models.StatusSuccess
	} else {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Could not extract product data"
	}

	return result
}

// detectCurrency derives the currency from the Amazon domain suffix,
// independent of page content.
func detectCurrency(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "amazon.in"):
		return "INR"
	case strings.Contains(lower, "amazon.co.uk"):
		return "GBP"
	case strings.Contains(lower, "amazon.de"),
		strings.Contains(lower, "amazon.fr"),
		strings.Contains(lower, "amazon.it"),
		strings.Contains(lower, "amazon.es"):
		return "EUR"
	case strings.Contains(lower, "amazon.ca"):
		return "CAD"
	case strings.Contains(lower, "amazon.com.au"):
		return "AUD"
	case strings.Contains(lower, "amazon.co.jp"):
		return "JPY"
	case strings.Contains(lower, "amazon.com.mx"):
		return "MXN"
	case strings.Contains(lower, "amazon.com.br"):
		return "BRL"
	default:
		return "USD"
	}
}

func (p *AmazonParser) extractName(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("span#productTitle").First().Text()); title != "" {
		return title
	}

	if title := strings.TrimSpace(doc.Find("h1#title").First().Text()); title != "" {
		return title
	}

	if content, ok := doc.Find(`meta[name="title"]`).First().Attr("content"); ok && content != "" {
		return content
	}

	return ""
}

// extractPrice prefers the whole+fraction apex price pair, then falls
// through the core price block and the legacy price block ids.
func (p *AmazonParser) extractPrice(doc *goquery.Document) *float64 {
	if whole := doc.Find("span.a-price-whole").First(); whole.Length() > 0 {
		wholeText := strings.TrimSpace(whole.Text())
		wholeText = strings.NewReplacer(",", "", ".", "").Replace(wholeText)

		fraction := strings.TrimSpace(doc.Find("span.a-price-fraction").First().Text())
		if fraction == "" {
			fraction = "00"
		}

		if value, err := strconv.ParseFloat(wholeText+"."+fraction, 64); err == nil {
			return &value
		}
	}

	if core := doc.Find("div#corePrice_feature_div").First(); core.Length() > 0 {
		if price := ExtractPrice(core.Find("span.a-offscreen").First().Text()); price != nil {
			return price
		}
	}

	for _, id := range []string{"span#priceblock_ourprice", "span#priceblock_dealprice", "span#kindle-price"} {
		if el := doc.Find(id).First(); el.Length() > 0 {
			if price := ExtractPrice(el.Text()); price != nil {
				return price
			}
		}
	}

	return nil
}

func (p *AmazonParser) checkAvailability(doc *goquery.Document) bool {
	if availability := doc.Find("div#availability").First(); availability.Length() > 0 {
		text := strings.ToLower(strings.TrimSpace(availability.Text()))
		if strings.Contains(text, "in stock") {
			return true
		}
		if strings.Contains(text, "out of stock") || strings.Contains(text, "currently unavailable") {
			return false
		}
	}

	if doc.Find("input#add-to-cart-button").Length() > 0 {
		return true
	}

	// No signal either way: assume purchasable.
	return true
}

func (p *AmazonParser) extractRating(doc *goquery.Document) *float64 {
	if el := doc.Find("span.a-icon-alt").First(); el.Length() > 0 {
		if rating := ExtractRating(el.Text()); rating != nil {
			return rating
		}
	}

	if section := doc.Find("div#averageCustomerReviews").First(); section.Length() > 0 {
		if rating := ExtractRating(section.Find("span.a-icon-alt").First().Text()); rating != nil {
			return rating
		}
	}

	return nil
}

func (p *AmazonParser) extractReviewCount(doc *goquery.Document) *int {
	if el := doc.Find("span#acrCustomerReviewText").First(); el.Length() > 0 {
		if count := ExtractReviewCount(el.Text()); count != nil {
			return count
		}
	}

	if el := doc.Find("a#acrCustomerReviewLink").First(); el.Length() > 0 {
		if count := ExtractReviewCount(el.Text()); count != nil {
			return count
		}
	}

	return nil
}

func (p *AmazonParser) extractSeller(doc *goquery.Document) string {
	if merchant := strings.TrimSpace(doc.Find("a#sellerProfileTriggerId").First().Text()); merchant != "" {
		return merchant
	}

	if soldBy := doc.Find("div#merchant-info").First(); soldBy.Length() > 0 {
		text := strings.TrimSpace(soldBy.Text())
		if strings.Contains(text, "Amazon") {
			return "Amazon"
		}
		if len(text) > 100 {
			text = text[:100]
		}
		return text
	}

	return ""
}

func (p *AmazonParser) extractImage(doc *goquery.Document) string {
	if src, ok := doc.Find("img#landingImage").First().Attr("src"); ok && src != "" {
		return src
	}

	if container := doc.Find("div#imgTagWrapperId").First(); container.Length() > 0 {
		if src, ok := container.Find("img").First().Attr("src"); ok && src != "" {
			return src
		}
	}

	return ""
}
