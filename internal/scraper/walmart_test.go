package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/models"
)

const walmartSchemaPage = `<!DOCTYPE html>
<html>
<body>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Product",
		"name": "Ozark Trail 10-Person Tent",
		"image": ["https://i5.walmartimages.com/tent-front.jpg", "https://i5.walmartimages.com/tent-side.jpg"],
		"offers": {
			"@type": "Offer",
			"price": "129.99",
			"priceCurrency": "USD",
			"availability": "https://schema.org/InStock"
		},
		"aggregateRating": {
			"@type": "AggregateRating",
			"ratingValue": 4.6,
			"reviewCount": 321
		}
	}
	</script>
	<div>Sold by <a href="/seller/101">Walmart.com</a></div>
</body>
</html>`

func TestWalmartParseFromSchema(t *testing.T) {
	parser := NewWalmartParser()

	result := parser.Parse(walmartSchemaPage, "https://www.walmart.com/ip/12345")

	assert.True(t, result.Success)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, models.PlatformWalmart, result.Platform)
	assert.Equal(t, "Ozark Trail 10-Person Tent", result.Name)

	require.NotNil(t, result.CurrentPrice)
	assert.Equal(t, 129.99, *result.CurrentPrice)
	assert.Equal(t, "USD", result.Currency)
	assert.True(t, result.InStock)

	require.NotNil(t, result.Rating)
	assert.Equal(t, 4.6, *result.Rating)
	require.NotNil(t, result.ReviewCount)
	assert.Equal(t, 321, *result.ReviewCount)

	assert.Equal(t, "https://i5.walmartimages.com/tent-front.jpg", result.ImageURL)
	assert.Equal(t, "Walmart.com", result.SellerName)
}

func TestWalmartParseSchemaArrayForm(t *testing.T) {
	parser := NewWalmartParser()

	html := `<html><body>
	<script type="application/ld+json">
	[
		{"@type": "BreadcrumbList"},
		{
			"@type": "Product",
			"name": "Mainstays Desk Lamp",
			"image": "https://i5.walmartimages.com/lamp.jpg",
			"offers": [{
				"price": 12.88,
				"priceCurrency": "USD",
				"availability": "https://schema.org/OutOfStock"
			}]
		}
	]
	</script>
	</body></html>`

	result := parser.Parse(html, "https://www.walmart.com/ip/67890")

	assert.True(t, result.Success)
	assert.Equal(t, "Mainstays Desk Lamp", result.Name)

	require.NotNil(t, result.CurrentPrice)
	assert.Equal(t, 12.88, *result.CurrentPrice)
	assert.False(t, result.InStock)
	assert.Equal(t, "https://i5.walmartimages.com/lamp.jpg", result.ImageURL)
	assert.Nil(t, result.Rating)
	assert.Nil(t, result.ReviewCount)
}

func TestWalmartParseFromHTMLFallback(t *testing.T) {
	parser := NewWalmartParser()

	html := `<html><body>
		<h1 itemprop="name">Great Value Paper Towels</h1>
		<span itemprop="price" content="18.97">$18.97</span>
		<span itemprop="ratingValue" content="4.2"></span>
		<span itemprop="reviewCount" content="57"></span>
		<button>Add to cart</button>
		<div>Sold by Acme Supply | Free shipping</div>
		<img itemprop="image" src="https://i5.walmartimages.com/towels.jpg"/>
	</body></html>`

	result := parser.Parse(html, "https://www.walmart.com/ip/55555")

	assert.True(t, result.Success)
	assert.Equal(t, "Great Value Paper Towels", result.Name)

	require.NotNil(t, result.CurrentPrice)
	assert.Equal(t, 18.97, *result.CurrentPrice)
	assert.Equal(t, "USD", result.Currency)
	assert.True(t, result.InStock)

	require.NotNil(t, result.Rating)
	assert.Equal(t, 4.2, *result.Rating)
	require.NotNil(t, result.ReviewCount)
	assert.Equal(t, 57, *result.ReviewCount)

	assert.Equal(t, "Acme Supply", result.SellerName)
	assert.Equal(t, "https://i5.walmartimages.com/towels.jpg", result.ImageURL)
}

func TestWalmartSchemaWithoutPriceFallsBackToHTML(t *testing.T) {
	parser := NewWalmartParser()

	// The schema names the product but carries no offer, so markup scanning
	// has to supply the price.
	html := `<html><body>
	<script type="application/ld+json">
	{"@type": "Product", "name": "Schema Only Name"}
	</script>
	<h1 itemprop="name">Markup Name</h1>
	<span itemprop="price" content="7.49">$7.49</span>
	</body></html>`

	result := parser.Parse(html, "https://www.walmart.com/ip/11111")

	assert.True(t, result.Success)
	assert.Equal(t, "Markup Name", result.Name)
	require.NotNil(t, result.CurrentPrice)
	assert.Equal(t, 7.49, *result.CurrentPrice)
}

func TestWalmartParsePriceWrapFallback(t *testing.T) {
	parser := NewWalmartParser()

	html := `<html><body>
		<h1>Hyper Tough Screwdriver Set</h1>
		<div data-testid="price-wrap">
			<span class="inline-flex price-main">$24.97</span>
		</div>
	</body></html>`

	result := parser.Parse(html, "https://www.walmart.com/ip/22222")

	assert.True(t, result.Success)
	assert.Equal(t, "Hyper Tough Screwdriver Set", result.Name)
	require.NotNil(t, result.CurrentPrice)
	assert.Equal(t, 24.97, *result.CurrentPrice)
}

func TestWalmartParseDollarSpanScan(t *testing.T) {
	parser := NewWalmartParser()

	html := `<html><body>
		<h1>Equate Cotton Swabs</h1>
		<span>Rollback</span>
		<span>$3.48</span>
	</body></html>`

	result := parser.Parse(html, "https://www.walmart.com/ip/33333")

	assert.True(t, result.Success)
	require.NotNil(t, result.CurrentPrice)
	assert.Equal(t, 3.48, *result.CurrentPrice)
}

func TestWalmartParseOutOfStockText(t *testing.T) {
	parser := NewWalmartParser()

	html := `<html><body>
		<h1>Popular Console</h1>
		<span itemprop="price" content="499.00">$499.00</span>
		<div>Sold out</div>
	</body></html>`

	result := parser.Parse(html, "https://www.walmart.com/ip/44444")

	assert.True(t, result.Success)
	assert.False(t, result.InStock)
}

func TestWalmartParseMissingData(t *testing.T) {
	parser := NewWalmartParser()

	result := parser.Parse(`<html><body><div>nothing here</div></body></html>`, "https://www.walmart.com/ip/99999")

	assert.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Equal(t, "Could not extract product data from HTML", result.ErrorMessage)
	assert.True(t, result.InStock)
	assert.Equal(t, "USD", result.Currency)
}

func TestWalmartExtractSellerVariants(t *testing.T) {
	parser := NewWalmartParser()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "anchor inside sold by",
			html:     `<html><body><div>Sold by <a href="/s/1">Best Deals Inc</a></div></body></html>`,
			expected: "Best Deals Inc",
		},
		{
			name:     "plain text with separator",
			html:     `<html><body><div>Sold by Acme Supply | Free 2-day shipping</div></body></html>`,
			expected: "Acme Supply",
		},
		{
			name:     "no seller section",
			html:     `<html><body><div>Shipped from our warehouse</div></body></html>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parser.Parse(tt.html, "https://www.walmart.com/ip/1")
			assert.Equal(t, tt.expected, result.SellerName)
		})
	}
}
