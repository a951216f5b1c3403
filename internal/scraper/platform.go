package scraper

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pricewatch/pricewatch/internal/models"
)

var (
	amazonDomain = regexp.MustCompile(`^amazon\.(com|co\.uk|de|fr|it|es|ca|com\.au|in|jp|com\.mx|com\.br)`)
	ebayDomain   = regexp.MustCompile(`^ebay\.(com|co\.uk|de|fr|it|es|ca|com\.au)`)
)

// DetectPlatform classifies a product URL into a known platform by its
// normalized host (lowercased, "www." stripped). Unmatched hosts yield
// PlatformUnknown.
func DetectPlatform(rawURL string) models.Platform {
	parsed, err := url.Parse(strings.ToLower(rawURL))
	if err != nil {
		return models.PlatformUnknown
	}

	domain := parsed.Hostname()
	domain = strings.TrimPrefix(domain, "www.")

	switch {
	case amazonDomain.MatchString(domain):
		return models.PlatformAmazon
	case strings.Contains(domain, "walmart.com"):
		return models.PlatformWalmart
	case strings.Contains(domain, "target.com"):
		return models.PlatformTarget
	case ebayDomain.MatchString(domain):
		return models.PlatformEbay
	default:
		return models.PlatformUnknown
	}
}
