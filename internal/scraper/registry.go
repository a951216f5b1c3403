package scraper

import (
	"errors"

	"github.com/pricewatch/pricewatch/internal/models"
)

// ErrUnsupportedPlatform is returned when no parser is registered for a
// detected platform.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

var registry = map[models.Platform]Parser{}

func init() {
	Register(NewAmazonParser())
	Register(NewWalmartParser())
}

// Register adds a parser to the platform registry. Later registrations for
// the same platform replace earlier ones.
func Register(p Parser) {
	registry[p.Platform()] = p
}

// ParserFor returns the registered parser for a platform.
func ParserFor(platform models.Platform) (Parser, bool) {
	p, ok := registry[platform]
	return p, ok
}

// SupportedPlatforms lists the platforms with a registered parser.
func SupportedPlatforms() []models.Platform {
	platforms := make([]models.Platform, 0, len(registry))
	for p := range registry {
		platforms = append(platforms, p)
	}
	return platforms
}
