package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/models"
)

func TestParserFor(t *testing.T) {
	amazon, ok := ParserFor(models.PlatformAmazon)
	require.True(t, ok)
	assert.Equal(t, models.PlatformAmazon, amazon.Platform())

	walmart, ok := ParserFor(models.PlatformWalmart)
	require.True(t, ok)
	assert.Equal(t, models.PlatformWalmart, walmart.Platform())

	_, ok = ParserFor(models.PlatformTarget)
	assert.False(t, ok)

	_, ok = ParserFor(models.PlatformUnknown)
	assert.False(t, ok)
}

func TestSupportedPlatforms(t *testing.T) {
	platforms := SupportedPlatforms()

	assert.Contains(t, platforms, models.PlatformAmazon)
	assert.Contains(t, platforms, models.PlatformWalmart)
	assert.NotContains(t, platforms, models.PlatformUnknown)
}

func TestForPlatformUnsupported(t *testing.T) {
	_, err := ForPlatform(testScraperConfig(), models.PlatformTarget, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}
