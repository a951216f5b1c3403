package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
		found    bool
	}{
		{name: "dollar price", text: "$29.99", expected: 29.99, found: true},
		{name: "thousands separator", text: "$1,234.56", expected: 1234.56, found: true},
		{name: "pound price", text: "£15.50", expected: 15.50, found: true},
		{name: "euro price", text: "€99.00", expected: 99.00, found: true},
		{name: "no currency symbol", text: "129.99", expected: 129.99, found: true},
		{name: "integer price", text: "$45", expected: 45, found: true},
		{name: "embedded in text", text: "Now only $19.99 today", expected: 19.99, found: true},
		{name: "leading whitespace", text: "  $5.25  ", expected: 5.25, found: true},
		{name: "empty string", text: "", found: false},
		{name: "no digits", text: "currently unavailable", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractPrice(tt.text)

			if !tt.found {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, *result)
		})
	}
}

func TestExtractRating(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
		found    bool
	}{
		{name: "out of five", text: "4.5 out of 5 stars", expected: 4.5, found: true},
		{name: "slash form", text: "4.7/5", expected: 4.7, found: true},
		{name: "slash with spaces", text: "3.9 / 5", expected: 3.9, found: true},
		{name: "uppercase", text: "4.2 OUT OF 5", expected: 4.2, found: true},
		{name: "bare number in range", text: "4.8", expected: 4.8, found: true},
		{name: "bare integer", text: "5", expected: 5, found: true},
		{name: "bare number out of range", text: "6", found: false},
		{name: "bare number with trailing text", text: "4.5 stars", found: false},
		{name: "no rating", text: "no rating", found: false},
		{name: "empty string", text: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractRating(tt.text)

			if !tt.found {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, *result)
		})
	}
}

func TestExtractReviewCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
		found    bool
	}{
		{name: "plain count", text: "1234 ratings", expected: 1234, found: true},
		{name: "thousands separator", text: "1,234 ratings", expected: 1234, found: true},
		{name: "parenthesized", text: "(1,234)", expected: 1234, found: true},
		{name: "bare number", text: "87", expected: 87, found: true},
		{name: "no digits", text: "no reviews yet", found: false},
		{name: "empty string", text: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractReviewCount(tt.text)

			if !tt.found {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, *result)
		})
	}
}
