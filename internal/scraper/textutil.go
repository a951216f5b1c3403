package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	pricePattern      = regexp.MustCompile(`[\$£€]?(\d+(?:\.\d{2})?)`)
	ratingPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:out of|/)\s*5`)
	bareNumberPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*$`)
	digitsPattern     = regexp.MustCompile(`(\d+)`)
)

// ExtractPrice pulls a numeric price out of loosely-formatted text such as
// "$29.99" or "$1,299.00". Returns nil when no price is present.
func ExtractPrice(text string) *float64 {
	if text == "" {
		return nil
	}

	clean := strings.TrimSpace(text)
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, " ", "")

	match := pricePattern.FindStringSubmatch(clean)
	if match == nil {
		return nil
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &value
}

// ExtractRating pulls a star rating out of text like "4.5 out of 5 stars"
// or "4.5/5". A bare number is only accepted when the entire trimmed text
// is numeric and lies within [0, 5].
func ExtractRating(text string) *float64 {
	if text == "" {
		return nil
	}

	match := ratingPattern.FindStringSubmatch(strings.ToLower(text))
	if match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			return &value
		}
	}

	match = bareNumberPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil && value >= 0 && value <= 5 {
			return &value
		}
	}

	return nil
}

// ExtractReviewCount pulls a review count out of text like "1,234 ratings"
// or "(1234)".
func ExtractReviewCount(text string) *int {
	if text == "" {
		return nil
	}

	clean := strings.NewReplacer(",", "", "(", "", ")", "").Replace(text)
	match := digitsPattern.FindStringSubmatch(clean)
	if match == nil {
		return nil
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &value
}
