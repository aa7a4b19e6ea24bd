package util

import (
	"regexp"
	"strconv"
	"strings"
)

var priceTokenRegex = regexp.MustCompile(`\d[\d,\s]*(?:\.\d+)?`)
var nonPriceCharRegex = regexp.MustCompile(`[^\d.]`)

// ParsePrice extracts a numeric price from scraped text such as
// "₹1,299", "Rs. 1299.50" or "M.R.P.: ₹2,999". Returns 0 when no price
// token is present.
func ParsePrice(s string) float64 {
	token := priceTokenRegex.FindString(s)
	if token == "" {
		return 0
	}
	cleaned := nonPriceCharRegex.ReplaceAllString(token, "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return price
}

var nonNumericRegex = regexp.MustCompile(`[^\d]`)

// CleanNumericString strips everything except digits.
func CleanNumericString(s string) string {
	return nonNumericRegex.ReplaceAllString(s, "")
}

// SafeAtoi parses an integer, returning 0 on any failure.
func SafeAtoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}
