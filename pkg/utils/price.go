package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var reAmount = regexp.MustCompile(`[\d.]+`)

// ParsePrice converts a string-rendered price ("$1,299.00", "1299") to
// float64. Unparseable input yields 0.
func ParsePrice(priceStr string) float64 {
	if priceStr == "" {
		return 0
	}

	cleanPrice := strings.ReplaceAll(priceStr, "$", "")
	cleanPrice = strings.ReplaceAll(cleanPrice, ",", "")
	cleanPrice = strings.TrimSpace(cleanPrice)

	match := reAmount.FindString(cleanPrice)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	return price
}
