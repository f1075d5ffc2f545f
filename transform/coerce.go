package transform

import (
	"regexp"
	"strconv"
)

var (
	nonDigitRegex   = regexp.MustCompile(`[^0-9]`)
	nonDecimalRegex = regexp.MustCompile(`[^0-9.]`)
)

// parseCount keeps only the digits of s. Nil means unknown, never zero.
func parseCount(s *string) *int {
	if s == nil {
		return nil
	}
	i, err := strconv.Atoi(nonDigitRegex.ReplaceAllString(*s, ""))
	if err != nil {
		return nil
	}
	return &i
}

// parseAmount keeps only digits and decimal points of s
func parseAmount(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(nonDecimalRegex.ReplaceAllString(*s, ""), 64)
	if err != nil {
		return nil
	}
	return &f
}

func countLabel(n *int) string {
	if n == nil {
		return unknownCount
	}
	return strconv.Itoa(*n)
}
