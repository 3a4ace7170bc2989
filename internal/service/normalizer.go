package service

import (
	"strings"

	"bulksender/internal/models"
)

// DefaultAddressSuffix is appended to every normalized destination
const DefaultAddressSuffix = "@c.us"

// NormalizeIdentifier keeps only the decimal digits of a destination value
// and appends the transport's address suffix. A value without digits still
// yields the bare suffix; the transport decides whether to reject it.
func NormalizeIdentifier(value models.CellValue, suffix string) string {
	raw := value.Format(models.DefaultDateLayout)

	var b strings.Builder
	b.Grow(len(raw) + len(suffix))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	b.WriteString(suffix)
	return b.String()
}

// DisplayIdentifier renders a destination value for progress and outcome reports
func DisplayIdentifier(value models.CellValue) string {
	if value.IsAbsent() {
		return models.UnknownIdentifier
	}
	return strings.TrimSpace(value.Format(models.DefaultDateLayout))
}
