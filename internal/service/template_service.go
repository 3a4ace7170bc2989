package service

import (
	"regexp"
	"sort"
	"strings"

	"bulksender/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// TemplateService handles message template rendering
type TemplateService struct {
	dateLayout string
}

// NewTemplateService creates a new template service.
// Date-time cells are rendered with dateLayout (models.DefaultDateLayout when empty).
func NewTemplateService(dateLayout string) *TemplateService {
	if dateLayout == "" {
		dateLayout = models.DefaultDateLayout
	}
	return &TemplateService{dateLayout: dateLayout}
}

// Render replaces every {Column} placeholder whose column exists on the row
// with the cell's display text. Placeholders for columns the row does not
// have are left as-is. Replacement text is never scanned again.
func (s *TemplateService) Render(template string, row models.Row) string {
	if template == "" || len(row.Cells) == 0 {
		return template
	}

	columns := row.Columns()
	sort.Strings(columns)

	pairs := make([]string, 0, len(columns)*2)
	for _, column := range columns {
		pairs = append(pairs, "{"+column+"}", row.Cells[column].Format(s.dateLayout))
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// Preview renders a template for preview purposes
func (s *TemplateService) Preview(template string, row models.Row) string {
	return s.Render(template, row)
}

// GetPlaceholders extracts the distinct column names referenced by a template, in order of first use
func (s *TemplateService) GetPlaceholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)

	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		names = append(names, match[1])
	}
	return names
}

// UnmatchedPlaceholders lists placeholders with no matching column.
// These are warnings for the operator; rendering keeps them literally.
func (s *TemplateService) UnmatchedPlaceholders(template string, columns []string) []string {
	known := make(map[string]bool, len(columns))
	for _, column := range columns {
		known[column] = true
	}

	unmatched := []string{}
	for _, name := range s.GetPlaceholders(template) {
		if !known[name] {
			unmatched = append(unmatched, name)
		}
	}
	return unmatched
}
