package service

import "bulksender/internal/models"

// IsEligible reports whether row has a usable destination in column.
// Missing, empty and date-time cells are never valid destinations.
func IsEligible(row models.Row, column string) bool {
	cell, ok := row.Get(column)
	if !ok {
		return false
	}
	return !cell.IsAbsent() && !cell.IsDateTime()
}
