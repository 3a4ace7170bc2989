package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bulksender/internal/models"
)

func TestNormalizeIdentifier(t *testing.T) {
	testCases := []struct {
		name     string
		value    models.CellValue
		expected string
	}{
		{"formatted international number", models.Text("+1 (234) 567-8901"), "12345678901@c.us"},
		{"plain digits", models.Text("254700000001"), "254700000001@c.us"},
		{"numeric cell", models.Number(254700000001), "254700000001@c.us"},
		{"dots and spaces", models.Text(" 0712.345.678 "), "0712345678@c.us"},
		{"no digits yields the bare suffix", models.Text("call me"), "@c.us"},
		{"non-ascii digits are dropped", models.Text("٠١٢ 34"), "34@c.us"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeIdentifier(tc.value, DefaultAddressSuffix))
		})
	}
}

func TestNormalizeIdentifier_CustomSuffix(t *testing.T) {
	assert.Equal(t, "254700000001@s.whatsapp.net", NormalizeIdentifier(models.Text("+254 700 000001"), "@s.whatsapp.net"))
	assert.Equal(t, "254700000001", NormalizeIdentifier(models.Text("+254 700 000001"), ""))
}

func TestDisplayIdentifier(t *testing.T) {
	assert.Equal(t, "+1 234", DisplayIdentifier(models.Text("  +1 234 ")))
	assert.Equal(t, "254700000001", DisplayIdentifier(models.Number(254700000001)))
	assert.Equal(t, models.UnknownIdentifier, DisplayIdentifier(models.Absent()))
	assert.Equal(t, models.UnknownIdentifier, DisplayIdentifier(models.Text("   ")))
}
