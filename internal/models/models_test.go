package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellFromValue(t *testing.T) {
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	var nilTime *time.Time

	tests := []struct {
		name  string
		value interface{}
		want  CellValue
	}{
		{"nil", nil, Absent()},
		{"string", "Ann", Text("Ann")},
		{"bytes", []byte("Ann"), Text("Ann")},
		{"int", 42, Number(42)},
		{"int64", int64(254700000001), Number(254700000001)},
		{"float", 12.5, Number(12.5)},
		{"time", due, DateTime(due)},
		{"time pointer", &due, DateTime(due)},
		{"nil time pointer", nilTime, Absent()},
		{"bool", true, Text("true")},
		{"cell", Number(1), Number(1)},
		{"unsupported", struct{}{}, Absent()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellFromValue(tt.value))
		})
	}
}

func TestCellValue_Format(t *testing.T) {
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "254700000001", Number(254700000001).String())
	assert.Equal(t, "12.5", Number(12.5).String())
	assert.Equal(t, "3/14/2025", DateTime(due).String())
	assert.Equal(t, "2025-03-14", DateTime(due).Format("2006-01-02"))
	assert.Equal(t, "  padded ", Text("  padded ").String())
	assert.Equal(t, "", Absent().String())
}

func TestCellValue_MarshalJSON(t *testing.T) {
	due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cell CellValue
		want string
	}{
		{"text", Text("Ann"), `{"kind":"text","text":"Ann"}`},
		{"number", Number(254700000001), `{"kind":"number","number":254700000001}`},
		{"zero number", Number(0), `{"kind":"number","number":0}`},
		{"datetime", DateTime(due), `{"kind":"datetime","time":"2025-03-14T00:00:00Z"}`},
		{"absent", Absent(), `{"kind":"absent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.cell)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(body))
		})
	}

	t.Run("inside a row", func(t *testing.T) {
		body, err := json.Marshal(NewRow(0, map[string]interface{}{"Phone": "1"}))
		require.NoError(t, err)
		assert.NotContains(t, string(body), "0001-01-01")

		var decoded Row
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, Text("1"), decoded.Cells["Phone"])
	})
}

func TestCellValue_IsAbsent(t *testing.T) {
	assert.True(t, Absent().IsAbsent())
	assert.True(t, Text("   ").IsAbsent())
	assert.True(t, CellValue{}.IsAbsent())
	assert.False(t, Text("0").IsAbsent())
	assert.False(t, Number(0).IsAbsent())
	assert.False(t, DateTime(time.Time{}).IsAbsent())
}

func TestCampaignConfig_Validate(t *testing.T) {
	rows := []Row{NewRow(0, map[string]interface{}{"Phone": "1"})}

	assert.NoError(t, (&CampaignConfig{Rows: rows, TargetColumn: "Phone", Template: "x"}).Validate())
	assert.Error(t, (&CampaignConfig{Rows: rows, Template: "x"}).Validate())
	assert.Error(t, (&CampaignConfig{Rows: rows, TargetColumn: "Phone"}).Validate())
	assert.Error(t, (&CampaignConfig{TargetColumn: "Phone", Template: "x"}).Validate())

	assert.Equal(t, 3*time.Second, (&CampaignConfig{DelaySeconds: 3}).Delay())
}

func TestCampaignResult(t *testing.T) {
	result := NewCampaignResult("c1", 2)
	assert.False(t, result.Consistent())

	result.RecordSuccess(0, "254700000001")
	result.RecordFailure(1, UnknownIdentifier, ReasonNoPhoneNumber)

	assert.True(t, result.Consistent())
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, RowOutcome{Index: 1, Identifier: "N/A", Status: OutcomeFailed, Error: "No phone number"}, result.Outcomes[1])
}
