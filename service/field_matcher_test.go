package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldSetFromJSON(t *testing.T, raw string) *FieldSet {
	t.Helper()
	var fs FieldSet
	require.NoError(t, json.Unmarshal([]byte(raw), &fs))
	return &fs
}

func TestMatchFieldTiers(t *testing.T) {
	tests := []struct {
		name          string
		requested     string
		fields        string
		wantField     string
		wantMatchType MatchType
		wantMiss      bool
	}{
		{
			name:          "exact match",
			requested:     "InvoiceTotal",
			fields:        `{"InvoiceTotal": {"content": "100"}}`,
			wantField:     "InvoiceTotal",
			wantMatchType: MatchExact,
		},
		{
			name:          "case-insensitive match",
			requested:     "InvoiceTotal",
			fields:        `{"invoicetotal": {"content": "100"}}`,
			wantField:     "invoicetotal",
			wantMatchType: MatchCaseInsensitive,
		},
		{
			name:          "substring match requested within key",
			requested:     "Total",
			fields:        `{"InvoiceTotal": {"content": "100"}}`,
			wantField:     "InvoiceTotal",
			wantMatchType: MatchPartial,
		},
		{
			name:          "substring match key within requested",
			requested:     "DueDate",
			fields:        `{"Date": {"content": "2024-01-01"}}`,
			wantField:     "Date",
			wantMatchType: MatchPartial,
		},
		{
			name:          "normalized match strips spaces",
			requested:     "CustomerName",
			fields:        `{"Customer Name": {"content": "Acme"}}`,
			wantField:     "Customer Name",
			wantMatchType: MatchNormalized,
		},
		{
			name:          "normalized match strips punctuation",
			requested:     "Sub-Total",
			fields:        `{"SubTotal": {"content": "90"}}`,
			wantField:     "SubTotal",
			wantMatchType: MatchNormalized,
		},
		{
			name:          "fuzzy prefix match on remainders",
			requested:     "DueDate",
			fields:        `{"InvoiceDate": {"content": "2024-01-01"}}`,
			wantField:     "InvoiceDate",
			wantMatchType: MatchFuzzyPrefix,
		},
		{
			name:      "no match",
			requested: "Foo",
			fields:    `{"Bar": {"content": "x"}}`,
			wantMiss:  true,
		},
		{
			name:      "empty field set",
			requested: "InvoiceTotal",
			fields:    `{}`,
			wantMiss:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldSetFromJSON(t, tt.fields)
			match, ok := MatchField(tt.requested, fields)
			if tt.wantMiss {
				assert.False(t, ok)
				assert.Nil(t, match)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantField, match.FieldName)
			assert.Equal(t, tt.wantMatchType, match.Type)
		})
	}
}

func TestMatchFieldEarlierTierWins(t *testing.T) {
	// Both keys would match at some tier; the exact hit must win.
	fields := fieldSetFromJSON(t, `{"Total Amount": {"content": "a"}, "Total": {"content": "b"}}`)
	match, ok := MatchField("Total", fields)
	require.True(t, ok)
	assert.Equal(t, "Total", match.FieldName)
	assert.Equal(t, MatchExact, match.Type)
}

func TestMatchFieldFirstKeyInResponseOrderWins(t *testing.T) {
	fields := fieldSetFromJSON(t, `{"InvoiceTotal": {"content": "a"}, "TotalTax": {"content": "b"}}`)
	match, ok := MatchField("Total", fields)
	require.True(t, ok)
	assert.Equal(t, "InvoiceTotal", match.FieldName)
	assert.Equal(t, MatchPartial, match.Type)
}

func TestMatchFieldIsDeterministic(t *testing.T) {
	raw := `{"VendorName": {}, "VendorAddress": {}, "VendorTaxId": {}}`
	first, ok := MatchField("Vendor", fieldSetFromJSON(t, raw))
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		match, ok := MatchField("Vendor", fieldSetFromJSON(t, raw))
		require.True(t, ok)
		assert.Equal(t, first.FieldName, match.FieldName)
	}
}
