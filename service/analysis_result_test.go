package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSetPreservesResponseOrder(t *testing.T) {
	raw := `{"Zeta": {}, "Alpha": {}, "Mid": {}, "Beta": {}}`
	fs := fieldSetFromJSON(t, raw)
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid", "Beta"}, fs.Names())
	assert.Equal(t, 4, fs.Len())
}

func TestFieldSetNull(t *testing.T) {
	var fs FieldSet
	require.NoError(t, json.Unmarshal([]byte(`null`), &fs))
	assert.Equal(t, 0, fs.Len())
}

func TestAnalyzeResultDecoding(t *testing.T) {
	raw := `{
		"documents": [{
			"fields": {
				"InvoiceTotal": {
					"valueNumber": 1234.56,
					"confidence": 0.97,
					"boundingRegions": [{"pageNumber": 1, "polygon": [1, 2, 3, 4, 5, 6, 7, 8]}]
				}
			}
		}]
	}`
	var result AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	fields := result.Fields()
	require.Equal(t, 1, fields.Len())

	f, ok := fields.Get("InvoiceTotal")
	require.True(t, ok)
	require.NotNil(t, f.Confidence)
	assert.Equal(t, 0.97, *f.Confidence)

	region := f.FirstRegion()
	require.NotNil(t, region)
	assert.Equal(t, 1, region.PageNumber)
	assert.Len(t, region.Polygon, 8)

	value, found := f.StringValue()
	assert.True(t, found)
	assert.Equal(t, "1234.56", value)
}

func TestAnalyzeResultEmpty(t *testing.T) {
	var result AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(`{}`), &result))
	assert.Equal(t, 0, result.Fields().Len())
	var nilResult *AnalyzeResult
	assert.Equal(t, 0, nilResult.Fields().Len())
}

func TestStringValuePreference(t *testing.T) {
	number := 42.0
	tests := []struct {
		name      string
		field     AnalyzedField
		want      string
		wantFound bool
	}{
		{"content wins", AnalyzedField{Content: "readable", ValueString: "raw"}, "readable", true},
		{"valueString next", AnalyzedField{ValueString: "raw"}, "raw", true},
		{"valueNumber stringified", AnalyzedField{ValueNumber: &number}, "42", true},
		{"generic string value", AnalyzedField{Value: "loose"}, "loose", true},
		{"generic numeric value", AnalyzedField{Value: 3.5}, "3.5", true},
		{"generic bool value", AnalyzedField{Value: true}, "true", true},
		{"nothing present", AnalyzedField{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := tt.field.StringValue()
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
