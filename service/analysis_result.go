package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// BoundingRegion describes where on the source document a value was found.
type BoundingRegion struct {
	PageNumber  int       `json:"pageNumber"`
	Polygon     []float64 `json:"polygon"`
	BoundingBox []float64 `json:"boundingBox"`
}

// AnalyzedField is one field in the analysis service's result payload.
type AnalyzedField struct {
	Content         string           `json:"content"`
	ValueString     string           `json:"valueString"`
	ValueNumber     *float64         `json:"valueNumber"`
	Value           interface{}      `json:"value"`
	Confidence      *float64         `json:"confidence"`
	BoundingRegions []BoundingRegion `json:"boundingRegions"`
}

// FirstRegion returns the first bounding region, or nil when the service
// supplied none.
func (f AnalyzedField) FirstRegion() *BoundingRegion {
	if len(f.BoundingRegions) == 0 {
		return nil
	}
	return &f.BoundingRegions[0]
}

// StringValue extracts the field's value normalized to string form,
// preferring the human-readable content, then the string-typed value, then
// the numeric value, then the generic value. The second return is false when
// no usable value is present.
func (f AnalyzedField) StringValue() (string, bool) {
	if f.Content != "" {
		return f.Content, true
	}
	if f.ValueString != "" {
		return f.ValueString, true
	}
	if f.ValueNumber != nil {
		return strconv.FormatFloat(*f.ValueNumber, 'f', -1, 64), true
	}
	switch v := f.Value.(type) {
	case string:
		if v != "" {
			return v, true
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case nil:
	default:
		if raw, err := json.Marshal(v); err == nil {
			return string(raw), true
		}
	}
	return "", false
}

// FieldSet is the mapping from service-assigned field name to AnalyzedField.
// It keeps the order the fields appeared in the response body, because the
// substring matching tiers pick the first key that qualifies and encoding/json
// maps would make that nondeterministic.
type FieldSet struct {
	names  []string
	fields map[string]AnalyzedField
}

func (fs *FieldSet) UnmarshalJSON(data []byte) error {
	fs.names = nil
	fs.fields = make(map[string]AnalyzedField)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil // JSON null, leave the set empty
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields: expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: unexpected key token %v", keyTok)
		}
		var field AnalyzedField
		if err := dec.Decode(&field); err != nil {
			return fmt.Errorf("fields: decoding %q: %w", name, err)
		}
		if _, seen := fs.fields[name]; !seen {
			fs.names = append(fs.names, name)
		}
		fs.fields[name] = field
	}
	_, err = dec.Token() // consume the closing brace
	return err
}

// Names returns the field names in response order.
func (fs *FieldSet) Names() []string {
	if fs == nil {
		return nil
	}
	return fs.names
}

func (fs *FieldSet) Get(name string) (AnalyzedField, bool) {
	if fs == nil {
		return AnalyzedField{}, false
	}
	f, ok := fs.fields[name]
	return f, ok
}

func (fs *FieldSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.names)
}

// AnalyzeResult is the final payload of a succeeded analysis operation.
type AnalyzeResult struct {
	Documents []AnalyzedDocument `json:"documents"`
}

// AnalyzedDocument carries the extracted fields for one document in the result.
type AnalyzedDocument struct {
	Fields FieldSet `json:"fields"`
}

// Fields returns the field set of the first analyzed document. The service
// returns one document per submitted file; an empty result yields an empty set.
func (r *AnalyzeResult) Fields() *FieldSet {
	if r == nil || len(r.Documents) == 0 {
		return &FieldSet{}
	}
	return &r.Documents[0].Fields
}
