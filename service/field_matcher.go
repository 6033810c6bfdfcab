package services

import (
	"strings"
)

// MatchType records which tier of the matching strategy produced a hit.
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchCaseInsensitive MatchType = "case-insensitive"
	MatchPartial         MatchType = "partial"
	MatchNormalized      MatchType = "normalized"
	MatchFuzzyPrefix     MatchType = "fuzzy-prefix"
)

// commonPrefixes are domain prefixes stripped by the fuzzy tier, so that e.g.
// a requested "DueDate" still finds a returned "Date".
var commonPrefixes = []string{"Invoice", "Customer", "Vendor", "Billing", "Shipping", "Total", "Amount", "Due"}

// FieldMatch is a resolved mapping from a requested field name to a field the
// analysis service actually returned.
type FieldMatch struct {
	FieldName string
	Field     AnalyzedField
	Type      MatchType
}

// MatchField resolves a requested field name against the service-returned
// field set. Tiers are tried in order and the first hit wins:
//
//  1. exact key match
//  2. case-insensitive exact match
//  3. bidirectional substring match (case-insensitive)
//  4. substring match after stripping non-alphanumerics
//  5. exact match after stripping common domain prefixes from both sides
//
// Ties within a tier go to the first qualifying key in response order, which
// makes the result deterministic for a given service response. Returns false
// when no tier matches.
func MatchField(requested string, fields *FieldSet) (*FieldMatch, bool) {
	if fields == nil || fields.Len() == 0 {
		return nil, false
	}

	if f, ok := fields.Get(requested); ok {
		return &FieldMatch{FieldName: requested, Field: f, Type: MatchExact}, true
	}

	requestedLower := strings.ToLower(requested)
	for _, name := range fields.Names() {
		if strings.ToLower(name) == requestedLower {
			f, _ := fields.Get(name)
			return &FieldMatch{FieldName: name, Field: f, Type: MatchCaseInsensitive}, true
		}
	}

	for _, name := range fields.Names() {
		nameLower := strings.ToLower(name)
		if strings.Contains(nameLower, requestedLower) || strings.Contains(requestedLower, nameLower) {
			f, _ := fields.Get(name)
			return &FieldMatch{FieldName: name, Field: f, Type: MatchPartial}, true
		}
	}

	requestedNorm := normalizeFieldName(requested)
	if requestedNorm != "" {
		for _, name := range fields.Names() {
			nameNorm := normalizeFieldName(name)
			if nameNorm == "" {
				continue
			}
			if strings.Contains(nameNorm, requestedNorm) || strings.Contains(requestedNorm, nameNorm) {
				f, _ := fields.Get(name)
				return &FieldMatch{FieldName: name, Field: f, Type: MatchNormalized}, true
			}
		}
	}

	requestedStripped := strings.ToLower(stripCommonPrefix(requested))
	for _, name := range fields.Names() {
		if strings.ToLower(stripCommonPrefix(name)) == requestedStripped {
			f, _ := fields.Get(name)
			return &FieldMatch{FieldName: name, Field: f, Type: MatchFuzzyPrefix}, true
		}
	}

	return nil, false
}

// normalizeFieldName lowercases and drops every non-alphanumeric character.
func normalizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripCommonPrefix removes the first matching domain prefix from the start of
// name, case-insensitively. Only one prefix is removed.
func stripCommonPrefix(name string) string {
	lower := strings.ToLower(name)
	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return name[len(prefix):]
		}
	}
	return name
}
