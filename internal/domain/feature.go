package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FeatureCode is a GeoNames populated-place feature code.
type FeatureCode string

// Populated-place tiers from the GeoNames "P" feature class.
const (
	FeaturePPL   FeatureCode = "PPL"   // populated place
	FeaturePPLA  FeatureCode = "PPLA"  // seat of a first-order administrative division (province centre)
	FeaturePPLA2 FeatureCode = "PPLA2" // seat of a second-order administrative division (district centre)
	FeaturePPLA3 FeatureCode = "PPLA3"
	FeaturePPLA4 FeatureCode = "PPLA4"
	FeaturePPLC  FeatureCode = "PPLC" // capital of a political entity
	FeaturePPLG  FeatureCode = "PPLG" // seat of government
	FeaturePPLL  FeatureCode = "PPLL" // populated locality
	FeaturePPLS  FeatureCode = "PPLS" // populated places
	FeaturePPLX  FeatureCode = "PPLX" // section of populated place
)

var knownFeatureCodes = map[FeatureCode]struct{}{
	FeaturePPL: {}, FeaturePPLA: {}, FeaturePPLA2: {}, FeaturePPLA3: {}, FeaturePPLA4: {},
	FeaturePPLC: {}, FeaturePPLG: {}, FeaturePPLL: {}, FeaturePPLS: {}, FeaturePPLX: {},
}

// Default tier sets. Everything that names a town or city is indexed for
// nearest-settlement distance; only administrative centres and the capital
// are reported as possibly affected.
var (
	DefaultIndexFeatures    = MustFeatureSet(FeaturePPL, FeaturePPLA, FeaturePPLA2, FeaturePPLA3, FeaturePPLA4, FeaturePPLC)
	DefaultAffectedFeatures = MustFeatureSet(FeaturePPLA, FeaturePPLA2, FeaturePPLC)
)

// FeatureSet is an immutable set of feature codes.
type FeatureSet struct {
	codes map[FeatureCode]struct{}
}

// NewFeatureSet validates every code against the known populated-place tiers.
func NewFeatureSet(codes ...FeatureCode) (FeatureSet, error) {
	set := FeatureSet{codes: make(map[FeatureCode]struct{}, len(codes))}
	for _, c := range codes {
		if _, ok := knownFeatureCodes[c]; !ok {
			return FeatureSet{}, fmt.Errorf("unknown feature code %q", c)
		}
		set.codes[c] = struct{}{}
	}
	return set, nil
}

// MustFeatureSet is NewFeatureSet for package-level defaults.
func MustFeatureSet(codes ...FeatureCode) FeatureSet {
	set, err := NewFeatureSet(codes...)
	if err != nil {
		panic(err)
	}
	return set
}

// ParseFeatureSet parses a comma-separated list such as "PPLA,PPLA2,PPLC".
// Codes are case-insensitive; an empty list is an error.
func ParseFeatureSet(s string) (FeatureSet, error) {
	var codes []FeatureCode
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		codes = append(codes, FeatureCode(part))
	}
	if len(codes) == 0 {
		return FeatureSet{}, fmt.Errorf("empty feature code list")
	}
	return NewFeatureSet(codes...)
}

// Contains reports whether c is in the set.
func (s FeatureSet) Contains(c FeatureCode) bool {
	_, ok := s.codes[c]
	return ok
}

// Len returns the number of codes in the set.
func (s FeatureSet) Len() int { return len(s.codes) }

// Codes returns the codes in sorted order.
func (s FeatureSet) Codes() []FeatureCode {
	out := make([]FeatureCode, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s FeatureSet) String() string {
	codes := s.Codes()
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}
