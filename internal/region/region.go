// Package region maps geographic codes onto the upstream regions the proxy
// fleet is deployed in.
package region

import "strings"

// Bucket is an upstream region.
type Bucket string

const (
	US Bucket = "US"
	EU Bucket = "EU"
)

// Default is the bucket for anything that cannot be placed.
const Default = EU

// UnknownCountry is the country label used when no country is known.
const UnknownCountry = "ZZ"

func (b Bucket) String() string { return string(b) }

// Classify maps a continent code to a bucket. The Americas go to US,
// everything else, including an empty code, goes to EU.
func Classify(continent string) Bucket {
	switch strings.ToUpper(continent) {
	case "NA", "SA":
		return US
	default:
		return Default
	}
}

// ClassifyCountry places a country through the explicit country table.
func ClassifyCountry(country string) Bucket {
	return Classify(ContinentOf(country))
}

// NormalizeCountry accepts exactly two ASCII letters and returns them upper cased.
func NormalizeCountry(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return "", false
	}
	for i := 0; i < 2; i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return "", false
		}
	}
	return strings.ToUpper(s), true
}
