// Package geoip resolves client addresses to continent and country codes
// from an offline database.
package geoip

import (
	"fmt"
	"net/netip"
	"path/filepath"
	"strings"
)

// Record holds the geographic codes found for an address. Empty fields are
// unknown.
type Record struct {
	Continent string // e.g. "NA", "EU"
	Country   string // ISO 3166-1 alpha-2 (e.g. "US")
}

// IsZero reports whether nothing is known about the address.
func (r Record) IsZero() bool {
	return r.Continent == "" && r.Country == ""
}

// Provider performs address lookups against one database.
type Provider interface {
	Lookup(addr netip.Addr) (Record, error)
	Close() error
}

// NewProvider auto-detects the database format from the file extension
// and returns the appropriate Provider implementation.
func NewProvider(path string) (Provider, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mmdb":
		return newMMDBProvider(path)
	case ".ipdb":
		return newIPDBProvider(path)
	default:
		return nil, fmt.Errorf("unsupported geo database format: %s (expected .mmdb or .ipdb)", ext)
	}
}
