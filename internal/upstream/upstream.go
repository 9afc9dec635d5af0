// Package upstream holds the static table of regional proxy endpoints.
package upstream

import (
	"fmt"
	"net"
	"strconv"

	"github.com/wudi/proxymanager/internal/region"
)

// Canonical endpoints.
const (
	DefaultUSProxy = "proxy-us.ambient.run:7000"
	DefaultEUProxy = "proxy-eu.ambient.run:7000"
)

// Table maps every bucket to one proxy address. It is immutable after
// construction.
type Table struct {
	us string
	eu string
}

// DefaultTable returns the table of canonical endpoints.
func DefaultTable() *Table {
	return &Table{us: DefaultUSProxy, eu: DefaultEUProxy}
}

// NewTable builds a table from explicit addresses. Empty values fall back to
// the canonical endpoints.
func NewTable(us, eu string) (*Table, error) {
	if us == "" {
		us = DefaultUSProxy
	}
	if eu == "" {
		eu = DefaultEUProxy
	}
	if err := ValidateAddress(us); err != nil {
		return nil, fmt.Errorf("us proxy: %w", err)
	}
	if err := ValidateAddress(eu); err != nil {
		return nil, fmt.Errorf("eu proxy: %w", err)
	}
	return &Table{us: us, eu: eu}, nil
}

// Select returns the proxy address for b.
func (t *Table) Select(b region.Bucket) string {
	if b == region.US {
		return t.us
	}
	return t.eu
}

// Addresses returns the table as a bucket keyed map.
func (t *Table) Addresses() map[region.Bucket]string {
	return map[region.Bucket]string{
		region.US: t.us,
		region.EU: t.eu,
	}
}

// ValidateAddress checks that addr is a host:port pair with a usable port.
func ValidateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return fmt.Errorf("invalid address %q: missing host", addr)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid address %q: bad port", addr)
	}
	return nil
}
