package geoip

import (
	"fmt"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

type mmdbProvider struct {
	db *maxminddb.Reader
}

// mmdbRecord maps the parts of a GeoIP2/GeoLite2 country record we route on.
type mmdbRecord struct {
	Continent struct {
		Code string `maxminddb:"code"`
	} `maxminddb:"continent"`
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

func newMMDBProvider(path string) (*mmdbProvider, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmdb: %w", err)
	}
	return &mmdbProvider{db: db}, nil
}

func (p *mmdbProvider) Lookup(addr netip.Addr) (Record, error) {
	res := p.db.Lookup(addr)
	if err := res.Err(); err != nil {
		return Record{}, fmt.Errorf("mmdb lookup failed: %w", err)
	}
	if !res.Found() {
		return Record{}, nil
	}

	var record mmdbRecord
	if err := res.Decode(&record); err != nil {
		return Record{}, fmt.Errorf("mmdb decode failed: %w", err)
	}

	return Record{
		Continent: record.Continent.Code,
		Country:   record.Country.ISOCode,
	}, nil
}

func (p *mmdbProvider) Close() error {
	return p.db.Close()
}
