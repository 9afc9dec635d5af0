package geoip

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/ipipdotnet/ipdb-go"
)

type ipdbProvider struct {
	db *ipdb.City
}

func newIPDBProvider(path string) (*ipdbProvider, error) {
	db, err := ipdb.NewCity(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ipdb: %w", err)
	}
	return &ipdbProvider{db: db}, nil
}

func (p *ipdbProvider) Lookup(addr netip.Addr) (Record, error) {
	info, err := p.db.FindInfo(addr.String(), "EN")
	if errors.Is(err, ipdb.ErrDataNotExists) {
		return Record{}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("ipdb lookup failed: %w", err)
	}

	return Record{
		Continent: info.ContinentCode,
		Country:   info.CountryCode,
	}, nil
}

func (p *ipdbProvider) Close() error {
	// ipdb-go does not require explicit close
	return nil
}
