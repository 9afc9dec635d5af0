// Package routing decides which regional proxy a client should use.
package routing

import (
	"github.com/wudi/proxymanager/internal/geoip"
	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/metrics"
	"github.com/wudi/proxymanager/internal/region"
	"github.com/wudi/proxymanager/internal/upstream"
	"github.com/wudi/proxymanager/internal/useragent"
	"go.uber.org/zap"
)

// Input carries the request signals the decision depends on.
type Input struct {
	IP            string
	UserAgent     string
	CountryHeader string // value of the configured country header, if any
}

// Decision is the outcome for one request.
type Decision struct {
	Continent string // "" when unknown
	Country   string // ISO code or region.UnknownCountry
	Version   string // ambient client version, "" for other clients
	Bucket    region.Bucket
	Proxy     string
}

// Pipeline is safe for concurrent use. Only the recorder accumulates state.
type Pipeline struct {
	resolver *geoip.Resolver // nil when no database is available
	table    *upstream.Table
	recorder *metrics.Recorder
}

// New creates a pipeline. A nil resolver runs every request in unknown-geo
// mode and a nil table selects the canonical endpoints.
func New(resolver *geoip.Resolver, table *upstream.Table, recorder *metrics.Recorder) *Pipeline {
	if table == nil {
		table = upstream.DefaultTable()
	}
	return &Pipeline{
		resolver: resolver,
		table:    table,
		recorder: recorder,
	}
}

// Decide resolves, classifies and selects a proxy for in, then records the
// request. It has no failure mode.
func (p *Pipeline) Decide(in Input) Decision {
	d := Decision{Version: useragent.ExtractVersion(in.UserAgent)}

	// A well-formed country header wins over the database and is placed
	// through the explicit country table.
	if cc, ok := region.NormalizeCountry(in.CountryHeader); ok {
		d.Country = cc
		d.Continent = region.ContinentOf(cc)
		d.Bucket = region.ClassifyCountry(cc)
	} else {
		rec := p.lookup(in.IP)
		d.Continent = rec.Continent
		d.Country = rec.Country
		d.Bucket = region.Classify(rec.Continent)
	}

	if d.Country == "" {
		d.Country = region.UnknownCountry
	}
	d.Proxy = p.table.Select(d.Bucket)

	logging.Info("Proxy request",
		zap.String("ip", in.IP),
		zap.String("continent", orUnknown(d.Continent)),
		zap.String("country", d.Country),
		zap.String("user_agent", in.UserAgent),
		zap.String("proxy", d.Proxy),
	)

	if p.recorder != nil {
		p.recorder.RecordProxyRequest(d.Country, d.Version)
	}
	return d
}

func (p *Pipeline) lookup(ip string) geoip.Record {
	if !p.resolver.Enabled() {
		if p.recorder != nil {
			p.recorder.RecordGeoLookup("disabled")
		}
		return geoip.Record{}
	}
	return p.resolver.Lookup(ip)
}

func orUnknown(s string) string {
	if s == "" {
		return region.UnknownCountry
	}
	return s
}
