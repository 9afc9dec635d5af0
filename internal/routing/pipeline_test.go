package routing

import (
	"errors"
	"net/netip"
	"strconv"
	"strings"
	"testing"

	"github.com/wudi/proxymanager/internal/geoip"
	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/metrics"
	"github.com/wudi/proxymanager/internal/region"
	"github.com/wudi/proxymanager/internal/upstream"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeProvider struct {
	records map[string]geoip.Record
}

func (f *fakeProvider) Lookup(addr netip.Addr) (geoip.Record, error) {
	if addr.String() == "203.0.113.99" {
		return geoip.Record{}, errors.New("corrupt node")
	}
	return f.records[addr.String()], nil
}

func (f *fakeProvider) Close() error { return nil }

func newResolver(rec *metrics.Recorder) *geoip.Resolver {
	p := &fakeProvider{records: map[string]geoip.Record{
		"8.8.8.8":     {Continent: "NA", Country: "US"},
		"200.1.1.1":   {Continent: "SA", Country: "BR"},
		"81.2.69.160": {Continent: "EU", Country: "DE"},
		"1.0.16.1":    {Continent: "AS", Country: "JP"},
		"10.9.9.9":    {Continent: "NA"},
	}}
	return geoip.NewResolver(p, geoip.WithObserver(func(o geoip.Outcome) {
		rec.RecordGeoLookup(string(o))
	}))
}

func counter(t *testing.T, rec *metrics.Recorder, series string) float64 {
	t.Helper()
	body, err := rec.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, line := range strings.Split(string(body), "\n") {
		rest, ok := strings.CutPrefix(line, series+" ")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.Fields(rest)[0], 64)
		if err != nil {
			t.Fatalf("bad sample %q: %v", line, err)
		}
		return v
	}
	return 0
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		in            Input
		wantContinent string
		wantCountry   string
		wantVersion   string
		wantProxy     string
	}{
		{
			name:          "north america",
			in:            Input{IP: "8.8.8.8", UserAgent: "ambient_network/1.2.3"},
			wantContinent: "NA",
			wantCountry:   "US",
			wantVersion:   "1.2.3",
			wantProxy:     upstream.DefaultUSProxy,
		},
		{
			name:          "south america",
			in:            Input{IP: "200.1.1.1"},
			wantContinent: "SA",
			wantCountry:   "BR",
			wantProxy:     upstream.DefaultUSProxy,
		},
		{
			name:          "europe",
			in:            Input{IP: "81.2.69.160", UserAgent: "curl/8.0"},
			wantContinent: "EU",
			wantCountry:   "DE",
			wantProxy:     upstream.DefaultEUProxy,
		},
		{
			name:          "asia goes to eu",
			in:            Input{IP: "1.0.16.1"},
			wantContinent: "AS",
			wantCountry:   "JP",
			wantProxy:     upstream.DefaultEUProxy,
		},
		{
			name:          "continent without country",
			in:            Input{IP: "10.9.9.9"},
			wantContinent: "NA",
			wantCountry:   region.UnknownCountry,
			wantProxy:     upstream.DefaultUSProxy,
		},
		{
			name:        "not in database",
			in:          Input{IP: "192.0.2.1"},
			wantCountry: region.UnknownCountry,
			wantProxy:   upstream.DefaultEUProxy,
		},
		{
			name:        "unparsable address",
			in:          Input{IP: "not-an-ip", UserAgent: "ambient_network/0.1"},
			wantCountry: region.UnknownCountry,
			wantVersion: "0.1",
			wantProxy:   upstream.DefaultEUProxy,
		},
		{
			name:          "country header overrides lookup",
			in:            Input{IP: "81.2.69.160", CountryHeader: "ca"},
			wantContinent: "NA",
			wantCountry:   "CA",
			wantProxy:     upstream.DefaultUSProxy,
		},
		{
			name:          "malformed country header is ignored",
			in:            Input{IP: "8.8.8.8", CountryHeader: "USA"},
			wantContinent: "NA",
			wantCountry:   "US",
			wantProxy:     upstream.DefaultUSProxy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := metrics.NewRecorder(metrics.Options{})
			p := New(newResolver(rec), nil, rec)

			d := p.Decide(tt.in)
			if d.Continent != tt.wantContinent {
				t.Errorf("continent: want %q, got %q", tt.wantContinent, d.Continent)
			}
			if d.Country != tt.wantCountry {
				t.Errorf("country: want %q, got %q", tt.wantCountry, d.Country)
			}
			if d.Version != tt.wantVersion {
				t.Errorf("version: want %q, got %q", tt.wantVersion, d.Version)
			}
			if d.Proxy != tt.wantProxy {
				t.Errorf("proxy: want %q, got %q", tt.wantProxy, d.Proxy)
			}

			series := `proxy_requests_total{ambient_version="` + tt.wantVersion + `",country="` + tt.wantCountry + `"}`
			if v := counter(t, rec, series); v != 1 {
				t.Errorf("expected %s = 1, got %v", series, v)
			}
		})
	}
}

func TestDecideHeaderUnknownCountry(t *testing.T) {
	rec := metrics.NewRecorder(metrics.Options{})
	p := New(newResolver(rec), nil, rec)

	// ZZ is well-formed but has no continent.
	d := p.Decide(Input{IP: "8.8.8.8", CountryHeader: "ZZ"})
	if d.Country != "ZZ" || d.Bucket != region.EU {
		t.Errorf("expected ZZ routed to EU, got %+v", d)
	}
	if v := counter(t, rec, `geoip_lookups_total{result="hit"}`); v != 0 {
		t.Errorf("header override should skip the database, got %v lookups", v)
	}
}

func TestDecideHeaderUsesCountryTable(t *testing.T) {
	p := New(nil, nil, metrics.NewRecorder(metrics.Options{}))

	for _, cc := range []string{"MX", "BR", "FR", "JP"} {
		d := p.Decide(Input{IP: "192.0.2.1", CountryHeader: cc})
		if want := region.ClassifyCountry(cc); d.Bucket != want {
			t.Errorf("%s: bucket %s, want %s", cc, d.Bucket, want)
		}
		if d.Continent != region.ContinentOf(cc) {
			t.Errorf("%s: continent %q, want %q", cc, d.Continent, region.ContinentOf(cc))
		}
	}
	if d := p.Decide(Input{CountryHeader: "mx"}); d.Bucket != region.US || d.Proxy != upstream.DefaultUSProxy {
		t.Errorf("expected MX routed to US, got %+v", d)
	}
}

func TestDecideWithoutDatabase(t *testing.T) {
	rec := metrics.NewRecorder(metrics.Options{})
	p := New(nil, nil, rec)

	for i := 0; i < 3; i++ {
		d := p.Decide(Input{IP: "8.8.8.8", UserAgent: "ambient_network/2.0.0"})
		if d.Proxy != upstream.DefaultEUProxy || d.Country != region.UnknownCountry {
			t.Fatalf("expected unknown-geo decision, got %+v", d)
		}
	}

	if v := counter(t, rec, `proxy_requests_total{ambient_version="2.0.0",country="ZZ"}`); v != 3 {
		t.Errorf("expected 3 ZZ requests, got %v", v)
	}
	if v := counter(t, rec, `geoip_lookups_total{result="disabled"}`); v != 3 {
		t.Errorf("expected 3 disabled lookups, got %v", v)
	}
}

func TestDecideLookupOutcomes(t *testing.T) {
	rec := metrics.NewRecorder(metrics.Options{})
	p := New(newResolver(rec), nil, rec)

	p.Decide(Input{IP: "8.8.8.8"})
	p.Decide(Input{IP: "192.0.2.1"})
	p.Decide(Input{IP: "203.0.113.99"})

	for result, want := range map[string]float64{"hit": 1, "miss": 1, "error": 1} {
		if v := counter(t, rec, `geoip_lookups_total{result="`+result+`"}`); v != want {
			t.Errorf("%s: want %v, got %v", result, want, v)
		}
	}
}

func TestDecideCustomTable(t *testing.T) {
	table, err := upstream.NewTable("us.internal:7100", "eu.internal:7100")
	if err != nil {
		t.Fatal(err)
	}
	rec := metrics.NewRecorder(metrics.Options{})
	p := New(newResolver(rec), table, rec)

	if d := p.Decide(Input{IP: "8.8.8.8"}); d.Proxy != "us.internal:7100" {
		t.Errorf("expected custom US proxy, got %s", d.Proxy)
	}
	if d := p.Decide(Input{IP: "81.2.69.160"}); d.Proxy != "eu.internal:7100" {
		t.Errorf("expected custom EU proxy, got %s", d.Proxy)
	}
}

func TestDecideLogsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logging.Global()
	logging.SetGlobal(zap.New(core))
	t.Cleanup(func() { logging.SetGlobal(prev) })

	p := New(nil, nil, nil)
	p.Decide(Input{IP: "198.51.100.7", UserAgent: "ambient_network/1.0"})

	entries := logs.FilterMessage("Proxy request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one proxy request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ip"] != "198.51.100.7" {
		t.Errorf("expected ip field, got %v", fields["ip"])
	}
	if fields["continent"] != "ZZ" || fields["country"] != "ZZ" {
		t.Errorf("expected unknown continent/country, got %v/%v", fields["continent"], fields["country"])
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("expected info level, got %v", entries[0].Level)
	}
}
