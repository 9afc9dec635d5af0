package geoip

import (
	"errors"
	"io/fs"
	"net/netip"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wudi/proxymanager/internal/logging"
	"go.uber.org/zap"
)

// DefaultPath is where the database is looked for when none is configured.
const DefaultPath = "country.mmdb"

// Outcome classifies a single lookup for observability.
type Outcome string

const (
	OutcomeHit   Outcome = "hit"   // at least one code found
	OutcomeMiss  Outcome = "miss"  // address not in the database
	OutcomeError Outcome = "error" // unparsable address or database error
)

// Resolver answers lookups against a Provider and absorbs every failure
// into an empty Record. A nil *Resolver is valid and knows nothing.
type Resolver struct {
	provider Provider
	cache    *lru.Cache[netip.Addr, Record]
	observe  func(Outcome)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCacheSize memoizes up to n lookups. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(r *Resolver) {
		if n <= 0 {
			return
		}
		c, err := lru.New[netip.Addr, Record](n)
		if err != nil {
			logging.Warn("GeoIP lookup cache disabled", zap.Int("size", n), zap.Error(err))
			return
		}
		r.cache = c
	}
}

// WithObserver registers fn to be told the outcome of every lookup.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Resolver) {
		r.observe = fn
	}
}

// NewResolver wraps an open provider.
func NewResolver(p Provider, opts ...Option) *Resolver {
	r := &Resolver{provider: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover opens the database at path. A missing file is logged as a
// warning and an unreadable one as an error; both return nil so the caller
// runs with geo resolution disabled.
func Discover(path string, opts ...Option) *Resolver {
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Warn("GeoIP database not found", zap.String("path", path))
		} else {
			logging.Error("Failed to open GeoIP database", zap.String("path", path), zap.Error(err))
		}
		return nil
	}

	p, err := NewProvider(path)
	if err != nil {
		logging.Error("Failed to open GeoIP database", zap.String("path", path), zap.Error(err))
		return nil
	}

	logging.Info("GeoIP database loaded", zap.String("path", path))
	return NewResolver(p, opts...)
}

// Enabled reports whether lookups can return anything.
func (r *Resolver) Enabled() bool {
	return r != nil && r.provider != nil
}

// Lookup returns the continent and country codes for ip. It never fails:
// bad input, database errors and unknown addresses all yield an empty Record.
func (r *Resolver) Lookup(ip string) Record {
	if !r.Enabled() {
		return Record{}
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		logging.Debug("GeoIP lookup skipped for invalid address", zap.String("ip", ip), zap.Error(err))
		r.report(OutcomeError)
		return Record{}
	}
	addr = addr.Unmap().WithZone("")

	if r.cache != nil {
		if rec, ok := r.cache.Get(addr); ok {
			r.report(outcomeOf(rec))
			return rec
		}
	}

	rec, err := r.provider.Lookup(addr)
	if err != nil {
		logging.Debug("GeoIP lookup error", zap.String("ip", ip), zap.Error(err))
		r.report(OutcomeError)
		return Record{}
	}

	rec.Continent = strings.ToUpper(rec.Continent)
	rec.Country = strings.ToUpper(rec.Country)

	if r.cache != nil {
		r.cache.Add(addr, rec)
	}
	r.report(outcomeOf(rec))
	return rec
}

// Close releases the underlying database.
func (r *Resolver) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.provider.Close()
}

func (r *Resolver) report(o Outcome) {
	if r.observe != nil {
		r.observe(o)
	}
}

func outcomeOf(rec Record) Outcome {
	if rec.IsZero() {
		return OutcomeMiss
	}
	return OutcomeHit
}
