// Package server exposes the proxy manager over HTTP.
package server

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/julienschmidt/httprouter"
	"github.com/wudi/proxymanager/internal/accesslog"
	"github.com/wudi/proxymanager/internal/config"
	"github.com/wudi/proxymanager/internal/cors"
	"github.com/wudi/proxymanager/internal/errors"
	"github.com/wudi/proxymanager/internal/geoip"
	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/metrics"
	"github.com/wudi/proxymanager/internal/realip"
	"github.com/wudi/proxymanager/internal/routing"
	"github.com/wudi/proxymanager/internal/upstream"
	"go.uber.org/zap"
)

// App is the state shared by every request handler. All of it is read-only
// after construction except the metric counters.
type App struct {
	recorder      *metrics.Recorder
	resolver      *geoip.Resolver
	table         *upstream.Table
	pipeline      *routing.Pipeline
	realip        *realip.Extractor
	cors          *cors.Handler
	countryHeader string
}

// NewApp builds the application state from cfg. A missing or unreadable
// GeoIP database is not an error.
func NewApp(cfg *config.Config) (*App, error) {
	recorder := metrics.NewRecorder(metrics.Options{
		RuntimeCollectors: cfg.Metrics.RuntimeCollectors,
	})

	resolver := geoip.Discover(cfg.GeoIP.Database,
		geoip.WithCacheSize(cfg.GeoIP.CacheSize),
		geoip.WithObserver(func(o geoip.Outcome) {
			recorder.RecordGeoLookup(string(o))
		}),
	)

	return newApp(cfg, recorder, resolver)
}

func newApp(cfg *config.Config, recorder *metrics.Recorder, resolver *geoip.Resolver) (*App, error) {
	table, err := upstream.NewTable(cfg.Proxies.US, cfg.Proxies.EU)
	if err != nil {
		return nil, fmt.Errorf("proxies: %w", err)
	}

	extractor, err := realip.New(cfg.TrustedProxies.CIDRs, cfg.TrustedProxies.Headers, cfg.TrustedProxies.MaxHops)
	if err != nil {
		return nil, fmt.Errorf("trusted_proxies: %w", err)
	}

	return &App{
		recorder:      recorder,
		resolver:      resolver,
		table:         table,
		pipeline:      routing.New(resolver, table, recorder),
		realip:        extractor,
		cors:          cors.New(cfg.CORS),
		countryHeader: cfg.GeoIP.CountryHeader,
	}, nil
}

// Handler returns the complete HTTP handler: client IP extraction, access
// logging and CORS around the router.
func (a *App) Handler() http.Handler {
	router := httprouter.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Handler(http.MethodGet, "/proxy", a.recorder.InstrumentHandler("proxy", http.HandlerFunc(a.handleProxy)))
	router.Handler(http.MethodGet, "/metrics", a.recorder.InstrumentHandler("metrics", http.HandlerFunc(a.handleMetrics)))
	health := a.recorder.InstrumentHandler("health", http.HandlerFunc(handleHealth))
	router.Handler(http.MethodGet, "/health", health)
	router.Handler(http.MethodGet, "/_ah/health", health)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.ErrNotFound.WriteJSON(w)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// httprouter has already set the Allow header.
		errors.ErrMethodNotAllowed.WithDetails("allowed: " + w.Header().Get("Allow")).WriteJSON(w)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		logging.Error("Panic recovered",
			zap.Any("error", v),
			zap.String("path", r.URL.Path),
			zap.ByteString("stack", debug.Stack()),
		)
		errors.ErrInternalServer.WriteJSON(w)
	}

	return a.realip.Middleware(accesslog.Middleware(a.cors.Middleware(router)))
}

// Close releases the GeoIP database.
func (a *App) Close() error {
	return a.resolver.Close()
}
