// Package metrics owns the process metric registry and renders it for
// scraping.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/region"
	"go.uber.org/zap"
)

// ContentType is the media type of Render output.
const ContentType = "application/openmetrics-text; version=1.0.0; charset=utf-8"

// Options toggles optional collectors.
type Options struct {
	RuntimeCollectors bool // Go runtime and process collectors
}

// Recorder holds every counter family the service exports. Counters are
// created on first use and only ever increase.
type Recorder struct {
	registry *prometheus.Registry

	proxyRequests *prometheus.CounterVec // country, ambient_version
	geoLookups    *prometheus.CounterVec // result
	httpRequests  *prometheus.CounterVec // handler, method, code
}

// NewRecorder creates a recorder backed by its own registry.
func NewRecorder(opts Options) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		proxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxy_requests_total",
			Help: "Count of /proxy requests",
		}, []string{"country", "ambient_version"}),
		geoLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoip_lookups_total",
			Help: "GeoIP lookups by result",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by handler, method and status code",
		}, []string{"handler", "method", "code"}),
	}

	r.registry.MustRegister(r.proxyRequests, r.geoLookups, r.httpRequests)
	if opts.RuntimeCollectors {
		r.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return r
}

// RecordProxyRequest counts one /proxy request. Label values are coerced to
// valid UTF-8 so every request is counted.
func (r *Recorder) RecordProxyRequest(country, ambientVersion string) {
	if country == "" {
		country = region.UnknownCountry
	}
	country = strings.ToValidUTF8(country, "\uFFFD")
	ambientVersion = strings.ToValidUTF8(ambientVersion, "\uFFFD")

	logging.Debug("Incrementing proxy request counter",
		zap.String("country", country),
		zap.String("ambient_version", ambientVersion),
	)
	inc(r.proxyRequests, country, ambientVersion)
}

// RecordGeoLookup counts one GeoIP lookup outcome.
func (r *Recorder) RecordGeoLookup(result string) {
	inc(r.geoLookups, result)
}

// inc never panics on bad label values; a rejected sample is logged instead.
func inc(vec *prometheus.CounterVec, lvs ...string) {
	c, err := vec.GetMetricWithLabelValues(lvs...)
	if err != nil {
		logging.Debug("Dropping counter sample", zap.Strings("labels", lvs), zap.Error(err))
		return
	}
	c.Inc()
}

// InstrumentHandler counts requests served by h under the given handler name.
func (r *Recorder) InstrumentHandler(name string, h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(
		r.httpRequests.MustCurryWith(prometheus.Labels{"handler": name}),
		h,
	)
}

// Render encodes the whole registry in the OpenMetrics text format.
func (r *Recorder) Render() ([]byte, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeOpenMetrics))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		if err := closer.Close(); err != nil {
			return nil, fmt.Errorf("finalize metrics: %w", err)
		}
	}
	return buf.Bytes(), nil
}
