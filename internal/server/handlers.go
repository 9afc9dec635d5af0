package server

import (
	"net/http"

	"github.com/wudi/proxymanager/internal/errors"
	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/metrics"
	"github.com/wudi/proxymanager/internal/realip"
	"github.com/wudi/proxymanager/internal/routing"
	"go.uber.org/zap"
)

const textPlain = "text/plain; charset=utf-8"

// handleProxy answers with the host:port of the proxy the client should use.
func (a *App) handleProxy(w http.ResponseWriter, r *http.Request) {
	in := routing.Input{
		IP:        realip.FromContext(r.Context()),
		UserAgent: r.UserAgent(),
	}
	if a.countryHeader != "" {
		in.CountryHeader = r.Header.Get(a.countryHeader)
	}

	d := a.pipeline.Decide(in)

	w.Header().Set("Content-Type", textPlain)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(d.Proxy))
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body, err := a.recorder.Render()
	if err != nil {
		herr := errors.Wrap(err, http.StatusInternalServerError, "Internal Server Error")
		logging.Error("Failed to render metrics", zap.Error(herr))
		herr.WriteJSON(w)
		return
	}

	w.Header().Set("Content-Type", metrics.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", textPlain)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
