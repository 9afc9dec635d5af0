// Package accesslog writes one structured log entry per served request.
package accesslog

import (
	"net/http"
	"time"

	"github.com/wudi/proxymanager/internal/logging"
	"github.com/wudi/proxymanager/internal/realip"
	"go.uber.org/zap"
)

// quietPaths are probed constantly by load balancers and logged at debug.
var quietPaths = map[string]bool{
	"/health":     true,
	"/_ah/health": true,
	"/metrics":    true,
}

// Middleware logs method, path, status, size and latency of each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)

		next.ServeHTTP(sw, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.statusCode),
			zap.Int("bytes", sw.bytes),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", realip.FromContext(r.Context())),
			zap.String("user_agent", r.UserAgent()),
		}

		if quietPaths[r.URL.Path] && sw.statusCode < http.StatusInternalServerError {
			logging.Debug("HTTP request", fields...)
			return
		}
		logging.Info("HTTP request", fields...)
	})
}
