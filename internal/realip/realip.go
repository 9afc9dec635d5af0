// Package realip determines the client address a request originated from.
package realip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// contextKey is the type for the real IP context key.
type contextKey struct{}

// Extractor resolves the client IP of a request. Forwarding headers are only
// honored when the transport peer is a trusted proxy.
type Extractor struct {
	trusted []netip.Prefix
	headers []string // ordered list of headers to check
	maxHops int      // 0 = unlimited
}

// New creates an Extractor from a list of trusted proxy CIDRs or bare IPs.
func New(cidrs []string, headers []string, maxHops int) (*Extractor, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		p, err := ParsePrefix(cidr)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}

	if len(headers) == 0 {
		headers = []string{"X-Forwarded-For", "X-Real-IP"}
	}

	return &Extractor{
		trusted: prefixes,
		headers: headers,
		maxHops: maxHops,
	}, nil
}

// ParsePrefix accepts a CIDR or a bare address, which is treated as a
// single-host prefix.
func ParsePrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
		}
		return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
	}
	return p.Masked(), nil
}

// Extract determines the client IP of r. Without trusted proxies this is
// always the transport peer. When the peer is trusted, X-Forwarded-For is
// walked from right to left and the first untrusted hop is returned.
func (e *Extractor) Extract(r *http.Request) string {
	remoteIP := extractHost(r.RemoteAddr)

	if len(e.trusted) == 0 || !e.isTrusted(remoteIP) {
		return remoteIP
	}

	for _, header := range e.headers {
		val := r.Header.Get(header)
		if val == "" {
			continue
		}

		if strings.EqualFold(header, "X-Forwarded-For") {
			if ip := e.walkXFF(val); ip != "" {
				return ip
			}
		} else if ip := strings.TrimSpace(val); ip != "" {
			// Single-value headers like X-Real-IP
			return ip
		}
	}

	return remoteIP
}

// walkXFF returns the first hop from the right that is not a trusted proxy.
func (e *Extractor) walkXFF(xff string) string {
	parts := strings.Split(xff, ",")

	hops := 0
	for i := len(parts) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(parts[i])
		if ip == "" {
			continue
		}
		hops++

		if e.maxHops > 0 && hops > e.maxHops {
			return ip
		}
		if !e.isTrusted(ip) {
			return ip
		}
	}

	// All hops trusted: the leftmost is the best we have.
	return strings.TrimSpace(parts[0])
}

func (e *Extractor) isTrusted(ipStr string) bool {
	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range e.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Middleware stores the extracted client IP in the request context.
func (e *Extractor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKey{}, e.Extract(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext retrieves the client IP stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKey{}).(string); ok {
		return ip
	}
	return ""
}

// extractHost extracts the host part from an address (strips port).
func extractHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
