package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedRealIP rewrites RemoteAddr from X-Real-IP or the first
// X-Forwarded-For entry, but only for connections from a trusted proxy
// prefix. Entries may be CIDRs or single addresses. Untrusted clients keep
// their connection address so they cannot spoof the rate limiter.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	var prefixes []netip.Prefix
	for _, entry := range trusted {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if remote, ok := parseAddr(r.RemoteAddr); ok && trustedAddr(remote, prefixes) {
				if client, ok := forwardedFor(r); ok {
					r.RemoteAddr = client.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the client address of r without the port.
func ClientIP(r *http.Request) string {
	if addr, ok := parseAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}

// forwardedFor reads the client address set by a proxy.
func forwardedFor(r *http.Request) (netip.Addr, bool) {
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return parseAddr(rip)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return parseAddr(first)
	}
	return netip.Addr{}, false
}

// parseAddr accepts "host:port" or a bare address.
func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func trustedAddr(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
