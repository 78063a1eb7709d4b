package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Checked in order before the socket address. The site runs behind a CDN
// and an edge proxy, so their headers come first.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"Fly-Client-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// resolveClientIP returns the viewer address used in access and stream logs,
// or "" when nothing parses.
func resolveClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		if addr, ok := parseClientAddr(r.Header.Get(header)); ok {
			return addr.String()
		}
	}
	if addr, ok := parseClientAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return ""
}

// parseClientAddr takes the first entry of a forwarded list and accepts
// bare addresses as well as host:port pairs.
func parseClientAddr(raw string) (netip.Addr, bool) {
	value, _, _ := strings.Cut(raw, ",")
	value = strings.TrimSpace(value)
	if value == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}

	addr, err := netip.ParseAddr(strings.Trim(value, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
