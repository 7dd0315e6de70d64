package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller's address from r.RemoteAddr. The router runs
// chi's RealIP middleware first, which replaces RemoteAddr with the
// X-Real-IP / X-Forwarded-For address when a proxy supplies one.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// ClientNetwork returns the address quote limits are counted against: the
// IPv4 address itself, or the /64 an IPv6 address belongs to, since one
// subscriber usually controls a whole IPv6 /64.
func ClientNetwork(r *http.Request) string {
	ip := ClientIP(r)
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ip
	}
	addr = addr.Unmap()
	if addr.Is4() {
		return addr.String()
	}
	prefix, err := addr.Prefix(64)
	if err != nil {
		return ip
	}
	return prefix.String()
}
