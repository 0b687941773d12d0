package validation

import (
	"net/netip"
	"strings"
)

// UnknownIP stands in for a missing or malformed client address.
const UnknownIP = "unknown"

// HeaderGetter returns a request header value.
type HeaderGetter func(key string) string

// ClientIP extracts the client address from proxy headers: the first entry of
// X-Forwarded-For, then X-Real-IP. The result is a canonical IPv4/IPv6 string
// or UnknownIP. It is context for logging and limiting, never authorization.
func ClientIP(get HeaderGetter) string {
	if xff := get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return NormalizeIP(first)
	}
	if xri := get("X-Real-IP"); xri != "" {
		return NormalizeIP(xri)
	}
	return UnknownIP
}

// NormalizeIP parses raw strictly (no leading zeros, octets 0-255, no zones)
// and returns its canonical form, or UnknownIP.
func NormalizeIP(raw string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || addr.Zone() != "" {
		return UnknownIP
	}
	return addr.Unmap().String()
}

// IsPublicIP reports whether ip is a routable address worth a geolocation
// lookup. Loopback, private, link-local, unspecified and unknown are not.
func IsPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return !(addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified())
}
