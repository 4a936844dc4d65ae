package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxy headers, most trusted first
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// getProxyClientIP trusts forwarding headers but never a private or loopback
// address found in them, those fall through to the socket address.
func getProxyClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" {
			continue
		}

		// X-Forwarded-For: client, proxy1, proxy2
		first, _, _ := strings.Cut(value, ",")
		addr, err := netip.ParseAddr(strings.TrimSpace(first))
		if err != nil || isInternalAddr(addr) {
			continue
		}
		return addr.String()
	}

	return getDirectClientIPValidated(r)
}

// getDirectClientIPValidated returns "" when RemoteAddr holds no valid ip.
func getDirectClientIPValidated(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(host))
	if err != nil {
		return ""
	}
	return addr.String()
}

func isInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}
