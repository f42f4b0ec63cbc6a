package httpapi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const unknownCountry = "ZZ"

// Proxy headers in trust order; the socket address is the last resort.
var (
	clientIPHeaders = []string{"Fly-Client-IP", "CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}
	countryHeaders  = []string{"Fly-Client-Country", "CF-IPCountry", "X-Vercel-IP-Country", "X-AppEngine-Country", "CloudFront-Viewer-Country"}
)

// clientInfo is what request logs record about the caller.
type clientInfo struct {
	IP      string
	Country string
}

func clientInfoFrom(r *http.Request) clientInfo {
	return clientInfo{IP: resolveClientIP(r), Country: resolveCountryCode(r)}
}

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

func resolveCountryCode(r *http.Request) string {
	for _, header := range countryHeaders {
		if code, ok := parseCountry(r.Header.Get(header)); ok {
			return code
		}
	}
	return unknownCountry
}

// parseClientAddr takes the first hop of a forwarded list and drops any port.
func parseClientAddr(raw string) (netip.Addr, bool) {
	value, _, _ := strings.Cut(raw, ",")
	value = strings.TrimSpace(value)
	if value == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func parseCountry(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 2 || code == unknownCountry {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", false
		}
	}
	return code, true
}
