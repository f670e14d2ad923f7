package core

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/caasmo/gatekeeper/config"
)

// UnknownIP is returned by ClientIP when no source yields an address.
const UnknownIP = "unknown"

// HeaderForwardedUri and HeaderForwardedHost are set by the reverse proxy on
// forward-auth subrequests.
const (
	HeaderForwardedUri  = "X-Forwarded-Uri"
	HeaderForwardedHost = "X-Forwarded-Host"
)

// ClientIP extracts the client IP from the request.
//
// Precedence: the trusted real IP headers in order, then the first entry of
// the forwarded header, then the peer address. A header whose value is empty
// or not an IP address is skipped. The value is returned as sent, only
// trimmed.
func ClientIP(r *http.Request, cfg config.ClientIp) string {
	for _, name := range cfg.TrustedHeaders {
		if ip, ok := headerIP(r.Header.Get(name)); ok {
			return ip
		}
	}

	if cfg.ForwardedHeader != "" {
		if forwarded := r.Header.Get(cfg.ForwardedHeader); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip, ok := headerIP(first); ok {
				return ip
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip = strings.TrimSpace(ip); ip == "" {
		return UnknownIP
	}
	return ip
}

// ClientIP uses the configured headers.
func (a *App) ClientIP(r *http.Request) string {
	return ClientIP(r, a.Config().Server.ClientIp)
}

func headerIP(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if _, err := netip.ParseAddr(value); err != nil {
		return "", false
	}
	return value, true
}

// PeerIP is the address of the directly connected peer, port stripped.
func PeerIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// OriginalPath is the path the client asked the proxy for.
func OriginalPath(r *http.Request) string {
	if uri := r.Header.Get(HeaderForwardedUri); uri != "" {
		return uri
	}
	return r.URL.Path
}

// OriginalHost is the host the client asked the proxy for.
func OriginalHost(r *http.Request) string {
	if host := r.Header.Get(HeaderForwardedHost); host != "" {
		return host
	}
	return r.Host
}
