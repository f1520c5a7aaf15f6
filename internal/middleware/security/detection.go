// Package security holds the response-header and request-screening
// middleware of the dashboard.
package security

import (
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"

	applog "finboard/internal/log"
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector screens requests for probes and resolves client addresses
// behind trusted proxies.
type Detector struct {
	suspicious atomic.Int64
	invalidIP  atomic.Int64
	proxies    []netip.Prefix
	logger     *applog.Logger
}

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	return &Detector{
		proxies: []netip.Prefix{
			netip.MustParsePrefix("127.0.0.0/8"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("172.16.0.0/12"),
			netip.MustParsePrefix("192.168.0.0/16"),
			netip.MustParsePrefix("::1/128"),
		},
		logger: applog.WithComponent(applog.ComponentSecurity),
	}
}

// probeMarkers never occur in a dashboard path or query.
var probeMarkers = []string{
	"../", "..\\", ".env", ".git", ".ssh", "etc/passwd",
	"wp-admin", "phpmyadmin", "admin.php", "config.php", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

// blockedMethods are refused outright.
var blockedMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

const (
	maxURLLength = 4096
	maxProxyHops = 6
)

// Screen returns why r looks like a probe, or "" when it does not.
func (d *Detector) Screen(r *http.Request) string {
	reason := screen(r)
	if reason != "" {
		d.suspicious.Add(1)
	}
	return reason
}

func screen(r *http.Request) string {
	if slices.Contains(blockedMethods, r.Method) {
		return "method " + r.Method
	}
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, m := range probeMarkers {
		if strings.Contains(target, m) {
			return "probe " + m
		}
	}
	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "scanner " + a
		}
	}
	if len(r.URL.String()) > maxURLLength {
		return "long url"
	}
	if xff := r.Header.Get("X-Forwarded-For"); strings.Count(xff, ",") >= maxProxyHops {
		return "proxy chain"
	}
	return ""
}

// ExtractClientIP returns the peer address, or the forwarded client address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !d.trusted(addr) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := d.validIP(first); ok {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip, ok := d.validIP(xri); ok {
			return ip
		}
	}
	return peer
}

func (d *Detector) validIP(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if _, err := netip.ParseAddr(s); err != nil {
		d.invalidIP.Add(1)
		return "", false
	}
	return s, true
}

func (d *Detector) trusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range d.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs suspicious requests and refuses blocked methods. Other
// probes pass through.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := d.Screen(r); reason != "" {
			d.logger.WarnContext(r.Context(), "Suspicious request",
				"reason", reason,
				applog.FieldClientIP, d.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
			if slices.Contains(blockedMethods, r.Method) {
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
