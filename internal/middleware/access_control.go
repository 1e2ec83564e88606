package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// AdminPolicy restricts cache-mutating requests to known client addresses.
type AdminPolicy struct {
	// AllowedIPs holds exact addresses or CIDR ranges.
	AllowedIPs []string
	// Protected reports whether a request needs admin access.
	Protected func(r *http.Request) bool
}

func (p AdminPolicy) allows(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, allowed := range p.AllowedIPs {
		allowed = strings.TrimSpace(allowed)
		if strings.Contains(allowed, "/") {
			if _, network, err := net.ParseCIDR(allowed); err == nil && network.Contains(ip) {
				return true
			}
			continue
		}
		if other := net.ParseIP(allowed); other != nil && other.Equal(ip) {
			return true
		}
	}
	return false
}

// WithAdminAccessControl rejects protected requests from addresses outside the policy.
func WithAdminAccessControl(policy AdminPolicy, logger *slog.Logger, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			logger.Info("admin access control is disabled")
			return next
		}
		logger.Info("admin access control enabled", "allowed_ips", policy.AllowedIPs)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy.Protected != nil && policy.Protected(r) && !policy.allows(r.RemoteAddr) {
				logger.Warn("admin request denied",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, "Access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
