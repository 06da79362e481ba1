// Package security gates inbound requests: CORS, optional IP allow list,
// per-caller rate limiting and admin-secret resolution. The admin secret
// is a single shared key compared by equality; there is no user identity.
package security

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"parrotdb/pkg/logger"
)

type Role int

const (
	RolePublic Role = iota
	RoleAdmin
)

const roleHeader = "X-Role-Name"

type SecConfig struct {
	AdminKey       string
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
}

// Middleware authenticates and rate-limits every request. Chat endpoints
// stay public; the resolved role is exposed to handlers via the
// X-Role-Name header.
func Middleware(cfg SecConfig) func(http.Handler) http.Handler {
	limiters := &limiterPool{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogRequest(r)

			origin := r.Header.Get("Origin")
			if origin != "" && originAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Admin-Key")
				w.Header().Set("Access-Control-Max-Age", "600")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if len(cfg.IPWhitelist) > 0 {
				ip := clientIP(r)
				if !ipWhitelisted(ip, cfg.IPWhitelist) {
					logger.Warn("request_blocked", zap.String("reason", "ip_not_whitelisted"),
						zap.String("ip", ip), zap.String("path", r.URL.Path))
					http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
					return
				}
			}

			role, key := resolveRole(r, cfg)
			switch role {
			case RoleAdmin:
				r.Header.Set(roleHeader, "admin")
			default:
				r.Header.Set(roleHeader, "public")
			}

			// health probes bypass rate limiting
			if r.URL.Path != "/healthz" && r.URL.Path != "/readyz" {
				if !limiters.Allow(key) {
					logger.Warn("rate_limited", zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
					http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IsAdmin reports whether the middleware resolved the caller as admin.
func IsAdmin(r *http.Request) bool { return r.Header.Get(roleHeader) == "admin" }

// resolveRole checks the shared admin secret from the X-Admin-Key header
// or the password query parameter. The rate-limit key is the admin secret
// match marker or the client IP.
func resolveRole(r *http.Request, cfg SecConfig) (Role, string) {
	if cfg.AdminKey != "" {
		supplied := r.Header.Get("X-Admin-Key")
		if supplied == "" {
			supplied = r.URL.Query().Get("password")
		}
		if supplied != "" && subtle.ConstantTimeCompare([]byte(supplied), []byte(cfg.AdminKey)) == 1 {
			return RoleAdmin, "admin"
		}
	}
	return RolePublic, clientIP(r)
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipWhitelisted(ip string, allowed []string) bool {
	for _, a := range allowed {
		if a == ip {
			return true
		}
		if _, cidr, err := net.ParseCIDR(a); err == nil {
			if p := net.ParseIP(ip); p != nil && cidr.Contains(p) {
				return true
			}
		}
	}
	return false
}
