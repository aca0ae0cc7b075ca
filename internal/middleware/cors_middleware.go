package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const corsAllowHeaders = "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Business-Id"

// OriginPolicy decides which browser origins may talk to the API. It backs
// both the CORS headers and the chat socket upgrade check.
type OriginPolicy struct {
	any   bool
	hosts map[string]bool
}

// NewOriginPolicy builds a policy from host[:port] entries; "*" allows any origin.
func NewOriginPolicy(hosts []string) *OriginPolicy {
	p := &OriginPolicy{hosts: make(map[string]bool, len(hosts))}
	for _, h := range hosts {
		h = normalizeHost(h)
		switch h {
		case "":
		case "*":
			p.any = true
		default:
			p.hosts[h] = true
		}
	}
	return p
}

// Allows reports whether origin ("scheme://host[:port]") is accepted.
func (p *OriginPolicy) Allows(origin string) bool {
	host := originHost(origin)
	if host == "" {
		return false
	}
	return p.any || p.hosts[host]
}

// CheckOrigin is a websocket.Upgrader CheckOrigin. Non-browser clients
// (no Origin) and same-host pages are always accepted.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if host := originHost(origin); host != "" && host == normalizeHost(r.Host) {
		return true
	}
	return p.Allows(origin)
}

// normalizeHost lowercases and strips default ports, so "app.example.com:443"
// matches "app.example.com".
func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if strings.HasSuffix(h, ":443") || strings.HasSuffix(h, ":80") {
		h, _, _ = strings.Cut(h, ":")
	}
	return h
}

func originHost(raw string) string {
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "/"))
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return normalizeHost(u.Host)
}

// requestOrigin returns the Origin header, falling back to the scheme and
// host of the Referer.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return strings.TrimSpace(strings.TrimSuffix(origin, "/"))
	}
	if ref := r.Header.Get("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host
		}
	}
	return ""
}

// CORSMiddleware echoes allowed dashboard origins and answers preflights.
func CORSMiddleware(policy *OriginPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := requestOrigin(c.Request); policy.Allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
