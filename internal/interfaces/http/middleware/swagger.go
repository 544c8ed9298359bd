package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// SwaggerConfig controls access to the API documentation endpoint.
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	// AllowedIPs accepts single addresses and CIDR ranges. Empty allows all.
	AllowedIPs []string
}

// SwaggerProtection guards /swagger. Disabled deployments answer 404 so the
// endpoint's existence is not advertised; otherwise the IP whitelist and the
// JWT check stack in that order.
func SwaggerProtection(cfg SwaggerConfig, jwtMiddleware gin.HandlerFunc) gin.HandlerFunc {
	whitelist := parseWhitelist(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound,
				dto.NewErrorResponse("NOT_FOUND", "API documentation is not available"))
			return
		}

		if len(cfg.AllowedIPs) > 0 && !whitelist.contains(clientIP(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse("FORBIDDEN", "Access to API documentation is restricted"))
			return
		}

		if cfg.RequireAuth && jwtMiddleware != nil {
			jwtMiddleware(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

type ipWhitelist []*net.IPNet

// parseWhitelist normalizes single addresses to host-length CIDRs so every
// entry is matched the same way. Unparseable entries are dropped.
func parseWhitelist(entries []string) ipWhitelist {
	nets := make(ipWhitelist, 0, len(entries))
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			}
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}

func (w ipWhitelist) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range w {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP resolves the caller's address, falling back to RemoteAddr when
// gin cannot determine one through the trusted-proxy headers.
func clientIP(c *gin.Context) net.IP {
	if ip := net.ParseIP(c.ClientIP()); ip != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return net.ParseIP(host)
}
