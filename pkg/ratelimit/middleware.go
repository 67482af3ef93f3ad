package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moviebooking/internal/shared/utils/response"
	"moviebooking/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware applies the bucket of the matched route to the caller's IP.
// A Redis failure lets the request through: losing the limiter must not take
// booking down with it.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	log := logger.GetDefault()

	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		route := c.FullPath()

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, getRateLimitType(route))
		if err != nil {
			log.Warn("rate limit check failed, allowing request", "ip", clientIP, "route", route, "error", err)
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, route)
			retryAfter := time.Until(time.Unix(result.ResetTime, 0)).Seconds()
			header.Set("Retry-After", strconv.Itoa(max(1, int(retryAfter))))
			response.RespondJSON(c, "error", http.StatusTooManyRequests, "Rate limit exceeded", nil, gin.H{
				"limit":      result.Limit,
				"reset_time": result.ResetTime,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type routeRule struct {
	matches func(route string) bool
	bucket  RateLimitType
}

func prefix(p string) func(string) bool   { return func(r string) bool { return strings.HasPrefix(r, p) } }
func contains(s string) func(string) bool { return func(r string) bool { return strings.Contains(r, s) } }
func suffix(s string) func(string) bool   { return func(r string) bool { return strings.HasSuffix(r, s) } }

// first match wins, so narrower rules come first
var routeRules = []routeRule{
	{prefix("/health"), RateLimitTypeHealth},
	{prefix("/ping"), RateLimitTypeHealth},
	{prefix("/status"), RateLimitTypeHealth},
	{contains("/admin/stats"), RateLimitTypeAnalytics},
	{contains("/admin/"), RateLimitTypeAdmin},
	{contains("/auth/"), RateLimitTypeAuth},
	{suffix("/bookings"), RateLimitTypeBooking},
	{contains("/tickets"), RateLimitTypeBooking},
	{contains("/movies"), RateLimitTypePublic},
}

// getRateLimitType maps a route template to its bucket
func getRateLimitType(route string) RateLimitType {
	for _, rule := range routeRules {
		if rule.matches(route) {
			return rule.bucket
		}
	}
	return RateLimitTypeDefault
}

// getClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func getClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
