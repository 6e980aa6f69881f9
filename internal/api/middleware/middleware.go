package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	metrics "github.com/rcrowley/go-metrics"
)

// corsMaxAge is how long browsers may cache a preflight answer
const corsMaxAge = 10 * time.Minute

// routeName is the registered route pattern, so /block/840000 and
// /block/0 share one timer
func routeName(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// Logger logs each request with its route pattern and latency, and records
// an http.<route> timer and an http.status.<N>xx counter in registry.
// HTTP/2 connection prefaces sent to the plain listener are rejected.
func Logger(registry metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "PRI" {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := routeName(c)
		status := c.Writer.Status()
		metrics.GetOrRegisterTimer("http."+route, registry).Update(latency)
		metrics.GetOrRegisterCounter(fmt.Sprintf("http.status.%dxx", status/100), registry).Inc(1)

		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		log.Printf("[API] %s %s (%s) %d %v", c.Request.Method, target, route, status, latency)
	}
}

// Recovery turns a handler panic into a JSON 500 and counts it as
// http.panics in registry
func Recovery(registry metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if v := recover(); v != nil {
				metrics.GetOrRegisterCounter("http.panics", registry).Inc(1)
				log.Printf("[API] panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, v)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// CORS allows any origin to read the API. Only GET is served, so
// preflights are answered here without reaching the router.
func CORS() gin.HandlerFunc {
	maxAge := strconv.Itoa(int(corsMaxAge.Seconds()))
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", maxAge)
		c.AbortWithStatus(http.StatusNoContent)
	}
}
