package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// MBeanCall is the managed-object access behind an admin request.
type MBeanCall struct {
	Kind   string // info, attribute or operation
	Name   string
	Member string
}

// MBeanCallOf maps a matched /mbeans route to the access it performs.
func MBeanCallOf(c *gin.Context) (MBeanCall, bool) {
	switch c.FullPath() {
	case "/mbeans/:name":
		return MBeanCall{Kind: "info", Name: c.Param("name")}, true
	case "/mbeans/:name/attributes/:attr":
		return MBeanCall{Kind: "attribute", Name: c.Param("name"), Member: c.Param("attr")}, true
	case "/mbeans/:name/operations/:op":
		return MBeanCall{Kind: "operation", Name: c.Param("name"), Member: c.Param("op")}, true
	}
	return MBeanCall{}, false
}

// AdminRequestLogger logs one line per admin request, with the managed
// object and member when the route addresses one.
func AdminRequestLogger(logger zerolog.Logger, service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event = event.
			Str("service", service).
			Str("method", c.Request.Method).
			Str("route", routeOf(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if call, ok := MBeanCallOf(c); ok {
			event = event.Str("mbean", call.Name).Str("call", call.Kind)
			if call.Member != "" {
				event = event.Str("member", call.Member)
			}
		}
		event.Msg("admin request")
	}
}

// AdminMetrics records request counts per route and, for /mbeans routes,
// per managed-object call.
func AdminMetrics(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		RecordHTTPRequest(service, c.Request.Method, routeOf(c), status, time.Since(start))
		if call, ok := MBeanCallOf(c); ok {
			RecordMBeanCall(service, call.Kind, call.Member, status)
		}
	}
}

// routeOf prefers the route template so names never become labels.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
