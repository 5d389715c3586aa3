package main

import (
	"time"

	"telecom-rating/internal/httpapi"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	authMW    gin.HandlerFunc
	lookupCap httpapi.ConcurrencyCap
	health    map[string]httpapi.Check
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, deps routeDeps) {
	// public
	r.GET("/healthz", httpapi.Health(3*time.Second, deps.health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpapi.Register(r, h, deps.authMW, httpapi.LimitConcurrentLookups(deps.lookupCap))
}
