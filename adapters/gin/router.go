// Package authgin mounts the backend's HTTP surface on a gin engine.
package authgin

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/adapters/gin/handlers"
	"github.com/daybeamapp/golfkit/adapters/ginutil"
	"github.com/daybeamapp/golfkit/billing"
	"github.com/daybeamapp/golfkit/entitlements"
	jwtkit "github.com/daybeamapp/golfkit/jwt"
	"github.com/daybeamapp/golfkit/metrics"
)

// Deps carries everything the routes need. RateLimiter and Verifier may be
// nil; the entitlements route then runs unthrottled / rejects all callers.
type Deps struct {
	Billing       *billing.Service
	Store         entitlements.Store
	Verifier      *jwtkit.Verifier
	RateLimiter   ginutil.RateLimiter
	WebhookSecret string
	Logger        logrus.FieldLogger
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestMetrics())

	r.GET("/healthz", handlers.HandleHealthGET())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// The webhook route owns its method handling (OPTIONS/405), so it is
	// registered for every verb.
	r.Any("/webhooks/revenuecat", handlers.HandleBillingWebhookPOST(d.Billing, d.WebhookSecret, log))

	r.GET("/v1/entitlements", handlers.HandleEntitlementsGET(d.Store, d.Verifier, d.RateLimiter, log))

	return r
}

// requestID echoes the caller's X-Request-ID or assigns one, so webhook
// deliveries can be correlated with log lines.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// requestMetrics records request counts and latency. gin's FullPath keeps
// label cardinality bounded to registered routes.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
