package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/billing"
)

// HandleBillingWebhookPOST processes billing lifecycle webhooks. It is meant
// to be registered for all methods on its route: the sender's preflight and
// stray verbs are answered here so the contract stays in one place.
//
// The caller authenticates with an exact-match secret in the Authorization
// header. Internal failures all map to one generic 500 payload; detail goes
// to the logs only, never back to the sender.
func HandleBillingWebhookPOST(svc *billing.Service, secret string, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodOptions:
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Status(http.StatusNoContent)
			return
		case http.MethodPost:
		default:
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
			return
		}

		// Fail closed when no secret is configured; never fall through to
		// processing.
		if secret == "" {
			log.Error("billing webhook secret is not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
			return
		}
		auth := c.GetHeader("Authorization")
		if subtle.ConstantTimeCompare([]byte(auth), []byte(secret)) != 1 {
			log.Warn("billing webhook rejected: bad authorization")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		log.WithField("remote_addr", c.ClientIP()).Info("billing webhook received")

		var env billing.Envelope
		if err := c.ShouldBindJSON(&env); err != nil {
			log.WithError(err).Error("billing webhook body malformed")
			serverError(c)
			return
		}

		out, err := svc.ProcessEvent(c.Request.Context(), env)
		if err != nil {
			log.WithError(err).WithField("event_type", string(env.Event.Type)).Error("billing event processing failed")
			serverError(c)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "processed",
			"event_type":  out.EventType,
			"environment": out.Environment,
			"user_id":     out.UserID,
		})
	}
}

func serverError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "Server error processing webhook",
	})
}
