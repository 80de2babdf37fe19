package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/adapters/ginutil"
	"github.com/daybeamapp/golfkit/entitlements"
	jwtkit "github.com/daybeamapp/golfkit/jwt"
)

// HandleEntitlementsGET returns the caller's permission records. This is the
// read side the app uses to gate premium features; the caller is identified
// by a bearer token from the auth platform.
func HandleEntitlementsGET(store entitlements.Store, verifier *jwtkit.Verifier, rl ginutil.RateLimiter, log logrus.FieldLogger) gin.HandlerFunc {
	type entitlementView struct {
		PermissionID string     `json:"permission_id"`
		Active       bool       `json:"active"`
		ExpiresAt    *time.Time `json:"expires_at,omitempty"`
		ProductID    string     `json:"product_id,omitempty"`
		Platform     string     `json:"platform,omitempty"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLEntitlementsGet) {
			ginutil.TooMany(c)
			return
		}
		if verifier == nil {
			// No auth platform configured; nobody can be identified.
			ginutil.Unauthorized(c)
			return
		}
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		userID, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Debug("entitlements request rejected: bad token")
			ginutil.Unauthorized(c)
			return
		}

		perms, err := store.ListByProfile(c.Request.Context(), userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("entitlements lookup failed")
			ginutil.ServerError(c, "internal_error")
			return
		}
		now := time.Now()
		out := make([]entitlementView, 0, len(perms))
		for _, p := range perms {
			out = append(out, entitlementView{
				PermissionID: p.PermissionID,
				Active:       p.ActiveAt(now),
				ExpiresAt:    p.ExpiresAt,
				ProductID:    p.ProductID,
				Platform:     string(p.Platform),
			})
		}
		c.JSON(http.StatusOK, gin.H{"entitlements": out})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
