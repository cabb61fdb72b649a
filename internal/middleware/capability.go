package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ctos-api/internal/policy"
	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
	"github.com/noah-isme/ctos-api/pkg/response"
)

// RequireCapability rejects requests whose active role lacks any of the
// listed capabilities. It must run after JWT.
func RequireCapability(capabilities ...policy.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		role := claims.EffectiveRole()
		for _, capability := range capabilities {
			if err := policy.Authorize(role, capability); err != nil {
				response.Error(c, err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
