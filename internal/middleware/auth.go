// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trademark-backend/internal/i18n"
	"github.com/javajoker/trademark-backend/internal/utils"
)

// AuthRequired verifies the bearer token and stores the caller's identity
// on the context. Tokens are issued elsewhere.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthRequired))
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.AbortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthInvalidToken))
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthInvalidToken))
			return
		}

		// ValidateJWT already rejected malformed ids
		userID, _ := uuid.Parse(claims.UserID)
		c.Set(utils.ContextUserID, userID)
		c.Set(utils.ContextRole, claims.Role)
		c.Set(utils.ContextEmail, claims.Email)
		c.Next()
	}
}

func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !utils.IsAdmin(c) {
			utils.AbortWithError(c, http.StatusForbidden, "FORBIDDEN", i18n.T(utils.GetLangFromContext(c), i18n.KeyAdminAccessDenied))
			return
		}
		c.Next()
	}
}
