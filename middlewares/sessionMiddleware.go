package middlewares

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the "token" header into a username. Sessions are
// kept in Redis under "Token:<token>"; when the session is not cached the token
// is validated as a JWT instead, so service restarts don't log everyone out.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}

		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			parsed, jwtErr := utils.JwtValidate(token)
			if jwtErr != nil || !parsed.Valid {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			if claims, ok := parsed.Claims.(*utils.JwtCustomClaim); ok {
				username = claims.Username
			}
		}

		ctx := context.WithValue(c.Request.Context(), utils.ContextKeyToken, token)
		ctx = context.WithValue(ctx, utils.ContextKeyUsername, username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
