package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
)

// CronSecret guards scheduler trigger endpoints with a shared bearer secret.
// An empty secret rejects every call.
func CronSecret(secret string) gin.HandlerFunc {
	expected := []byte(secret)
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || len(expected) == 0 || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.CronErrorResponse{
				Success:   false,
				Error:     "Unauthorized",
				Timestamp: time.Now().UTC(),
			})
			return
		}
		c.Next()
	}
}
