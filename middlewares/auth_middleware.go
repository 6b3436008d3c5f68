package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/utils"
)

// DeviceAuthMiddleware memvalidasi device token di setiap request API lokal.
// Token juga diterima lewat query (?token=) untuk upgrade WebSocket.
func DeviceAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := utils.ParseDeviceToken(token)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired device token"))
			c.Abort()
			return
		}

		c.Set("deviceID", claims.DeviceID)
		c.Next()
	}
}
