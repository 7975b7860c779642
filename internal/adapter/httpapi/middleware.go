package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// RequireUser reads the authenticated user id from the X-User-ID header.
// The gateway in front of this service owns authentication; this layer only
// refuses requests that arrive without an identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				errorBody{Error: "missing or invalid user identity", Kind: "unauthenticated"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
