package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ludobackend/internal/apierror"
)

// userIDParser is the capability the middleware needs from AuthService,
// narrowed so this package doesn't import the full service surface.
type userIDParser interface {
	ParseUserID(tokenString string) (uint, error)
}

// Auth returns a middleware that validates a Bearer JWT and sets "user_id"
// on the gin context for downstream handlers and the WebSocket upgrade path.
func Auth(parser userIDParser) gin.HandlerFunc {
	if parser == nil {
		panic("userIDParser cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			logrus.Debug("auth middleware: missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": apierror.ErrUnauthorized.Message})
			c.Abort()
			return
		}

		userID, err := parser.ParseUserID(token)
		if err != nil {
			logrus.WithError(err).Debug("auth middleware: token rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": apierror.ErrUnauthorized.Message})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
