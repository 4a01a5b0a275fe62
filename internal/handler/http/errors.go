package http

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ludobackend/internal/apierror"
)

// HandleServiceError maps a service-layer error to the {success, error}
// envelope via its apierror.Kind, logging anything that fell through to
// KindInternal for investigation.
func HandleServiceError(c *gin.Context, err error) {
	apiErr := apierror.As(err)
	if apiErr.Kind == apierror.KindInternal {
		logrus.WithError(err).Error("unhandled internal error")
	}
	Failure(c, apiErr.HTTPStatus(), apiErr.Message)
}

// userID extracts the authenticated caller's ID set by middleware.Auth.
func userID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
