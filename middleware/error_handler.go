package middleware

import (
	"net/http"
	"runtime/debug"

	"menthub/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler provides panic recovery and centralized handling of errors
// attached to the gin context.
type ErrorHandler struct {
	environment string
}

func NewErrorHandler(environment string) *ErrorHandler {
	return &ErrorHandler{environment: environment}
}

func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			eh.handleGinErrors(c)
		}
	}
}

func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	logrus.WithFields(logrus.Fields{
		"panic":      err,
		"stack":      string(debug.Stack()),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}).Error("Panic recovered")

	if eh.environment == "development" {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", map[string]interface{}{
			"panic": err,
		})
	} else {
		utils.InternalServerErrorResponse(c, "Internal server error")
	}
	c.Abort()
}

func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	err := c.Errors.Last().Err

	if utils.IsServiceError(err) {
		utils.ServiceErrorResponse(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
	}).WithError(err).Error("Unhandled request error")

	utils.InternalServerErrorResponse(c, "Internal server error")
}
