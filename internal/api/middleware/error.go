package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	pkgerrors "github.com/nutrifit-ops/scan-telemetry-go/pkg/errors"
)

// ErrorHandlingMiddleware recovers panics and renders a standardized error
// response.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"ip":          c.ClientIP(),
			"panic":       fmt.Sprintf("%v", recovered),
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in API middleware")

		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     "Internal server error",
			"timestamp": time.Now().Format(time.RFC3339),
			"path":      c.Request.URL.Path,
		})
		c.Abort()
	})
}

// ErrorResponseMiddleware converts handler errors to standardized responses
func ErrorResponseMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := pkgerrors.GetStatusCode(err)

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
			"error":  err.Error(),
		}).Error("API request error")

		if !c.Writer.Written() {
			c.JSON(status, gin.H{
				"success":   false,
				"error":     err.Error(),
				"timestamp": time.Now().Format(time.RFC3339),
				"path":      c.Request.URL.Path,
			})
		}
	}
}
