package middleware

import (
	"errors"
	apiError "projet/internal/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var apiErr *apiError.APIError
		if !errors.As(err, &apiErr) {
			// raw error we didn't wrap, treat as internal
			apiErr = apiError.Internal(err)
		}

		if apiErr.Status >= 500 {
			logger.Error("request failed",
				zap.String("path", c.FullPath()),
				zap.String("kind", apiErr.Kind),
				zap.Error(apiErr.Internal),
			)
		} else {
			logger.Warn(apiErr.Message,
				zap.String("path", c.FullPath()),
				zap.String("kind", apiErr.Kind),
				zap.NamedError("cause", apiErr.Internal),
			)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(apiErr.Status, apiErr)
	}
}
