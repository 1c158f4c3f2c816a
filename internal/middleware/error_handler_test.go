package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apiError "projet/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler_LogLevels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		level  zapcore.Level
	}{
		{"not found", apiError.NotFound("Record not found", nil), http.StatusNotFound, zapcore.WarnLevel},
		{"write failed", apiError.WriteFailed("commit", errors.New("db down")), http.StatusInternalServerError, zapcore.ErrorLevel},
		{"raw error", errors.New("boom"), http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			gin.SetMode(gin.TestMode)
			router := gin.New()
			router.Use(ErrorHandler(zap.New(core)))
			router.GET("/fail", func(c *gin.Context) { c.Error(tt.err) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/fail", nil))

			assert.Equal(t, tt.status, w.Code)
			if assert.Equal(t, 1, logs.Len()) {
				assert.Equal(t, tt.level, logs.All()[0].Level)
			}
		})
	}
}
