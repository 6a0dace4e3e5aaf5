package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/dto"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// ErrorHandler отвечает на ошибку, которую handler положил в c.Errors.
// AppError отдаётся со своим кодом и статусом, остальное маскируется как INTERNAL_ERROR.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   appErr.Code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		c.JSON(appErr.HTTPStatus, dto.ErrorResponse{Error: appErr.Message, Code: string(appErr.Code)})
	}
}
