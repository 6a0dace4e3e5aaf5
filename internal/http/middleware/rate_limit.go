package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// RateLimitMiddleware ограничивает изменяющие запросы: ключ — пользователь, если он известен, иначе IP.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if raw, ok := c.Get(ContextUserIDKey); ok {
			if userID, ok := raw.(uuid.UUID); ok {
				key = "user:" + userID.String()
			}
		}

		state, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			abort(c, http.StatusInternalServerError, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", state.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", state.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", state.Reset))

		if state.Reached {
			abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "слишком много запросов, попробуйте позже")
			return
		}
		c.Next()
	}
}
