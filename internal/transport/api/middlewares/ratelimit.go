package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitTimeout = 500 * time.Millisecond

// RateLimiter ограничитель запросов с фиксированным окном на redis INCR/EXPIRE. Ключ - эндпоинт и IP клиента.
// При недоступности redis запросы пропускаются.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	l      *logrus.Entry
}

// NewRateLimiter возвращает nil, если client == nil. Middleware nil лимитера пропускает все запросы.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration, l *logrus.Logger) *RateLimiter {
	if client == nil {
		return nil
	}
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		l: l.WithFields(logrus.Fields{
			"component": "api",
			"module":    "ratelimit",
		}),
	}
}

// Allow увеличивает счетчик key в текущем окне и сообщает, не превышен ли лимит.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("rl:%s:%d", key, time.Now().UnixNano()/int64(r.window))

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= r.limit, nil
}

func (r *RateLimiter) Middleware(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c, rateLimitTimeout)
		defer cancel()

		allowed, err := r.Allow(ctx, endpoint+":"+c.ClientIP())
		if err != nil {
			r.l.WithError(err).Warn("rate limiter unavailable, request allowed")
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimited.WithLabelValues(endpoint).Inc()
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
