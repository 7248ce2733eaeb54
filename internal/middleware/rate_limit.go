package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	Requests  int
	Window    time.Duration
	KeyPrefix string
}

// AuthRateLimitConfig limits login and registration attempts per client IP.
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:  20,
		Window:    time.Minute,
		KeyPrefix: "connect:ratelimit:auth:",
	}
}

// rateLimitScript trims the window, then admits the request when below the limit.
// It returns {allowed, remaining, reset_at_ms}.
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, now .. ':' .. math.random(1000000))
    redis.call('PEXPIRE', key, window + 1000)
    return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset_at = 0
if #oldest >= 2 then
    reset_at = tonumber(oldest[2]) + window
end
return {0, 0, reset_at}
`)

// RateLimit limits requests per client IP. A nil client disables limiting and
// Redis errors let the request through.
func RateLimit(client *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		now := time.Now().UnixMilli()
		key := cfg.KeyPrefix + c.ClientIP()
		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key},
			cfg.Requests, cfg.Window.Milliseconds(), now,
		).Int64Slice()
		if err != nil || len(result) != 3 {
			log.Warn().Err(err).Str("key", key).Msg("rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result[1], 10))

		if result[0] != 1 {
			retryAfter := (result[2] - now) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}

		c.Next()
	}
}
