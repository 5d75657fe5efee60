package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown is a per-user, per-command sliding window limiter in Redis.
// A sorted set holds one member per allowed invocation scored by time; a
// Lua script trims expired members, counts, and records atomically.
type Cooldown struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
	limit       int
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window)
    return 1
else
    return 0
end
`)

// NewCooldown allows limit invocations per window. A zero window disables it.
func NewCooldown(redisClient *redis.Client, window time.Duration, limit int, logger *slog.Logger) *Cooldown {
	if limit <= 0 {
		limit = 1
	}
	return &Cooldown{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      window,
		limit:       limit,
	}
}

func cooldownKey(userID, command string) string {
	return fmt.Sprintf("cd:%s:%s", command, userID)
}

// Allow reports whether userID may run command now. Redis failures allow
// the command.
func (c *Cooldown) Allow(ctx context.Context, userID, command string) bool {
	if c.window <= 0 || userID == "" {
		return true
	}

	now := time.Now()
	member := fmt.Sprintf("%d", now.UnixNano())

	result, err := c.script.Run(ctx, c.redisClient, []string{cooldownKey(userID, command)},
		now.UnixMilli(), c.window.Milliseconds(), c.limit, member,
	).Int64()
	if err != nil {
		c.logger.Error("cooldown script failed", "error", err, "user_id", userID, "command", command)
		return true
	}

	if result == 0 {
		c.logger.Debug("command on cooldown", "user_id", userID, "command", command)
		return false
	}
	return true
}
