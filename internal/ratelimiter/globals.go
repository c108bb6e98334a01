package ratelimiter

import (
	"time"
)

const (
	clientIdleTTL     = 5 * time.Minute
	minRetryAfterSecs = 1
	rateLimitedReason = "rate limit exceeded"
)
