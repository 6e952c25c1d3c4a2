package services

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/lingo_api/dto"
	"github.com/lac-hong-legacy/lingo_api/shared"
	log "github.com/sirupsen/logrus"
)

const RATE_LIMIT_SVC = "rate_limit_svc"

const defaultXPAwardRateLimit = 120

// RateLimitConfig is a fixed window limit for one endpoint type.
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	Description  string
}

// windowCounter counts hits for one identifier inside the current window.
type windowCounter struct {
	count   int
	resetAt time.Time
}

// RateLimitService limits requests per learner in fixed windows. Counters live in
// redis when it is configured and in process memory otherwise.
type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	redis   *RedisService

	mutex    sync.Mutex
	counters map[string]*windowCounter

	now func() time.Time
}

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	limit := defaultXPAwardRateLimit
	if v, err := strconv.Atoi(os.Getenv("XP_AWARD_RATE_LIMIT")); err == nil {
		limit = v
	}
	svc.init(limit)
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok && redisSvc != nil {
		svc.redis = redisSvc
		log.Info("Rate limit counters stored in redis")
	}
	return nil
}

// NewRateLimitService builds an in-memory RateLimitService outside the service container.
func NewRateLimitService(xpAwardLimit int, now func() time.Time) *RateLimitService {
	svc := &RateLimitService{}
	svc.init(xpAwardLimit)
	svc.now = now
	return svc
}

func (svc *RateLimitService) init(xpAwardLimit int) {
	svc.now = time.Now
	svc.counters = make(map[string]*windowCounter)
	svc.configs = map[string]*RateLimitConfig{
		shared.EndpointXPAward: {
			EndpointType: shared.EndpointXPAward,
			MaxRequests:  xpAwardLimit,
			WindowSize:   time.Hour,
			Description:  "XP awards per learner",
		},
	}
}

// IsAllowed counts one request by identifier against endpointType's window.
func (svc *RateLimitService) IsAllowed(identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	config, exists := svc.configs[endpointType]
	if !exists || config.MaxRequests <= 0 {
		return true, &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	key := fmt.Sprintf("ratelimit:%s:%s", endpointType, identifier)

	var (
		count   int
		resetAt time.Time
	)
	if svc.redis != nil {
		hits, left, err := svc.redis.IncrementWindow(context.Background(), key, config.WindowSize)
		if err != nil {
			return false, nil, err
		}
		count = int(hits)
		resetAt = svc.now().Add(left)
	} else {
		count, resetAt = svc.incrementLocal(key, config.WindowSize)
	}

	remaining := config.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	info := &dto.RateLimitInfo{
		Allowed:   count <= config.MaxRequests,
		Remaining: remaining,
		ResetTime: &resetAt,
	}
	return info.Allowed, info, nil
}

func (svc *RateLimitService) incrementLocal(key string, window time.Duration) (int, time.Time) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	now := svc.now()
	counter, ok := svc.counters[key]
	if !ok || !now.Before(counter.resetAt) {
		counter = &windowCounter{resetAt: now.Add(window)}
		svc.counters[key] = counter
	}
	counter.count++

	// Drop expired windows so idle learners do not accumulate.
	if len(svc.counters) > 10000 {
		for k, c := range svc.counters {
			if !now.Before(c.resetAt) {
				delete(svc.counters, k)
			}
		}
	}
	return counter.count, counter.resetAt
}

// UserBasedRateLimit applies endpointType's limit to the authenticated learner.
func (svc *RateLimitService) UserBasedRateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, _ := c.Locals(shared.UserID).(string)
		if identifier == "" {
			identifier = getClientIP(c)
		}

		allowed, info, err := svc.IsAllowed(identifier, endpointType)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"endpoint":   endpointType,
				"identifier": identifier,
			}).Warn("Rate limit check failed, allowing request")
			return c.Next()
		}

		svc.addRateLimitHeaders(c, endpointType, info)

		if !allowed {
			return shared.NewTooManyRequestsError(nil, "Too many requests. Please try again later.", info)
		}
		return c.Next()
	}
}

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, endpointType string, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	if config, ok := svc.configs[endpointType]; ok {
		c.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
	}
	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}
	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		if !info.Allowed {
			retryAfter := int(info.ResetTime.Sub(svc.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		}
	}
}

func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return ip
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}
	return ip
}
