package middleware

import (
	stdcontext "context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	apperrors "github.com/aihub/school-assistant/internal/errors"
	"github.com/aihub/school-assistant/internal/logger"
)

// Limiter 按客户端限流
type Limiter interface {
	Allow(ctx stdcontext.Context, clientID string) (bool, error)
}

// RateLimitMiddleware 超限返回429，限流存储故障时放行并告警
func RateLimitMiddleware(limiter Limiter, proxies *TrustedProxies) func(*context.Context) {
	return func(ctx *context.Context) {
		if limiter == nil || ctx.Input.Method() == "OPTIONS" {
			return
		}

		clientIP := proxies.ClientIP(ctx)
		allowed, err := limiter.Allow(ctx.Request.Context(), clientIP)
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request",
				zap.String("ip", clientIP), zap.Error(err))
			return
		}
		if !allowed {
			writeError(ctx, apperrors.NewRateLimitError(), 0)
		}
	}
}

// SecurityHeaders 安全头中间件
func SecurityHeaders() func(*context.Context) {
	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	return func(ctx *context.Context) {
		for key, value := range headers {
			ctx.Output.Header(key, value)
		}
	}
}

// RemoteIP 连接对端地址，不读取任何转发头
func RemoteIP(ctx *context.Context) string {
	addr := ctx.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// TrustedProxies 可信反向代理，仅来自这些地址的请求才采信转发头
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies 解析IP或CIDR列表，空列表表示不信任任何转发头
func NewTrustedProxies(entries []string) (*TrustedProxies, error) {
	t := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			t.prefixes = append(t.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		t.prefixes = append(t.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return t, nil
}

// Trusts 地址是否属于可信代理
func (t *TrustedProxies) Trusts(ip string) bool {
	if t == nil || len(t.prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP 限流使用的客户端地址，对端为可信代理时才取X-Forwarded-For或X-Real-IP
func (t *TrustedProxies) ClientIP(ctx *context.Context) string {
	remote := RemoteIP(ctx)
	if !t.Trusts(remote) {
		return remote
	}

	if xff := ctx.Input.Header("X-Forwarded-For"); xff != "" {
		// 从右向左跳过可信代理，第一个非代理地址即客户端
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !t.Trusts(hop) || i == 0 {
				return hop
			}
		}
	}

	if xri := strings.TrimSpace(ctx.Input.Header("X-Real-IP")); xri != "" {
		return xri
	}
	return remote
}

// RateLimiter 简单的内存限流器，滑动窗口
type RateLimiter struct {
	requests int
	window   time.Duration
	clients  map[string][]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter 创建限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: requests,
		window:   window,
		clients:  make(map[string][]time.Time),
		stop:     make(chan struct{}),
	}

	// 启动清理goroutine
	go rl.cleanup()

	return rl
}

// Allow 检查是否允许请求
func (rl *RateLimiter) Allow(_ stdcontext.Context, clientIP string) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	validRequests := pruneBefore(rl.clients[clientIP], windowStart)

	// 检查是否超过限制
	if len(validRequests) >= rl.requests {
		rl.clients[clientIP] = validRequests
		return false, nil
	}

	rl.clients[clientIP] = append(validRequests, now)
	return true, nil
}

// Close 停止清理goroutine
func (rl *RateLimiter) Close() error {
	rl.once.Do(func() { close(rl.stop) })
	return nil
}

// cleanup 清理过期数据
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			windowStart := now.Add(-rl.window)
			rl.mu.Lock()
			for clientIP, requests := range rl.clients {
				if valid := pruneBefore(requests, windowStart); len(valid) == 0 {
					delete(rl.clients, clientIP)
				} else {
					rl.clients[clientIP] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

func pruneBefore(requests []time.Time, windowStart time.Time) []time.Time {
	valid := requests[:0]
	for _, reqTime := range requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	return valid
}
