package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Remaining() int
}

// TokenBucket 令牌桶：容量 capacity，每 interval 补充一个令牌
type TokenBucket struct {
	capacity   int
	tokens     float64
	interval   time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建令牌桶，window 内最多 requests 次
func NewTokenBucket(requests int, window time.Duration) *TokenBucket {
	if requests <= 0 {
		requests = 1
	}
	return &TokenBucket{
		capacity:   requests,
		tokens:     float64(requests),
		interval:   window / time.Duration(requests),
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// refill 补充令牌，调用方持有锁
func (tb *TokenBucket) refill() {
	now := tb.now()
	if tb.interval <= 0 {
		tb.tokens = float64(tb.capacity)
		tb.lastRefill = now
		return
	}
	elapsed := now.Sub(tb.lastRefill)
	if elapsed <= 0 {
		return
	}
	tb.tokens += float64(elapsed) / float64(tb.interval)
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	tb.lastRefill = now
}

// Allow 有令牌则消耗一个
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 阻塞直到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		tb.mu.Lock()
		wait := time.Duration((1 - tb.tokens) * float64(tb.interval))
		tb.mu.Unlock()
		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining 当前可用令牌数
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.tokens)
}

// Manager 按 key（operation id）分别限速
type Manager struct {
	requests int
	window   time.Duration
	limiters map[string]RateLimiter
	mu       sync.Mutex
}

// NewManager 每个 key 懒创建一个 requests/window 的令牌桶
func NewManager(requests int, window time.Duration) *Manager {
	return &Manager{
		requests: requests,
		window:   window,
		limiters: make(map[string]RateLimiter),
	}
}

// Limiter 取得（必要时创建）key 对应的限速器
func (m *Manager) Limiter(key string) RateLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.limiters[key]; ok {
		return l
	}
	l := NewTokenBucket(m.requests, m.window)
	m.limiters[key] = l
	return l
}

// Wait 等待 key 的令牌
func (m *Manager) Wait(ctx context.Context, key string) error {
	return m.Limiter(key).Wait(ctx)
}

// Allow 非阻塞检查
func (m *Manager) Allow(key string) bool {
	return m.Limiter(key).Allow()
}
