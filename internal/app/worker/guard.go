package worker

import (
	"sync"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/config"
	"github.com/shopspring/decimal"
)

// rateGuard is a fixed counted window: at most limit admissions between
// windowStart and windowStart+window.
type rateGuard struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
}

func newRateGuard(policy config.RateLimitPolicy) *rateGuard {
	return &rateGuard{limit: policy.MaxTransactionsPerWindow, window: policy.Window}
}

func (g *rateGuard) allow(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.windowStart.IsZero() || now.Sub(g.windowStart) >= g.window {
		g.count = 0
		g.windowStart = now
	} else if g.count >= g.limit {
		return false
	}
	g.count++
	return true
}

func (g *rateGuard) snapshot() (int, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count, g.windowStart
}

func exceedsCeiling(amount, ceiling decimal.Decimal) bool {
	return amount.GreaterThan(ceiling)
}
