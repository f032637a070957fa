package core

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// commandLimiter keeps one token bucket per player per game.
type commandLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	players map[string]*rate.Limiter
}

func newCommandLimiter(limit rate.Limit, burst int) *commandLimiter {
	if burst < 1 {
		burst = 1
	}
	return &commandLimiter{limit: limit, burst: burst, players: make(map[string]*rate.Limiter)}
}

func limiterKey(gameID, actor string) string { return gameID + "/" + actor }

func (l *commandLimiter) allow(gameID, actor string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.players[limiterKey(gameID, actor)]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.players[limiterKey(gameID, actor)] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}

func (l *commandLimiter) forget(gameID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.players {
		if strings.HasPrefix(key, gameID+"/") {
			delete(l.players, key)
		}
	}
}
