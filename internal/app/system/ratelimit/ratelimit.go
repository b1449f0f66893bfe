// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Decision is the outcome of one sign-in attempt check.
type Decision struct {
	Allowed    bool
	Scope      string        // "ip" or "account" when refused
	Reason     string        // user-facing refusal message
	RetryAfter time.Duration // until the refusing window ends
}

// window counts attempts for one key until resetAt.
type window struct {
	hits    int
	resetAt time.Time
}

func (w *window) live(now time.Time) bool {
	return w != nil && now.Before(w.resetAt)
}

// budget is one fixed-window allowance, keyed per client IP or per account.
type budget struct {
	scope   string
	limit   int
	span    time.Duration
	reason  string
	windows map[string]*window
}

func (b *budget) full(key string, now time.Time) bool {
	w := b.windows[key]
	return w.live(now) && w.hits >= b.limit
}

func (b *budget) take(key string, now time.Time) {
	w := b.windows[key]
	if !w.live(now) {
		b.windows[key] = &window{hits: 1, resetAt: now.Add(b.span)}
		return
	}
	w.hits++
}

func (b *budget) forget(key string) {
	delete(b.windows, key)
}

func (b *budget) sweep(now time.Time) {
	for key, w := range b.windows {
		if !w.live(now) {
			delete(b.windows, key)
		}
	}
}

// LoginLimiter throttles sign-in attempts per client IP and per account
// email, so neither one address hammering many accounts nor many addresses
// hammering one account gets through. An attempt is only counted when every
// budget still has room. Safe for concurrent use.
type LoginLimiter struct {
	mu       sync.Mutex
	ip       *budget
	account  *budget
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per account per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute)
}

// NewLoginLimiterWithConfig builds a LoginLimiter with explicit limits and
// starts a sweeper that drops expired windows. Call Stop to end it.
func NewLoginLimiterWithConfig(ipLimit int, ipWindow time.Duration, emailLimit int, emailWindow time.Duration) *LoginLimiter {
	ll := &LoginLimiter{
		ip: &budget{
			scope:   "ip",
			limit:   ipLimit,
			span:    ipWindow,
			reason:  "Too many login attempts. Please wait a minute before trying again.",
			windows: make(map[string]*window),
		},
		account: &budget{
			scope:   "account",
			limit:   emailLimit,
			span:    emailWindow,
			reason:  "Too many login attempts for this account. Please wait a few minutes.",
			windows: make(map[string]*window),
		},
		now:  time.Now,
		stop: make(chan struct{}),
	}
	every := ipWindow
	if emailWindow > every {
		every = emailWindow
	}
	go ll.sweepLoop(every)
	return ll
}

// Check records a sign-in attempt from r for email. A refused attempt is
// not counted against any budget.
func (ll *LoginLimiter) Check(r *http.Request, email string) Decision {
	ipKey, acctKey := ClientIP(r), accountKey(email)

	ll.mu.Lock()
	defer ll.mu.Unlock()
	now := ll.now()

	if ll.ip.full(ipKey, now) {
		return ll.refuse(ll.ip, ipKey, now)
	}
	if acctKey != "" && ll.account.full(acctKey, now) {
		return ll.refuse(ll.account, acctKey, now)
	}
	ll.ip.take(ipKey, now)
	if acctKey != "" {
		ll.account.take(acctKey, now)
	}
	return Decision{Allowed: true}
}

func (ll *LoginLimiter) refuse(b *budget, key string, now time.Time) Decision {
	return Decision{
		Scope:      b.scope,
		Reason:     b.reason,
		RetryAfter: b.windows[key].resetAt.Sub(now),
	}
}

// Succeeded clears the account window for email after a good sign-in. The
// IP window is kept, since one address may be trying many accounts.
func (ll *LoginLimiter) Succeeded(email string) {
	key := accountKey(email)
	if key == "" {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.account.forget(key)
}

// Stop ends the sweeper. Safe to call more than once.
func (ll *LoginLimiter) Stop() {
	ll.stopOnce.Do(func() { close(ll.stop) })
}

func (ll *LoginLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ll.stop:
			return
		case <-ticker.C:
			ll.mu.Lock()
			now := ll.now()
			ll.ip.sweep(now)
			ll.account.sweep(now)
			ll.mu.Unlock()
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
