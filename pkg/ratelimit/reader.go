// Package ratelimit throttles download streams with a shared token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter is a token bucket shared by every stream of a run
type Limiter struct {
	bytesPerSecond int64
	mu             sync.Mutex
	tokens         int64     // available bytes
	lastUpdate     time.Time // last refill
	bucketSize     int64     // burst size
}

// NewLimiter returns nil when bytesPerSecond disables limiting
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	// one second of data, at least 64KB
	bucketSize := bytesPerSecond
	if bucketSize < 65536 {
		bucketSize = 65536
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bucketSize,
		lastUpdate:     time.Now(),
		bucketSize:     bucketSize,
	}
}

// Rate returns the configured bytes per second
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.bytesPerSecond
}

// Wait blocks until n bytes may pass or ctx is done
func (l *Limiter) Wait(ctx context.Context, n int64) error {
	if n > l.bucketSize {
		n = l.bucketSize
	}
	for {
		l.mu.Lock()
		l.refillTokens()
		if l.tokens >= n {
			l.mu.Unlock()
			return nil
		}

		deficit := n - l.tokens
		wait := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refillTokens must be called with the lock held
func (l *Limiter) refillTokens() {
	now := time.Now()
	elapsed := now.Sub(l.lastUpdate)

	tokensToAdd := int64(float64(elapsed) / float64(time.Second) * float64(l.bytesPerSecond))
	if tokensToAdd > 0 {
		l.tokens += tokensToAdd
		if l.tokens > l.bucketSize {
			l.tokens = l.bucketSize
		}
		l.lastUpdate = now
	}
}

func (l *Limiter) consumeTokens(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens -= n
	if l.tokens < 0 {
		l.tokens = 0
	}
}

// ReadCloser throttles a remote byte stream
type ReadCloser struct {
	rc      io.ReadCloser
	limiter *Limiter
	ctx     context.Context
}

// NewReadCloser wraps rc; a nil limiter returns rc unchanged
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{rc: rc, limiter: limiter, ctx: ctx}
}

// Read waits for tokens before reading at most one bucket
func (r *ReadCloser) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	toRead := len(p)
	if int64(toRead) > r.limiter.bucketSize {
		toRead = int(r.limiter.bucketSize)
	}
	if err := r.limiter.Wait(r.ctx, int64(toRead)); err != nil {
		return 0, err
	}

	n, err := r.rc.Read(p[:toRead])
	if n > 0 {
		r.limiter.consumeTokens(int64(n))
	}
	return n, err
}

// Close closes the wrapped stream
func (r *ReadCloser) Close() error {
	return r.rc.Close()
}

// ParseRate parses a bandwidth such as "512K", "10M" or "1G" into bytes per
// second. Suffixes are binary multiples; an empty string or "0" means unlimited.
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/S"), "B")
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
	case 'M':
		multiplier = 1 << 20
	case 'G':
		multiplier = 1 << 30
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("invalid bandwidth %q", s)
	}
	rate := value * float64(multiplier)
	if rate >= math.MaxInt64 {
		return 0, fmt.Errorf("bandwidth %q out of range", s)
	}
	return int64(rate), nil
}
