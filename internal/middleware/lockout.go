// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"sync"
	"time"
)

// maxLockoutEntries bounds the tracked client count; stale entries are swept
// once it is reached.
const maxLockoutEntries = 10000

// TokenLockout blocks clients that keep presenting bad admin tokens.
// Lockouts double with each repeat, capped at 24 hours.
type TokenLockout struct {
	mu       sync.Mutex
	attempts map[string]*tokenAttempt

	maxFailedAttempts int
	lockoutDuration   time.Duration
	attemptWindow     time.Duration
	now               func() time.Time
}

type tokenAttempt struct {
	count       int
	firstFailed time.Time
	lockedUntil time.Time
	lockouts    int
}

// TokenLockoutConfig holds configuration for token lockout.
type TokenLockoutConfig struct {
	// MaxFailedAttempts before the client is locked out (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is base lockout time, doubles with each lockout (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is the time window for counting failed attempts (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultTokenLockoutConfig returns sensible defaults.
func DefaultTokenLockoutConfig() TokenLockoutConfig {
	return TokenLockoutConfig{
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	}
}

// NewTokenLockout creates a new lockout tracker.
func NewTokenLockout(cfg TokenLockoutConfig) *TokenLockout {
	def := DefaultTokenLockoutConfig()
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = def.AttemptWindow
	}
	return &TokenLockout{
		attempts:          make(map[string]*tokenAttempt),
		maxFailedAttempts: cfg.MaxFailedAttempts,
		lockoutDuration:   cfg.LockoutDuration,
		attemptWindow:     cfg.AttemptWindow,
		now:               time.Now,
	}
}

// IsLocked reports whether key is locked and for how much longer.
func (tl *TokenLockout) IsLocked(key string) (bool, time.Duration) {
	if tl == nil {
		return false, 0
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()

	attempt, ok := tl.attempts[key]
	if !ok {
		return false, 0
	}
	if now := tl.now(); now.Before(attempt.lockedUntil) {
		return true, attempt.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a bad token from key and reports whether it is now locked.
func (tl *TokenLockout) RecordFailure(key string) (bool, time.Duration) {
	if tl == nil {
		return false, 0
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()

	now := tl.now()
	if len(tl.attempts) >= maxLockoutEntries {
		tl.sweep(now)
	}

	attempt, ok := tl.attempts[key]
	if !ok {
		tl.attempts[key] = &tokenAttempt{count: 1, firstFailed: now}
		return false, 0
	}

	if now.Sub(attempt.firstFailed) > tl.attemptWindow {
		attempt.count = 1
		attempt.firstFailed = now
		return false, 0
	}

	attempt.count++
	if attempt.count < tl.maxFailedAttempts {
		return false, 0
	}

	lockDuration := tl.lockoutDuration
	for i := 0; i < attempt.lockouts; i++ {
		lockDuration *= 2
		if lockDuration > 24*time.Hour {
			lockDuration = 24 * time.Hour
			break
		}
	}
	attempt.lockedUntil = now.Add(lockDuration)
	attempt.lockouts++
	attempt.count = 0

	slog.Warn("admin token lockout", "client", key, "lockouts", attempt.lockouts, "duration", lockDuration)
	return true, lockDuration
}

// RecordSuccess clears the failure history for key.
func (tl *TokenLockout) RecordSuccess(key string) {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	delete(tl.attempts, key)
	tl.mu.Unlock()
}

// sweep drops entries whose lockout and window have both expired.
// Caller must hold tl.mu.
func (tl *TokenLockout) sweep(now time.Time) {
	for key, attempt := range tl.attempts {
		if now.After(attempt.lockedUntil) && now.Sub(attempt.firstFailed) > tl.attemptWindow {
			delete(tl.attempts, key)
		}
	}
}
