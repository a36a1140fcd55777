// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package safety decides whether a redirect destination may be emitted.
package safety

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/util"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Policy supplies the runtime switches for the check.
type Policy interface {
	SecurityChecksEnabled() bool
	AllowedDomains() []string
}

// Options configures a Checker.
type Options struct {
	Resolver  Resolver      // defaults to net.DefaultResolver
	Timeout   time.Duration // per-resolution budget, defaults to 2s
	CacheTTL  time.Duration // successful resolutions are reused this long; 0 disables the cache
	CacheSize int           // defaults to 1024 hosts
}

// Checker validates destinations before a redirect is emitted.
type Checker struct {
	policy   Policy
	resolver Resolver
	timeout  time.Duration
	cache    *expirable.LRU[string, []net.IP]
	logger   *slog.Logger
}

// NewChecker creates a Checker.
func NewChecker(policy Policy, opts Options, logger *slog.Logger) *Checker {
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}

	c := &Checker{
		policy:   policy,
		resolver: opts.Resolver,
		timeout:  opts.Timeout,
		logger:   logger,
	}
	if opts.CacheTTL > 0 {
		c.cache = expirable.NewLRU[string, []net.IP](opts.CacheSize, nil, opts.CacheTTL)
	}
	return c
}

// Check validates dest and returns the absolute URL to emit.
// Every rejection wraps model.ErrUnsafeDestination; resolution timeouts also
// wrap model.ErrDNSTimeout. Resolution failures reject.
func (c *Checker) Check(ctx context.Context, dest string) (string, error) {
	if HasDangerousScheme(dest) {
		return "", fmt.Errorf("%w: blocked scheme", model.ErrUnsafeDestination)
	}

	target := CoerceScheme(dest)
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrUnsafeDestination, err)
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", model.ErrUnsafeDestination, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", model.ErrUnsafeDestination)
	}

	if allowed := c.policy.AllowedDomains(); len(allowed) > 0 && !domainAllowed(host, allowed) {
		return "", fmt.Errorf("%w: host %q not in allowed domains", model.ErrUnsafeDestination, host)
	}

	if !c.policy.SecurityChecksEnabled() {
		return target, nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "", fmt.Errorf("%w: localhost", model.ErrUnsafeDestination)
	}

	if ip := net.ParseIP(host); ip != nil {
		if util.IsPrivateIP(ip) {
			return "", fmt.Errorf("%w: private address %s", model.ErrUnsafeDestination, ip)
		}
		return target, nil
	}

	ips, err := c.resolve(ctx, host)
	if err != nil {
		return "", err
	}
	for _, ip := range ips {
		if util.IsPrivateIP(ip) {
			return "", fmt.Errorf("%w: %q resolves to private address %s", model.ErrUnsafeDestination, host, ip)
		}
	}

	return target, nil
}

func (c *Checker) resolve(ctx context.Context, host string) ([]net.IP, error) {
	if c.cache != nil {
		if ips, ok := c.cache.Get(host); ok {
			return ips, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	addrs, err := c.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &dnsErr) && dnsErr.IsTimeout) {
			return nil, fmt.Errorf("%w: %w: %q", model.ErrUnsafeDestination, model.ErrDNSTimeout, host)
		}
		return nil, fmt.Errorf("%w: resolving %q: %v", model.ErrUnsafeDestination, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q has no addresses", model.ErrUnsafeDestination, host)
	}

	ips := make([]net.IP, len(addrs))
	for i, a := range addrs {
		ips[i] = a.IP
	}

	if c.cache != nil {
		c.cache.Add(host, ips)
	}
	c.logger.Debug("resolved destination host", "host", host, "addresses", len(ips))
	return ips, nil
}

// Purge drops all cached resolutions.
func (c *Checker) Purge() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// domainAllowed reports whether host equals an allowed domain or is a subdomain of one.
func domainAllowed(host string, allowed []string) bool {
	for _, d := range allowed {
		d = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
