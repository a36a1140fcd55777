// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qrcode renders QR images for redirect short links through an
// external HTTP API and keeps them on disk.
package qrcode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/olegiv/hoppr-go/internal/hooks"
	"github.com/olegiv/hoppr-go/internal/imaging"
	"github.com/olegiv/hoppr-go/internal/model"
	"github.com/olegiv/hoppr-go/internal/store"
	"github.com/olegiv/hoppr-go/internal/util"
)

// DefaultAPIURL is the public QR rendering endpoint.
const DefaultAPIURL = "https://api.qrserver.com/v1/create-qr-code/"

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 2 << 20
	userAgent       = "hoppr-go QR generator"
)

// SettingsSource supplies the QR settings.
type SettingsSource interface {
	QRSize() int
	QRAutoGenerate() bool
}

// Options configures a Generator.
type Options struct {
	Dir        string       // output directory, created if missing
	BaseURL    string       // public origin the short links live on
	APIURL     string       // defaults to DefaultAPIURL
	HTTPClient *http.Client // defaults to a client that refuses private addresses
	Rate       rate.Limit   // API requests per second, defaults to 1
	Burst      int          // defaults to 3
	UserAgent  string       // sent to the render service
}

// Generator renders and stores QR codes.
type Generator struct {
	queries  *store.Queries
	settings SettingsSource
	opts     Options
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewGenerator creates a Generator and its output directory.
func NewGenerator(queries *store.Queries, settings SettingsSource, opts Options, logger *slog.Logger) (*Generator, error) {
	if opts.Dir == "" {
		return nil, errors.New("qr output directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating qr directory: %w", err)
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = userAgent
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	client := opts.HTTPClient
	if client == nil {
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		client = &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         util.SSRFSafeDialContext(dialer),
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        4,
			},
		}
	}

	return &Generator{
		queries:  queries,
		settings: settings,
		opts:     opts,
		client:   client,
		limiter:  rate.NewLimiter(opts.Rate, opts.Burst),
		logger:   logger,
	}, nil
}

// PublicURL returns the short link encoded into the QR image.
func (g *Generator) PublicURL(sourcePath string) string {
	return g.opts.BaseURL + "/" + sourcePath
}

// Generate renders the QR code for rule, replacing any previous images.
func (g *Generator) Generate(ctx context.Context, rule model.RedirectRule) (*model.QRCode, error) {
	size := g.settings.QRSize()
	raw, err := g.fetch(ctx, g.PublicURL(rule.SourcePath), size)
	if err != nil {
		return nil, fmt.Errorf("rendering qr for redirect %d: %w", rule.ID, err)
	}

	img, err := imaging.NormalizePNG(raw, size)
	if err != nil {
		return nil, fmt.Errorf("qr image for redirect %d: %w", rule.ID, err)
	}

	base := fileBase(rule)
	pngName, svgName := base+".png", base+".svg"
	if err := g.write(pngName, img.PNG); err != nil {
		return nil, err
	}
	if err := g.write(svgName, []byte(WrapPNG(img.PNG, img.Width, img.Height))); err != nil {
		g.removeFile(pngName)
		return nil, err
	}

	prev, _ := g.queries.GetQRCode(ctx, rule.ID)

	now := time.Now().UTC()
	if err := g.queries.SaveQRCode(ctx, store.SaveQRCodeParams{
		RedirectID:  rule.ID,
		PngPath:     pngName,
		SvgPath:     svgName,
		GeneratedAt: now,
	}); err != nil {
		g.removeFile(pngName)
		g.removeFile(svgName)
		return nil, fmt.Errorf("saving qr record: %w", err)
	}

	if prev.RedirectID != 0 {
		g.removeFile(prev.PngPath)
		g.removeFile(prev.SvgPath)
	}

	g.logger.Info("qr code generated", "redirect_id", rule.ID, "size", size)
	return &model.QRCode{RedirectID: rule.ID, PNGPath: pngName, SVGPath: svgName, GeneratedAt: now}, nil
}

// Get returns the QR record for a redirect or model.ErrNotFound.
func (g *Generator) Get(ctx context.Context, redirectID int64) (*model.QRCode, error) {
	row, err := g.queries.GetQRCode(ctx, redirectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("qr code for redirect %d: %w", redirectID, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting qr code: %w", err)
	}
	return &model.QRCode{
		RedirectID:  row.RedirectID,
		PNGPath:     row.PngPath,
		SVGPath:     row.SvgPath,
		GeneratedAt: row.GeneratedAt,
	}, nil
}

// Path resolves a stored file name inside the output directory.
func (g *Generator) Path(name string) (string, error) {
	if name == "" {
		return "", model.ErrNotFound
	}
	return util.SafeJoinPath(g.opts.Dir, name)
}

// Remove deletes the QR files and record for a redirect. Files are found by
// name so they go even when the record was already cascaded away.
func (g *Generator) Remove(ctx context.Context, redirectID int64) error {
	matches, err := filepath.Glob(filepath.Join(g.opts.Dir, fmt.Sprintf("qr-%d-*", redirectID)))
	if err != nil {
		return fmt.Errorf("listing qr files: %w", err)
	}
	for _, m := range matches {
		g.removeFile(filepath.Base(m))
	}

	if err := g.queries.DeleteQRCode(ctx, redirectID); err != nil {
		return fmt.Errorf("deleting qr record: %w", err)
	}
	return nil
}

// BackfillMissing renders QR codes for up to limit redirects that have none.
func (g *Generator) BackfillMissing(ctx context.Context, limit int64) (int, error) {
	rows, err := g.queries.ListRedirectsWithoutQRCode(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("listing redirects without qr: %w", err)
	}

	done := 0
	var errs []error
	for _, r := range rows {
		rule := model.RedirectRule{ID: r.ID, SourcePath: r.SourcePath}
		if _, err := g.Generate(ctx, rule); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// Subscribe keeps QR codes in step with rule changes. Rendering happens in
// the background so rule writes never wait on the API; removal is immediate.
func (g *Generator) Subscribe(bus *hooks.Bus) {
	bus.Subscribe(hooks.Handler{
		Name: "qrcode-render",
		Fn: func(ctx context.Context, ev hooks.RuleEvent) error {
			if !g.settings.QRAutoGenerate() {
				return nil
			}
			if ev.Topic == hooks.RuleUpdated && ev.Previous != nil && ev.Previous.SourcePath == ev.Rule.SourcePath {
				if _, err := g.queries.GetQRCode(ctx, ev.Rule.ID); err == nil {
					return nil
				}
			}
			g.renderAsync(ctx, ev.Rule)
			return nil
		},
	}, hooks.RuleCreated, hooks.RuleUpdated)

	bus.Subscribe(hooks.Handler{
		Name: "qrcode-remove",
		Fn: func(ctx context.Context, ev hooks.RuleEvent) error {
			return g.Remove(ctx, ev.Rule.ID)
		},
	}, hooks.RuleDeleted)
}

// Wait blocks until background renders finish.
func (g *Generator) Wait() {
	g.wg.Wait()
}

func (g *Generator) renderAsync(ctx context.Context, rule model.RedirectRule) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*requestTimeout)
		defer cancel()
		if _, err := g.Generate(ctx, rule); err != nil {
			g.logger.Warn("qr generation failed", "redirect_id", rule.ID, "error", err)
		}
	}()
}

func (g *Generator) fetch(ctx context.Context, data string, size int) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("size", strconv.Itoa(size)+"x"+strconv.Itoa(size))
	q.Set("data", data)
	q.Set("format", "png")
	q.Set("ecc", "M")
	q.Set("margin", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.opts.APIURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.opts.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qr api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading qr api response: %w", err)
	}
	if len(body) > maxResponseSize {
		return nil, errors.New("qr api response too large")
	}
	return body, nil
}

func (g *Generator) write(name string, data []byte) error {
	path, err := util.SafeJoinPath(g.opts.Dir, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (g *Generator) removeFile(name string) {
	if name == "" {
		return
	}
	path, err := util.SafeJoinPath(g.opts.Dir, name)
	if err != nil {
		g.logger.Warn("refusing to remove qr file outside directory", "name", name)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		g.logger.Warn("failed to remove qr file", "path", path, "error", err)
	}
}

// fileBase names files after the rule with a nonce so a regenerated image
// never collides with one a client may still have cached.
func fileBase(rule model.RedirectRule) string {
	slug := util.Slugify(rule.SourcePath)
	if len(slug) > 48 {
		slug = strings.TrimRight(slug[:48], "-")
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if slug == "" {
		return fmt.Sprintf("qr-%d-%s", rule.ID, nonce)
	}
	return fmt.Sprintf("qr-%d-%s-%s", rule.ID, slug, nonce)
}
