package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xmtea/whatsapp-bot/internal/logging"
	"github.com/xmtea/whatsapp-bot/internal/metrics"
)

const DefaultCacheTTL = 5 * time.Minute

// Provider answers catalog lookups for the intent router
type Provider interface {
	Businesses(ctx context.Context) ([]Business, error)
	Featured(ctx context.Context) ([]Business, error)
	Campaigns(ctx context.Context) ([]Business, error)
	Business(ctx context.Context, id string) (Business, error)
	Categories(ctx context.Context, businessID string) ([]Category, error)
	Category(ctx context.Context, id string) (Category, error)
	CategoryProducts(ctx context.Context, categoryID string) ([]Product, error)
	ProductByID(ctx context.Context, id string) (Product, error)
}

// Source fetches a full menu snapshot
type Source interface {
	Fetch(ctx context.Context) (*Menu, error)
}

// StaticSource always returns the same menu
type StaticSource struct {
	Menu *Menu
}

func (s StaticSource) Fetch(context.Context) (*Menu, error) {
	return s.Menu, nil
}

// refreshRetryDelay is how long a failed refresh keeps the provider from
// asking the source again
const refreshRetryDelay = 30 * time.Second

// MenuProvider caches the source's menu for ttl. When a refresh fails it keeps
// serving the last good menu, and with no menu at all it serves the fallback.
// One caller refreshes at a time; the others read the stale menu meanwhile.
type MenuProvider struct {
	source   Source
	fallback *Menu
	ttl      time.Duration
	retry    time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu        sync.Mutex
	cached    *Menu
	fetchedAt time.Time
	retryAt   time.Time
	inflight  chan struct{} // closed when the running refresh ends
}

func NewMenuProvider(source Source, ttl time.Duration) *MenuProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MenuProvider{
		source:   source,
		fallback: Fallback(),
		ttl:      ttl,
		retry:    min(ttl, refreshRetryDelay),
		now:      time.Now,
		log:      logging.New("catalog"),
	}
}

// NewStaticProvider serves menu without expiry
func NewStaticProvider(menu *Menu) *MenuProvider {
	return NewMenuProvider(StaticSource{Menu: menu}, 24*time.Hour)
}

// menu never fails: a refresh error degrades to stale data or the fallback.
// The source is called without holding p.mu.
func (p *MenuProvider) menu(ctx context.Context) *Menu {
	p.mu.Lock()
	now := p.now()
	if (p.cached != nil && now.Sub(p.fetchedAt) < p.ttl) || now.Before(p.retryAt) {
		defer p.mu.Unlock()
		return p.current()
	}

	if wait := p.inflight; wait != nil {
		if stale := p.cached; stale != nil {
			p.mu.Unlock()
			return stale
		}
		p.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.current()
	}

	done := make(chan struct{})
	p.inflight = done
	p.mu.Unlock()

	m, err := p.source.Fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight = nil
	close(done)

	if err == nil && m != nil {
		p.cached = m
		p.fetchedAt = p.now()
		p.retryAt = time.Time{}
		p.log.Info("menu loaded", "businesses", len(m.Businesses), "categories", len(m.Categories), "products", m.ProductCount())
		return m
	}

	p.retryAt = p.now().Add(p.retry)
	if p.cached != nil {
		p.log.Warn("menu refresh failed, serving stale menu", "error", err, "retry_at", p.retryAt)
		metrics.CatalogFallbacks.WithLabelValues("stale").Inc()
		return p.cached
	}

	p.log.Warn("menu unavailable, serving built-in menu", "error", err, "retry_at", p.retryAt)
	metrics.CatalogFallbacks.WithLabelValues("builtin").Inc()
	return p.fallback
}

// current returns the cached menu or the fallback. Callers hold p.mu.
func (p *MenuProvider) current() *Menu {
	if p.cached != nil {
		return p.cached
	}
	return p.fallback
}

// Invalidate forces the next read to refetch
func (p *MenuProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchedAt = time.Time{}
	p.retryAt = time.Time{}
}

func (p *MenuProvider) Businesses(ctx context.Context) ([]Business, error) {
	return p.menu(ctx).Businesses, nil
}

func (p *MenuProvider) Featured(ctx context.Context) ([]Business, error) {
	return p.menu(ctx).Featured(), nil
}

func (p *MenuProvider) Campaigns(ctx context.Context) ([]Business, error) {
	return p.menu(ctx).Campaigns(), nil
}

func (p *MenuProvider) Business(ctx context.Context, id string) (Business, error) {
	return p.menu(ctx).Business(id)
}

func (p *MenuProvider) Categories(ctx context.Context, businessID string) ([]Category, error) {
	return p.menu(ctx).CategoriesFor(businessID), nil
}

func (p *MenuProvider) Category(ctx context.Context, id string) (Category, error) {
	return p.menu(ctx).Category(id)
}

func (p *MenuProvider) CategoryProducts(ctx context.Context, categoryID string) ([]Product, error) {
	m := p.menu(ctx)
	if _, err := m.Category(categoryID); err != nil {
		if _, listed := m.Products[categoryID]; !listed {
			return nil, err
		}
	}
	return m.AvailableProducts(categoryID), nil
}

func (p *MenuProvider) ProductByID(ctx context.Context, id string) (Product, error) {
	return p.menu(ctx).Product(id)
}
