// Package feed simulates live order arrival by periodically injecting
// synthetic orders into the order store.
package feed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/catalog"
	"github.com/orderin/api/internal/clock"
	"github.com/orderin/api/internal/enum"
	"github.com/orderin/api/internal/order"
	"github.com/orderin/api/internal/pricing"
	"go.uber.org/zap"
)

// Store is the slice of the order store the synchronizer drives.
// Satisfied by *order.Store; narrow interface for testability.
type Store interface {
	Ingest(ctx context.Context, drafts []order.Draft, createdAt time.Time) ([]order.Order, error)
	Regenerate(ctx context.Context, drafts []order.Draft, createdAt time.Time) ([]order.Order, error)
}

// Menu supplies the items synthetic orders are built from.
// Satisfied by *catalog.Catalog.
type Menu interface {
	Available() []catalog.MenuItem
}

// Result describes one completed (or failed) synchronization step.
type Result struct {
	Mode     string
	Injected []order.Order
	Err      error
	Took     time.Duration
}

const (
	maxOrdersPerTick = 3
	maxItemsPerOrder = 3
	maxQuantity      = 3
	maxTable         = 15
)

type Option func(*Synchronizer)

func WithClock(c clock.Clock) Option      { return func(s *Synchronizer) { s.clock = c } }
func WithLogger(l *zap.Logger) Option     { return func(s *Synchronizer) { s.log = l.Named("feed") } }
func WithRand(r *rand.Rand) Option        { return func(s *Synchronizer) { s.rnd = r } }
func WithTimeout(d time.Duration) Option  { return func(s *Synchronizer) { s.timeout = d } }
func WithObserver(fn func(Result)) Option { return func(s *Synchronizer) { s.observe = fn } }
func WithMode(mode string) Option         { return func(s *Synchronizer) { s.mode = mode } }
func WithInterval(d time.Duration) Option { return func(s *Synchronizer) { s.interval = d } }

// Synchronizer owns the polling loop. Refresh may be called concurrently
// with Run; steps are serialized.
type Synchronizer struct {
	store    Store
	menu     Menu
	clock    clock.Clock
	log      *zap.Logger
	interval time.Duration
	mode     string
	timeout  time.Duration
	observe  func(Result)

	mu  sync.Mutex
	rnd *rand.Rand
}

func New(store Store, menu Menu, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:    store,
		menu:     menu,
		clock:    clock.System(),
		log:      zap.NewNop(),
		interval: 30 * time.Second,
		mode:     enum.FeedModeIncremental,
		timeout:  10 * time.Second,
		rnd:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Synchronizer) Mode() string { return s.mode }

// Run refreshes once per interval until ctx is cancelled. Step failures are
// logged and do not stop the loop.
func (s *Synchronizer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("feed started", zap.Duration("interval", s.interval), zap.String("mode", s.mode))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("feed stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("feed tick failed", zap.Error(err))
			}
		}
	}
}

// Refresh performs one synchronization step immediately and returns the
// injected orders.
func (s *Synchronizer) Refresh(ctx context.Context) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	res := Result{Mode: s.mode}

	drafts, err := s.drafts()
	if err == nil {
		now := s.clock.Now()
		if s.mode == enum.FeedModeRegenerate {
			res.Injected, err = s.store.Regenerate(ctx, drafts, now)
		} else {
			res.Injected, err = s.store.Ingest(ctx, drafts, now)
		}
	}
	res.Err = err
	res.Took = time.Since(start)

	if s.observe != nil {
		s.observe(res)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("feed tick", zap.String("mode", s.mode), zap.Int("injected", len(res.Injected)))
	return res.Injected, nil
}

// Drafts generates one tick's worth of synthetic orders without touching
// the store.
func (s *Synchronizer) Drafts() ([]order.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts()
}

func (s *Synchronizer) drafts() ([]order.Draft, error) {
	menu := s.menu.Available()
	if len(menu) == 0 {
		return nil, apperr.Validation("menu", "no items available")
	}

	n := 1 + s.rnd.IntN(maxOrdersPerTick)
	drafts := make([]order.Draft, n)
	for i := range drafts {
		drafts[i] = s.draft(menu)
	}
	return drafts, nil
}

func (s *Synchronizer) draft(menu []catalog.MenuItem) order.Draft {
	k := min(1+s.rnd.IntN(maxItemsPerOrder), len(menu))
	pick := s.rnd.Perm(len(menu))[:k]

	lines := make([]order.Line, k)
	for i, idx := range pick {
		m := menu[idx]
		lines[i] = order.Line{
			ProductID: m.ID,
			Name:      m.Name,
			Quantity:  1 + s.rnd.IntN(maxQuantity),
			UnitPrice: m.Price,
		}
	}

	pay := order.PaymentUnpaid
	if s.rnd.IntN(2) == 0 {
		pay = order.PaymentPaid
	}

	return order.Draft{
		TableNumber:   1 + s.rnd.IntN(maxTable),
		Lines:         lines,
		TotalAmount:   pricing.ComputeTotals(lines).Total,
		PaymentStatus: pay,
		CustomerName:  fmt.Sprintf("Customer %d", s.rnd.IntN(100)),
		CustomerPhone: fmt.Sprintf("0812345678%02d", s.rnd.IntN(100)),
	}
}
