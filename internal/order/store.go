package order

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/orderin/api/internal/apperr"
	"github.com/orderin/api/internal/clock"
	"go.uber.org/zap"
)

// Repository is the persistence collaborator behind the store.
// Satisfied by *MemoryRepository and *postgres.OrderRepository.
type Repository interface {
	LoadOrders(ctx context.Context) ([]Order, error)
	CreateOrder(ctx context.Context, o Order) error
	UpdateOrderStatus(ctx context.Context, id string, status Status) error
	UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) error
	UpsertOrders(ctx context.Context, orders []Order) error
}

// EventType names a store mutation delivered to subscribers.
type EventType string

const (
	EventCreated  EventType = "order.created"
	EventUpdated  EventType = "order.updated"
	EventReloaded EventType = "orders.reloaded"
)

// Event is delivered to subscribers after the mutation is visible.
// Order is the zero value for EventReloaded.
type Event struct {
	Type  EventType `json:"type"`
	Order Order     `json:"order"`
}

// RetryPolicy bounds retries around the repository load/create boundary.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	InitialInterval: 100 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

type Option func(*Store)

func WithClock(c clock.Clock) Option         { return func(s *Store) { s.clock = c } }
func WithLogger(l *zap.Logger) Option        { return func(s *Store) { s.log = l.Named("orders") } }
func WithRetryPolicy(p RetryPolicy) Option   { return func(s *Store) { s.retry = p } }
func WithFirstOrderNumber(n int) Option      { return func(s *Store) { s.nextNumber = n } }
func WithIDGenerator(f func() string) Option { return func(s *Store) { s.newID = f } }

// Store holds every order for the lifetime of the process, most recent
// first. One mutation is in flight at a time; writeMu is held across
// repository I/O while mu only guards the in-memory collection, so reads
// never wait on the repository.
type Store struct {
	repo  Repository
	clock clock.Clock
	log   *zap.Logger
	retry RetryPolicy
	newID func() string

	writeMu sync.Mutex

	mu         sync.Mutex
	orders     []Order
	current    *Order
	nextNumber int
	gen        uint64
	inserted   map[string]uint64 // order id -> gen at which it was inserted
	loading    atomic.Int32

	subMu  sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:       repo,
		clock:      clock.System(),
		log:        zap.NewNop(),
		retry:      DefaultRetryPolicy,
		newID:      uuid.NewString,
		nextNumber: 1,
		inserted:   make(map[string]uint64),
		subs:       make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadOrders replaces the collection with the repository's contents. On
// failure the previous collection is kept. Updates and creates that land
// while the repository is being read survive the swap.
func (s *Store) LoadOrders(ctx context.Context) error {
	s.loading.Add(1)
	defer s.loading.Add(-1)

	since := s.generation()
	var loaded []Order
	err := s.withRetry(ctx, "load orders", func() error {
		var err error
		loaded, err = s.repo.LoadOrders(ctx)
		return err
	})
	if err != nil {
		s.log.Warn("load orders failed, keeping previous set", zap.Error(err))
		return err
	}

	s.replace(loaded, since)
	s.log.Info("orders loaded", zap.Int("count", len(loaded)))
	return nil
}

// Loading reports whether a bulk load or an order creation is in flight.
func (s *Store) Loading() bool {
	return s.loading.Load() > 0
}

// CreateOrder validates the draft, persists it and inserts it at the head of
// the collection. Invalid drafts leave the store untouched.
func (s *Store) CreateOrder(ctx context.Context, d Draft) (Order, error) {
	if err := d.validate(); err != nil {
		return Order{}, err
	}

	s.loading.Add(1)
	defer s.loading.Add(-1)

	s.writeMu.Lock()
	s.mu.Lock()
	o := Order{
		ID:            s.newID(),
		OrderNumber:   s.nextNumber,
		TableNumber:   d.TableNumber,
		Lines:         append([]Line(nil), d.Lines...),
		TotalAmount:   d.TotalAmount,
		PaymentStatus: d.PaymentStatus,
		OrderStatus:   StatusReceived,
		CreatedAt:     s.clock.Now(),
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
		Notes:         d.Notes,
	}
	s.mu.Unlock()
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentUnpaid
	}

	err := s.withRetry(ctx, "create order", func() error {
		return s.repo.CreateOrder(ctx, o)
	})
	if err != nil {
		s.writeMu.Unlock()
		s.log.Error("create order failed", zap.Int("table_number", d.TableNumber), zap.Error(err))
		return Order{}, err
	}

	s.mu.Lock()
	s.bumpSequence([]Order{o})
	s.insert(o)
	cur := o.clone()
	s.current = &cur
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.log.Info("order created",
		zap.String("order_id", o.ID),
		zap.Int("order_number", o.OrderNumber),
		zap.Int("table_number", o.TableNumber),
		zap.String("total_amount", o.TotalAmount.StringFixed(2)),
	)
	s.publish(Event{Type: EventCreated, Order: o.clone()})
	return o.clone(), nil
}

// UpdateOrderStatus moves an order forward. Re-applying the current status
// is a no-op; moving backward fails with ErrInvalidTransition.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status Status) (Order, error) {
	return s.update(ctx, id, func(o *Order) (bool, error) {
		changed, err := checkStatus(o.OrderStatus, status)
		if err != nil || !changed {
			return false, err
		}
		if err := s.repo.UpdateOrderStatus(ctx, id, status); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return false, apperr.Transient("update order status", err)
		}
		o.OrderStatus = status
		return true, nil
	})
}

// UpdatePaymentStatus marks an order paid. PAID to PAID is a no-op.
func (s *Store) UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) (Order, error) {
	return s.update(ctx, id, func(o *Order) (bool, error) {
		changed, err := checkPayment(o.PaymentStatus, status)
		if err != nil || !changed {
			return false, err
		}
		if err := s.repo.UpdatePaymentStatus(ctx, id, status); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return false, apperr.Transient("update payment status", err)
		}
		o.PaymentStatus = status
		return true, nil
	})
}

// update applies fn to a copy of the stored order and writes it back. The
// repository call inside fn runs without holding mu. A repository
// ErrNotFound is tolerated: orders injected by a regenerate tick live only
// in memory.
func (s *Store) update(ctx context.Context, id string, fn func(o *Order) (bool, error)) (Order, error) {
	s.writeMu.Lock()
	o, err := s.Get(id)
	if err != nil {
		s.writeMu.Unlock()
		s.log.Warn("update unknown order", zap.String("order_id", id))
		return Order{}, err
	}

	changed, err := fn(&o)
	if err != nil || !changed {
		s.writeMu.Unlock()
		if err != nil {
			return Order{}, err
		}
		return o, nil
	}

	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		s.orders[i] = mergeForward(s.orders[i], o)
		o = s.orders[i].clone()
	}
	if s.current != nil && s.current.ID == id {
		cur := o.clone()
		s.current = &cur
	}
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.log.Info("order updated",
		zap.String("order_id", o.ID),
		zap.String("order_status", string(o.OrderStatus)),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	s.publish(Event{Type: EventUpdated, Order: o.clone()})
	return o, nil
}

// Get returns a copy of the order with id.
func (s *Store) Get(id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return Order{}, apperr.NotFound("order", id)
	}
	return s.orders[i].clone(), nil
}

// Current returns the order most recently created through this store.
func (s *Store) Current() (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Order{}, false
	}
	return s.current.clone(), true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// ListOrders yields orders in insertion order (most recent first) matching
// every predicate. Each iteration reads a fresh snapshot, so the sequence
// can be ranged over repeatedly.
func (s *Store) ListOrders(preds ...Predicate) iter.Seq[Order] {
	return func(yield func(Order) bool) {
		s.mu.Lock()
		snapshot := slices.Clone(s.orders)
		s.mu.Unlock()

		for _, o := range snapshot {
			if !matchAll(o, preds) {
				continue
			}
			if !yield(o.clone()) {
				return
			}
		}
	}
}

// Replace swaps the whole collection. Orders already held are merged
// forward with their incoming copy, so neither status moves backward. The
// order number sequence never moves backward.
func (s *Store) Replace(orders []Order) {
	s.replace(orders, s.generation())
}

// replace installs orders as the collection. Held orders missing from
// orders are dropped unless they were inserted after generation since,
// i.e. while the caller was reading the repository.
func (s *Store) replace(orders []Order, since uint64) {
	s.writeMu.Lock()
	s.mu.Lock()
	held := make(map[string]Order, len(s.orders))
	for _, o := range s.orders {
		held[o.ID] = o
	}

	incoming := make(map[string]bool, len(orders))
	next := make([]Order, 0, len(orders))
	for _, in := range orders {
		incoming[in.ID] = true
		if o, ok := held[in.ID]; ok {
			next = append(next, mergeForward(o, in))
			continue
		}
		next = append(next, in.clone())
	}

	var kept []Order
	for _, o := range s.orders {
		if !incoming[o.ID] && s.inserted[o.ID] > since {
			kept = append(kept, o)
		}
	}
	s.orders = append(kept, next...)

	for id := range s.inserted {
		if s.index(id) < 0 {
			delete(s.inserted, id)
		}
	}
	s.bumpSequence(orders)
	if s.current != nil {
		if i := s.index(s.current.ID); i >= 0 {
			cur := s.orders[i].clone()
			s.current = &cur
		}
	}
	s.mu.Unlock()
	s.writeMu.Unlock()

	if len(kept) > 0 {
		s.log.Info("kept orders created during reload", zap.Int("count", len(kept)))
	}
	s.publish(Event{Type: EventReloaded})
}

// Upsert applies incremental deltas. Unknown orders are persisted and
// inserted at the head; known orders are merged without moving either
// status backward.
func (s *Store) Upsert(ctx context.Context, orders ...Order) error {
	if len(orders) == 0 {
		return nil
	}

	s.writeMu.Lock()
	err := s.withRetry(ctx, "upsert orders", func() error {
		return s.repo.UpsertOrders(ctx, orders)
	})
	if err != nil {
		s.writeMu.Unlock()
		s.log.Error("upsert orders failed", zap.Int("count", len(orders)), zap.Error(err))
		return err
	}

	s.mu.Lock()
	events := make([]Event, 0, len(orders))
	for _, in := range orders {
		if i := s.index(in.ID); i >= 0 {
			merged := mergeForward(s.orders[i], in)
			s.orders[i] = merged
			events = append(events, Event{Type: EventUpdated, Order: merged.clone()})
			continue
		}
		s.insert(in)
		events = append(events, Event{Type: EventCreated, Order: in.clone()})
	}
	s.bumpSequence(orders)
	s.mu.Unlock()
	s.writeMu.Unlock()

	for _, e := range events {
		s.publish(e)
	}
	return nil
}

// Ingest turns drafts into RECEIVED orders stamped at createdAt and upserts
// them. Used by the feed synchronizer.
func (s *Store) Ingest(ctx context.Context, drafts []Draft, createdAt time.Time) ([]Order, error) {
	orders, err := s.build(drafts, createdAt)
	if err != nil {
		return nil, err
	}
	if err := s.Upsert(ctx, orders...); err != nil {
		return nil, err
	}
	return orders, nil
}

// Regenerate reloads the repository's contents and places the drafted
// orders, stamped at createdAt, in front of them. The drafted orders are
// not persisted.
func (s *Store) Regenerate(ctx context.Context, drafts []Draft, createdAt time.Time) ([]Order, error) {
	s.loading.Add(1)
	defer s.loading.Add(-1)

	since := s.generation()
	var baseline []Order
	err := s.withRetry(ctx, "load orders", func() error {
		var err error
		baseline, err = s.repo.LoadOrders(ctx)
		return err
	})
	if err != nil {
		s.log.Warn("regenerate failed, keeping previous set", zap.Error(err))
		return nil, err
	}

	injected, err := s.build(drafts, createdAt)
	if err != nil {
		return nil, err
	}

	all := make([]Order, 0, len(injected)+len(baseline))
	for i := len(injected) - 1; i >= 0; i-- {
		all = append(all, injected[i])
	}
	all = append(all, baseline...)
	s.replace(all, since)
	return injected, nil
}

// build validates drafts and assigns ids and order numbers.
func (s *Store) build(drafts []Draft, createdAt time.Time) ([]Order, error) {
	for _, d := range drafts {
		if err := d.validate(); err != nil {
			return nil, err
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]Order, len(drafts))
	for i, d := range drafts {
		ps := d.PaymentStatus
		if ps == "" {
			ps = PaymentUnpaid
		}
		orders[i] = Order{
			ID:            s.newID(),
			OrderNumber:   s.nextNumber,
			TableNumber:   d.TableNumber,
			Lines:         append([]Line(nil), d.Lines...),
			TotalAmount:   d.TotalAmount,
			PaymentStatus: ps,
			OrderStatus:   StatusReceived,
			CreatedAt:     createdAt,
			CustomerName:  d.CustomerName,
			CustomerPhone: d.CustomerPhone,
			Notes:         d.Notes,
		}
		s.nextNumber++
	}
	return orders, nil
}

// Subscribe registers fn for every store event. The returned func
// unregisters it.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(e Event) {
	s.subMu.RLock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// withRetry runs op with bounded exponential backoff. Validation and
// not-found errors are not retried. Exhausted retries surface as
// ErrTransientIO.
func (s *Store) withRetry(ctx context.Context, name string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		s.log.Debug("repository call failed", zap.String("op", name), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.retry.MaxRetries), ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrTransientIO) {
		return err
	}
	return apperr.Transient(name, err)
}

// generation marks the current point in the insert history.
func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// insert puts o at the head of the collection. Callers hold mu.
func (s *Store) insert(o Order) {
	s.gen++
	s.inserted[o.ID] = s.gen
	s.orders = slices.Insert(s.orders, 0, o.clone())
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.orders, func(o Order) bool { return o.ID == id })
}

func (s *Store) bumpSequence(orders []Order) {
	for _, o := range orders {
		if o.OrderNumber >= s.nextNumber {
			s.nextNumber = o.OrderNumber + 1
		}
	}
}
