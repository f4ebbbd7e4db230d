package order

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/orderin/api/internal/apperr"
)

// MemoryRepository is the in-process persistence collaborator. It keeps
// its own copy of every order and can simulate network latency and
// failures.
type MemoryRepository struct {
	mu       sync.Mutex
	orders   []Order
	delay    time.Duration
	failErr  error
	failLeft int
}

func NewMemoryRepository(seed []Order, delay time.Duration) *MemoryRepository {
	r := &MemoryRepository{delay: delay}
	for _, o := range seed {
		r.orders = append(r.orders, o.clone())
	}
	return r
}

// FailNext makes the next n calls return err.
func (r *MemoryRepository) FailNext(n int, err error) {
	r.mu.Lock()
	r.failErr, r.failLeft = err, n
	r.mu.Unlock()
}

func (r *MemoryRepository) LoadOrders(ctx context.Context) ([]Order, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, len(r.orders))
	for i, o := range r.orders {
		out[i] = o.clone()
	}
	return out, nil
}

func (r *MemoryRepository) CreateOrder(ctx context.Context, o Order) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = slices.Insert(r.orders, 0, o.clone())
	return nil
}

func (r *MemoryRepository) UpdateOrderStatus(ctx context.Context, id string, status Status) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.mutate(id, func(o *Order) { o.OrderStatus = status })
}

func (r *MemoryRepository) UpdatePaymentStatus(ctx context.Context, id string, status PaymentStatus) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	return r.mutate(id, func(o *Order) { o.PaymentStatus = status })
}

func (r *MemoryRepository) UpsertOrders(ctx context.Context, orders []Order) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, in := range orders {
		i := slices.IndexFunc(r.orders, func(o Order) bool { return o.ID == in.ID })
		if i >= 0 {
			r.orders[i] = mergeForward(r.orders[i], in)
			continue
		}
		r.orders = slices.Insert(r.orders, 0, in.clone())
	}
	return nil
}

func (r *MemoryRepository) mutate(id string, fn func(o *Order)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.orders, func(o Order) bool { return o.ID == id })
	if i < 0 {
		return apperr.NotFound("order", id)
	}
	fn(&r.orders[i])
	return nil
}

// wait applies the simulated delay and any injected failure.
func (r *MemoryRepository) wait(ctx context.Context) error {
	if r.delay > 0 {
		t := time.NewTimer(r.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLeft > 0 {
		r.failLeft--
		return r.failErr
	}
	return nil
}
