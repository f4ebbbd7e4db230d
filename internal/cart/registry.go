package cart

import (
	"sync"

	"github.com/google/uuid"
	"github.com/orderin/api/internal/apperr"
)

// Registry keeps one cart per customer session.
type Registry struct {
	mu    sync.RWMutex
	carts map[uuid.UUID]*Cart
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[uuid.UUID]*Cart)}
}

// Open starts a new empty cart and returns its session key.
func (r *Registry) Open() (uuid.UUID, *Cart) {
	id := uuid.New()
	c := New()

	r.mu.Lock()
	r.carts[id] = c
	r.mu.Unlock()

	return id, c
}

func (r *Registry) Get(id uuid.UUID) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, apperr.NotFound("cart", id.String())
	}
	return c, nil
}

// Take removes the cart and hands it to the caller, so only one checkout of
// a cart can be in flight. Restore puts it back.
func (r *Registry) Take(id uuid.UUID) (*Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, apperr.NotFound("cart", id.String())
	}
	delete(r.carts, id)
	return c, nil
}

func (r *Registry) Restore(id uuid.UUID, c *Cart) {
	r.mu.Lock()
	r.carts[id] = c
	r.mu.Unlock()
}

// Drop forgets the cart. Dropping an unknown id is a no-op.
func (r *Registry) Drop(id uuid.UUID) {
	r.mu.Lock()
	delete(r.carts, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}
