package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderin/api/internal/catalog"
)

type MenuStore struct {
	pool *pgxpool.Pool
}

func NewMenuStore(pool *pgxpool.Pool) *MenuStore {
	return &MenuStore{pool: pool}
}

// ListMenuItems returns the menu in display order.
func (s *MenuStore) ListMenuItems(ctx context.Context) ([]catalog.MenuItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, price, description, image_url, category, is_available, rating
		FROM menu_items
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.MenuItem, error) {
		var m catalog.MenuItem
		err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Description, &m.ImageURL, &m.Category, &m.Available, &m.Rating)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan menu items: %w", err)
	}
	return items, nil
}
