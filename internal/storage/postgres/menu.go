package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"restaurant-pos/internal/database"
	"restaurant-pos/internal/models"
)

func (s *Store) MenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var (
		item  models.MenuItem
		name  []byte
		price pgtype.Numeric
	)

	err := s.db.QueryRow(ctx, database.GetMenuItemSQL, id).Scan(&item.ID, &name, &price, &item.HasSizes, &item.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("menu item %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}

	if err := json.Unmarshal(name, &item.Name); err != nil {
		return nil, fmt.Errorf("failed to decode menu item name: %w", err)
	}
	if item.BasePrice, err = database.Decimal(price); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, database.ListItemSizesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query item sizes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var size models.ItemSize
		var sizeName []byte
		var sizePrice pgtype.Numeric
		if err := rows.Scan(&size.ID, &size.ItemID, &sizeName, &sizePrice); err != nil {
			return nil, fmt.Errorf("failed to scan item size: %w", err)
		}
		if err := json.Unmarshal(sizeName, &size.Name); err != nil {
			return nil, fmt.Errorf("failed to decode size name: %w", err)
		}
		if size.Price, err = database.Decimal(sizePrice); err != nil {
			return nil, err
		}
		item.Sizes = append(item.Sizes, size)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item sizes: %w", err)
	}

	return &item, nil
}

func (s *Store) Modifiers(ctx context.Context, ids []uuid.UUID) ([]models.Modifier, error) {
	if len(ids) == 0 {
		return []models.Modifier{}, nil
	}

	rows, err := s.db.Query(ctx, database.ListModifiersByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifiers: %w", err)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]models.Modifier, len(ids))
	for rows.Next() {
		var mod models.Modifier
		var name []byte
		var price pgtype.Numeric
		if err := rows.Scan(&mod.ID, &mod.ItemID, &name, &price, &mod.Active); err != nil {
			return nil, fmt.Errorf("failed to scan modifier: %w", err)
		}
		if err := json.Unmarshal(name, &mod.Name); err != nil {
			return nil, fmt.Errorf("failed to decode modifier name: %w", err)
		}
		if mod.Price, err = database.Decimal(price); err != nil {
			return nil, err
		}
		found[mod.ID] = mod
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate modifiers: %w", err)
	}

	out := make([]models.Modifier, 0, len(ids))
	for _, id := range ids {
		mod, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("modifier %s: %w", id, models.ErrNotFound)
		}
		out = append(out, mod)
	}
	return out, nil
}
