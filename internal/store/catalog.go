package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"lightning-pos/internal/domain"
	"lightning-pos/internal/storage"
)

var (
	ErrEmptyID = errors.New("identifier must not be empty")
)

// CatalogStore persists items and categories. Collections are kept as
// ordered sequences; mutations are read-mutate-write against the KV
// collaborator under a single lock, so the DeleteCategory cascade is never
// observable half-applied.
type CatalogStore struct {
	mu sync.Mutex
	kv storage.KV
}

// NewCatalogStore creates a CatalogStore over the given KV collaborator.
func NewCatalogStore(kv storage.KV) *CatalogStore {
	return &CatalogStore{kv: kv}
}

// ListItems returns all catalog items in stored order.
func (s *CatalogStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readItems(ctx)
}

// UpsertItem inserts the item if its identifier is absent, or replaces the
// existing item in place, preserving collection order.
func (s *CatalogStore) UpsertItem(ctx context.Context, item domain.Item) error {
	if item.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readItems(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}

	return s.writeItems(ctx, items)
}

// DeleteItem removes the item with the given identifier. Deleting an absent
// item is a no-op.
func (s *CatalogStore) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.readItems(ctx)
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}

	return s.writeItems(ctx, kept)
}

// ListCategories returns all categories in stored order.
func (s *CatalogStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readCategories(ctx)
}

// UpsertCategory inserts or replaces a category, preserving order.
func (s *CatalogStore) UpsertCategory(ctx context.Context, category domain.Category) error {
	if category.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.readCategories(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range categories {
		if categories[i].ID == category.ID {
			categories[i] = category
			replaced = true
			break
		}
	}
	if !replaced {
		categories = append(categories, category)
	}

	return s.writeCategories(ctx, categories)
}

// DeleteCategory removes the category and nulls the category reference of
// every item that pointed at it. Both writes happen under one lock; callers
// never observe the category gone while items still reference it.
func (s *CatalogStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.readCategories(ctx)
	if err != nil {
		return err
	}

	kept := categories[:0]
	for _, category := range categories {
		if category.ID != id {
			kept = append(kept, category)
		}
	}
	if err := s.writeCategories(ctx, kept); err != nil {
		return err
	}

	items, err := s.readItems(ctx)
	if err != nil {
		return err
	}

	changed := false
	for i := range items {
		if items[i].CategoryID == id {
			items[i].CategoryID = ""
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return s.writeItems(ctx, items)
}

func (s *CatalogStore) readItems(ctx context.Context) ([]domain.Item, error) {
	raw, err := s.kv.Read(ctx, storage.KeyItems)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []domain.Item{}, nil
	}

	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (s *CatalogStore) writeItems(ctx context.Context, items []domain.Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	return s.kv.Write(ctx, storage.KeyItems, raw)
}

func (s *CatalogStore) readCategories(ctx context.Context) ([]domain.Category, error) {
	raw, err := s.kv.Read(ctx, storage.KeyCategories)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []domain.Category{}, nil
	}

	var categories []domain.Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogStore) writeCategories(ctx context.Context, categories []domain.Category) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	return s.kv.Write(ctx, storage.KeyCategories, raw)
}
