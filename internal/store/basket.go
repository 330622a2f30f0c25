package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"lightning-pos/internal/domain"
	"lightning-pos/internal/storage"
)

// BasketStore persists the current basket: item snapshots annotated with a
// quantity. Entries never carry a quantity below 1; an update that would
// drive a quantity to zero or below removes the entry instead.
type BasketStore struct {
	mu sync.Mutex
	kv storage.KV
}

// NewBasketStore creates a BasketStore over the given KV collaborator.
func NewBasketStore(kv storage.KV) *BasketStore {
	return &BasketStore{kv: kv}
}

// Get returns all basket entries in stored order.
func (s *BasketStore) Get(ctx context.Context) ([]domain.BasketEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Add puts quantity units of item into the basket. If an entry with the
// item's identifier already exists its quantity is incremented; the stored
// snapshot (name, price, description) is kept as-is, not refreshed from the
// catalog. Callers must supply a positive quantity.
func (s *BasketStore) Add(ctx context.Context, item domain.Item, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range entries {
		if entries[i].ID == item.ID {
			entries[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, domain.BasketEntry{Item: item, Quantity: quantity})
	}

	return s.write(ctx, entries)
}

// UpdateQuantity sets the entry's quantity to exactly quantity. A quantity
// of zero or below removes the entry; removing an absent entry is a no-op.
func (s *BasketStore) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return err
	}

	if quantity <= 0 {
		kept := entries[:0]
		for _, entry := range entries {
			if entry.ID != id {
				kept = append(kept, entry)
			}
		}
		return s.write(ctx, kept)
	}

	for i := range entries {
		if entries[i].ID == id {
			entries[i].Quantity = quantity
			return s.write(ctx, entries)
		}
	}

	return nil
}

// Clear empties the basket.
func (s *BasketStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, []domain.BasketEntry{})
}

// Total returns the exact sum of price times quantity over all entries, in
// satoshis. Integer arithmetic throughout; nothing to round.
func (s *BasketStore) Total(ctx context.Context) (int64, error) {
	entries, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, entry := range entries {
		total += entry.Price * int64(entry.Quantity)
	}
	return total, nil
}

func (s *BasketStore) read(ctx context.Context) ([]domain.BasketEntry, error) {
	raw, err := s.kv.Read(ctx, storage.KeyBasket)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []domain.BasketEntry{}, nil
	}

	var entries []domain.BasketEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode basket: %w", err)
	}
	return entries, nil
}

func (s *BasketStore) write(ctx context.Context, entries []domain.BasketEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode basket: %w", err)
	}
	return s.kv.Write(ctx, storage.KeyBasket, raw)
}
