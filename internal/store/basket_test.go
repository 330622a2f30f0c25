package store

import (
	"context"
	"testing"

	"lightning-pos/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func testItem(id, name string, price int64) domain.Item {
	return domain.Item{ID: id, Name: name, Price: price}
}

// Property: no sequence of Add/UpdateQuantity calls leaves an entry with a
// quantity below 1
func TestProperty_BasketNeverHoldsNonPositiveQuantity(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("quantities stay >= 1 under random add/update sequences", prop.ForAll(
		func(addQuantities []int, updateQuantities []int) bool {
			basket := NewBasketStore(newTestKV(t))
			ctx := context.Background()

			for i, q := range addQuantities {
				if q <= 0 {
					// Callers must validate; skip invalid input
					continue
				}
				id := string(rune('a' + i%5))
				if err := basket.Add(ctx, testItem(id, "Item "+id, 100), q); err != nil {
					t.Logf("FAIL: Add returned error: %v", err)
					return false
				}
			}

			for i, q := range updateQuantities {
				id := string(rune('a' + i%5))
				if err := basket.UpdateQuantity(ctx, id, q); err != nil {
					t.Logf("FAIL: UpdateQuantity returned error: %v", err)
					return false
				}
			}

			entries, err := basket.Get(ctx)
			if err != nil {
				t.Logf("FAIL: Get returned error: %v", err)
				return false
			}

			for _, entry := range entries {
				if entry.Quantity < 1 {
					t.Logf("FAIL: entry %s has quantity %d", entry.ID, entry.Quantity)
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-3, 10)),
		gen.SliceOf(gen.IntRange(-3, 10)),
	))

	properties.TestingRun(t)
}

// Property: Total equals the exact sum of price * quantity over all entries
func TestProperty_TotalIsExactSum(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total matches the integer sum over entries", prop.ForAll(
		func(prices []int64, quantities []int) bool {
			basket := NewBasketStore(newTestKV(t))
			ctx := context.Background()

			var expected int64
			for i, price := range prices {
				quantity := 1
				if i < len(quantities) && quantities[i] > 0 {
					quantity = quantities[i]
				}
				id := string(rune('a' + i))
				if err := basket.Add(ctx, testItem(id, "Item", price), quantity); err != nil {
					t.Logf("FAIL: Add returned error: %v", err)
					return false
				}
				expected += price * int64(quantity)
			}

			total, err := basket.Total(ctx)
			if err != nil {
				t.Logf("FAIL: Total returned error: %v", err)
				return false
			}

			if total != expected {
				t.Logf("FAIL: expected total %d, got %d", expected, total)
				return false
			}
			return true
		},
		gen.SliceOfN(8, gen.Int64Range(0, 1_000_000)),
		gen.SliceOfN(8, gen.IntRange(1, 50)),
	))

	properties.TestingRun(t)
}

func TestBasketAddAccumulatesQuantity(t *testing.T) {
	basket := NewBasketStore(newTestKV(t))
	ctx := context.Background()

	coffee := testItem("coffee", "Coffee", 500)
	if err := basket.Add(ctx, coffee, 2); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := basket.Add(ctx, coffee, 3); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := basket.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", entries[0].Quantity)
	}
}

func TestBasketAddKeepsOriginalSnapshot(t *testing.T) {
	basket := NewBasketStore(newTestKV(t))
	ctx := context.Background()

	if err := basket.Add(ctx, testItem("coffee", "Coffee", 500), 1); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Re-adding the same identifier with changed name and price must only
	// bump the quantity; the stored snapshot wins
	if err := basket.Add(ctx, testItem("coffee", "Espresso", 900), 1); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries, err := basket.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "Coffee" || entries[0].Price != 500 {
		t.Errorf("snapshot was refreshed: got name %q price %d", entries[0].Name, entries[0].Price)
	}
	if entries[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", entries[0].Quantity)
	}
}

func TestUpdateQuantityRemovesAtZeroOrBelow(t *testing.T) {
	basket := NewBasketStore(newTestKV(t))
	ctx := context.Background()

	if err := basket.Add(ctx, testItem("tea", "Tea", 300), 2); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := basket.UpdateQuantity(ctx, "tea", 0); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}

	entries, err := basket.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty basket, got %d entries", len(entries))
	}

	// Removing an absent entry is a no-op
	if err := basket.UpdateQuantity(ctx, "tea", -1); err != nil {
		t.Fatalf("UpdateQuantity on absent entry failed: %v", err)
	}
}

func TestUpdateQuantitySetsExactValue(t *testing.T) {
	basket := NewBasketStore(newTestKV(t))
	ctx := context.Background()

	if err := basket.Add(ctx, testItem("tea", "Tea", 300), 2); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := basket.UpdateQuantity(ctx, "tea", 7); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}

	entries, err := basket.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entries[0].Quantity != 7 {
		t.Errorf("expected quantity 7 (not additive), got %d", entries[0].Quantity)
	}
}

func TestClearBasketEmptiesCollection(t *testing.T) {
	basket := NewBasketStore(newTestKV(t))
	ctx := context.Background()

	if err := basket.Add(ctx, testItem("a", "A", 100), 1); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := basket.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	entries, err := basket.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty basket, got %d entries", len(entries))
	}

	total, err := basket.Total(ctx)
	if err != nil {
		t.Fatalf("Total failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected total 0, got %d", total)
	}
}
