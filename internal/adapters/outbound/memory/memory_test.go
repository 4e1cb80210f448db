package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
)

func TestEntityStore_LoadMiss(t *testing.T) {
	store := NewEntityStore()
	got, err := store.Load(context.Background(), entity.KindPosition, "1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("Load = %v, want nil", got)
	}
}

func TestEntityStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore()

	pos, err := entity.NewPosition(big.NewInt(7), 100)
	if err != nil {
		t.Fatal(err)
	}
	pos.Collateral = big.NewInt(500)
	if err := store.SaveAll(ctx, []entity.Entity{pos}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	pos.Collateral.SetInt64(1)

	loaded, err := store.Load(ctx, entity.KindPosition, "7")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded.(*entity.Position)
	if got.Collateral.Cmp(big.NewInt(500)) != 0 {
		t.Errorf("collateral = %s, want 500", got.Collateral)
	}

	got.Collateral.SetInt64(2)
	again, _ := store.Load(ctx, entity.KindPosition, "7")
	if again.(*entity.Position).Collateral.Cmp(big.NewInt(500)) != 0 {
		t.Error("mutating a loaded entity changed the stored record")
	}
}

func TestEntityStore_FailSavesWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewEntityStore()
	boom := errors.New("boom")
	store.FailSaves(boom)

	err := store.SaveAll(ctx, []entity.Entity{entity.NewProtocolStats()})
	if !errors.Is(err, boom) {
		t.Fatalf("SaveAll error = %v, want boom", err)
	}
	if n := store.Count(entity.KindProtocolStats); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
	if store.Saves() != 0 {
		t.Errorf("Saves = %d, want 0", store.Saves())
	}
}

func TestReceiptCache(t *testing.T) {
	ctx := context.Background()
	cache := NewReceiptCache()
	cache.SetReceipts(1, 100, 0, []byte(`[]`))

	got, err := cache.GetReceipts(ctx, 1, 100, 0)
	if err != nil || string(got) != "[]" {
		t.Fatalf("GetReceipts = %q, %v", got, err)
	}

	miss, err := cache.GetReceipts(ctx, 1, 100, 1)
	if err != nil || miss != nil {
		t.Fatalf("GetReceipts other version = %q, %v; want nil", miss, err)
	}

	_ = cache.Close()
	if _, err := cache.GetReceipts(ctx, 1, 100, 0); err == nil {
		t.Error("expected error after Close")
	}
}

func TestQueue_DeleteAndRequeue(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	first := q.Push("a")
	second := q.Push("b")
	q.Push("c")

	msgs, err := q.ReceiveMessages(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].MessageID != first || msgs[1].MessageID != second {
		t.Fatalf("received %+v", msgs)
	}

	if err := q.DeleteMessage(ctx, msgs[0].ReceiptHandle); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := q.DeleteMessage(ctx, msgs[0].ReceiptHandle); err == nil {
		t.Error("expected error deleting twice")
	}

	q.Requeue()
	if q.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", q.Pending())
	}
	again, _ := q.ReceiveMessages(ctx, 10)
	if again[0].MessageID != second || again[1].Body != "c" {
		t.Errorf("redelivery order = %+v", again)
	}
	if d := q.Deleted(); len(d) != 1 || d[0] != first {
		t.Errorf("Deleted = %v", d)
	}
}
