//go:build integration

package postgres

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/testutil"
)

func newIntegrationStore(t *testing.T) (*EntityStore, *TxManager) {
	t.Helper()
	pool := testutil.SetupPostgres(t)
	txm, err := NewTxManager(pool, nil)
	if err != nil {
		t.Fatalf("NewTxManager: %v", err)
	}
	store, err := NewEntityStore(pool, txm, nil)
	if err != nil {
		t.Fatalf("NewEntityStore: %v", err)
	}
	return store, txm
}

func TestEntityStore_RoundTrip(t *testing.T) {
	store, _ := newIntegrationStore(t)
	ctx := context.Background()

	pos, err := entity.NewPosition(big.NewInt(42), 1_700_000_000)
	if err != nil {
		t.Fatalf("NewPosition: %v", err)
	}
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
	pos.Collateral = huge
	pos.Debt = big.NewInt(-7)

	stats := entity.NewProtocolStats()
	stats.TotalPositions = 1

	if err := store.SaveAll(ctx, []entity.Entity{pos, stats}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	got, err := store.Load(ctx, entity.KindPosition, pos.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	loaded := got.(*entity.Position)
	if loaded.Collateral.Cmp(huge) != 0 {
		t.Errorf("collateral = %s, want %s", loaded.Collateral, huge)
	}
	if loaded.Debt.Cmp(big.NewInt(-7)) != 0 {
		t.Errorf("debt = %s, want -7", loaded.Debt)
	}

	missing, err := store.Load(ctx, entity.KindPosition, "999")
	if err != nil || missing != nil {
		t.Errorf("Load(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestEntityStore_Upsert(t *testing.T) {
	store, _ := newIntegrationStore(t)
	ctx := context.Background()

	user, err := entity.NewUser(common.HexToAddress("0xa11ce"), 100)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := store.SaveAll(ctx, []entity.Entity{user}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	user.TotalPositions = 3
	if err := store.SaveAll(ctx, []entity.Entity{user}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	got, err := store.Load(ctx, entity.KindUser, user.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.(*entity.User).TotalPositions != 3 {
		t.Errorf("totalPositions = %d, want 3", got.(*entity.User).TotalPositions)
	}
}

type failingAfterTx struct {
	inner *TxManager
}

func (f failingAfterTx) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return f.inner.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errors.New("injected failure")
	})
}

func TestEntityStore_SaveAllRollsBack(t *testing.T) {
	pool := testutil.SetupPostgres(t)
	txm, err := NewTxManager(pool, nil)
	if err != nil {
		t.Fatalf("NewTxManager: %v", err)
	}
	store, err := NewEntityStore(pool, failingAfterTx{inner: txm}, nil)
	if err != nil {
		t.Fatalf("NewEntityStore: %v", err)
	}
	ctx := context.Background()

	marker := entity.NewProcessedLog(common.HexToHash("0x01"), 3, entity.EventDeposit, entity.SourceAlchemistV3, 10)
	pos, _ := entity.NewPosition(big.NewInt(1), 10)

	if err := store.SaveAll(ctx, []entity.Entity{pos, marker}); err == nil {
		t.Fatal("expected error")
	}

	for _, e := range []entity.Entity{pos, marker} {
		got, err := store.Load(ctx, e.EntityKind(), e.EntityID())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != nil {
			t.Errorf("%s %s persisted after rollback", e.EntityKind(), e.EntityID())
		}
	}
}
