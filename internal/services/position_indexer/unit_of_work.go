package position_indexer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
)

type entityKey struct {
	kind entity.Kind
	id   string
}

// UnitOfWork is the write overlay for one handled event. Loads are served from
// the overlay first so every read inside a handler sees the handler's own
// writes; nothing reaches the store until Commit.
//
// A UnitOfWork is not safe for concurrent use.
type UnitOfWork struct {
	store  outbound.EntityStore
	loaded map[entityKey]entity.Entity // nil value caches a miss
	dirty  map[entityKey]bool
	order  []entityKey
}

// NewUnitOfWork creates an empty overlay over store.
func NewUnitOfWork(store outbound.EntityStore) *UnitOfWork {
	return &UnitOfWork{
		store:  store,
		loaded: make(map[entityKey]entity.Entity),
		dirty:  make(map[entityKey]bool),
	}
}

func (u *UnitOfWork) load(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	k := entityKey{kind: kind, id: id}
	if e, ok := u.loaded[k]; ok {
		return e, nil
	}
	e, err := u.store.Load(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}
	u.loaded[k] = e
	return e, nil
}

func loadAs[T entity.Entity](ctx context.Context, u *UnitOfWork, kind entity.Kind, id string) (T, error) {
	var zero T
	e, err := u.load(ctx, kind, id)
	if err != nil || e == nil {
		return zero, err
	}
	typed, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("entity %s %s has unexpected type %T", kind, id, e)
	}
	return typed, nil
}

// Save stages e for the next Commit. Saving the same key twice keeps a single
// write holding the latest value.
func (u *UnitOfWork) Save(e entity.Entity) {
	k := entityKey{kind: e.EntityKind(), id: e.EntityID()}
	u.loaded[k] = e
	if !u.dirty[k] {
		u.dirty[k] = true
		u.order = append(u.order, k)
	}
}

// Pending returns the staged writes in first-save order.
func (u *UnitOfWork) Pending() []entity.Entity {
	out := make([]entity.Entity, 0, len(u.order))
	for _, k := range u.order {
		out = append(out, u.loaded[k])
	}
	return out
}

// Commit writes all staged entities in one store call. An empty overlay commits
// nothing.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if len(u.order) == 0 {
		return nil
	}
	if err := u.store.SaveAll(ctx, u.Pending()); err != nil {
		return fmt.Errorf("failed to commit %d entities: %w", len(u.order), err)
	}
	return nil
}

// GetOrCreateUser returns the user for address, creating and staging it on miss.
func (u *UnitOfWork) GetOrCreateUser(ctx context.Context, address common.Address, timestamp int64) (*entity.User, error) {
	user, err := u.LoadUser(ctx, entity.UserID(address))
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	user, err = entity.NewUser(address, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	u.Save(user)
	return user, nil
}

// GetOrCreateProtocolStats returns the protocol singleton, creating and staging
// it on first access.
func (u *UnitOfWork) GetOrCreateProtocolStats(ctx context.Context) (*entity.ProtocolStats, error) {
	stats, err := loadAs[*entity.ProtocolStats](ctx, u, entity.KindProtocolStats, entity.ProtocolStatsID)
	if err != nil {
		return nil, err
	}
	if stats != nil {
		return stats, nil
	}
	stats = entity.NewProtocolStats()
	u.Save(stats)
	return stats, nil
}

// GetOrCreatePosition returns the position for tokenID. A new position is
// constructed but not staged; the caller saves it once its fields are set.
func (u *UnitOfWork) GetOrCreatePosition(ctx context.Context, tokenID *big.Int, timestamp int64) (*entity.Position, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(tokenID))
	if err != nil {
		return nil, err
	}
	if pos != nil {
		return pos, nil
	}
	pos, err = entity.NewPosition(tokenID, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	// Cache the new value so later reads in the same handler see it.
	u.loaded[entityKey{kind: entity.KindPosition, id: pos.ID}] = pos
	return pos, nil
}

// LoadPosition returns nil, nil when the position does not exist.
func (u *UnitOfWork) LoadPosition(ctx context.Context, id string) (*entity.Position, error) {
	return loadAs[*entity.Position](ctx, u, entity.KindPosition, id)
}

// LoadUser returns nil, nil when the user does not exist.
func (u *UnitOfWork) LoadUser(ctx context.Context, id string) (*entity.User, error) {
	return loadAs[*entity.User](ctx, u, entity.KindUser, id)
}

// LoadLooperData returns nil, nil when the position has no loop data.
func (u *UnitOfWork) LoadLooperData(ctx context.Context, id string) (*entity.LooperPositionData, error) {
	return loadAs[*entity.LooperPositionData](ctx, u, entity.KindLooperData, id)
}

func (u *UnitOfWork) processed(ctx context.Context, id string) (bool, error) {
	marker, err := loadAs[*entity.ProcessedLog](ctx, u, entity.KindProcessedLog, id)
	if err != nil {
		return false, err
	}
	return marker != nil, nil
}
