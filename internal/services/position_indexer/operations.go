package position_indexer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// operation is a dialect-independent state change. apply reports false when the
// event must be skipped because its position does not exist; a skipped
// operation must not have staged any write.
type operation interface {
	apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error)
}

type depositOp struct {
	TokenID   *big.Int
	Amount    *big.Int
	Shares    *big.Int
	Depositor common.Address
}

type withdrawOp struct {
	TokenID   *big.Int
	Amount    *big.Int
	Shares    *big.Int
	Recipient common.Address
}

type borrowOp struct {
	TokenID   *big.Int
	Amount    *big.Int
	Recipient common.Address
}

// repayOp reduces debt by Amount, or sets it to NewDebt when NewDebt is non-nil.
type repayOp struct {
	TokenID *big.Int
	Amount  *big.Int
	Payer   common.Address
	Source  entity.RepaySource
	NewDebt *big.Int
}

type liquidationOp struct {
	TokenID    *big.Int
	Seized     *big.Int
	Repaid     *big.Int
	Liquidator common.Address
}

type transferOp struct {
	From    common.Address
	To      common.Address
	TokenID *big.Int
}

func eventBase(positionID string, m Meta) (entity.EventBase, error) {
	b, err := entity.NewEventBase(positionID, m.TxHash, m.LogIndex, m.BlockNumber, m.Timestamp)
	if err != nil {
		return entity.EventBase{}, fmt.Errorf("failed to build event record: %w", err)
	}
	return b, nil
}

func (op depositOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.GetOrCreatePosition(ctx, op.TokenID, m.Timestamp)
	if err != nil {
		return false, err
	}
	base, err := eventBase(pos.ID, m)
	if err != nil {
		return false, err
	}
	u.Save(&entity.DepositEvent{
		EventBase:     base,
		Amount:        op.Amount,
		Shares:        op.Shares,
		Depositor:     op.Depositor,
		IsLoopDeposit: m.LoopTx,
	})
	return true, settle(ctx, u, pos, op.Shares, nil, m.Timestamp)
}

func (op withdrawOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	base, err := eventBase(pos.ID, m)
	if err != nil {
		return false, err
	}
	u.Save(&entity.WithdrawalEvent{
		EventBase: base,
		Shares:    op.Shares,
		Amount:    op.Amount,
		Recipient: op.Recipient,
	})
	return true, settle(ctx, u, pos, new(big.Int).Neg(op.Shares), nil, m.Timestamp)
}

func (op borrowOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	base, err := eventBase(pos.ID, m)
	if err != nil {
		return false, err
	}
	u.Save(&entity.BorrowEvent{
		EventBase:    base,
		Amount:       op.Amount,
		Recipient:    op.Recipient,
		IsLoopBorrow: m.LoopTx,
	})
	return true, settle(ctx, u, pos, nil, op.Amount, m.Timestamp)
}

func (op repayOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	base, err := eventBase(pos.ID, m)
	if err != nil {
		return false, err
	}

	delta := new(big.Int).Neg(op.Amount)
	if op.NewDebt != nil {
		// Force repayments report the resulting debt; the delta keeps totals aligned.
		delta = numeric.Sub(op.NewDebt, pos.Debt)
	}

	u.Save(&entity.RepayEvent{
		EventBase: base,
		Amount:    op.Amount,
		Payer:     op.Payer,
		Source:    op.Source,
		NewDebt:   op.NewDebt,
	})
	return true, settle(ctx, u, pos, nil, delta, m.Timestamp)
}

func (op liquidationOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	base, err := eventBase(pos.ID, m)
	if err != nil {
		return false, err
	}
	u.Save(&entity.LiquidationEvent{
		EventBase:            base,
		CollateralLiquidated: op.Seized,
		DebtRepaid:           op.Repaid,
		Liquidator:           op.Liquidator,
	})
	return true, settle(ctx, u, pos, new(big.Int).Neg(op.Seized), new(big.Int).Neg(op.Repaid), m.Timestamp)
}

func (op transferOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	zero := common.Address{}
	switch {
	case op.From == zero:
		return true, op.mint(ctx, u, m)
	case op.To == zero:
		return op.burn(ctx, u, m)
	default:
		return op.reassign(ctx, u, m)
	}
}

func (op transferOp) mint(ctx context.Context, u *UnitOfWork, m Meta) error {
	pos, err := u.GetOrCreatePosition(ctx, op.TokenID, m.Timestamp)
	if err != nil {
		return err
	}
	owner, err := u.GetOrCreateUser(ctx, op.To, m.Timestamp)
	if err != nil {
		return err
	}
	owner.TotalPositions++
	u.Save(owner)

	pos.Owner = owner.ID
	pos.UpdatedAt = m.Timestamp
	u.Save(pos)

	stats, err := u.GetOrCreateProtocolStats(ctx)
	if err != nil {
		return err
	}
	stats.TotalPositions++
	stats.UpdatedAt = m.Timestamp
	u.Save(stats)
	return nil
}

// burn decrements counters only; the position record is kept for history.
func (op transferOp) burn(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	if err := releaseOwner(ctx, u, pos); err != nil {
		return false, err
	}

	stats, err := u.GetOrCreateProtocolStats(ctx)
	if err != nil {
		return false, err
	}
	stats.TotalPositions--
	if pos.IsLoopedPosition {
		stats.TotalLoopedPositions--
	}
	stats.UpdatedAt = m.Timestamp
	u.Save(stats)
	return true, nil
}

func (op transferOp) reassign(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	if err := releaseOwner(ctx, u, pos); err != nil {
		return false, err
	}

	owner, err := u.GetOrCreateUser(ctx, op.To, m.Timestamp)
	if err != nil {
		return false, err
	}
	owner.TotalPositions++
	u.Save(owner)

	pos.Owner = owner.ID
	pos.UpdatedAt = m.Timestamp
	u.Save(pos)
	return true, nil
}

// releaseOwner decrements the current owner's count. An owner that was never
// indexed is left alone.
func releaseOwner(ctx context.Context, u *UnitOfWork, pos *entity.Position) error {
	if !pos.HasOwner() {
		return nil
	}
	prev, err := u.LoadUser(ctx, pos.Owner)
	if err != nil || prev == nil {
		return err
	}
	prev.TotalPositions--
	u.Save(prev)
	return nil
}

// settle moves the position's balances by the signed deltas, cascades them to
// ProtocolStats, refreshes the loop multiple, and upserts the day's snapshot. Nil
// deltas count as zero.
func settle(ctx context.Context, u *UnitOfWork, pos *entity.Position, collateral, debt *big.Int, ts int64) error {
	if err := moveBalances(ctx, u, pos, collateral, debt, ts); err != nil {
		return err
	}
	if pos.IsLoopedPosition {
		ld, err := u.LoadLooperData(ctx, pos.ID)
		if err != nil {
			return err
		}
		if ld != nil && ld.RecomputeMultiple(pos.Collateral) {
			u.Save(ld)
		}
	}
	return snapshot(ctx, u, pos, ts)
}

func moveBalances(ctx context.Context, u *UnitOfWork, pos *entity.Position, collateral, debt *big.Int, ts int64) error {
	pos.Collateral = numeric.Add(pos.Collateral, collateral)
	pos.Debt = numeric.Add(pos.Debt, debt)
	pos.UpdatedAt = ts
	u.Save(pos)

	stats, err := u.GetOrCreateProtocolStats(ctx)
	if err != nil {
		return err
	}
	stats.TotalCollateral = numeric.Add(stats.TotalCollateral, collateral)
	stats.TotalDebt = numeric.Add(stats.TotalDebt, debt)
	stats.UpdatedAt = ts
	u.Save(stats)
	return nil
}

// snapshot overwrites the position's record for the UTC day of ts.
func snapshot(ctx context.Context, u *UnitOfWork, pos *entity.Position, ts int64) error {
	s := entity.NewDailyPositionSnapshot(pos, ts)
	if pos.IsLoopedPosition {
		ld, err := u.LoadLooperData(ctx, pos.ID)
		if err != nil {
			return err
		}
		if ld != nil {
			multiple := ld.CurrentMultiple
			s.Multiple = &multiple
		}
	}
	u.Save(s)
	return nil
}
