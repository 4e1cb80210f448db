package position_indexer

import (
	"context"
	"fmt"
	"math/big"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// loopCreatedOp establishes a looped position and its basis. Balances are set to
// the reported totals rather than moved by them.
type loopCreatedOp struct {
	TokenID          *big.Int
	InitialUsdc      *big.Int
	FinalShares      *big.Int
	TotalBorrowed    *big.Int
	LoopsExecuted    int64
	TotalUsdcSwapped *big.Int
}

// loopOp adds one loop, or a batch of them, to an existing position.
type loopOp struct {
	TokenID         *big.Int
	Batch           int64
	Borrowed        *big.Int
	UsdcReceived    *big.Int
	SharesDeposited *big.Int
}

func (op loopCreatedOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.GetOrCreatePosition(ctx, op.TokenID, m.Timestamp)
	if err != nil {
		return false, err
	}

	ld, err := entity.NewLooperPositionData(pos.ID, m.Timestamp, m.TxHash)
	if err != nil {
		return false, fmt.Errorf("failed to create looper data: %w", err)
	}
	ld.InitialDeposit = numeric.Copy(op.InitialUsdc)
	ld.InitialCollateral = numeric.Copy(op.FinalShares)
	ld.InitialDebt = numeric.Copy(op.TotalBorrowed)
	ld.InitialLeverage = numeric.Leverage(op.FinalShares, op.TotalBorrowed)
	ld.TotalLoops = op.LoopsExecuted
	ld.TotalMinted = numeric.Copy(op.TotalBorrowed)
	ld.TotalSwapped = numeric.Copy(op.TotalUsdcSwapped)
	ld.RecomputeSwapRate()
	u.Save(ld)

	wasLooped := pos.IsLoopedPosition
	pos.IsLoopedPosition = true
	pos.LooperData = ld.ID

	// The multiple starts at one, so it is not recomputed from the new balances.
	collateral := numeric.Sub(op.FinalShares, pos.Collateral)
	debt := numeric.Sub(op.TotalBorrowed, pos.Debt)
	if err := moveBalances(ctx, u, pos, collateral, debt, m.Timestamp); err != nil {
		return false, err
	}

	stats, err := u.GetOrCreateProtocolStats(ctx)
	if err != nil {
		return false, err
	}
	if !wasLooped {
		stats.TotalLoopedPositions++
	}
	stats.TotalLoopVolume = numeric.Add(stats.TotalLoopVolume, op.TotalBorrowed)
	u.Save(stats)

	return true, snapshot(ctx, u, pos, m.Timestamp)
}

func (op loopOp) apply(ctx context.Context, u *UnitOfWork, m Meta) (bool, error) {
	pos, err := u.LoadPosition(ctx, entity.PositionID(op.TokenID))
	if err != nil || pos == nil {
		return false, err
	}
	stats, err := u.GetOrCreateProtocolStats(ctx)
	if err != nil {
		return false, err
	}

	ld, err := u.LoadLooperData(ctx, pos.ID)
	if err != nil {
		return false, err
	}
	if ld == nil {
		if ld, err = backfillLooperData(pos, m); err != nil {
			return false, err
		}
	}
	if !pos.IsLoopedPosition {
		pos.IsLoopedPosition = true
		stats.TotalLoopedPositions++
	}
	pos.LooperData = ld.ID

	collateralAfter := numeric.Add(pos.Collateral, op.SharesDeposited)
	debtAfter := numeric.Add(pos.Debt, op.Borrowed)

	base, err := eventBase(pos.ID, m)
	if err != nil {
		return false, err
	}
	u.Save(&entity.LoopEvent{
		EventBase:       base,
		LooperData:      ld.ID,
		LoopNumber:      ld.TotalLoops + op.Batch,
		LoopsInBatch:    op.Batch,
		BorrowAmount:    op.Borrowed,
		UsdcReceived:    op.UsdcReceived,
		SharesDeposited: op.SharesDeposited,
		CollateralAfter: collateralAfter,
		DebtAfter:       debtAfter,
		LtvAfter:        numeric.LoanToValue(collateralAfter, debtAfter),
	})

	ld.TotalLoops += op.Batch
	ld.TotalMinted = numeric.Add(ld.TotalMinted, op.Borrowed)
	ld.TotalSwapped = numeric.Add(ld.TotalSwapped, op.UsdcReceived)
	ld.LastLoopAt = m.Timestamp
	ld.RecomputeSwapRate()
	u.Save(ld)

	stats.TotalLoopVolume = numeric.Add(stats.TotalLoopVolume, op.Borrowed)
	u.Save(stats)

	return true, settle(ctx, u, pos, op.SharesDeposited, op.Borrowed, m.Timestamp)
}

// backfillLooperData synthesizes loop data for a position that was never
// announced by LoopedPositionCreated. The current balances stand in for the
// unknown basis, so multiples are only meaningful from this point on.
func backfillLooperData(pos *entity.Position, m Meta) (*entity.LooperPositionData, error) {
	ld, err := entity.NewLooperPositionData(pos.ID, m.Timestamp, m.TxHash)
	if err != nil {
		return nil, fmt.Errorf("failed to backfill looper data: %w", err)
	}
	ld.InitialDeposit = numeric.Copy(pos.Collateral)
	ld.InitialCollateral = numeric.Copy(pos.Collateral)
	ld.InitialDebt = numeric.Copy(pos.Debt)
	ld.InitialLeverage = numeric.Leverage(pos.Collateral, pos.Debt)
	ld.Backfilled = true
	return ld, nil
}
