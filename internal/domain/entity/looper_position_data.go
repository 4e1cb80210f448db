package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// LooperPositionData holds the leverage-loop basis and running statistics of a
// position. It shares its key with the Position.
type LooperPositionData struct {
	ID                string          `json:"id"`
	Position          string          `json:"position"`
	InitialDeposit    *big.Int        `json:"initialDeposit"`
	InitialCollateral *big.Int        `json:"initialCollateral"`
	InitialDebt       *big.Int        `json:"initialDebt"`
	InitialLeverage   decimal.Decimal `json:"initialLeverage"`
	TotalLoops        int64           `json:"totalLoops"`
	TotalMinted       *big.Int        `json:"totalMinted"`
	TotalSwapped      *big.Int        `json:"totalSwapped"`
	AverageSwapRate   decimal.Decimal `json:"averageSwapRate"`
	CurrentMultiple   decimal.Decimal `json:"currentMultiple"`
	PeakMultiple      decimal.Decimal `json:"peakMultiple"` // never decreases
	CreatedAt         int64           `json:"createdAt"`
	CreatedTxHash     common.Hash     `json:"createdTxHash"`
	LastLoopAt        int64           `json:"lastLoopAt"`

	// Backfilled is set when the record was synthesized from the position's balances
	// at the first loop event instead of a LoopedPositionCreated event. Multiples of a
	// backfilled record are only meaningful from CreatedAt forward.
	Backfilled bool `json:"backfilled"`
}

// NewLooperPositionData creates loop data for positionID with a multiple of one.
func NewLooperPositionData(positionID string, timestamp int64, txHash common.Hash) (*LooperPositionData, error) {
	if positionID == "" {
		return nil, fmt.Errorf("positionID must not be empty")
	}
	return &LooperPositionData{
		ID:                positionID,
		Position:          positionID,
		InitialDeposit:    numeric.Zero(),
		InitialCollateral: numeric.Zero(),
		InitialDebt:       numeric.Zero(),
		InitialLeverage:   numeric.BDZero,
		TotalMinted:       numeric.Zero(),
		TotalSwapped:      numeric.Zero(),
		AverageSwapRate:   numeric.BDZero,
		CurrentMultiple:   numeric.BDOne,
		PeakMultiple:      numeric.BDOne,
		CreatedAt:         timestamp,
		CreatedTxHash:     txHash,
		LastLoopAt:        timestamp,
	}, nil
}

func (l *LooperPositionData) EntityKind() Kind { return KindLooperData }
func (l *LooperPositionData) EntityID() string { return l.ID }

// RecomputeSwapRate sets AverageSwapRate to TotalSwapped / TotalMinted. The previous
// value is kept while nothing has been minted.
func (l *LooperPositionData) RecomputeSwapRate() {
	if numeric.Copy(l.TotalMinted).Sign() > 0 {
		l.AverageSwapRate = numeric.Multiple(l.TotalSwapped, l.TotalMinted)
	}
}

// RecomputeMultiple sets CurrentMultiple to collateral / InitialDeposit and raises
// PeakMultiple when exceeded. Both are held when InitialDeposit or collateral is
// not positive. It reports whether anything changed.
func (l *LooperPositionData) RecomputeMultiple(collateral *big.Int) bool {
	if numeric.Copy(l.InitialDeposit).Sign() <= 0 || numeric.Copy(collateral).Sign() <= 0 {
		return false
	}
	l.CurrentMultiple = numeric.Multiple(collateral, l.InitialDeposit)
	if l.CurrentMultiple.GreaterThan(l.PeakMultiple) {
		l.PeakMultiple = l.CurrentMultiple
	}
	return true
}
