package entity

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// DailyPositionSnapshot is the state of a position at its last update within a UTC
// day. It is overwritten by every later update on the same day.
type DailyPositionSnapshot struct {
	ID         string           `json:"id"`
	Position   string           `json:"position"`
	Date       int64            `json:"date"` // day bucket
	Collateral *big.Int         `json:"collateral"`
	Debt       *big.Int         `json:"debt"`
	Leverage   decimal.Decimal  `json:"leverage"`
	Multiple   *decimal.Decimal `json:"multiple,omitempty"` // looped positions only
	UpdatedAt  int64            `json:"updatedAt"`
}

// NewDailyPositionSnapshot captures p as of timestamp.
func NewDailyPositionSnapshot(p *Position, timestamp int64) *DailyPositionSnapshot {
	day := numeric.DayBucket(timestamp)
	return &DailyPositionSnapshot{
		ID:         SnapshotID(p.ID, day),
		Position:   p.ID,
		Date:       day,
		Collateral: numeric.Copy(p.Collateral),
		Debt:       numeric.Copy(p.Debt),
		Leverage:   numeric.Leverage(p.Collateral, p.Debt),
		UpdatedAt:  timestamp,
	}
}

func (s *DailyPositionSnapshot) EntityKind() Kind { return KindDailySnapshot }
func (s *DailyPositionSnapshot) EntityID() string { return s.ID }
