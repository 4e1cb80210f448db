package entity

import (
	"math/big"

	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// ProtocolStats is the protocol-wide aggregate. Under complete, ordered delivery its
// totals equal the sums over all positions; nothing enforces that structurally.
type ProtocolStats struct {
	ID                   string   `json:"id"`
	TotalPositions       int64    `json:"totalPositions"`
	TotalLoopedPositions int64    `json:"totalLoopedPositions"`
	TotalCollateral      *big.Int `json:"totalCollateral"`
	TotalDebt            *big.Int `json:"totalDebt"`
	TotalLoopVolume      *big.Int `json:"totalLoopVolume"`
	UpdatedAt            int64    `json:"updatedAt"`
}

// NewProtocolStats returns the zeroed singleton.
func NewProtocolStats() *ProtocolStats {
	return &ProtocolStats{
		ID:              ProtocolStatsID,
		TotalCollateral: numeric.Zero(),
		TotalDebt:       numeric.Zero(),
		TotalLoopVolume: numeric.Zero(),
	}
}

func (s *ProtocolStats) EntityKind() Kind { return KindProtocolStats }
func (s *ProtocolStats) EntityID() string { return s.ID }
