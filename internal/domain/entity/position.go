package entity

import (
	"fmt"
	"math/big"

	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// Position is a protocol account identified by its token ID. Collateral and Debt are
// running balances moved by signed deltas; they are never recomputed from history
// and may go negative if an event was missed.
type Position struct {
	ID               string   `json:"id"`
	TokenID          *big.Int `json:"tokenId"`
	Collateral       *big.Int `json:"collateral"`
	Debt             *big.Int `json:"debt"`
	Owner            string   `json:"owner"` // User ID; empty until a Transfer assigns one
	IsLoopedPosition bool     `json:"isLoopedPosition"`
	LooperData       string   `json:"looperData,omitempty"`
	CreatedAt        int64    `json:"createdAt"`
	UpdatedAt        int64    `json:"updatedAt"`
}

// NewPosition creates an empty position for tokenID. The owner is left unassigned.
func NewPosition(tokenID *big.Int, timestamp int64) (*Position, error) {
	p := &Position{
		ID:         PositionID(tokenID),
		TokenID:    numeric.Copy(tokenID),
		Collateral: numeric.Zero(),
		Debt:       numeric.Zero(),
		CreatedAt:  timestamp,
		UpdatedAt:  timestamp,
	}
	if err := p.validate(tokenID); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Position) validate(tokenID *big.Int) error {
	if tokenID == nil {
		return fmt.Errorf("tokenID must not be nil")
	}
	if tokenID.Sign() < 0 {
		return fmt.Errorf("tokenID must be non-negative, got %s", tokenID)
	}
	if p.CreatedAt < 0 {
		return fmt.Errorf("timestamp must be non-negative, got %d", p.CreatedAt)
	}
	return nil
}

func (p *Position) EntityKind() Kind { return KindPosition }
func (p *Position) EntityID() string { return p.ID }

// HasOwner reports whether a Transfer has assigned an owner.
func (p *Position) HasOwner() bool {
	return p.Owner != ""
}
