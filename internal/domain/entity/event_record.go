package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventBase carries the fields shared by every append-only per-log record. Records
// are keyed by (txHash, logIndex) and never mutated after they are written.
type EventBase struct {
	ID          string      `json:"id"`
	Position    string      `json:"position"`
	Timestamp   int64       `json:"timestamp"`
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	LogIndex    uint        `json:"logIndex"`
}

// NewEventBase creates the shared part of a per-log record with validation.
func NewEventBase(positionID string, txHash common.Hash, logIndex uint, blockNumber uint64, timestamp int64) (EventBase, error) {
	b := EventBase{
		ID:          EventID(txHash, logIndex),
		Position:    positionID,
		Timestamp:   timestamp,
		TxHash:      txHash,
		BlockNumber: blockNumber,
		LogIndex:    logIndex,
	}
	if err := b.validate(); err != nil {
		return EventBase{}, err
	}
	return b, nil
}

func (b EventBase) validate() error {
	if b.Position == "" {
		return fmt.Errorf("position must not be empty")
	}
	if b.TxHash == (common.Hash{}) {
		return fmt.Errorf("txHash must not be empty")
	}
	if b.Timestamp < 0 {
		return fmt.Errorf("timestamp must be non-negative, got %d", b.Timestamp)
	}
	return nil
}

// EntityID returns the composite record key.
func (b *EventBase) EntityID() string { return b.ID }

// DepositEvent records collateral added to a position.
type DepositEvent struct {
	EventBase
	Amount        *big.Int       `json:"amount"`
	Shares        *big.Int       `json:"shares"`
	Depositor     common.Address `json:"depositor"`
	IsLoopDeposit bool           `json:"isLoopDeposit"`
}

func (e *DepositEvent) EntityKind() Kind { return KindDepositEvent }

// WithdrawalEvent records collateral removed from a position.
type WithdrawalEvent struct {
	EventBase
	Shares    *big.Int       `json:"shares"`
	Amount    *big.Int       `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

func (e *WithdrawalEvent) EntityKind() Kind { return KindWithdrawalEvent }

// BorrowEvent records debt minted against a position.
type BorrowEvent struct {
	EventBase
	Amount       *big.Int       `json:"amount"`
	Recipient    common.Address `json:"recipient"`
	IsLoopBorrow bool           `json:"isLoopBorrow"`
}

func (e *BorrowEvent) EntityKind() Kind { return KindBorrowEvent }

// RepaySource tells which contract event produced a RepayEvent.
type RepaySource string

const (
	RepaySourceBurn       RepaySource = "burn"
	RepaySourceRepay      RepaySource = "repay"
	RepaySourceForceRepay RepaySource = "forceRepay"
)

// RepayEvent records debt paid down. NewDebt is set only for force repayments,
// which report the absolute debt after the repayment.
type RepayEvent struct {
	EventBase
	Amount  *big.Int       `json:"amount"`
	Payer   common.Address `json:"payer"`
	Source  RepaySource    `json:"source"`
	NewDebt *big.Int       `json:"newDebt,omitempty"`
}

func (e *RepayEvent) EntityKind() Kind { return KindRepayEvent }

// LiquidationEvent records collateral seized and debt cleared by a liquidator.
type LiquidationEvent struct {
	EventBase
	CollateralLiquidated *big.Int       `json:"collateralLiquidated"`
	DebtRepaid           *big.Int       `json:"debtRepaid"`
	Liquidator           common.Address `json:"liquidator"`
}

func (e *LiquidationEvent) EntityKind() Kind { return KindLiquidationEvent }

// LoopEvent records one loop (or one batch of loops) executed by the looper, with
// the position's balances and LTV after it was applied.
type LoopEvent struct {
	EventBase
	LooperData      string          `json:"looperData"`
	LoopNumber      int64           `json:"loopNumber"`
	LoopsInBatch    int64           `json:"loopsInBatch"`
	BorrowAmount    *big.Int        `json:"borrowAmount"`
	UsdcReceived    *big.Int        `json:"usdcReceived"`
	SharesDeposited *big.Int        `json:"sharesDeposited"`
	CollateralAfter *big.Int        `json:"collateralAfter"`
	DebtAfter       *big.Int        `json:"debtAfter"`
	LtvAfter        decimal.Decimal `json:"ltvAfter"`
}

func (e *LoopEvent) EntityKind() Kind { return KindLoopEvent }
