package entity

import "fmt"

// Kind names an entity collection in the store.
type Kind string

const (
	KindPosition         Kind = "Position"
	KindUser             Kind = "User"
	KindProtocolStats    Kind = "ProtocolStats"
	KindLooperData       Kind = "LooperPositionData"
	KindDepositEvent     Kind = "DepositEvent"
	KindWithdrawalEvent  Kind = "WithdrawalEvent"
	KindBorrowEvent      Kind = "BorrowEvent"
	KindRepayEvent       Kind = "RepayEvent"
	KindLiquidationEvent Kind = "LiquidationEvent"
	KindLoopEvent        Kind = "LoopEvent"
	KindDailySnapshot    Kind = "DailyPositionSnapshot"
	KindProcessedLog     Kind = "ProcessedLog"
)

// Entity is anything the indexer persists. Keys are deterministic: natural keys for
// aggregates and composite keys for history and snapshot records.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}

// NewEmpty returns a zero value of the entity type registered for kind, ready to be
// decoded into by a store adapter.
func NewEmpty(kind Kind) (Entity, error) {
	switch kind {
	case KindPosition:
		return &Position{}, nil
	case KindUser:
		return &User{}, nil
	case KindProtocolStats:
		return &ProtocolStats{}, nil
	case KindLooperData:
		return &LooperPositionData{}, nil
	case KindDepositEvent:
		return &DepositEvent{}, nil
	case KindWithdrawalEvent:
		return &WithdrawalEvent{}, nil
	case KindBorrowEvent:
		return &BorrowEvent{}, nil
	case KindRepayEvent:
		return &RepayEvent{}, nil
	case KindLiquidationEvent:
		return &LiquidationEvent{}, nil
	case KindLoopEvent:
		return &LoopEvent{}, nil
	case KindDailySnapshot:
		return &DailyPositionSnapshot{}, nil
	case KindProcessedLog:
		return &ProcessedLog{}, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}
