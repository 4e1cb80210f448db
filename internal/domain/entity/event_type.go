package entity

// EventType is the ABI name of a tracked contract event.
type EventType string

const (
	EventDeposit               EventType = "Deposit"
	EventWithdraw              EventType = "Withdraw"
	EventMint                  EventType = "Mint"
	EventBurn                  EventType = "Burn"
	EventRepay                 EventType = "Repay"
	EventForceRepay            EventType = "ForceRepay"
	EventLiquidate             EventType = "Liquidate"
	EventTransfer              EventType = "Transfer"
	EventLoopedPositionCreated EventType = "LoopedPositionCreated"
	EventLoopExecuted          EventType = "LoopExecuted"
	EventMultiLoopExecuted     EventType = "MultiLoopExecuted"
)

var validEventTypes = map[EventType]bool{
	EventDeposit:               true,
	EventWithdraw:              true,
	EventMint:                  true,
	EventBurn:                  true,
	EventRepay:                 true,
	EventForceRepay:            true,
	EventLiquidate:             true,
	EventTransfer:              true,
	EventLoopedPositionCreated: true,
	EventLoopExecuted:          true,
	EventMultiLoopExecuted:     true,
}

// IsValid returns true if the EventType is a known valid type
func (e EventType) IsValid() bool {
	return validEventTypes[e]
}

// String returns the string representation of the EventType
func (e EventType) String() string {
	return string(e)
}

// Source identifies the contract family that emitted an event. Alchemist V1 and V3
// emit the same logical operations with different parameter layouts.
type Source string

const (
	SourceAlchemistV1 Source = "AlchemistV1"
	SourceAlchemistV3 Source = "AlchemistV3"
	SourceLooper      Source = "Looper"
)

// IsValid returns true if the Source is known.
func (s Source) IsValid() bool {
	switch s {
	case SourceAlchemistV1, SourceAlchemistV3, SourceLooper:
		return true
	}
	return false
}

// String returns the string representation of the Source
func (s Source) String() string {
	return string(s)
}
