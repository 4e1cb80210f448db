package entity

import "github.com/ethereum/go-ethereum/common"

// ProcessedLog marks a log whose handler has committed. It is written in the same
// unit as the handler's other writes, so a redelivered log can be recognised.
type ProcessedLog struct {
	ID          string    `json:"id"`
	Event       EventType `json:"event"`
	Source      Source    `json:"source"`
	BlockNumber uint64    `json:"blockNumber"`
}

// NewProcessedLog creates the marker for the log at (txHash, logIndex).
func NewProcessedLog(txHash common.Hash, logIndex uint, event EventType, source Source, blockNumber uint64) *ProcessedLog {
	return &ProcessedLog{
		ID:          EventID(txHash, logIndex),
		Event:       event,
		Source:      source,
		BlockNumber: blockNumber,
	}
}

func (p *ProcessedLog) EntityKind() Kind { return KindProcessedLog }
func (p *ProcessedLog) EntityID() string { return p.ID }
