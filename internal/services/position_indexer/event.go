package position_indexer

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
)

// ErrMalformedEvent is returned when a decoded event is missing a parameter or
// carries one of the wrong type.
var ErrMalformedEvent = errors.New("malformed event")

// Meta is the block and transaction context of a decoded log.
type Meta struct {
	Contract    common.Address
	BlockNumber uint64
	Timestamp   int64
	TxHash      common.Hash
	LogIndex    uint
	TxFrom      common.Address
	// LoopTx is set when the transaction also emitted a log from a tracked Looper.
	LoopTx      bool
}

func (m Meta) validate() error {
	if m.TxHash == (common.Hash{}) {
		return fmt.Errorf("%w: missing transaction hash", ErrMalformedEvent)
	}
	if m.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp %d", ErrMalformedEvent, m.Timestamp)
	}
	return nil
}

// DecodedEvent is one on-chain log decoded against its contract ABI. Params hold
// the values produced by the ABI decoder: *big.Int for integers and
// common.Address for addresses.
type DecodedEvent struct {
	Source entity.Source
	Name   entity.EventType
	Params map[string]any
	Meta   Meta
}

// Outcome reports how Handle disposed of an event.
type Outcome string

const (
	// OutcomeApplied means the event changed indexed state.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means the event referenced a position that does not exist.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDuplicate means the log had already been handled.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the source has no handler for the event.
	OutcomeIgnored Outcome = "ignored"
)

func (o Outcome) String() string {
	return string(o)
}

// params wraps a decoded parameter map with typed accessors.
type params struct {
	event  entity.EventType
	values map[string]any
}

func (p params) missing(name string) error {
	return fmt.Errorf("%w: %s missing param %q", ErrMalformedEvent, p.event, name)
}

func (p params) wrongType(name string, v any, want string) error {
	return fmt.Errorf("%w: %s param %q: expected %s, got %T", ErrMalformedEvent, p.event, name, want, v)
}

// bigInt returns an independent copy of an integer param. Every tracked param
// is a uint256, so negative values are rejected.
func (p params) bigInt(name string) (*big.Int, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, p.missing(name)
	}
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, p.missing(name)
		}
		if n.Sign() < 0 {
			return nil, p.outOfRange(name, n)
		}
		return new(big.Int).Set(n), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case int64:
		if n < 0 {
			return nil, p.outOfRange(name, big.NewInt(n))
		}
		return big.NewInt(n), nil
	case int:
		if n < 0 {
			return nil, p.outOfRange(name, big.NewInt(int64(n)))
		}
		return big.NewInt(int64(n)), nil
	default:
		return nil, p.wrongType(name, v, "integer")
	}
}

func (p params) outOfRange(name string, v *big.Int) error {
	return fmt.Errorf("%w: %s param %q out of range: %s", ErrMalformedEvent, p.event, name, v)
}

// count returns an integer param that must fit a non-negative int64.
func (p params) count(name string) (int64, error) {
	n, err := p.bigInt(name)
	if err != nil {
		return 0, err
	}
	if n.Cmp(big.NewInt(math.MaxInt64)) > 0 {
		return 0, p.outOfRange(name, n)
	}
	return n.Int64(), nil
}

func (p params) address(name string) (common.Address, error) {
	v, ok := p.values[name]
	if !ok {
		return common.Address{}, p.missing(name)
	}
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, p.wrongType(name, v, "address")
	}
	return addr, nil
}
