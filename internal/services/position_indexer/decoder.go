package position_indexer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/pkg/hexutil"
)

// TransactionReceipt is the cached JSON-RPC receipt shape.
type TransactionReceipt struct {
	Type              string  `json:"type"`
	Status            string  `json:"status"`
	CumulativeGasUsed string  `json:"cumulativeGasUsed"`
	Logs              []Log   `json:"logs"`
	TransactionHash   string  `json:"transactionHash"`
	TransactionIndex  string  `json:"transactionIndex"`
	BlockHash         string  `json:"blockHash"`
	BlockNumber       string  `json:"blockNumber"`
	GasUsed           string  `json:"gasUsed"`
	From              string  `json:"from"`
	To                string  `json:"to"`
	ContractAddress   *string `json:"contractAddress"`
}

// Succeeded reports whether the transaction did not revert. Pre-Byzantium
// receipts have no status and count as successful.
func (r TransactionReceipt) Succeeded() bool {
	return r.Status == "" || r.Status == "0x1"
}

// Log is one cached JSON-RPC log entry.
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockHash        string   `json:"blockHash"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

// Index returns the log's position within its block.
func (l Log) Index() (uint, error) {
	idx, err := hexutil.ParseUint64(l.LogIndex)
	if err != nil {
		return 0, fmt.Errorf("invalid logIndex %q: %w", l.LogIndex, err)
	}
	return uint(idx), nil
}

// LogDecoder decodes logs of the tracked Alchemist and Looper contracts.
type LogDecoder struct {
	sources map[common.Address]entity.Source
	events  map[entity.Source]map[common.Hash]*abi.Event
}

// NewLogDecoder creates a decoder for the given contract address to source
// mapping.
func NewLogDecoder(contracts map[common.Address]entity.Source) (*LogDecoder, error) {
	d := &LogDecoder{
		sources: make(map[common.Address]entity.Source, len(contracts)),
		events:  make(map[entity.Source]map[common.Hash]*abi.Event),
	}

	for addr, source := range contracts {
		if !source.IsValid() {
			return nil, fmt.Errorf("unknown source %q for contract %s", source, addr.Hex())
		}
		d.sources[addr] = source
	}

	for source := range sourceABIs {
		parsed, err := sourceABI(source)
		if err != nil {
			return nil, err
		}
		sigs := make(map[common.Hash]*abi.Event, len(parsed.Events))
		for name := range parsed.Events {
			event := parsed.Events[name]
			if !entity.EventType(event.Name).IsValid() {
				return nil, fmt.Errorf("%s ABI declares untracked event %s", source, event.Name)
			}
			sigs[event.ID] = &event
		}
		d.events[source] = sigs
	}

	return d, nil
}

// SourceOf returns the contract family of address, if tracked.
func (d *LogDecoder) SourceOf(address common.Address) (entity.Source, bool) {
	s, ok := d.sources[address]
	return s, ok
}

// Decode decodes log against its contract's ABI. It returns false when the log
// comes from an untracked contract or carries an event the contract's ABI does
// not declare.
func (d *LogDecoder) Decode(log Log, meta Meta) (DecodedEvent, bool, error) {
	source, ok := d.SourceOf(common.HexToAddress(log.Address))
	if !ok || len(log.Topics) == 0 {
		return DecodedEvent{}, false, nil
	}
	event, ok := d.events[source][common.HexToHash(log.Topics[0])]
	if !ok {
		return DecodedEvent{}, false, nil
	}

	values := make(map[string]any)

	var indexed, nonIndexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}

	if len(indexed) > 0 {
		if len(log.Topics)-1 != len(indexed) {
			return DecodedEvent{}, false, fmt.Errorf("%w: %s expects %d indexed topics, got %d",
				ErrMalformedEvent, event.Name, len(indexed), len(log.Topics)-1)
		}
		topics := make([]common.Hash, 0, len(log.Topics)-1)
		for _, t := range log.Topics[1:] {
			topics = append(topics, common.HexToHash(t))
		}
		if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
			return DecodedEvent{}, false, fmt.Errorf("%w: failed to parse indexed params of %s: %v", ErrMalformedEvent, event.Name, err)
		}
	}

	if len(nonIndexed) > 0 {
		data := common.FromHex(log.Data)
		if err := nonIndexed.UnpackIntoMap(values, data); err != nil {
			return DecodedEvent{}, false, fmt.Errorf("%w: failed to parse data of %s: %v", ErrMalformedEvent, event.Name, err)
		}
	}

	return DecodedEvent{
		Source: source,
		Name:   entity.EventType(event.Name),
		Params: values,
		Meta:   meta,
	}, true, nil
}
