package position_indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/ports/outbound"
	"github.com/archon-research/alchemist-indexer/internal/services/shared"
)

// BlockEvent is the queue message announcing a block whose receipts are cached.
type BlockEvent struct {
	ChainID        int64  `json:"chainId"`
	BlockNumber    int64  `json:"blockNumber"`
	Version        int    `json:"version"`
	BlockHash      string `json:"blockHash"`
	ParentHash     string `json:"parentHash"`
	BlockTimestamp int64  `json:"blockTimestamp"`
	ReceivedAt     string `json:"receivedAt"`
	IsBackfill     bool   `json:"isBackfill"`
	IsReorg        bool   `json:"isReorg"`
}

const (
	messageProcessed = "processed"
	messageExpired   = "expired"
	messageFailed    = "failed"
)

type Config struct {
	MaxMessages   int
	PollInterval  time.Duration
	HealthyWindow time.Duration
	Logger        *slog.Logger
}

func ConfigDefaults() Config {
	return Config{
		MaxMessages:   10,
		PollInterval:  100 * time.Millisecond,
		HealthyWindow: 5 * time.Minute,
		Logger:        slog.Default(),
	}
}

// Service feeds queued block events through the decoder into the Indexer.
type Service struct {
	config   Config
	consumer outbound.QueueConsumer
	receipts outbound.ReceiptCache
	decoder  *LogDecoder
	indexer  *Indexer
	metrics  outbound.IndexerMetrics

	ready         atomic.Bool
	lastProcessed atomic.Int64 // unix nanos
	lastBlock     atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewService wires the polling loop. metrics may be nil.
func NewService(
	config Config,
	consumer outbound.QueueConsumer,
	receipts outbound.ReceiptCache,
	decoder *LogDecoder,
	indexer *Indexer,
	metrics outbound.IndexerMetrics,
) (*Service, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if receipts == nil {
		return nil, fmt.Errorf("receipt cache is required")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder is required")
	}
	if indexer == nil {
		return nil, fmt.Errorf("indexer is required")
	}

	defaults := ConfigDefaults()
	if config.MaxMessages == 0 {
		config.MaxMessages = defaults.MaxMessages
	}
	if config.PollInterval == 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.HealthyWindow == 0 {
		config.HealthyWindow = defaults.HealthyWindow
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Service{
		config:   config,
		consumer: consumer,
		receipts: receipts,
		decoder:  decoder,
		indexer:  indexer,
		metrics:  metrics,
		logger:   config.Logger.With("component", "alchemist-indexer"),
	}, nil
}

func (s *Service) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.processLoop()

	s.logger.Info("alchemist indexer started",
		"maxMessages", s.config.MaxMessages,
		"pollInterval", s.config.PollInterval)
	return nil
}

// Stop cancels the poll loop and waits for the in-flight batch to finish.
func (s *Service) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.logger.Info("alchemist indexer stopped")
	return nil
}

// IsReady reports whether at least one message has been processed.
func (s *Service) IsReady() bool {
	return s.ready.Load()
}

// IsHealthy reports whether a message was processed within the healthy window.
// A service that has yet to process anything is healthy.
func (s *Service) IsHealthy() bool {
	last := s.lastProcessed.Load()
	if last == 0 {
		return true
	}
	return time.Since(time.Unix(0, last)) <= s.config.HealthyWindow
}

// LastBlock returns the most recently completed block number.
func (s *Service) LastBlock() int64 {
	return s.lastBlock.Load()
}

func (s *Service) processLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.processMessages(s.ctx); err != nil && s.ctx.Err() == nil {
				s.logger.Error("error processing messages", "error", err)
			}
		}
	}
}

// processMessages handles one batch in block order. The queue is expected to be
// FIFO, but a batch is still sorted by block number and version before it is
// applied; messages with unreadable bodies go last. The first failing message
// stops the batch so later blocks are never applied ahead of it; unprocessed
// messages return to the queue after their visibility timeout.
func (s *Service) processMessages(ctx context.Context) error {
	messages, err := s.consumer.ReceiveMessages(ctx, s.config.MaxMessages)
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	s.logger.Debug("received messages", "count", len(messages))

	var errs []error
	for _, pm := range orderBatch(messages) {
		status, err := s.processMessage(ctx, pm)
		s.metrics.RecordMessage(ctx, status)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %s: %w", pm.msg.MessageID, err))
			break
		}

		if err := s.consumer.DeleteMessage(ctx, pm.msg.ReceiptHandle); err != nil {
			s.logger.Error("failed to delete message", "messageId", pm.msg.MessageID, "error", err)
			errs = append(errs, err)
		}
		s.markProcessed()
	}

	return errors.Join(errs...)
}

type pendingMessage struct {
	msg      outbound.QueueMessage
	event    BlockEvent
	parseErr error
}

// orderBatch parses each message body and sorts the batch by block number, then
// version. The sort is stable, so equal keys keep their receive order.
func orderBatch(messages []outbound.QueueMessage) []pendingMessage {
	batch := make([]pendingMessage, len(messages))
	for i, msg := range messages {
		batch[i].msg = msg
		if err := json.Unmarshal([]byte(msg.Body), &batch[i].event); err != nil {
			batch[i].parseErr = fmt.Errorf("failed to parse block event: %w", err)
		}
	}
	sort.SliceStable(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]
		if (a.parseErr != nil) != (b.parseErr != nil) {
			return b.parseErr != nil
		}
		if a.event.BlockNumber != b.event.BlockNumber {
			return a.event.BlockNumber < b.event.BlockNumber
		}
		return a.event.Version < b.event.Version
	})
	return batch
}

func (s *Service) markProcessed() {
	s.lastProcessed.Store(time.Now().UnixNano())
	s.ready.Store(true)
}

func (s *Service) processMessage(ctx context.Context, pm pendingMessage) (string, error) {
	if pm.parseErr != nil {
		return messageFailed, pm.parseErr
	}
	event := pm.event

	data, err := s.receipts.GetReceipts(ctx, event.ChainID, event.BlockNumber, event.Version)
	if err != nil {
		return messageFailed, fmt.Errorf("failed to fetch receipts for block %d: %w", event.BlockNumber, err)
	}
	if data == nil {
		s.logger.Warn("receipts expired or not found",
			"chainId", event.ChainID,
			"block", event.BlockNumber,
			"version", event.Version)
		return messageExpired, nil
	}

	var receipts []TransactionReceipt
	if err := shared.ParseCompressedJSON(data, &receipts); err != nil {
		return messageFailed, fmt.Errorf("failed to unmarshal receipts: %w", err)
	}

	if err := s.processBlock(ctx, event, receipts); err != nil {
		return messageFailed, err
	}
	s.lastBlock.Store(event.BlockNumber)
	return messageProcessed, nil
}

type blockLog struct {
	log    Log
	index  uint
	from   common.Address
	loopTx bool
}

// processBlock hands the tracked logs of successful transactions to the indexer
// in log index order. Malformed logs are logged and skipped; any other failure
// aborts the block.
func (s *Service) processBlock(ctx context.Context, event BlockEvent, receipts []TransactionReceipt) error {
	var logs []blockLog
	for _, receipt := range receipts {
		if !receipt.Succeeded() {
			continue
		}
		start := len(logs)
		loopTx := false
		for _, l := range receipt.Logs {
			if l.Removed {
				continue
			}
			source, ok := s.decoder.SourceOf(common.HexToAddress(l.Address))
			if !ok {
				continue
			}
			idx, err := l.Index()
			if err != nil {
				return fmt.Errorf("tx %s: %w", receipt.TransactionHash, err)
			}
			loopTx = loopTx || source == entity.SourceLooper
			logs = append(logs, blockLog{log: l, index: idx, from: common.HexToAddress(receipt.From)})
		}
		for i := start; i < len(logs); i++ {
			logs[i].loopTx = loopTx
		}
	}

	sort.SliceStable(logs, func(i, j int) bool { return logs[i].index < logs[j].index })

	for _, bl := range logs {
		meta := Meta{
			Contract:    common.HexToAddress(bl.log.Address),
			BlockNumber: uint64(event.BlockNumber),
			Timestamp:   event.BlockTimestamp,
			TxHash:      common.HexToHash(bl.log.TransactionHash),
			LogIndex:    bl.index,
			TxFrom:      bl.from,
			LoopTx:      bl.loopTx,
		}
		if err := s.handleLog(ctx, bl.log, meta); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handleLog(ctx context.Context, l Log, meta Meta) error {
	decoded, ok, err := s.decoder.Decode(l, meta)
	if err != nil {
		s.logger.Error("dropping undecodable log",
			"tx", meta.TxHash.Hex(),
			"logIndex", meta.LogIndex,
			"block", meta.BlockNumber,
			"error", err)
		return nil
	}
	if !ok {
		return nil
	}

	start := time.Now()
	outcome, err := s.indexer.Handle(ctx, decoded)
	duration := time.Since(start)

	if errors.Is(err, ErrMalformedEvent) {
		s.metrics.RecordEvent(ctx, decoded.Name.String(), decoded.Source.String(), "malformed", duration)
		s.logger.Error("dropping malformed event",
			"event", decoded.Name,
			"tx", meta.TxHash.Hex(),
			"logIndex", meta.LogIndex,
			"error", err)
		return nil
	}
	if err != nil {
		s.metrics.RecordEvent(ctx, decoded.Name.String(), decoded.Source.String(), "error", duration)
		return fmt.Errorf("failed to handle %s at %s-%d: %w", decoded.Name, meta.TxHash.Hex(), meta.LogIndex, err)
	}

	s.metrics.RecordEvent(ctx, decoded.Name.String(), decoded.Source.String(), outcome.String(), duration)
	if outcome == OutcomeApplied {
		s.logger.Info("indexed event",
			"event", decoded.Name,
			"source", decoded.Source,
			"block", meta.BlockNumber,
			"tx", meta.TxHash.Hex(),
			"logIndex", meta.LogIndex)
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordEvent(context.Context, string, string, string, time.Duration) {}
func (noopMetrics) RecordMessage(context.Context, string)                              {}
