package position_indexer

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/archon-research/alchemist-indexer/internal/adapters/outbound/memory"
	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
)

var (
	alice     = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	keeper    = common.HexToAddress("0x000000000000000000000000000000000000beef")
	zeroAddr  = common.Address{}
	testStart = int64(1_700_000_000)
)

func n(v int64) *big.Int { return big.NewInt(v) }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness feeds events through an Indexer backed by the memory store. Each
// event gets its own transaction hash and block.
type harness struct {
	t     *testing.T
	store *memory.EntityStore
	ix    *Indexer
	now   int64
	from  common.Address
	seq   int64
	last  Meta
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewEntityStore()
	ix, err := NewIndexer(store, testLogger())
	if err != nil {
		t.Fatalf("NewIndexer: %v", err)
	}
	return &harness{t: t, store: store, ix: ix, now: testStart, from: alice}
}

func (h *harness) nextMeta() Meta {
	h.seq++
	return Meta{
		Contract:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		BlockNumber: uint64(1000 + h.seq),
		Timestamp:   h.now,
		TxHash:      common.BigToHash(big.NewInt(h.seq)),
		TxFrom:      h.from,
	}
}

func (h *harness) handleMeta(source entity.Source, name entity.EventType, p map[string]any, meta Meta) (Outcome, error) {
	h.last = meta
	return h.ix.Handle(context.Background(), DecodedEvent{Source: source, Name: name, Params: p, Meta: meta})
}

func (h *harness) handle(source entity.Source, name entity.EventType, p map[string]any) (Outcome, error) {
	return h.handleMeta(source, name, p, h.nextMeta())
}

func (h *harness) mustHandle(source entity.Source, name entity.EventType, p map[string]any) Outcome {
	h.t.Helper()
	outcome, err := h.handle(source, name, p)
	if err != nil {
		h.t.Fatalf("Handle %s %s: %v", source, name, err)
	}
	return outcome
}

func (h *harness) mustApply(source entity.Source, name entity.EventType, p map[string]any) {
	h.t.Helper()
	if outcome := h.mustHandle(source, name, p); outcome != OutcomeApplied {
		h.t.Fatalf("Handle %s %s = %s, want applied", source, name, outcome)
	}
}

func load[T entity.Entity](h *harness, kind entity.Kind, id string) T {
	h.t.Helper()
	e, err := h.store.Load(context.Background(), kind, id)
	if err != nil {
		h.t.Fatalf("Load %s %s: %v", kind, id, err)
	}
	var zero T
	if e == nil {
		return zero
	}
	return e.(T)
}

func (h *harness) position(tokenID int64) *entity.Position {
	h.t.Helper()
	p := load[*entity.Position](h, entity.KindPosition, entity.PositionID(n(tokenID)))
	if p == nil {
		h.t.Fatalf("position %d not found", tokenID)
	}
	return p
}

func (h *harness) stats() *entity.ProtocolStats {
	h.t.Helper()
	s := load[*entity.ProtocolStats](h, entity.KindProtocolStats, entity.ProtocolStatsID)
	if s == nil {
		h.t.Fatal("protocol stats not found")
	}
	return s
}

func (h *harness) user(addr common.Address) *entity.User {
	h.t.Helper()
	u := load[*entity.User](h, entity.KindUser, entity.UserID(addr))
	if u == nil {
		h.t.Fatalf("user %s not found", addr.Hex())
	}
	return u
}

func (h *harness) looperData(tokenID int64) *entity.LooperPositionData {
	h.t.Helper()
	ld := load[*entity.LooperPositionData](h, entity.KindLooperData, entity.PositionID(n(tokenID)))
	if ld == nil {
		h.t.Fatalf("looper data %d not found", tokenID)
	}
	return ld
}

func assertInt(t *testing.T, field string, got *big.Int, want int64) {
	t.Helper()
	if got == nil || got.Cmp(big.NewInt(want)) != 0 {
		t.Errorf("%s = %v, want %d", field, got, want)
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(t, want)) {
		t.Errorf("%s = %s, want %s", field, got, want)
	}
}

// Param builders for the V3, V1 and Looper layouts.

func v3Deposit(tokenID, amount, shares int64) map[string]any {
	return map[string]any{"sender": alice, "tokenId": n(tokenID), "amount": n(amount), "shares": n(shares)}
}

func v3Withdraw(tokenID, amount, shares int64) map[string]any {
	return map[string]any{"recipient": alice, "tokenId": n(tokenID), "amount": n(amount), "shares": n(shares)}
}

func mintDebt(tokenID, amount int64) map[string]any {
	return map[string]any{"tokenId": n(tokenID), "amount": n(amount), "recipient": alice}
}

func v3Burn(tokenID, amount int64) map[string]any {
	return map[string]any{"sender": alice, "tokenId": n(tokenID), "amount": n(amount)}
}

func transfer(from, to common.Address, tokenID int64) map[string]any {
	return map[string]any{"from": from, "to": to, "tokenId": n(tokenID)}
}

func v1Deposit(tokenID, amount int64) map[string]any {
	return map[string]any{"amount": n(amount), "recipientId": n(tokenID)}
}

// without returns a copy of p lacking key.
func without(p map[string]any, key string) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func loopCreated(tokenID, initialUsdc, finalShares, totalBorrowed, loops, swapped int64) map[string]any {
	return map[string]any{
		"tokenId":          n(tokenID),
		"user":             alice,
		"initialUsdc":      n(initialUsdc),
		"finalShares":      n(finalShares),
		"totalBorrowed":    n(totalBorrowed),
		"loopsExecuted":    n(loops),
		"totalUsdcSwapped": n(swapped),
	}
}

func loopExecuted(tokenID, borrow, usdc, shares int64) map[string]any {
	return map[string]any{"tokenId": n(tokenID), "borrowAmount": n(borrow), "usdcReceived": n(usdc), "sharesDeposited": n(shares)}
}

func multiLoopExecuted(tokenID, loops, borrow, usdc, shares int64) map[string]any {
	return map[string]any{
		"tokenId":              n(tokenID),
		"loopsExecuted":        n(loops),
		"totalBorrowed":        n(borrow),
		"totalUsdcReceived":    n(usdc),
		"totalSharesDeposited": n(shares),
	}
}
