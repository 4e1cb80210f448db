package entity

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

func TestNewUser(t *testing.T) {
	validAddr := common.HexToAddress("0x0102030405060708090A0B0C0D0E0F1011121314")

	tests := []struct {
		name        string
		address     common.Address
		timestamp   int64
		wantErr     bool
		errContains string
	}{
		{
			name:      "valid user",
			address:   validAddr,
			timestamp: 1700000000,
		},
		{
			name:        "zero address",
			address:     common.Address{},
			timestamp:   1700000000,
			wantErr:     true,
			errContains: "zero address",
		},
		{
			name:        "negative timestamp",
			address:     validAddr,
			timestamp:   -1,
			wantErr:     true,
			errContains: "timestamp must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := NewUser(tt.address, tt.timestamp)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.ID != "0x0102030405060708090a0b0c0d0e0f1011121314" {
				t.Errorf("ID = %q, want lower-case hex", user.ID)
			}
			if user.TotalPositions != 0 {
				t.Errorf("TotalPositions = %d, want 0", user.TotalPositions)
			}
		})
	}
}

func TestNewPosition(t *testing.T) {
	tests := []struct {
		name        string
		tokenID     *big.Int
		timestamp   int64
		wantID      string
		wantErr     bool
		errContains string
	}{
		{name: "valid", tokenID: big.NewInt(42), timestamp: 100, wantID: "42"},
		{name: "token zero", tokenID: big.NewInt(0), timestamp: 100, wantID: "0"},
		{name: "nil token", tokenID: nil, timestamp: 100, wantErr: true, errContains: "tokenID must not be nil"},
		{name: "negative token", tokenID: big.NewInt(-1), timestamp: 100, wantErr: true, errContains: "non-negative"},
		{name: "negative timestamp", tokenID: big.NewInt(1), timestamp: -5, wantErr: true, errContains: "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPosition(tt.tokenID, tt.timestamp)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", p.ID, tt.wantID)
			}
			if p.Collateral.Sign() != 0 || p.Debt.Sign() != 0 {
				t.Errorf("balances = %s/%s, want 0/0", p.Collateral, p.Debt)
			}
			if p.HasOwner() {
				t.Error("new position should have no owner")
			}
			if p.CreatedAt != tt.timestamp || p.UpdatedAt != tt.timestamp {
				t.Errorf("timestamps = %d/%d, want %d", p.CreatedAt, p.UpdatedAt, tt.timestamp)
			}
		})
	}
}

func TestNewPosition_CopiesTokenID(t *testing.T) {
	tokenID := big.NewInt(7)
	p, err := NewPosition(tokenID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tokenID.SetInt64(8)
	if p.TokenID.Int64() != 7 {
		t.Errorf("TokenID aliased caller value: got %s", p.TokenID)
	}
}

func TestKeys(t *testing.T) {
	hash := common.HexToHash("0xabc")

	if got := EventID(hash, 3); got != hash.Hex()+"-3" {
		t.Errorf("EventID = %q", got)
	}
	if got := SnapshotID("42", 19675); got != "42-19675" {
		t.Errorf("SnapshotID = %q", got)
	}
	if got := PositionID(nil); got != "0" {
		t.Errorf("PositionID(nil) = %q", got)
	}
	big1, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	if got := PositionID(big1); got != big1.String() {
		t.Errorf("PositionID(max uint256) = %q", got)
	}
}

func TestEventID_UniquePerLog(t *testing.T) {
	seen := make(map[string]bool)
	hashes := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	for _, h := range hashes {
		for i := uint(0); i < 50; i++ {
			id := EventID(h, i)
			if seen[id] {
				t.Fatalf("duplicate key %q", id)
			}
			seen[id] = true
		}
	}
}

func TestNewEventBase(t *testing.T) {
	hash := common.HexToHash("0xdead")

	tests := []struct {
		name        string
		position    string
		txHash      common.Hash
		timestamp   int64
		wantErr     bool
		errContains string
	}{
		{name: "valid", position: "1", txHash: hash, timestamp: 10},
		{name: "empty position", position: "", txHash: hash, timestamp: 10, wantErr: true, errContains: "position"},
		{name: "empty hash", position: "1", txHash: common.Hash{}, timestamp: 10, wantErr: true, errContains: "txHash"},
		{name: "negative timestamp", position: "1", txHash: hash, timestamp: -1, wantErr: true, errContains: "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewEventBase(tt.position, tt.txHash, 4, 99, tt.timestamp)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.ID != EventID(tt.txHash, 4) {
				t.Errorf("ID = %q", b.ID)
			}
			if b.BlockNumber != 99 || b.LogIndex != 4 {
				t.Errorf("block/log = %d/%d", b.BlockNumber, b.LogIndex)
			}
		})
	}
}

func TestLooperPositionData_RecomputeMultiple(t *testing.T) {
	l, err := NewLooperPositionData("1", 0, common.Hash{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if l.RecomputeMultiple(big.NewInt(500)) {
		t.Error("expected no change with zero initial deposit")
	}
	if !l.CurrentMultiple.Equal(decimal.NewFromInt(1)) {
		t.Errorf("CurrentMultiple = %s, want 1", l.CurrentMultiple)
	}

	l.InitialDeposit = big.NewInt(1000)
	steps := []struct {
		collateral int64
		current    string
		peak       string
	}{
		{3600, "3.6", "3.6"},
		{2000, "2", "3.6"},
		{4000, "4", "4"},
		{1500, "1.5", "4"},
	}
	for _, s := range steps {
		if !l.RecomputeMultiple(big.NewInt(s.collateral)) {
			t.Fatalf("collateral %d: expected change", s.collateral)
		}
		if l.CurrentMultiple.String() != s.current {
			t.Errorf("collateral %d: CurrentMultiple = %s, want %s", s.collateral, l.CurrentMultiple, s.current)
		}
		if l.PeakMultiple.String() != s.peak {
			t.Errorf("collateral %d: PeakMultiple = %s, want %s", s.collateral, l.PeakMultiple, s.peak)
		}
	}

	for _, collateral := range []int64{0, -500} {
		if l.RecomputeMultiple(big.NewInt(collateral)) {
			t.Errorf("collateral %d: expected no change", collateral)
		}
		if l.CurrentMultiple.String() != "1.5" || l.PeakMultiple.String() != "4" {
			t.Errorf("collateral %d: multiples = %s/%s, want 1.5/4", collateral, l.CurrentMultiple, l.PeakMultiple)
		}
	}
}

func TestLooperPositionData_RecomputeSwapRate(t *testing.T) {
	l, _ := NewLooperPositionData("1", 0, common.Hash{})
	l.AverageSwapRate = decimal.RequireFromString("0.5")

	l.RecomputeSwapRate()
	if l.AverageSwapRate.String() != "0.5" {
		t.Errorf("rate changed with nothing minted: %s", l.AverageSwapRate)
	}

	l.TotalMinted = big.NewInt(1000)
	l.TotalSwapped = big.NewInt(990)
	l.RecomputeSwapRate()
	if l.AverageSwapRate.String() != "0.99" {
		t.Errorf("AverageSwapRate = %s, want 0.99", l.AverageSwapRate)
	}
}

func TestNewDailyPositionSnapshot(t *testing.T) {
	p, _ := NewPosition(big.NewInt(42), 0)
	p.Collateral = big.NewInt(1000)
	p.Debt = big.NewInt(600)

	s := NewDailyPositionSnapshot(p, 1700000000)
	if s.ID != "42-19675" {
		t.Errorf("ID = %q, want 42-19675", s.ID)
	}
	if s.Date != 19675 {
		t.Errorf("Date = %d", s.Date)
	}
	if s.Leverage.String() != "2.5" {
		t.Errorf("Leverage = %s, want 2.5", s.Leverage)
	}
	if s.Multiple != nil {
		t.Error("Multiple should be unset for a plain position")
	}

	p.Collateral.SetInt64(1)
	if s.Collateral.Int64() != 1000 {
		t.Error("snapshot aliased position balance")
	}
}

func TestNewEmpty(t *testing.T) {
	kinds := []Kind{
		KindPosition, KindUser, KindProtocolStats, KindLooperData,
		KindDepositEvent, KindWithdrawalEvent, KindBorrowEvent, KindRepayEvent,
		KindLiquidationEvent, KindLoopEvent, KindDailySnapshot, KindProcessedLog,
	}
	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			e, err := NewEmpty(k)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.EntityKind() != k {
				t.Errorf("EntityKind = %q, want %q", e.EntityKind(), k)
			}
		})
	}

	if _, err := NewEmpty("Vault"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestJSONRoundTrip_PreservesLargeBalances(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	p, _ := NewPosition(big.NewInt(9), 5)
	p.Collateral = huge
	p.Debt = big.NewInt(-3)

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Position
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Collateral.Cmp(huge) != 0 {
		t.Errorf("Collateral = %s, want %s", got.Collateral, huge)
	}
	if got.Debt.Int64() != -3 {
		t.Errorf("Debt = %s, want -3", got.Debt)
	}
}

func TestEventType_IsValid(t *testing.T) {
	if !EventForceRepay.IsValid() {
		t.Error("ForceRepay should be valid")
	}
	if EventType("Harvest").IsValid() {
		t.Error("Harvest should not be valid")
	}
	if !SourceLooper.IsValid() || Source("V2").IsValid() {
		t.Error("unexpected Source validity")
	}
}
