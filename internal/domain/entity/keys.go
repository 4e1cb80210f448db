package entity

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ProtocolStatsID is the fixed key of the ProtocolStats singleton.
const ProtocolStatsID = "protocol"

// PositionID returns the natural key of a position: the decimal token ID.
func PositionID(tokenID *big.Int) string {
	if tokenID == nil {
		return "0"
	}
	return tokenID.String()
}

// UserID returns the natural key of a user: the lower-case 0x hex address.
func UserID(address common.Address) string {
	return strings.ToLower(address.Hex())
}

// EventID returns the globally unique key of a per-log record.
// Format: {txHash}-{logIndex}
func EventID(txHash common.Hash, logIndex uint) string {
	return fmt.Sprintf("%s-%d", txHash.Hex(), logIndex)
}

// SnapshotID returns the key of a position's snapshot for a day bucket.
// Format: {positionID}-{day}
func SnapshotID(positionID string, day int64) string {
	return fmt.Sprintf("%s-%d", positionID, day)
}
