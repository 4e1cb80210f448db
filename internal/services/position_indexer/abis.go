package position_indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
)

const positionTransferABI = `{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}`

var alchemistV3ABI = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}],"name":"Deposit","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"recipient","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}],"name":"Withdraw","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"recipient","type":"address"}],"name":"Mint","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Burn","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":true,"name":"recipientId","type":"uint256"},{"indexed":false,"name":"credit","type":"uint256"}],"name":"Repay","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":true,"name":"liquidator","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"shares","type":"uint256"}],"name":"Liquidate","type":"event"},
	` + positionTransferABI + `
]`

var alchemistV1ABI = `[
	{"anonymous":false,"inputs":[{"indexed":false,"name":"amount","type":"uint256"},{"indexed":true,"name":"recipientId","type":"uint256"}],"name":"Deposit","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"name":"amount","type":"uint256"},{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"recipient","type":"address"}],"name":"Withdraw","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"recipient","type":"address"}],"name":"Mint","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":true,"name":"recipientId","type":"uint256"}],"name":"Burn","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":true,"name":"recipientId","type":"uint256"}],"name":"Repay","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"accountId","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"newDebt","type":"uint256"}],"name":"ForceRepay","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"accountId","type":"uint256"},{"indexed":true,"name":"liquidator","type":"address"},{"indexed":false,"name":"amount","type":"uint256"},{"indexed":false,"name":"feeInYield","type":"uint256"},{"indexed":false,"name":"feeInUnderlying","type":"uint256"}],"name":"Liquidate","type":"event"},
	` + positionTransferABI + `
]`

var looperABI = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":true,"name":"user","type":"address"},{"indexed":false,"name":"initialUsdc","type":"uint256"},{"indexed":false,"name":"finalShares","type":"uint256"},{"indexed":false,"name":"totalBorrowed","type":"uint256"},{"indexed":false,"name":"loopsExecuted","type":"uint256"},{"indexed":false,"name":"totalUsdcSwapped","type":"uint256"}],"name":"LoopedPositionCreated","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"borrowAmount","type":"uint256"},{"indexed":false,"name":"usdcReceived","type":"uint256"},{"indexed":false,"name":"sharesDeposited","type":"uint256"}],"name":"LoopExecuted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tokenId","type":"uint256"},{"indexed":false,"name":"loopsExecuted","type":"uint256"},{"indexed":false,"name":"totalBorrowed","type":"uint256"},{"indexed":false,"name":"totalUsdcReceived","type":"uint256"},{"indexed":false,"name":"totalSharesDeposited","type":"uint256"}],"name":"MultiLoopExecuted","type":"event"}
]`

var sourceABIs = map[entity.Source]string{
	entity.SourceAlchemistV1: alchemistV1ABI,
	entity.SourceAlchemistV3: alchemistV3ABI,
	entity.SourceLooper:      looperABI,
}

// sourceABI parses the event ABI of a contract family.
func sourceABI(source entity.Source) (*abi.ABI, error) {
	raw, ok := sourceABIs[source]
	if !ok {
		return nil, fmt.Errorf("no ABI for source %q", source)
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", source, err)
	}
	return &parsed, nil
}
