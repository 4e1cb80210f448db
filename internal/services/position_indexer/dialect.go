package position_indexer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/alchemist-indexer/internal/domain/entity"
	"github.com/archon-research/alchemist-indexer/internal/pkg/numeric"
)

// decodeFunc translates one event's raw params into a normalized operation.
type decodeFunc func(p params, m Meta) (operation, error)

// dialect maps the events a contract family emits to their translators. Events
// missing from a dialect are ignored.
type dialect map[entity.EventType]decodeFunc

var dialects = map[entity.Source]dialect{
	entity.SourceAlchemistV1: alchemistV1,
	entity.SourceAlchemistV3: alchemistV3,
	entity.SourceLooper:      looper,
}

// alchemistV3 reads the V3 layout: position-first params with explicit share
// amounts.
var alchemistV3 = dialect{
	entity.EventDeposit: func(p params, _ Meta) (operation, error) {
		var op depositOp
		var err error
		if op.Depositor, err = p.address("sender"); err != nil {
			return nil, err
		}
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Amount, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.Shares, err = p.bigInt("shares"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventWithdraw: func(p params, _ Meta) (operation, error) {
		var op withdrawOp
		var err error
		if op.Recipient, err = p.address("recipient"); err != nil {
			return nil, err
		}
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Amount, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.Shares, err = p.bigInt("shares"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventMint: decodeMint,
	entity.EventBurn: func(p params, _ Meta) (operation, error) {
		op := repayOp{Source: entity.RepaySourceBurn}
		var err error
		if op.Payer, err = p.address("sender"); err != nil {
			return nil, err
		}
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Amount, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		return op, nil
	},
	// Repay reduces debt by the credited amount, not the underlying paid.
	entity.EventRepay: func(p params, _ Meta) (operation, error) {
		op := repayOp{Source: entity.RepaySourceRepay}
		var err error
		if op.Payer, err = p.address("sender"); err != nil {
			return nil, err
		}
		if op.TokenID, err = p.bigInt("recipientId"); err != nil {
			return nil, err
		}
		if _, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.Amount, err = p.bigInt("credit"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventLiquidate: func(p params, _ Meta) (operation, error) {
		var op liquidationOp
		var err error
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Liquidator, err = p.address("liquidator"); err != nil {
			return nil, err
		}
		if op.Repaid, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.Seized, err = p.bigInt("shares"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventTransfer: decodeTransfer,
}

// alchemistV1 reads the V1 layout: amount-first params, one unit per share, the
// depositor taken from the transaction sender, and seized collateral reported as
// two fee components.
var alchemistV1 = dialect{
	entity.EventDeposit: func(p params, m Meta) (operation, error) {
		op := depositOp{Depositor: m.TxFrom}
		var err error
		if op.Amount, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.TokenID, err = p.bigInt("recipientId"); err != nil {
			return nil, err
		}
		op.Shares = numeric.Copy(op.Amount)
		return op, nil
	},
	entity.EventWithdraw: func(p params, _ Meta) (operation, error) {
		var op withdrawOp
		var err error
		if op.Amount, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Recipient, err = p.address("recipient"); err != nil {
			return nil, err
		}
		op.Shares = numeric.Copy(op.Amount)
		return op, nil
	},
	entity.EventMint: decodeMint,
	entity.EventBurn: func(p params, _ Meta) (operation, error) {
		return decodeV1Repay(p, entity.RepaySourceBurn)
	},
	entity.EventRepay: func(p params, _ Meta) (operation, error) {
		return decodeV1Repay(p, entity.RepaySourceRepay)
	},
	entity.EventForceRepay: func(p params, m Meta) (operation, error) {
		op := repayOp{Source: entity.RepaySourceForceRepay, Payer: m.TxFrom}
		var err error
		if op.TokenID, err = p.bigInt("accountId"); err != nil {
			return nil, err
		}
		if op.Amount, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		if op.NewDebt, err = p.bigInt("newDebt"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventLiquidate: func(p params, _ Meta) (operation, error) {
		var op liquidationOp
		var err error
		if op.TokenID, err = p.bigInt("accountId"); err != nil {
			return nil, err
		}
		if op.Liquidator, err = p.address("liquidator"); err != nil {
			return nil, err
		}
		if op.Repaid, err = p.bigInt("amount"); err != nil {
			return nil, err
		}
		feeInYield, err := p.bigInt("feeInYield")
		if err != nil {
			return nil, err
		}
		feeInUnderlying, err := p.bigInt("feeInUnderlying")
		if err != nil {
			return nil, err
		}
		op.Seized = numeric.Add(feeInYield, feeInUnderlying)
		return op, nil
	},
	entity.EventTransfer: decodeTransfer,
}

var looper = dialect{
	entity.EventLoopedPositionCreated: func(p params, _ Meta) (operation, error) {
		var op loopCreatedOp
		var err error
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		// Ownership follows the position NFT's Transfer, so user is only checked.
		if _, err = p.address("user"); err != nil {
			return nil, err
		}
		if op.InitialUsdc, err = p.bigInt("initialUsdc"); err != nil {
			return nil, err
		}
		if op.FinalShares, err = p.bigInt("finalShares"); err != nil {
			return nil, err
		}
		if op.TotalBorrowed, err = p.bigInt("totalBorrowed"); err != nil {
			return nil, err
		}
		if op.LoopsExecuted, err = p.count("loopsExecuted"); err != nil {
			return nil, err
		}
		if op.TotalUsdcSwapped, err = p.bigInt("totalUsdcSwapped"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventLoopExecuted: func(p params, _ Meta) (operation, error) {
		op := loopOp{Batch: 1}
		var err error
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Borrowed, err = p.bigInt("borrowAmount"); err != nil {
			return nil, err
		}
		if op.UsdcReceived, err = p.bigInt("usdcReceived"); err != nil {
			return nil, err
		}
		if op.SharesDeposited, err = p.bigInt("sharesDeposited"); err != nil {
			return nil, err
		}
		return op, nil
	},
	entity.EventMultiLoopExecuted: func(p params, _ Meta) (operation, error) {
		var op loopOp
		var err error
		if op.TokenID, err = p.bigInt("tokenId"); err != nil {
			return nil, err
		}
		if op.Batch, err = p.count("loopsExecuted"); err != nil {
			return nil, err
		}
		if op.Borrowed, err = p.bigInt("totalBorrowed"); err != nil {
			return nil, err
		}
		if op.UsdcReceived, err = p.bigInt("totalUsdcReceived"); err != nil {
			return nil, err
		}
		if op.SharesDeposited, err = p.bigInt("totalSharesDeposited"); err != nil {
			return nil, err
		}
		return op, nil
	},
}

func decodeMint(p params, _ Meta) (operation, error) {
	var op borrowOp
	var err error
	if op.TokenID, err = p.bigInt("tokenId"); err != nil {
		return nil, err
	}
	if op.Amount, err = p.bigInt("amount"); err != nil {
		return nil, err
	}
	if op.Recipient, err = p.address("recipient"); err != nil {
		return nil, err
	}
	return op, nil
}

func decodeV1Repay(p params, source entity.RepaySource) (operation, error) {
	op := repayOp{Source: source}
	var err error
	if op.Payer, err = p.address("sender"); err != nil {
		return nil, err
	}
	if op.Amount, err = p.bigInt("amount"); err != nil {
		return nil, err
	}
	if op.TokenID, err = p.bigInt("recipientId"); err != nil {
		return nil, err
	}
	return op, nil
}

func decodeTransfer(p params, _ Meta) (operation, error) {
	var op transferOp
	var err error
	if op.From, err = p.address("from"); err != nil {
		return nil, err
	}
	if op.To, err = p.address("to"); err != nil {
		return nil, err
	}
	if op.TokenID, err = p.bigInt("tokenId"); err != nil {
		return nil, err
	}
	if op.From == (common.Address{}) && op.To == (common.Address{}) {
		return nil, fmt.Errorf("%w: Transfer from and to the zero address", ErrMalformedEvent)
	}
	return op, nil
}
