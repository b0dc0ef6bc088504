package risk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
	"github.com/web3ekko/ekko-ce/explainer/pkg/enricher"
	"github.com/web3ekko/ekko-ce/explainer/pkg/format"
	"go.uber.org/zap"
)

// Engine applies the per-kind rules. The interaction cache is its only state.
type Engine struct {
	cache  InteractionCache
	logger *zap.Logger
}

// NewEngine creates a risk engine. A nil cache gets a fresh in-memory one.
func NewEngine(cache InteractionCache, logger *zap.Logger) *Engine {
	if cache == nil {
		cache = NewMemoryInteractionCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:  cache,
		logger: logger,
	}
}

// Cache returns the engine's interaction cache.
func (e *Engine) Cache() InteractionCache {
	return e.cache
}

// Score runs the rules for the action's kind and evaluates the tier.
// Findings are in rule order.
func (e *Engine) Score(ctx context.Context, a action.Action, enrichment *enricher.Enrichment, from *common.Address) ([]Finding, Tier) {
	findings := e.findings(ctx, a, enrichment, from)
	return findings, Evaluate(findings)
}

func (e *Engine) findings(ctx context.Context, a action.Action, enrichment *enricher.Enrichment, from *common.Address) []Finding {
	findings := []Finding{}
	add := func(level Severity, code, message string) {
		findings = append(findings, Finding{Level: level, Code: code, Message: message})
	}

	switch v := a.(type) {
	case action.Erc20Approve:
		if format.IsUnlimited(v.Amount) {
			add(SeverityWarn, CodeAllowanceUnlimited, "This approval grants unlimited token spending permission")
		}
		if from != nil && e.firstInteraction(ctx, *from, v.Spender) {
			add(SeverityWarn, CodeNewSpender, "First time interacting with this spender")
		}
		if enrichment.KnownContract(v.Spender) {
			add(SeverityInfo, CodeSpenderIsContract, "Spender is a smart contract")
		}
		if meta, ok := enrichment.Meta(v.ContractAddress); !ok || !meta.Known() {
			add(SeverityWarn, CodeTokenMetaUnknown, "Could not verify token information")
		}

	case action.Erc721SetApprovalForAll:
		setApprovalForAll(v.Approved, add)
	case action.Erc1155SetApprovalForAll:
		setApprovalForAll(v.Approved, add)

	case action.Erc20Transfer:
		transferTo(enrichment, v.To, add)
	case action.Erc721SafeTransferFrom:
		transferTo(enrichment, v.To, add)
	case action.Erc1155SafeTransferFrom:
		transferTo(enrichment, v.To, add)

	case action.EthTransfer:
		if enrichment.KnownContract(v.To) {
			add(SeverityInfo, CodeEthToContract, "Sending ETH to a smart contract")
		}

	case action.UniswapSwap:
		add(SeverityInfo, CodeUniswapSwapDetected, "Token swap transaction")
		if v.HasTokenIn() {
			if meta, ok := enrichment.Meta(v.TokenIn); !ok || !meta.Known() {
				add(SeverityWarn, CodeSwapTokenUnknown, "Could not verify input token information")
			}
		}

	case action.Unrecognized:
		add(SeverityWarn, CodeUnknownSelector, "Unknown function call - unable to decode transaction details")

	case action.Erc20TransferFrom, action.Erc20Permit:
		// no rules
	}

	return findings
}

// firstInteraction records the pair and reports whether it is new. A cache
// failure counts as new so the warning is not lost.
func (e *Engine) firstInteraction(ctx context.Context, from, spender common.Address) bool {
	isNew, err := e.cache.MarkSeen(ctx, from, spender)
	if err != nil {
		e.logger.Warn("interaction cache unavailable, treating spender as new",
			zap.String("from", from.Hex()),
			zap.String("spender", spender.Hex()),
			zap.Error(err))
		return true
	}
	return isNew
}

func setApprovalForAll(approved bool, add func(Severity, string, string)) {
	if approved {
		add(SeverityDanger, CodeSetApprovalForAllTrue, "This grants permission to transfer ALL your NFTs in this collection")
		return
	}
	add(SeverityInfo, CodeSetApprovalForAllFalse, "This revokes NFT transfer permissions")
}

func transferTo(enrichment *enricher.Enrichment, to common.Address, add func(Severity, string, string)) {
	if enrichment.KnownContract(to) {
		add(SeverityInfo, CodeTransferToContract, "Recipient is a smart contract")
	}
}
