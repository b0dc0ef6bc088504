// Package describe renders a short title and a one-sentence summary for a
// decoded action, using whatever token metadata the enrichment found.
package describe

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
	"github.com/web3ekko/ekko-ce/explainer/pkg/enricher"
	"github.com/web3ekko/ekko-ce/explainer/pkg/format"
	"github.com/web3ekko/ekko-ce/explainer/pkg/risk"
)

const (
	// DefaultNativeSymbol is used when a Composer has no symbol configured.
	DefaultNativeSymbol = "ETH"

	fallbackUnit   = "tokens"
	nativeDecimals = 18

	unlimitedCaution    = " ⚠️ This is an unlimited approval - the spender can use all your tokens."
	unrecognizedCaution = " ⚠️ Exercise caution with unrecognized contract interactions."
	collectionCaution   = " ⚠️ This affects your entire collection."
)

// Composer builds explanations. NativeSymbol names the chain's currency.
type Composer struct {
	NativeSymbol string
}

// Compose explains an action with the default native symbol.
func Compose(a action.Action, e *enricher.Enrichment, tier risk.Tier) (title, summary string) {
	return Composer{}.Compose(a, e, tier)
}

// Compose returns the title and summary for an action. It never fails;
// missing metadata falls back to generic units.
func (c Composer) Compose(a action.Action, e *enricher.Enrichment, tier risk.Tier) (title, summary string) {
	switch v := a.(type) {
	case action.Erc20Approve:
		amount, unit := approvalAmount(v.Amount, e, v.ContractAddress)
		title = fmt.Sprintf("Approve %s %s", amount, unit)
		summary = fmt.Sprintf("Grant permission to spend %s %s to %s.", amount, unit, label(v.Spender))
		if elevated(tier) && format.IsUnlimited(v.Amount) {
			summary += unlimitedCaution
		}

	case action.Erc20Transfer:
		amount, unit := tokenAmount(v.Amount, e, v.ContractAddress)
		title = fmt.Sprintf("Send %s %s", amount, unit)
		summary = fmt.Sprintf("Transfer %s %s to %s.", amount, unit, label(v.To))

	case action.Erc20TransferFrom:
		amount, unit := tokenAmount(v.Amount, e, v.ContractAddress)
		title = fmt.Sprintf("Transfer %s %s", amount, unit)
		summary = fmt.Sprintf("Transfer %s %s from %s to %s.", amount, unit, label(v.From), label(v.To))

	case action.Erc20Permit:
		amount, unit := approvalAmount(v.Value, e, v.ContractAddress)
		title = fmt.Sprintf("Permit %s %s", amount, unit)
		summary = fmt.Sprintf("Create off-chain approval for %s to spend %s %s.", label(v.Spender), amount, unit)

	case action.Erc721SetApprovalForAll:
		title, summary = approvalForAll(v.Operator, v.ContractAddress, v.Approved)
	case action.Erc1155SetApprovalForAll:
		title, summary = approvalForAll(v.Operator, v.ContractAddress, v.Approved)

	case action.Erc721SafeTransferFrom:
		id := bigString(v.TokenID)
		title = fmt.Sprintf("Transfer NFT #%s", id)
		summary = fmt.Sprintf("Transfer NFT #%s from collection %s from %s to %s.",
			id, label(v.ContractAddress), label(v.From), label(v.To))

	case action.Erc1155SafeTransferFrom:
		id, count := bigString(v.ID), bigString(v.Amount)
		title = fmt.Sprintf("Transfer %s NFT #%s", count, id)
		summary = fmt.Sprintf("Transfer %s of NFT #%s from collection %s from %s to %s.",
			count, id, label(v.ContractAddress), label(v.From), label(v.To))

	case action.UniswapSwap:
		title, summary = c.swap(v, e)

	case action.EthTransfer:
		amount := format.FormatAmount(v.Value, nativeDecimals)
		title = fmt.Sprintf("Send %s %s", amount, c.native())
		summary = fmt.Sprintf("Transfer %s %s to %s.", amount, c.native(), label(v.To))

	case action.Unrecognized:
		sel := v.Selector.String()
		title = fmt.Sprintf("Unknown contract call (%s)", sel)
		summary = fmt.Sprintf("Call unknown function %s on contract %s. Unable to decode transaction details.",
			sel, label(v.ContractAddress))
		if elevated(tier) {
			summary += unrecognizedCaution
		}

	default:
		title = "Contract interaction"
		summary = "Interact with smart contract."
	}
	return title, summary
}

func (c Composer) swap(v action.UniswapSwap, e *enricher.Enrichment) (title, summary string) {
	title = "Token swap"
	summary = fmt.Sprintf("Execute token swap on %s.", label(v.ContractAddress))
	if !v.HasTokenIn() || !v.HasTokenOut() {
		return title, summary
	}

	inDecimals, inUnit := c.swapLeg(v.TokenIn, e, v.Method == action.SwapExactETHForTokens || v.Method == action.SwapETHForExactTokens)
	outDecimals, outUnit := c.swapLeg(v.TokenOut, e, v.Method == action.SwapTokensForExactETH || v.Method == action.SwapExactTokensForETH)

	switch {
	case v.AmountIn != nil && v.AmountOutMin != nil:
		in := format.FormatAmount(v.AmountIn, inDecimals)
		minOut := format.FormatAmount(v.AmountOutMin, outDecimals)
		title = fmt.Sprintf("Swap %s %s", in, inUnit)
		summary = fmt.Sprintf("Swap %s %s for at least %s %s.", in, inUnit, minOut, outUnit)
	case v.AmountOut != nil && v.AmountInMax != nil:
		maxIn := format.FormatAmount(v.AmountInMax, inDecimals)
		out := format.FormatAmount(v.AmountOut, outDecimals)
		title = fmt.Sprintf("Swap up to %s %s", maxIn, inUnit)
		summary = fmt.Sprintf("Swap up to %s %s for exactly %s %s.", maxIn, inUnit, out, outUnit)
	}
	return title, summary
}

// swapLeg returns decimals and unit for one side of a swap. The native
// currency side of an ETH router method is named by the chain symbol.
func (c Composer) swapLeg(token common.Address, e *enricher.Enrichment, native bool) (int, string) {
	if native {
		return nativeDecimals, c.native()
	}
	return unitOf(e, token)
}

func (c Composer) native() string {
	if c.NativeSymbol == "" {
		return DefaultNativeSymbol
	}
	return c.NativeSymbol
}

func approvalForAll(operator, collection common.Address, approved bool) (title, summary string) {
	if approved {
		return "Grant NFT collection approval",
			fmt.Sprintf("Allow %s to transfer ALL your NFTs in collection %s.%s", label(operator), label(collection), collectionCaution)
	}
	return "Revoke NFT collection approval",
		fmt.Sprintf("Remove %s's permission to transfer your NFTs in collection %s.", label(operator), label(collection))
}

func approvalAmount(amount *big.Int, e *enricher.Enrichment, token common.Address) (string, string) {
	if format.IsUnlimited(amount) {
		_, unit := unitOf(e, token)
		return "unlimited", unit
	}
	return tokenAmount(amount, e, token)
}

func tokenAmount(amount *big.Int, e *enricher.Enrichment, token common.Address) (string, string) {
	decimals, unit := unitOf(e, token)
	return format.FormatAmount(amount, decimals), unit
}

func unitOf(e *enricher.Enrichment, token common.Address) (int, string) {
	meta, ok := e.Meta(token)
	if !ok {
		return enricher.DefaultDecimals, fallbackUnit
	}
	return meta.Decimals, meta.Symbol
}

func elevated(tier risk.Tier) bool {
	return tier == risk.TierMedium || tier == risk.TierHigh
}

func label(addr common.Address) string {
	return format.ShortenAddress(addr.Hex())
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
