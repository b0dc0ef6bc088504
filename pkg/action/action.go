// Package action defines the decoded intent of a transaction. Action is a
// closed set of variants, one struct per kind; consumers switch on the
// concrete type.
package action

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/web3ekko/ekko-ce/explainer/pkg/format"
)

// Kind is the stable string tag of an Action variant.
type Kind string

const (
	KindEthTransfer              Kind = "eth_transfer"
	KindErc20Approve             Kind = "erc20_approve"
	KindErc20Transfer            Kind = "erc20_transfer"
	KindErc20TransferFrom        Kind = "erc20_transferFrom"
	KindErc20Permit              Kind = "erc20_permit"
	KindErc721SetApprovalForAll  Kind = "erc721_setApprovalForAll"
	KindErc1155SetApprovalForAll Kind = "erc1155_setApprovalForAll"
	KindErc721SafeTransferFrom   Kind = "erc721_safeTransferFrom"
	KindErc1155SafeTransferFrom  Kind = "erc1155_safeTransferFrom"
	KindUniswapSwap              Kind = "uniswap_swap"
	KindUnrecognized             Kind = "unknown"
)

// Selector is the first four bytes of call data.
type Selector [4]byte

// ZeroSelector is reported for call data too short to carry a selector.
var ZeroSelector Selector

// SelectorFromData returns the leading selector of data, or false when data
// is shorter than four bytes.
func SelectorFromData(data []byte) (Selector, bool) {
	var s Selector
	if len(data) < len(s) {
		return s, false
	}
	copy(s[:], data[:4])
	return s, true
}

// String renders the selector as 0x-prefixed lowercase hex.
func (s Selector) String() string {
	return format.SelectorHex(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Action is the decoded intent of a transaction.
type Action interface {
	Kind() Kind
	// Contract is the transaction's destination address.
	Contract() common.Address
	// CallSelector returns the selector the action was decoded from. Plain
	// value transfers have none.
	CallSelector() (Selector, bool)

	sealed()
}

// Call carries the fields shared by every selector-derived action.
type Call struct {
	Selector        Selector
	ContractAddress common.Address
}

func (c Call) Contract() common.Address       { return c.ContractAddress }
func (c Call) CallSelector() (Selector, bool) { return c.Selector, true }
func (Call) sealed()                          {}

// EthTransfer is a native value transfer with no call data.
type EthTransfer struct {
	To    common.Address
	Value *big.Int
}

func (EthTransfer) Kind() Kind                     { return KindEthTransfer }
func (a EthTransfer) Contract() common.Address     { return a.To }
func (EthTransfer) CallSelector() (Selector, bool) { return Selector{}, false }
func (EthTransfer) sealed()                        {}

// Erc20Approve is approve(spender, amount).
type Erc20Approve struct {
	Call
	Spender common.Address
	Amount  *big.Int
}

func (Erc20Approve) Kind() Kind { return KindErc20Approve }

// Erc20Transfer is transfer(to, amount).
type Erc20Transfer struct {
	Call
	To     common.Address
	Amount *big.Int
}

func (Erc20Transfer) Kind() Kind { return KindErc20Transfer }

// Erc20TransferFrom is transferFrom(from, to, amount).
type Erc20TransferFrom struct {
	Call
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (Erc20TransferFrom) Kind() Kind { return KindErc20TransferFrom }

// Erc20Permit is the EIP-2612 permit(owner, spender, value, deadline, v, r, s).
type Erc20Permit struct {
	Call
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Deadline *big.Int
	V        uint8
	R        [32]byte
	S        [32]byte
}

func (Erc20Permit) Kind() Kind { return KindErc20Permit }

// Erc721SetApprovalForAll is setApprovalForAll(operator, approved). The
// selector is shared with ERC1155 and decoding always yields this variant.
type Erc721SetApprovalForAll struct {
	Call
	Operator common.Address
	Approved bool
}

func (Erc721SetApprovalForAll) Kind() Kind { return KindErc721SetApprovalForAll }

// Erc1155SetApprovalForAll is the ERC1155 form of setApprovalForAll. The
// decoder does not produce it; it exists so callers that know the token
// standard can say so.
type Erc1155SetApprovalForAll struct {
	Call
	Operator common.Address
	Approved bool
}

func (Erc1155SetApprovalForAll) Kind() Kind { return KindErc1155SetApprovalForAll }

// Erc721SafeTransferFrom covers both safeTransferFrom overloads. Data is
// empty for the three-argument form.
type Erc721SafeTransferFrom struct {
	Call
	From    common.Address
	To      common.Address
	TokenID *big.Int
	Data    []byte
}

func (Erc721SafeTransferFrom) Kind() Kind { return KindErc721SafeTransferFrom }

// Erc1155SafeTransferFrom is safeTransferFrom(from, to, id, amount, data).
type Erc1155SafeTransferFrom struct {
	Call
	From   common.Address
	To     common.Address
	ID     *big.Int
	Amount *big.Int
	Data   []byte
}

func (Erc1155SafeTransferFrom) Kind() Kind { return KindErc1155SafeTransferFrom }

// SwapMethod names the router entry point of a UniswapSwap.
type SwapMethod string

const (
	SwapExactTokensForTokens SwapMethod = "exactTokensForTokens"
	SwapTokensForExactTokens SwapMethod = "tokensForExactTokens"
	SwapExactETHForTokens    SwapMethod = "exactETHForTokens"
	SwapTokensForExactETH    SwapMethod = "tokensForExactETH"
	SwapExactTokensForETH    SwapMethod = "exactTokensForETH"
	SwapETHForExactTokens    SwapMethod = "ethForExactTokens"
	SwapExactInputSingle     SwapMethod = "exactInputSingle"
)

// UniswapSwap is a router swap. Amount fields a method does not take are nil.
// TokenIn and TokenOut are the first and last path hops for V2 methods and
// the explicit parameters for V3; they are the zero address when unknown.
type UniswapSwap struct {
	Call
	Method       SwapMethod
	AmountIn     *big.Int
	AmountOutMin *big.Int
	AmountOut    *big.Int
	AmountInMax  *big.Int
	Path         []common.Address
	TokenIn      common.Address
	TokenOut     common.Address
	Recipient    common.Address
	Deadline     *big.Int
	Fee          *big.Int
	// SqrtPriceLimitX96 is only set by exactInputSingle.
	SqrtPriceLimitX96 *big.Int
}

func (UniswapSwap) Kind() Kind { return KindUniswapSwap }

// HasTokenIn reports whether the swap names its input token.
func (a UniswapSwap) HasTokenIn() bool { return a.TokenIn != (common.Address{}) }

// HasTokenOut reports whether the swap names its output token.
func (a UniswapSwap) HasTokenOut() bool { return a.TokenOut != (common.Address{}) }

// Unrecognized is any call data the decoder could not classify. Selector is
// ZeroSelector when the data was shorter than four bytes.
type Unrecognized struct {
	Call
	Data []byte
}

func (Unrecognized) Kind() Kind { return KindUnrecognized }

// DecodedCall is the audit form of an Action: a flat, JSON friendly record
// with every big integer rendered in decimal.
type DecodedCall struct {
	Type            Kind           `json:"type"`
	Selector        string         `json:"selector,omitempty"`
	ContractAddress string         `json:"contractAddress"`
	Args            map[string]any `json:"args"`
}

// Describe converts an Action to its audit form.
func Describe(a Action) DecodedCall {
	dc := DecodedCall{
		Type:            a.Kind(),
		ContractAddress: a.Contract().Hex(),
	}
	if sel, ok := a.CallSelector(); ok {
		dc.Selector = sel.String()
	}

	switch v := a.(type) {
	case EthTransfer:
		dc.Args = map[string]any{"to": v.To.Hex(), "value": bigString(v.Value)}
	case Erc20Approve:
		dc.Args = map[string]any{"spender": v.Spender.Hex(), "amount": bigString(v.Amount)}
	case Erc20Transfer:
		dc.Args = map[string]any{"to": v.To.Hex(), "amount": bigString(v.Amount)}
	case Erc20TransferFrom:
		dc.Args = map[string]any{"from": v.From.Hex(), "to": v.To.Hex(), "amount": bigString(v.Amount)}
	case Erc20Permit:
		dc.Args = map[string]any{
			"owner":    v.Owner.Hex(),
			"spender":  v.Spender.Hex(),
			"value":    bigString(v.Value),
			"deadline": bigString(v.Deadline),
			"v":        v.V,
			"r":        hexutil.Encode(v.R[:]),
			"s":        hexutil.Encode(v.S[:]),
		}
	case Erc721SetApprovalForAll:
		dc.Args = map[string]any{"operator": v.Operator.Hex(), "approved": v.Approved}
	case Erc1155SetApprovalForAll:
		dc.Args = map[string]any{"operator": v.Operator.Hex(), "approved": v.Approved}
	case Erc721SafeTransferFrom:
		dc.Args = map[string]any{
			"from":    v.From.Hex(),
			"to":      v.To.Hex(),
			"tokenId": bigString(v.TokenID),
			"data":    hexutil.Encode(v.Data),
		}
	case Erc1155SafeTransferFrom:
		dc.Args = map[string]any{
			"from":   v.From.Hex(),
			"to":     v.To.Hex(),
			"id":     bigString(v.ID),
			"amount": bigString(v.Amount),
			"data":   hexutil.Encode(v.Data),
		}
	case UniswapSwap:
		dc.Args = describeSwap(v)
	case Unrecognized:
		dc.Args = map[string]any{"data": hexutil.Encode(v.Data)}
	default:
		panic(fmt.Sprintf("action: unhandled variant %T", a))
	}
	return dc
}

func describeSwap(v UniswapSwap) map[string]any {
	args := map[string]any{"swapType": string(v.Method)}
	optional := map[string]*big.Int{
		"amountIn":          v.AmountIn,
		"amountOutMin":      v.AmountOutMin,
		"amountOut":         v.AmountOut,
		"amountInMax":       v.AmountInMax,
		"deadline":          v.Deadline,
		"fee":               v.Fee,
		"sqrtPriceLimitX96": v.SqrtPriceLimitX96,
	}
	for k, n := range optional {
		if n != nil {
			args[k] = n.String()
		}
	}
	if len(v.Path) > 0 {
		path := make([]string, len(v.Path))
		for i, hop := range v.Path {
			path[i] = hop.Hex()
		}
		args["path"] = path
	}
	if v.HasTokenIn() {
		args["tokenIn"] = v.TokenIn.Hex()
	}
	if v.HasTokenOut() {
		args["tokenOut"] = v.TokenOut.Hex()
	}
	if v.Recipient != (common.Address{}) {
		args["recipient"] = v.Recipient.Hex()
	}
	return args
}

func bigString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

