package decoder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
)

// Family groups the curated signatures. Families are consulted in the order
// ERC20, NFT, Uniswap; the first family to declare a selector owns it.
type Family string

const (
	FamilyERC20   Family = "erc20"
	FamilyNFT     Family = "nft"
	FamilyUniswap Family = "uniswap"
)

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"permit","stateMutability":"nonpayable",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"},{"name":"value","type":"uint256"},
	           {"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],
	 "outputs":[]}
]`

const nftABI = `[
	{"type":"function","name":"setApprovalForAll","stateMutability":"nonpayable",
	 "inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]},
	{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"id","type":"uint256"},
	           {"name":"amount","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[]}
]`

const uniswapABI = `[
	{"type":"function","name":"swapExactTokensForTokens","stateMutability":"nonpayable",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapTokensForExactTokens","stateMutability":"nonpayable",
	 "inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapExactETHForTokens","stateMutability":"payable",
	 "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapTokensForExactETH","stateMutability":"nonpayable",
	 "inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapExactTokensForETH","stateMutability":"nonpayable",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapETHForExactTokens","stateMutability":"payable",
	 "inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"},
	           {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"exactInputSingle","stateMutability":"payable",
	 "inputs":[{"name":"params","type":"tuple","components":[
	   {"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},
	   {"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},
	   {"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// exactInputSingleParams mirrors the V3 router's ExactInputSingleParams
// tuple. Field order and types must match the unpacked tuple.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Entry is one row of the selector table.
type Entry struct {
	Selector  action.Selector
	Signature string
	Family    Family
	Kind      action.Kind

	method  abi.Method
	binding binding
}

// Inputs returns the argument layout of the entry's function.
func (e Entry) Inputs() abi.Arguments {
	return e.method.Inputs
}

// binding converts between unpacked ABI values and an Action variant.
type binding struct {
	kind   action.Kind
	decode func(call action.Call, value *big.Int, args *argReader) action.Action
	encode func(a action.Action) ([]interface{}, error)
}

var table = mustBuildTable()

// Lookup returns the table entry for a selector.
func Lookup(sel action.Selector) (Entry, bool) {
	e, ok := table[sel]
	return e, ok
}

// Entries returns every table entry. The order is unspecified.
func Entries() []Entry {
	out := make([]Entry, 0, len(table))
	for _, e := range table {
		out = append(out, e)
	}
	return out
}

func mustBuildTable() map[action.Selector]Entry {
	families := []struct {
		family   Family
		abiJSON  string
		bindings map[string]binding
	}{
		{FamilyERC20, erc20ABI, erc20Bindings()},
		{FamilyNFT, nftABI, nftBindings()},
		{FamilyUniswap, uniswapABI, uniswapBindings()},
	}

	out := make(map[action.Selector]Entry)
	for _, f := range families {
		parsed, err := abi.JSON(strings.NewReader(f.abiJSON))
		if err != nil {
			panic(fmt.Sprintf("decoder: invalid %s ABI: %v", f.family, err))
		}
		for _, m := range parsed.Methods {
			b, ok := f.bindings[m.Sig]
			if !ok {
				panic(fmt.Sprintf("decoder: no binding for %s", m.Sig))
			}
			var sel action.Selector
			copy(sel[:], m.ID)
			if _, taken := out[sel]; taken {
				continue
			}
			out[sel] = Entry{
				Selector:  sel,
				Signature: m.Sig,
				Family:    f.family,
				Kind:      b.kind,
				method:    m,
				binding:   b,
			}
		}
	}
	return out
}

func erc20Bindings() map[string]binding {
	return map[string]binding{
		"approve(address,uint256)": {
			kind: action.KindErc20Approve,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				return action.Erc20Approve{Call: c, Spender: r.address(0), Amount: r.bigInt(1)}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc20Approve)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.Spender, v.Amount}, nil
			},
		},
		"transfer(address,uint256)": {
			kind: action.KindErc20Transfer,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				return action.Erc20Transfer{Call: c, To: r.address(0), Amount: r.bigInt(1)}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc20Transfer)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.To, v.Amount}, nil
			},
		},
		"transferFrom(address,address,uint256)": {
			kind: action.KindErc20TransferFrom,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				return action.Erc20TransferFrom{Call: c, From: r.address(0), To: r.address(1), Amount: r.bigInt(2)}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc20TransferFrom)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.From, v.To, v.Amount}, nil
			},
		},
		"permit(address,address,uint256,uint256,uint8,bytes32,bytes32)": {
			kind: action.KindErc20Permit,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				return action.Erc20Permit{
					Call:     c,
					Owner:    r.address(0),
					Spender:  r.address(1),
					Value:    r.bigInt(2),
					Deadline: r.bigInt(3),
					V:        r.uint8(4),
					R:        r.bytes32(5),
					S:        r.bytes32(6),
				}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc20Permit)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.Owner, v.Spender, v.Value, v.Deadline, v.V, v.R, v.S}, nil
			},
		},
	}
}

func nftBindings() map[string]binding {
	safeTransfer721 := binding{
		kind: action.KindErc721SafeTransferFrom,
		decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
			a := action.Erc721SafeTransferFrom{Call: c, From: r.address(0), To: r.address(1), TokenID: r.bigInt(2), Data: []byte{}}
			if r.len() > 3 {
				a.Data = r.bytes(3)
			}
			return a
		},
	}

	return map[string]binding{
		"setApprovalForAll(address,bool)": {
			kind: action.KindErc721SetApprovalForAll,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				return action.Erc721SetApprovalForAll{Call: c, Operator: r.address(0), Approved: r.bool(1)}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				switch v := a.(type) {
				case action.Erc721SetApprovalForAll:
					return []interface{}{v.Operator, v.Approved}, nil
				case action.Erc1155SetApprovalForAll:
					return []interface{}{v.Operator, v.Approved}, nil
				}
				return nil, errWrongVariant(a)
			},
		},
		"safeTransferFrom(address,address,uint256)": {
			kind:   safeTransfer721.kind,
			decode: safeTransfer721.decode,
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc721SafeTransferFrom)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.From, v.To, v.TokenID}, nil
			},
		},
		"safeTransferFrom(address,address,uint256,bytes)": {
			kind:   safeTransfer721.kind,
			decode: safeTransfer721.decode,
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc721SafeTransferFrom)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.From, v.To, v.TokenID, nonNilBytes(v.Data)}, nil
			},
		},
		"safeTransferFrom(address,address,uint256,uint256,bytes)": {
			kind: action.KindErc1155SafeTransferFrom,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				return action.Erc1155SafeTransferFrom{
					Call:   c,
					From:   r.address(0),
					To:     r.address(1),
					ID:     r.bigInt(2),
					Amount: r.bigInt(3),
					Data:   r.bytes(4),
				}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				v, ok := a.(action.Erc1155SafeTransferFrom)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{v.From, v.To, v.ID, v.Amount, nonNilBytes(v.Data)}, nil
			},
		},
	}
}

func uniswapBindings() map[string]binding {
	// v2 builds a binding for the router methods that share the
	// (amountA, amountB, path, to, deadline) layout.
	v2 := func(method action.SwapMethod, set func(s *action.UniswapSwap, a, b *big.Int), get func(s action.UniswapSwap) (*big.Int, *big.Int)) binding {
		return binding{
			kind: action.KindUniswapSwap,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				s := action.UniswapSwap{Call: c, Method: method, Path: r.addresses(2), Recipient: r.address(3), Deadline: r.bigInt(4)}
				set(&s, r.bigInt(0), r.bigInt(1))
				setPathEnds(&s)
				return s
			},
			encode: func(a action.Action) ([]interface{}, error) {
				s, ok := a.(action.UniswapSwap)
				if !ok {
					return nil, errWrongVariant(a)
				}
				x, y := get(s)
				return []interface{}{x, y, nonNilPath(s.Path), s.Recipient, s.Deadline}, nil
			},
		}
	}
	// v2Payable covers the ETH-in methods, which take one amount and read
	// the other from the attached value.
	v2Payable := func(method action.SwapMethod, set func(s *action.UniswapSwap, amount, value *big.Int), get func(s action.UniswapSwap) *big.Int) binding {
		return binding{
			kind: action.KindUniswapSwap,
			decode: func(c action.Call, value *big.Int, r *argReader) action.Action {
				s := action.UniswapSwap{Call: c, Method: method, Path: r.addresses(1), Recipient: r.address(2), Deadline: r.bigInt(3)}
				set(&s, r.bigInt(0), copyBig(value))
				setPathEnds(&s)
				return s
			},
			encode: func(a action.Action) ([]interface{}, error) {
				s, ok := a.(action.UniswapSwap)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{get(s), nonNilPath(s.Path), s.Recipient, s.Deadline}, nil
			},
		}
	}

	exactIn := func(s *action.UniswapSwap, in, minOut *big.Int) { s.AmountIn, s.AmountOutMin = in, minOut }
	exactInGet := func(s action.UniswapSwap) (*big.Int, *big.Int) { return s.AmountIn, s.AmountOutMin }
	exactOut := func(s *action.UniswapSwap, out, maxIn *big.Int) { s.AmountOut, s.AmountInMax = out, maxIn }
	exactOutGet := func(s action.UniswapSwap) (*big.Int, *big.Int) { return s.AmountOut, s.AmountInMax }

	return map[string]binding{
		"swapExactTokensForTokens(uint256,uint256,address[],address,uint256)": v2(action.SwapExactTokensForTokens, exactIn, exactInGet),
		"swapTokensForExactTokens(uint256,uint256,address[],address,uint256)": v2(action.SwapTokensForExactTokens, exactOut, exactOutGet),
		"swapTokensForExactETH(uint256,uint256,address[],address,uint256)":    v2(action.SwapTokensForExactETH, exactOut, exactOutGet),
		"swapExactTokensForETH(uint256,uint256,address[],address,uint256)":    v2(action.SwapExactTokensForETH, exactIn, exactInGet),
		"swapExactETHForTokens(uint256,address[],address,uint256)": v2Payable(action.SwapExactETHForTokens,
			func(s *action.UniswapSwap, minOut, value *big.Int) { s.AmountOutMin, s.AmountIn = minOut, value },
			func(s action.UniswapSwap) *big.Int { return s.AmountOutMin }),
		"swapETHForExactTokens(uint256,address[],address,uint256)": v2Payable(action.SwapETHForExactTokens,
			func(s *action.UniswapSwap, out, value *big.Int) { s.AmountOut, s.AmountInMax = out, value },
			func(s action.UniswapSwap) *big.Int { return s.AmountOut }),
		"exactInputSingle((address,address,uint24,address,uint256,uint256,uint256,uint160))": {
			kind: action.KindUniswapSwap,
			decode: func(c action.Call, _ *big.Int, r *argReader) action.Action {
				p := r.exactInputSingle(0)
				return action.UniswapSwap{
					Call:         c,
					Method:       action.SwapExactInputSingle,
					AmountIn:     p.AmountIn,
					AmountOutMin: p.AmountOutMinimum,
					TokenIn:      p.TokenIn,
					TokenOut:     p.TokenOut,
					Recipient:    p.Recipient,
					Deadline:     p.Deadline,
					Fee:          p.Fee,

					SqrtPriceLimitX96: p.SqrtPriceLimitX96,
				}
			},
			encode: func(a action.Action) ([]interface{}, error) {
				s, ok := a.(action.UniswapSwap)
				if !ok {
					return nil, errWrongVariant(a)
				}
				return []interface{}{exactInputSingleParams{
					TokenIn:           s.TokenIn,
					TokenOut:          s.TokenOut,
					Fee:               nonNilBig(s.Fee),
					Recipient:         s.Recipient,
					Deadline:          nonNilBig(s.Deadline),
					AmountIn:          nonNilBig(s.AmountIn),
					AmountOutMinimum:  nonNilBig(s.AmountOutMin),
					SqrtPriceLimitX96: nonNilBig(s.SqrtPriceLimitX96),
				}}, nil
			},
		},
	}
}

func setPathEnds(s *action.UniswapSwap) {
	if len(s.Path) == 0 {
		return
	}
	s.TokenIn = s.Path[0]
	s.TokenOut = s.Path[len(s.Path)-1]
}

func errWrongVariant(a action.Action) error {
	return fmt.Errorf("action %s does not match the selector's layout", a.Kind())
}

func copyBig(n *big.Int) *big.Int {
	if n == nil {
		return nil
	}
	return new(big.Int).Set(n)
}

func nonNilBig(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func nonNilPath(p []common.Address) []common.Address {
	if p == nil {
		return []common.Address{}
	}
	return p
}
