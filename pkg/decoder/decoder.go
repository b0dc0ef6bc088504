// Package decoder classifies raw call data into an action.Action using a
// fixed table of well-known ERC20, NFT and Uniswap router signatures.
package decoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
	"go.uber.org/zap"
)

// Decoder decodes call data against the selector table. It holds no state
// besides its logger and is safe for concurrent use.
type Decoder struct {
	logger *zap.Logger
}

// NewDecoder creates a new transaction decoder. A nil logger disables logging.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

var defaultDecoder = NewDecoder(nil)

// Decode classifies a call with the package default decoder.
func Decode(data []byte, value *big.Int, to common.Address) action.Action {
	return defaultDecoder.Decode(data, value, to)
}

// Decode never fails. Empty data with a positive value is an EthTransfer;
// anything that does not match a known selector, or matches one but does not
// unpack cleanly, is returned as action.Unrecognized.
func (d *Decoder) Decode(data []byte, value *big.Int, to common.Address) action.Action {
	if len(data) == 0 && value != nil && value.Sign() > 0 {
		return action.EthTransfer{To: to, Value: new(big.Int).Set(value)}
	}

	sel, ok := action.SelectorFromData(data)
	if !ok {
		return unrecognized(action.ZeroSelector, to, data)
	}

	entry, ok := table[sel]
	if !ok {
		d.logger.Debug("unknown selector", zap.Stringer("selector", sel), zap.Stringer("to", to))
		return unrecognized(sel, to, data)
	}

	a, err := entry.decode(data[4:], value, action.Call{Selector: sel, ContractAddress: to})
	if err != nil {
		d.logger.Debug("call data did not match signature",
			zap.String("signature", entry.Signature),
			zap.Stringer("to", to),
			zap.Error(err))
		return unrecognized(sel, to, data)
	}
	return a
}

func (e Entry) decode(payload []byte, value *big.Int, call action.Call) (a action.Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("unpack %s: %v", e.Signature, r)
		}
	}()

	values, err := e.Inputs().Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", e.Signature, err)
	}

	r := &argReader{args: values}
	a = e.binding.decode(call, value, r)
	if r.err != nil {
		return nil, fmt.Errorf("unpack %s: %w", e.Signature, r.err)
	}
	return a, nil
}

func unrecognized(sel action.Selector, to common.Address, data []byte) action.Unrecognized {
	raw := make([]byte, len(data))
	copy(raw, data)
	return action.Unrecognized{
		Call: action.Call{Selector: sel, ContractAddress: to},
		Data: raw,
	}
}
