package transport

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/web3ekko/ekko-ce/explainer/pkg/explainer"
	"github.com/web3ekko/ekko-ce/explainer/pkg/format"
)

// ErrInvalidRequest wraps every problem with a caller's request payload.
var ErrInvalidRequest = errors.New("invalid request")

// Request is the wire form of a transaction to explain. Value may be
// decimal or 0x-prefixed hex.
type Request struct {
	ChainID uint64 `json:"chainId"`
	To      string `json:"to"`
	Data    string `json:"data,omitempty"`
	Value   string `json:"value,omitempty"`
	From    string `json:"from,omitempty"`
}

// Response is the reply to a Request. Exactly one field is set.
type Response struct {
	Result *explainer.Result `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// TxInput validates the request and converts it to pipeline input.
func (r Request) TxInput() (explainer.TxInput, error) {
	in := explainer.TxInput{ChainID: r.ChainID}

	if !common.IsHexAddress(r.To) {
		return in, fmt.Errorf("%w: to %q is not an address", ErrInvalidRequest, r.To)
	}
	in.To = common.HexToAddress(r.To)

	if r.Data != "" {
		data, err := hexutil.Decode(r.Data)
		if err != nil {
			return in, fmt.Errorf("%w: data: %v", ErrInvalidRequest, err)
		}
		in.Data = data
	}

	if r.Value != "" {
		value, err := format.ParseBigInt(r.Value)
		if err != nil {
			return in, fmt.Errorf("%w: value: %v", ErrInvalidRequest, err)
		}
		in.Value = value
	}

	if r.From != "" {
		if !common.IsHexAddress(r.From) {
			return in, fmt.Errorf("%w: from %q is not an address", ErrInvalidRequest, r.From)
		}
		from := common.HexToAddress(r.From)
		in.From = &from
	}

	return in, nil
}
