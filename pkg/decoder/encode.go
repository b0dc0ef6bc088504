package decoder

import (
	"errors"
	"fmt"

	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
)

// ErrNotEncodable is returned for actions whose selector is not in the table.
var ErrNotEncodable = errors.New("action cannot be encoded")

// Encode rebuilds the call data an Action was decoded from: the selector
// followed by the ABI-encoded arguments. EthTransfer encodes to empty data
// and Unrecognized returns its raw bytes.
func Encode(a action.Action) ([]byte, error) {
	switch v := a.(type) {
	case action.EthTransfer:
		return []byte{}, nil
	case action.Unrecognized:
		out := make([]byte, len(v.Data))
		copy(out, v.Data)
		return out, nil
	}

	sel, _ := a.CallSelector()
	entry, ok := table[sel]
	if !ok {
		return nil, fmt.Errorf("%w: selector %s", ErrNotEncodable, sel)
	}

	args, err := entry.binding.encode(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEncodable, err)
	}
	payload, err := entry.Inputs().Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", entry.Signature, err)
	}
	return append(sel[:], payload...), nil
}
