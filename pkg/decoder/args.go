package decoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// argReader pulls typed values out of an unpacked argument list. The first
// mismatch is kept in err and later reads return zero values.
type argReader struct {
	args []interface{}
	err  error
}

func (r *argReader) len() int { return len(r.args) }

func (r *argReader) at(i int, want string) (interface{}, bool) {
	if r.err != nil {
		return nil, false
	}
	if i >= len(r.args) {
		r.err = fmt.Errorf("argument %d (%s) missing", i, want)
		return nil, false
	}
	return r.args[i], true
}

func (r *argReader) mismatch(i int, want string, got interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf("argument %d: want %s, got %T", i, want, got)
	}
}

func (r *argReader) address(i int) common.Address {
	v, ok := r.at(i, "address")
	if !ok {
		return common.Address{}
	}
	a, ok := v.(common.Address)
	if !ok {
		r.mismatch(i, "address", v)
	}
	return a
}

func (r *argReader) addresses(i int) []common.Address {
	v, ok := r.at(i, "address[]")
	if !ok {
		return nil
	}
	a, ok := v.([]common.Address)
	if !ok {
		r.mismatch(i, "address[]", v)
	}
	return a
}

func (r *argReader) bigInt(i int) *big.Int {
	v, ok := r.at(i, "uint256")
	if !ok {
		return nil
	}
	n, ok := v.(*big.Int)
	if !ok {
		r.mismatch(i, "uint256", v)
		return nil
	}
	return n
}

func (r *argReader) uint8(i int) uint8 {
	v, ok := r.at(i, "uint8")
	if !ok {
		return 0
	}
	n, ok := v.(uint8)
	if !ok {
		r.mismatch(i, "uint8", v)
	}
	return n
}

func (r *argReader) bool(i int) bool {
	v, ok := r.at(i, "bool")
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.mismatch(i, "bool", v)
	}
	return b
}

func (r *argReader) bytes(i int) []byte {
	v, ok := r.at(i, "bytes")
	if !ok {
		return nil
	}
	b, ok := v.([]byte)
	if !ok {
		r.mismatch(i, "bytes", v)
	}
	return b
}

func (r *argReader) bytes32(i int) [32]byte {
	v, ok := r.at(i, "bytes32")
	if !ok {
		return [32]byte{}
	}
	b, ok := v.([32]byte)
	if !ok {
		r.mismatch(i, "bytes32", v)
	}
	return b
}

func (r *argReader) exactInputSingle(i int) exactInputSingleParams {
	v, ok := r.at(i, "tuple")
	if !ok {
		return exactInputSingleParams{}
	}
	// ConvertType panics on a layout mismatch; Decoder.Decode recovers.
	p, ok := abi.ConvertType(v, new(exactInputSingleParams)).(*exactInputSingleParams)
	if !ok || p == nil {
		r.mismatch(i, "tuple", v)
		return exactInputSingleParams{}
	}
	return *p
}
