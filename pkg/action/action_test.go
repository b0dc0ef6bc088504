package action_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
)

var (
	token = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	alice = common.HexToAddress("0x1234567890123456789012345678901234567890")
)

func TestDescribe_HexFields(t *testing.T) {
	var r, s [32]byte
	r[0], s[31] = 0xab, 0x01

	tests := []struct {
		name   string
		action action.Action
		key    string
		want   string
	}{
		{
			name:   "permit signature r",
			action: action.Erc20Permit{Call: action.Call{ContractAddress: token}, R: r, S: s, Value: big.NewInt(1), Deadline: big.NewInt(2)},
			key:    "r",
			want:   "0xab" + strings.Repeat("00", 31),
		},
		{
			name:   "permit signature s",
			action: action.Erc20Permit{Call: action.Call{ContractAddress: token}, R: r, S: s},
			key:    "s",
			want:   "0x" + strings.Repeat("00", 31) + "01",
		},
		{
			name:   "nft transfer without data",
			action: action.Erc721SafeTransferFrom{Call: action.Call{ContractAddress: token}, From: alice, To: alice, TokenID: big.NewInt(7)},
			key:    "data",
			want:   "0x",
		},
		{
			name:   "unrecognized raw data",
			action: action.Unrecognized{Call: action.Call{Selector: action.Selector{0xde, 0xad, 0xbe, 0xef}, ContractAddress: token}, Data: []byte{0xde, 0xad, 0xbe, 0xef, 0x01}},
			key:    "data",
			want:   "0xdeadbeef01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, action.Describe(tt.action).Args[tt.key])
		})
	}
}

func TestDescribe_Selector(t *testing.T) {
	dc := action.Describe(action.Erc20Approve{
		Call:    action.Call{Selector: action.Selector{0x09, 0x5e, 0xa7, 0xb3}, ContractAddress: token},
		Spender: alice,
		Amount:  big.NewInt(5),
	})
	assert.Equal(t, "0x095ea7b3", dc.Selector)
	assert.Equal(t, action.KindErc20Approve, dc.Type)
	assert.Equal(t, "5", dc.Args["amount"])

	plain := action.Describe(action.EthTransfer{To: alice, Value: big.NewInt(3)})
	assert.Empty(t, plain.Selector)
	assert.Equal(t, "3", plain.Args["value"])
}
