package explainer_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
	"github.com/web3ekko/ekko-ce/explainer/pkg/explainer"
	"github.com/web3ekko/ekko-ce/explainer/pkg/risk"
)

var (
	token    = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	spender  = common.HexToAddress("0x1111111254EEB25477B68fb85Ed929f73A960582")
	operator = common.HexToAddress("0x00000000000111AbE46ff893f3B2fdF1F759a8A8")
	sender   = common.HexToAddress("0x1234567890123456789012345678901234567890")
	oneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// emptyChain reports every address as code-free and every call as reverted.
type emptyChain struct {
	mu    sync.Mutex
	calls int
}

func (c *emptyChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, errors.New("execution reverted")
}

func (c *emptyChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, nil
}

func word(b []byte) string {
	return strings.Repeat("00", 32-len(b)) + hexutil.Encode(b)[2:]
}

func callData(selector string, words ...string) []byte {
	return hexutil.MustDecode(selector + strings.Join(words, ""))
}

func codes(findings []risk.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Code
	}
	return out
}

func newExplainer() *explainer.Explainer {
	return explainer.New(&emptyChain{}, explainer.Options{Cache: risk.NewMemoryInteractionCache()})
}

func TestExplain_EthTransfer(t *testing.T) {
	from := sender
	result := newExplainer().Explain(context.Background(), explainer.TxInput{
		ChainID: 1,
		To:      spender,
		Value:   oneEther,
		From:    &from,
	})

	assert.Equal(t, "Send 1 ETH", result.Title)
	assert.Contains(t, result.Title, "Send")
	assert.Equal(t, risk.TierLow, result.RiskLevel)
	assert.Empty(t, result.Findings)
	assert.Equal(t, action.KindEthTransfer, result.Artifacts.Decoded.Type)
	assert.NotEmpty(t, result.ID)
}

func TestExplain_UnlimitedApprove(t *testing.T) {
	from := sender
	data := callData("0x095ea7b3", word(spender.Bytes()), strings.Repeat("ff", 32))

	result := newExplainer().Explain(context.Background(), explainer.TxInput{
		ChainID: 1,
		To:      token,
		Data:    data,
		From:    &from,
	})

	found := codes(result.Findings)
	assert.Contains(t, found, risk.CodeAllowanceUnlimited)
	assert.Contains(t, found, risk.CodeNewSpender)
	assert.Equal(t, risk.TierHigh, result.RiskLevel)
	assert.Contains(t, result.Title, "unlimited")
	assert.Contains(t, result.Summary, "unlimited approval")
}

func TestExplain_LimitedApprove(t *testing.T) {
	x := newExplainer()
	from := sender
	data := callData("0x095ea7b3", word(spender.Bytes()), word(big.NewInt(1000).Bytes()))
	in := explainer.TxInput{ChainID: 1, To: token, Data: data, From: &from}

	first := x.Explain(context.Background(), in)
	assert.Equal(t, []string{risk.CodeNewSpender, risk.CodeTokenMetaUnknown}, codes(first.Findings))
	assert.Equal(t, risk.TierHigh, first.RiskLevel)

	// the spender is no longer new
	second := x.Explain(context.Background(), in)
	assert.Equal(t, []string{risk.CodeTokenMetaUnknown}, codes(second.Findings))
	assert.Equal(t, risk.TierMedium, second.RiskLevel)

	require.NoError(t, x.Engine().Cache().Clear(context.Background()))
	third := x.Explain(context.Background(), in)
	assert.Contains(t, codes(third.Findings), risk.CodeNewSpender)
}

func TestExplain_SetApprovalForAll(t *testing.T) {
	tests := []struct {
		name     string
		approved string
		title    string
		code     string
		tier     risk.Tier
	}{
		{"grant", word([]byte{1}), "Grant NFT collection approval", risk.CodeSetApprovalForAllTrue, risk.TierHigh},
		{"revoke", word(nil), "Revoke NFT collection approval", risk.CodeSetApprovalForAllFalse, risk.TierLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := callData("0xa22cb465", word(operator.Bytes()), tt.approved)
			result := newExplainer().Explain(context.Background(), explainer.TxInput{ChainID: 1, To: token, Data: data})

			assert.Equal(t, tt.title, result.Title)
			assert.Equal(t, []string{tt.code}, codes(result.Findings))
			assert.Equal(t, tt.tier, result.RiskLevel)
		})
	}
}

func TestExplain_UnknownSelector(t *testing.T) {
	result := newExplainer().Explain(context.Background(), explainer.TxInput{
		ChainID: 1,
		To:      token,
		Data:    hexutil.MustDecode("0x12345678"),
		Value:   big.NewInt(0),
	})

	assert.Equal(t, "Unknown contract call (0x12345678)", result.Title)
	assert.Contains(t, result.Summary, "Unable to decode transaction details")
	assert.Equal(t, []string{risk.CodeUnknownSelector}, codes(result.Findings))
	assert.Equal(t, risk.TierMedium, result.RiskLevel)
}

func TestExplain_ZeroValueNoData(t *testing.T) {
	chain := &emptyChain{}
	x := explainer.New(chain, explainer.Options{})

	result := x.Explain(context.Background(), explainer.TxInput{ChainID: 1, To: token, Value: big.NewInt(0)})

	assert.Contains(t, result.Title, "Unknown contract call")
	assert.Equal(t, []string{risk.CodeUnknownSelector}, codes(result.Findings))
	assert.Equal(t, risk.TierMedium, result.RiskLevel)
	assert.Equal(t, action.KindUnrecognized, result.Artifacts.Decoded.Type)
	assert.Equal(t, 0, chain.calls)
}

func TestExplain_ResultJSON(t *testing.T) {
	from := sender
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	result := newExplainer().Explain(context.Background(), explainer.TxInput{
		ChainID: 43114,
		To:      spender,
		Value:   huge,
		From:    &from,
	})

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	artifacts := decoded["artifacts"].(map[string]any)
	input := artifacts["input"].(map[string]any)
	assert.Equal(t, huge.String(), input["value"])
	assert.Equal(t, float64(43114), input["chainId"])
	assert.Contains(t, artifacts, "decoded")
	assert.Contains(t, artifacts, "enrichment")
	assert.NotContains(t, artifacts, "Action")
	assert.Equal(t, "low", decoded["riskLevel"])
}

// slowChain blocks every read until the context ends.
type slowChain struct{}

func (slowChain) CallContract(ctx context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowChain) CodeAt(ctx context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// strictCache fails on a finished context, like a network-backed cache.
type strictCache struct {
	*risk.MemoryInteractionCache
}

func (c strictCache) MarkSeen(ctx context.Context, from, spender common.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.MemoryInteractionCache.MarkSeen(ctx, from, spender)
}

func TestExplain_EnrichTimeoutKeepsInteraction(t *testing.T) {
	cache := strictCache{risk.NewMemoryInteractionCache()}
	x := explainer.New(slowChain{}, explainer.Options{Cache: cache, EnrichTimeout: 30 * time.Millisecond})
	from := sender
	in := explainer.TxInput{
		ChainID: 1,
		To:      token,
		Data:    callData("0x095ea7b3", word(spender.Bytes()), strings.Repeat("ff", 32)),
		From:    &from,
	}

	first := x.Explain(context.Background(), in)
	assert.Contains(t, codes(first.Findings), risk.CodeNewSpender)
	assert.Contains(t, codes(first.Findings), risk.CodeTokenMetaUnknown)
	assert.Equal(t, 1, cache.Len())

	second := x.Explain(context.Background(), in)
	assert.NotContains(t, codes(second.Findings), risk.CodeNewSpender)
}

func TestExplain_V2SwapChecksPathStart(t *testing.T) {
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	router := common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	data := callData("0x38ed1739",
		word(oneEther.Bytes()),
		word(big.NewInt(1000).Bytes()),
		word([]byte{0xa0}),
		word(sender.Bytes()),
		word(big.NewInt(1_700_000_000).Bytes()),
		word([]byte{2}),
		word(weth.Bytes()),
		word(token.Bytes()),
	)

	result := newExplainer().Explain(context.Background(), explainer.TxInput{ChainID: 1, To: router, Data: data})

	require.Equal(t, action.KindUniswapSwap, result.Artifacts.Decoded.Type)
	assert.Equal(t, []string{risk.CodeUniswapSwapDetected, risk.CodeSwapTokenUnknown}, codes(result.Findings))
	assert.Equal(t, risk.TierMedium, result.RiskLevel)
}
