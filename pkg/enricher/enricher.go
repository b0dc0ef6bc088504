// Package enricher gathers on-chain facts about a decoded action: token
// metadata, current allowances and whether addresses hold code. Every read
// is independent and a failed read only leaves its entry missing.
package enricher

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Enricher fans reads out over a ChainReader and joins on all of them.
type Enricher struct {
	reader      ChainReader
	logger      *zap.Logger
	concurrency int
}

// NewEnricher creates an enricher. concurrency caps in-flight reads; zero
// or less means unlimited. A nil logger disables logging.
func NewEnricher(reader ChainReader, logger *zap.Logger, concurrency int) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		reader:      reader,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Targets lists the reads an action calls for.
type Targets struct {
	Tokens     []common.Address
	Contracts  []common.Address
	Allowances []AllowanceKey
}

// TargetsFor derives the read targets of an action. from is the sender, when known.
func TargetsFor(a action.Action, from *common.Address) Targets {
	var t targetSet

	switch v := a.(type) {
	case action.Erc20Approve:
		t.token(v.ContractAddress)
		t.contract(v.Spender)
		if from != nil {
			t.allowance(AllowanceKey{Token: v.ContractAddress, Owner: *from, Spender: v.Spender})
		}
	case action.Erc20Permit:
		t.token(v.ContractAddress)
		t.contract(v.Spender)
		t.allowance(AllowanceKey{Token: v.ContractAddress, Owner: v.Owner, Spender: v.Spender})
	case action.Erc20Transfer:
		t.token(v.ContractAddress)
		t.contract(v.To)
	case action.Erc20TransferFrom:
		t.token(v.ContractAddress)
		t.contract(v.To)
	case action.Erc721SetApprovalForAll:
		t.contract(v.Operator)
	case action.Erc1155SetApprovalForAll:
		t.contract(v.Operator)
	case action.Erc721SafeTransferFrom:
		t.contract(v.To)
	case action.Erc1155SafeTransferFrom:
		t.contract(v.To)
	case action.UniswapSwap:
		for _, hop := range v.Path {
			t.token(hop)
		}
		if v.HasTokenIn() {
			t.token(v.TokenIn)
		}
		if v.HasTokenOut() {
			t.token(v.TokenOut)
		}
	case action.EthTransfer:
		t.contract(v.To)
	case action.Unrecognized:
	}

	return t.Targets
}

// Enrich issues every read the action calls for and waits for all of them.
// It always returns a usable Enrichment, possibly empty.
func (e *Enricher) Enrich(ctx context.Context, a action.Action, from *common.Address) *Enrichment {
	targets := TargetsFor(a, from)
	out := NewEnrichment()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		partial = make(map[common.Address]*metaReads, len(targets.Tokens))
	)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	for _, token := range targets.Tokens {
		token := token
		reads := &metaReads{}
		partial[token] = reads

		g.Go(func() error {
			symbol, err := readText(ctx, e.reader, token, "symbol")
			if err != nil {
				e.readFailed("symbol", token, err)
				return nil
			}
			mu.Lock()
			reads.symbol = &symbol
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			decimals, err := readDecimals(ctx, e.reader, token)
			if err != nil {
				e.readFailed("decimals", token, err)
				return nil
			}
			mu.Lock()
			reads.decimals = &decimals
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			name, err := readText(ctx, e.reader, token, "name")
			if err != nil {
				e.readFailed("name", token, err)
				return nil
			}
			mu.Lock()
			reads.name = &name
			mu.Unlock()
			return nil
		})
	}

	for _, addr := range targets.Contracts {
		addr := addr
		g.Go(func() error {
			isContract, err := readIsContract(ctx, e.reader, addr)
			if err != nil {
				e.readFailed("code", addr, err)
				return nil
			}
			mu.Lock()
			out.IsContract[addr] = isContract
			mu.Unlock()
			return nil
		})
	}

	for _, key := range targets.Allowances {
		key := key
		g.Go(func() error {
			allowance, err := readAllowance(ctx, e.reader, key)
			if err != nil {
				e.readFailed("allowance", key.Token, err)
				return nil
			}
			mu.Lock()
			out.Allowances[key] = allowance
			mu.Unlock()
			return nil
		})
	}

	// Tasks never return an error; Wait is only the join.
	_ = g.Wait()

	for token, reads := range partial {
		if meta, ok := reads.meta(); ok {
			out.TokenMeta[token] = meta
		}
	}

	e.logger.Debug("enrichment complete",
		zap.String("kind", string(a.Kind())),
		zap.Int("token_meta", len(out.TokenMeta)),
		zap.Int("allowances", len(out.Allowances)),
		zap.Int("contract_probes", len(out.IsContract)))

	return out
}

func (e *Enricher) readFailed(read string, addr common.Address, err error) {
	e.logger.Debug("on-chain read failed",
		zap.String("read", read),
		zap.String("address", addr.Hex()),
		zap.Error(err))
}

// metaReads collects the three metadata sub-reads of one token.
type metaReads struct {
	symbol   *string
	decimals *int
	name     *string
}

// meta applies the fallbacks. A token for which every sub-read failed gets
// no entry.
func (r *metaReads) meta() (TokenMeta, bool) {
	if r.symbol == nil && r.decimals == nil && r.name == nil {
		return TokenMeta{}, false
	}
	m := TokenMeta{Symbol: UnknownSymbol, Decimals: DefaultDecimals}
	if r.symbol != nil {
		m.Symbol = *r.symbol
	}
	if r.decimals != nil {
		m.Decimals = *r.decimals
	}
	if r.name != nil {
		m.Name = *r.name
	}
	return m, true
}

// targetSet builds Targets without duplicates, keeping first-seen order.
type targetSet struct {
	Targets
	seenTokens     map[common.Address]bool
	seenContracts  map[common.Address]bool
	seenAllowances map[AllowanceKey]bool
}

func (t *targetSet) token(addr common.Address) {
	if t.seenTokens == nil {
		t.seenTokens = make(map[common.Address]bool)
	}
	if !t.seenTokens[addr] {
		t.seenTokens[addr] = true
		t.Tokens = append(t.Tokens, addr)
	}
}

func (t *targetSet) contract(addr common.Address) {
	if t.seenContracts == nil {
		t.seenContracts = make(map[common.Address]bool)
	}
	if !t.seenContracts[addr] {
		t.seenContracts[addr] = true
		t.Contracts = append(t.Contracts, addr)
	}
}

func (t *targetSet) allowance(key AllowanceKey) {
	if t.seenAllowances == nil {
		t.seenAllowances = make(map[AllowanceKey]bool)
	}
	if !t.seenAllowances[key] {
		t.seenAllowances[key] = true
		t.Allowances = append(t.Allowances, key)
	}
}
