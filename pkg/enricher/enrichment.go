package enricher

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownSymbol is the symbol recorded for a token whose symbol read failed
// while another metadata read succeeded.
const UnknownSymbol = "UNKNOWN"

// DefaultDecimals is used when the decimals read fails.
const DefaultDecimals = 18

// TokenMeta is the ERC20 metadata of a token contract.
type TokenMeta struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Name     string `json:"name,omitempty"`
}

// Known reports whether the symbol was actually read.
func (m TokenMeta) Known() bool {
	return m.Symbol != "" && m.Symbol != UnknownSymbol
}

// AllowanceKey identifies an allowance(owner, spender) read on a token.
type AllowanceKey struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
}

// MarshalText renders the key as token-owner-spender so it can key a JSON object.
func (k AllowanceKey) MarshalText() ([]byte, error) {
	return []byte(k.Token.Hex() + "-" + k.Owner.Hex() + "-" + k.Spender.Hex()), nil
}

// Enrichment holds the on-chain facts gathered for one action. Every map is
// sparse: a missing entry means the fact is unknown, not false or zero.
type Enrichment struct {
	TokenMeta  map[common.Address]TokenMeta
	Allowances map[AllowanceKey]*big.Int
	IsContract map[common.Address]bool
}

// NewEnrichment returns an Enrichment with empty maps.
func NewEnrichment() *Enrichment {
	return &Enrichment{
		TokenMeta:  make(map[common.Address]TokenMeta),
		Allowances: make(map[AllowanceKey]*big.Int),
		IsContract: make(map[common.Address]bool),
	}
}

// Meta returns the metadata for token, if it was read.
func (e *Enrichment) Meta(token common.Address) (TokenMeta, bool) {
	if e == nil {
		return TokenMeta{}, false
	}
	m, ok := e.TokenMeta[token]
	return m, ok
}

// Allowance returns the current allowance for the key, if it was read.
func (e *Enrichment) Allowance(key AllowanceKey) (*big.Int, bool) {
	if e == nil {
		return nil, false
	}
	n, ok := e.Allowances[key]
	return n, ok
}

// Contract reports whether addr has code. known is false when the probe
// was not made or failed.
func (e *Enrichment) Contract(addr common.Address) (isContract, known bool) {
	if e == nil {
		return false, false
	}
	isContract, known = e.IsContract[addr]
	return isContract, known
}

// KnownContract reports whether addr is known to have code.
func (e *Enrichment) KnownContract(addr common.Address) bool {
	isContract, known := e.Contract(addr)
	return known && isContract
}

// MarshalJSON renders allowances as decimal strings so no consumer loses precision.
func (e *Enrichment) MarshalJSON() ([]byte, error) {
	allowances := make(map[AllowanceKey]string, len(e.Allowances))
	for k, v := range e.Allowances {
		allowances[k] = v.String()
	}
	return json.Marshal(struct {
		TokenMeta  map[common.Address]TokenMeta `json:"tokenMeta"`
		Allowances map[AllowanceKey]string      `json:"allowances"`
		IsContract map[common.Address]bool      `json:"isContract"`
	}{e.TokenMeta, allowances, e.IsContract})
}
