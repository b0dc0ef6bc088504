// Package risk turns a decoded action and its enrichment into an ordered
// list of findings and an aggregate risk tier.
package risk

// Severity of a single finding.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityWarn   Severity = "warn"
	SeverityDanger Severity = "danger"
)

// Weight is the score a severity contributes to the tier.
func (s Severity) Weight() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarn:
		return 5
	case SeverityDanger:
		return 10
	default:
		return 0
	}
}

// Stable finding codes.
const (
	CodeAllowanceUnlimited     = "ALLOWANCE_UNLIMITED"
	CodeNewSpender             = "NEW_SPENDER"
	CodeSpenderIsContract      = "SPENDER_IS_CONTRACT"
	CodeTokenMetaUnknown       = "TOKEN_META_UNKNOWN"
	CodeSetApprovalForAllTrue  = "SET_APPROVAL_FOR_ALL_TRUE"
	CodeSetApprovalForAllFalse = "SET_APPROVAL_FOR_ALL_FALSE"
	CodeTransferToContract     = "TRANSFER_TO_CONTRACT"
	CodeEthToContract          = "ETH_TO_CONTRACT"
	CodeUniswapSwapDetected    = "UNISWAP_SWAP_DETECTED"
	CodeSwapTokenUnknown       = "SWAP_TOKEN_UNKNOWN"
	CodeUnknownSelector        = "UNKNOWN_SELECTOR"
)

// Finding is one risk observation.
type Finding struct {
	Level   Severity `json:"level"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
}

// Tier is the aggregate risk level of a transaction.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Score thresholds, inclusive.
const (
	MediumThreshold = 3
	HighThreshold   = 8
)

// Score sums the severity weights of findings.
func Score(findings []Finding) int {
	total := 0
	for _, f := range findings {
		total += f.Level.Weight()
	}
	return total
}

// Evaluate maps findings to a tier. Only the multiset of severities matters.
func Evaluate(findings []Finding) Tier {
	switch total := Score(findings); {
	case total >= HighThreshold:
		return TierHigh
	case total >= MediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}
