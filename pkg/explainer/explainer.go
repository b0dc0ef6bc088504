// Package explainer runs the full analysis of one transaction: decode,
// enrich, score and compose.
package explainer

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/web3ekko/ekko-ce/explainer/pkg/action"
	"github.com/web3ekko/ekko-ce/explainer/pkg/decoder"
	"github.com/web3ekko/ekko-ce/explainer/pkg/describe"
	"github.com/web3ekko/ekko-ce/explainer/pkg/enricher"
	"github.com/web3ekko/ekko-ce/explainer/pkg/risk"
	"go.uber.org/zap"
)

// TxInput describes a transaction about to be signed.
type TxInput struct {
	ChainID uint64
	To      common.Address
	Data    []byte
	Value   *big.Int
	From    *common.Address
}

// Result is the explanation of one transaction.
type Result struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Summary   string         `json:"summary"`
	RiskLevel risk.Tier      `json:"riskLevel"`
	Findings  []risk.Finding `json:"findings"`
	Artifacts Artifacts      `json:"artifacts"`
}

// Artifacts carries the intermediate stages for debugging and audit.
type Artifacts struct {
	Decoded    action.DecodedCall   `json:"decoded"`
	Enrichment *enricher.Enrichment `json:"enrichment"`
	Input      InputEcho            `json:"input"`

	// Action is the typed decode result. It is not serialized; Decoded is
	// its wire form.
	Action action.Action `json:"-"`
}

// InputEcho is the normalized input, with the value as a decimal string.
type InputEcho struct {
	ChainID uint64 `json:"chainId"`
	To      string `json:"to"`
	Value   string `json:"value,omitempty"`
	Data    string `json:"data,omitempty"`
	From    string `json:"from,omitempty"`
}

// Options configures an Explainer. Zero values are valid.
type Options struct {
	Logger *zap.Logger
	// Cache is the interaction cache shared by every Explainer that should
	// agree on first-time spenders.
	Cache        risk.InteractionCache
	NativeSymbol string
	Concurrency  int
	// EnrichTimeout bounds the on-chain reads of one explanation. Zero
	// leaves them bounded only by the caller's context.
	EnrichTimeout time.Duration
}

// Explainer is safe for concurrent use.
type Explainer struct {
	decoder  *decoder.Decoder
	enricher *enricher.Enricher
	engine   *risk.Engine
	composer describe.Composer
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates an explainer reading chain state through reader.
func New(reader enricher.ChainReader, opts Options) *Explainer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explainer{
		decoder:  decoder.NewDecoder(logger.Named("decoder")),
		enricher: enricher.NewEnricher(reader, logger.Named("enricher"), opts.Concurrency),
		engine:   risk.NewEngine(opts.Cache, logger.Named("risk")),
		composer: describe.Composer{NativeSymbol: opts.NativeSymbol},
		timeout:  opts.EnrichTimeout,
		logger:   logger,
	}
}

// Engine returns the risk engine, mainly so tests can clear its cache.
func (x *Explainer) Engine() *risk.Engine {
	return x.engine
}

// Explain always returns a complete result. Unknown input and failed reads
// show up as findings and missing enrichment, never as an error.
func (x *Explainer) Explain(ctx context.Context, in TxInput) Result {
	a := x.decoder.Decode(in.Data, in.Value, in.To)
	enrichment := x.enrich(ctx, a, in.From)
	// The interaction must be recorded even when the reads used up the
	// caller's deadline.
	findings, tier := x.engine.Score(context.WithoutCancel(ctx), a, enrichment, in.From)
	title, summary := x.composer.Compose(a, enrichment, tier)

	result := Result{
		ID:        uuid.NewString(),
		Title:     title,
		Summary:   summary,
		RiskLevel: tier,
		Findings:  findings,
		Artifacts: Artifacts{
			Decoded:    action.Describe(a),
			Enrichment: enrichment,
			Input:      echo(in),
			Action:     a,
		},
	}

	x.logger.Info("transaction explained",
		zap.String("id", result.ID),
		zap.Uint64("chain_id", in.ChainID),
		zap.String("to", in.To.Hex()),
		zap.String("kind", string(a.Kind())),
		zap.String("risk", string(tier)),
		zap.Int("findings", len(findings)))

	return result
}

func (x *Explainer) enrich(ctx context.Context, a action.Action, from *common.Address) *enricher.Enrichment {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	return x.enricher.Enrich(ctx, a, from)
}

func echo(in TxInput) InputEcho {
	e := InputEcho{
		ChainID: in.ChainID,
		To:      in.To.Hex(),
	}
	if in.Value != nil {
		e.Value = in.Value.String()
	}
	if len(in.Data) > 0 {
		e.Data = hexutil.Encode(in.Data)
	}
	if in.From != nil {
		e.From = in.From.Hex()
	}
	return e
}
