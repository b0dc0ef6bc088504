package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/web3ekko/ekko-ce/explainer/internal/chains"
	"github.com/web3ekko/ekko-ce/explainer/pkg/explainer"
	"go.uber.org/zap"
)

// Publisher receives every successful result, e.g. for auditing.
type Publisher interface {
	Publish(ctx context.Context, result explainer.Result) error
}

// Handler turns request payloads into reply payloads. It holds one
// explainer per chain id.
type Handler struct {
	explainers map[uint64]*explainer.Explainer
	audit      Publisher
	logger     *zap.Logger
}

// HandlerOptions configures a Handler. A nil Audit disables auditing.
// Read deadlines belong to each explainer (explainer.Options.EnrichTimeout).
type HandlerOptions struct {
	Audit  Publisher
	Logger *zap.Logger
}

func NewHandler(explainers map[uint64]*explainer.Explainer, opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		explainers: explainers,
		audit:      opts.Audit,
		logger:     logger,
	}
}

// Explain validates req and runs the pipeline for its chain.
func (h *Handler) Explain(ctx context.Context, req Request) (explainer.Result, error) {
	in, err := req.TxInput()
	if err != nil {
		return explainer.Result{}, err
	}
	x, ok := h.explainers[in.ChainID]
	if !ok {
		return explainer.Result{}, fmt.Errorf("%w: %d", chains.ErrUnknownChain, in.ChainID)
	}

	result := x.Explain(ctx, in)

	if h.audit != nil {
		if err := h.audit.Publish(ctx, result); err != nil {
			h.logger.Warn("failed to publish audit record",
				zap.String("id", result.ID),
				zap.Error(err))
		}
	}
	return result, nil
}

// Handle decodes a JSON Request and always returns a JSON Response.
func (h *Handler) Handle(ctx context.Context, payload []byte) []byte {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.reply(Response{Error: fmt.Sprintf("%v: %v", ErrInvalidRequest, err)})
	}

	result, err := h.Explain(ctx, req)
	if err != nil {
		h.logger.Debug("rejected request", zap.Uint64("chain_id", req.ChainID), zap.Error(err))
		return h.reply(Response{Error: err.Error()})
	}
	return h.reply(Response{Result: &result})
}

func (h *Handler) reply(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("failed to marshal response", zap.Error(err))
		return []byte(`{"error":"internal error"}`)
	}
	return data
}
