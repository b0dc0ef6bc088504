package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/web3ekko/ekko-ce/explainer/pkg/explainer"
	"go.uber.org/zap"
)

// AuditSink publishes results to a JetStream stream
type AuditSink struct {
	js      nats.JetStreamContext
	stream  string
	subject string
	logger  *zap.Logger
}

// NewAuditSink creates the stream if it does not exist yet
func NewAuditSink(js nats.JetStreamContext, stream, subject string, logger *zap.Logger) (*AuditSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := js.StreamInfo(stream); err != nil {
		logger.Info("creating audit stream", zap.String("stream", stream), zap.String("subject", subject))

		_, err = js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subject},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			MaxAge:    24 * time.Hour,
			Replicas:  1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}

	return &AuditSink{
		js:      js,
		stream:  stream,
		subject: subject,
		logger:  logger,
	}, nil
}

// Publish sends a result, deduplicated by its id
func (s *AuditSink) Publish(ctx context.Context, result explainer.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if _, err := s.js.Publish(s.subject, data, nats.Context(ctx), nats.MsgId(result.ID)); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}
