// Package transport serves explanations over NATS request/reply and
// publishes results to a JetStream audit stream.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const drainTimeout = 5 * time.Second

// Service answers requests on a subject. Replicas share the load through
// a queue group.
type Service struct {
	conn    *nats.Conn
	handler *Handler
	subject string
	queue   string
	logger  *zap.Logger

	sub *nats.Subscription

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

func NewService(conn *nats.Conn, handler *Handler, subject, queue string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		conn:    conn,
		handler: handler,
		subject: subject,
		queue:   queue,
		logger:  logger,
	}
}

// Start subscribes and serves until Stop. Each message is handled on its
// own goroutine with ctx as the parent context.
func (s *Service) Start(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		if !s.track() {
			s.logger.Warn("request dispatched after shutdown dropped", zap.String("subject", msg.Subject))
			return
		}
		go func() {
			defer s.wg.Done()
			s.serve(ctx, msg)
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to NATS subject %s: %w", s.subject, err)
	}
	s.sub = sub
	s.logger.Info("explain service listening",
		zap.String("subject", s.subject),
		zap.String("queue", s.queue))
	return nil
}

// track registers one in-flight request. It refuses once Stop has begun
// waiting, so Add never races with Wait.
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Service) serve(ctx context.Context, msg *nats.Msg) {
	reply := s.handler.Handle(ctx, msg.Data)
	if msg.Reply == "" {
		s.logger.Debug("request without reply subject dropped", zap.String("subject", msg.Subject))
		return
	}
	if err := msg.Respond(reply); err != nil {
		s.logger.Warn("failed to respond", zap.String("reply", msg.Reply), zap.Error(err))
	}
}

// Stop drains the subscription and waits for in-flight requests.
func (s *Service) Stop() error {
	var err error
	if s.sub != nil {
		err = s.sub.Drain()
		// Drain returns before pending messages have been dispatched.
		for deadline := time.Now().Add(drainTimeout); s.sub.IsValid() && time.Now().Before(deadline); {
			time.Sleep(10 * time.Millisecond)
		}
	}

	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("explain service stopped", zap.String("subject", s.subject))
	return err
}
