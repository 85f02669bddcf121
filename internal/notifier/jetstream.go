package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/chainwatch/deposit-watcher/internal/adapter"
	"github.com/chainwatch/deposit-watcher/internal/domain"
	"github.com/chainwatch/deposit-watcher/internal/logger"
)

// Config holds the configuration for the NATS JetStream-backed Notifier,
// grounded on internal/providers/jetstream.Config.
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

// event is the wire payload published to JetStream.
type event struct {
	Type    string          `json:"type"`
	Deposit *domain.Deposit `json:"deposit"`
}

const (
	eventTypeNewDeposit       = "new_deposit"
	eventTypeDepositConfirmed = "deposit_confirmed"
)

type jetStreamNotifier struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
}

// NewJetStreamNotifier connects to NATS and returns a Notifier that
// publishes to JetStream, grounded on
// internal/providers/jetstream/publisher.go's NewPublisher/PublishEvent.
func NewJetStreamNotifier(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (Notifier, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &jetStreamNotifier{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
	}, nil
}

// OnNewDeposit publishes a new_deposit event. Per spec.md §7 ("Notifier
// error: log; do not roll back the state transition"), publish failures are
// logged, not returned.
func (n *jetStreamNotifier) OnNewDeposit(ctx context.Context, dep *domain.Deposit) {
	n.publish(ctx, eventTypeNewDeposit, dep)
}

// OnDepositConfirmed publishes a deposit_confirmed event with the same
// failure policy as OnNewDeposit.
func (n *jetStreamNotifier) OnDepositConfirmed(ctx context.Context, dep *domain.Deposit) {
	n.publish(ctx, eventTypeDepositConfirmed, dep)
}

func (n *jetStreamNotifier) publish(ctx context.Context, eventType string, dep *domain.Deposit) {
	data, err := n.json.Marshal(event{Type: eventType, Deposit: dep})
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "failed to marshal notifier event"))
		return
	}

	subject := buildSubject(dep.Chain, eventType)
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		logger.ErrorCtx(ctx, err, zap.String("message", "failed to publish notifier event"), zap.String("subject", subject))
	}
}

// buildSubject constructs the JetStream subject: deposits.{chain}.{event}.
func buildSubject(chain domain.Chain, eventType string) string {
	return fmt.Sprintf("deposits.%s.%s", strings.ToLower(string(chain)), eventType)
}

// Close closes the underlying NATS connection.
func (n *jetStreamNotifier) Close() {
	if n.nc == nil {
		return
	}
	n.nc.Close()
}
