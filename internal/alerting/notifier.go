package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// NATS subjects for alert lifecycle notifications.
const (
	SubjectAlertRaised    = "csat.alert.raised"
	SubjectAlertEscalated = "csat.alert.escalated"
)

// Notification is the payload delivered to the notification collaborator on
// every open/escalate transition.
type Notification struct {
	CaseID     string               `json:"case_id"`
	EngineerID string               `json:"engineer_id"`
	Kind       domain.AlertKind     `json:"kind"`
	Severity   domain.AlertSeverity `json:"severity"`
	Message    string               `json:"message"`
	Timestamp  time.Time            `json:"timestamp"`
}

// Notifier delivers alert notifications. Delivery is fire-and-forget from
// the engine's view: failure never rolls back an alert transition.
type Notifier interface {
	AlertRaised(ctx context.Context, n Notification) error
	AlertEscalated(ctx context.Context, n Notification) error
}

// NatsNotifier publishes notifications to NATS.
type NatsNotifier struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNatsNotifier connects to NATS with retry-friendly options.
func NewNatsNotifier(cfg config.NotificationConfig, logger *zap.Logger) (*NatsNotifier, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if cfg.NatsToken != "" {
		opts = append(opts, nats.Token(cfg.NatsToken))
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NatsNotifier{conn: conn, logger: logger}, nil
}

// Close drains the connection.
func (n *NatsNotifier) Close() {
	if n != nil && n.conn != nil {
		n.conn.Close()
	}
}

func (n *NatsNotifier) AlertRaised(_ context.Context, payload Notification) error {
	return n.publish(SubjectAlertRaised, payload)
}

func (n *NatsNotifier) AlertEscalated(_ context.Context, payload Notification) error {
	return n.publish(SubjectAlertEscalated, payload)
}

func (n *NatsNotifier) publish(subject string, payload Notification) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// LogNotifier stands in when NATS is not configured; transitions are only
// logged.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates the logging notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) AlertRaised(_ context.Context, payload Notification) error {
	n.logger.Info("alert raised",
		zap.String("case_id", payload.CaseID),
		zap.String("engineer_id", payload.EngineerID),
		zap.String("kind", string(payload.Kind)),
		zap.String("severity", string(payload.Severity)),
		zap.String("message", payload.Message))
	return nil
}

func (n *LogNotifier) AlertEscalated(_ context.Context, payload Notification) error {
	n.logger.Info("alert escalated",
		zap.String("case_id", payload.CaseID),
		zap.String("engineer_id", payload.EngineerID),
		zap.String("kind", string(payload.Kind)),
		zap.String("severity", string(payload.Severity)),
		zap.String("message", payload.Message))
	return nil
}

var (
	_ Notifier = (*NatsNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
