package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects for session lifecycle events. Consumers include the
// analytics pipeline and any presentation projection that mirrors the
// transcript in real time.
const (
	SubjectSessionStarted   = "circle.session.started"
	SubjectSessionPhase     = "circle.session.phase"
	SubjectSessionCompleted = "circle.session.completed"
	SubjectTranscriptAppend = "circle.transcript.appended"
	SubjectSessionAnalytics = "circle.analytics"
)

// Publisher is the event-bus side of the service. It is an optional
// collaborator: a nil *Publisher is safe to publish on, so the session
// engine never branches on bus availability.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// Publish marshals data as JSON onto the subject. Nil receiver is a no-op.
func (p *Publisher) Publish(subject string, data any) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
