package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"courtside/internal/domain"
)

// NatsPublisher mirrors every published event onto a NATS subject so
// out-of-process consumers get the same push channel as WebSocket
// subscribers. Delivery is fire-and-forget; NATS core gives no
// exactly-once guarantee and none is promised.
type NatsPublisher struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewNatsPublisher connects to the given NATS URL
func NewNatsPublisher(url, subject string, log zerolog.Logger) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("courtside"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}

	return &NatsPublisher{
		conn:    conn,
		subject: subject,
		log:     log.With().Str("component", "nats").Logger(),
	}, nil
}

// Publish sends one event. Failures are logged and dropped; the next
// cycle supersedes the data anyway.
func (n *NatsPublisher) Publish(ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Msg("marshaling event")
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.log.Warn().Err(err).Msg("publishing to nats")
	}
}

// Close drains and closes the connection
func (n *NatsPublisher) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}

// StartEmbeddedServer runs an in-process NATS server so deployments
// without external infrastructure still get the push channel.
func StartEmbeddedServer(port int, log zerolog.Logger) (*server.Server, error) {
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoSigs: true,
		NoLog:  true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating embedded nats server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready")
	}

	log.Info().Int("port", port).Msg("embedded nats server started")
	return ns, nil
}
