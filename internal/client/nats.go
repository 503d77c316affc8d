package client

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
)

// NATSClient is a thin wrapper over a NATS connection used for event
// publishing. The zero URL disables publishing entirely.
type NATSClient struct {
	conn *nats.Conn
}

// ConnectNATS dials the given NATS server. Returns nil client without error
// when url is empty, which callers treat as publishing disabled.
func ConnectNATS(url, name string) (*NATSClient, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "nats connect")
	}
	return &NATSClient{conn: conn}, nil
}

func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "nats publish")
	}
	return nil
}

func (c *NATSClient) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Drain() //nolint:errcheck
}
