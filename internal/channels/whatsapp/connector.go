// Package whatsapp is the thin messaging connector: it owns the
// whatsmeow session and translates transport events into normalized
// RawMessageEvent values for the indexing core. No whatsmeow type ever
// crosses the Sink boundary.
package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/nextlevelbuilder/waindex/internal/model"
)

// Sink receives normalized message events from the connector.
type Sink interface {
	Ingest(ctx context.Context, ev model.RawMessageEvent) error
	IngestEdit(ctx context.Context, messageID string, ev model.RawMessageEvent) error
	IngestDelete(ctx context.Context, messageID string) error
}

// Config holds connector settings.
type Config struct {
	// SessionDBPath is the SQLite file holding the device session keys.
	SessionDBPath string
}

// Connector bridges one WhatsApp session to a Sink.
type Connector struct {
	client *whatsmeow.Client
	sink   Sink
	log    *slog.Logger
}

// NewConnector opens (or creates) the device session store.
func NewConnector(ctx context.Context, cfg Config, sink Sink) (*Connector, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", cfg.SessionDBPath)
	container, err := sqlstore.New(ctx, "sqlite", dsn, waLog.Noop)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	c := &Connector{
		client: whatsmeow.NewClient(device, waLog.Noop),
		sink:   sink,
		log:    slog.Default().With("channel", "whatsapp"),
	}
	c.client.AddEventHandler(c.handleEvent)
	return c, nil
}

// Start connects the session. For an unpaired device the pairing QR code
// is printed to stdout; scanning it completes login and the method
// returns once connected.
func (c *Connector) Start(ctx context.Context) error {
	if c.client.Store.ID == nil {
		qrChan, err := c.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("qr channel: %w", err)
		}
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				fmt.Println("Scan to pair WhatsApp:")
				fmt.Println(evt.Code)
			case "success":
				c.log.Info("pairing complete")
			default:
				c.log.Info("pairing event", "event", evt.Event)
			}
		}
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Stop disconnects the session.
func (c *Connector) Stop() {
	c.client.Disconnect()
	c.log.Info("disconnected")
}
