package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels carrying report lifecycle events.
const (
	ChannelReportGenerated = "reports.generated"
	ChannelReportReviewed  = "reports.reviewed"
)
