package bus

import (
	"context"

	"github.com/meetdshah26/backend-chatbot/internal/realtime"
)

// Bus fans broadcast events out across processes. A worker publishes; the API
// process runs the forwarder and rebroadcasts into its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.BusMessage) error
	StartForwarder(ctx context.Context, onMsg func(msg realtime.BusMessage)) error
	Close() error
}
