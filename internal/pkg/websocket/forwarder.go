package websocket

import (
	"context"

	"github.com/yigit/musicschool/internal/pkg/events"
)

// Forward subscribes the hub to bus so every committed entitlement change
// reaches the connected clients. It returns once the subscription is live.
func Forward(ctx context.Context, bus events.Bus, hub *Hub) error {
	return bus.StartForwarder(ctx, func(event events.Event) {
		if event.Type != events.TypeEntitlementsChanged {
			return
		}
		hub.Broadcast(event)
	})
}
