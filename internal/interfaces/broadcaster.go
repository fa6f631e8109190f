package interfaces

import "github.com/ternarybob/webpscan/internal/models"

// Broadcaster fans a server event out to every websocket client subscribed
// to its group (a per-scan room or the global stats room).
type Broadcaster interface {
	Broadcast(group string, event models.Envelope)
	// Subscribers reports how many connections currently belong to group.
	Subscribers(group string) int
}
