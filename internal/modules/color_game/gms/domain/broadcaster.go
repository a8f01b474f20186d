package domain

// Broadcaster pushes messages to every connected client.
type Broadcaster interface {
	Broadcast(event interface{})
}
