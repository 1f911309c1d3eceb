// Package bridge relays deliveries between server instances so fan-out
// reaches users connected elsewhere.
package bridge

// Delivery is one outbound delivery relayed across instances. A nil
// ReceiverID means broadcast.
type Delivery struct {
	ReceiverID *int64 `json:"receiverId,omitempty"`
	Payload    string `json:"payload"`
}

// Bridge defines the interface for cross-instance delivery relaying.
type Bridge interface {
	// Publish sends a delivery to all other instances via the bridge.
	Publish(receiverID *int64, payload string) error

	// Start begins listening for deliveries from other instances.
	Start() error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// DeliveryTarget is implemented by the Hub to receive relayed deliveries.
type DeliveryTarget interface {
	DeliverLocal(receiverID *int64, payload string)
}
