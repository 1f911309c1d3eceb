package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Envelope is the structured outbound form of a delivered message.
type Envelope struct {
	SenderID  int64     `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageRecord is a persisted chat message as stored in the message log.
type MessageRecord struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"senderId"`
	ReceiverID *int64    `json:"receiverId,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// InboundKind tags the routing decision decoded from an inbound frame.
type InboundKind int

const (
	// KindRaw is the fallback for frames that are not structured objects.
	// The original frame text is re-broadcast verbatim.
	KindRaw InboundKind = iota
	// KindBroadcast is a structured frame without a receiver.
	KindBroadcast
	// KindTargeted is a structured frame addressed to one user.
	KindTargeted
)

// Inbound is the decoded form of one inbound frame.
type Inbound struct {
	Kind       InboundKind
	ReceiverID int64 // valid only when Kind is KindTargeted
	Content    string
}

// frame is the expected shape of a structured inbound frame. Both fields
// are optional on the wire.
type frame struct {
	ReceiverID *int64  `json:"receiverId"`
	Content    *string `json:"content"`
}

// DecodeFrame classifies an inbound text frame. A JSON object with the
// expected shape yields a targeted or broadcast message; anything else,
// including valid JSON that is not an object, falls back to raw. When the
// object carries no content field, the whole frame text stands in as the
// content.
func DecodeFrame(raw string) Inbound {
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return Inbound{Kind: KindRaw, Content: raw}
	}
	var f frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return Inbound{Kind: KindRaw, Content: raw}
	}

	content := raw
	if f.Content != nil {
		content = *f.Content
	}
	if f.ReceiverID != nil {
		return Inbound{Kind: KindTargeted, ReceiverID: *f.ReceiverID, Content: content}
	}
	return Inbound{Kind: KindBroadcast, Content: content}
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadText() (string, error)
	WriteText(text string) error
	Close() error
}
