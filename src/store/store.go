// Package store persists the message log. The router depends only on the
// Appender contract; the concrete writer is wired in at startup.
package store

import (
	"context"

	"github.com/phantomop26/TeachForward/src/types"
)

// Appender appends one message record to the durable log and returns the
// created record with its assigned id and timestamp.
type Appender interface {
	Append(ctx context.Context, senderID int64, receiverID *int64, content string) (types.MessageRecord, error)
}
