// Package router runs the per-connection message loop: decode each inbound
// frame, persist it, then hand the outbound form to the hub for delivery.
package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phantomop26/TeachForward/src/hub"
	"github.com/phantomop26/TeachForward/src/store"
	"github.com/phantomop26/TeachForward/src/types"
	"github.com/rs/zerolog"
)

// Router turns inbound frames into persisted messages and deliveries.
type Router struct {
	hub    *hub.Hub
	store  store.Appender
	logger zerolog.Logger
}

// New creates a Router backed by the given hub and message log.
func New(h *hub.Hub, st store.Appender, logger zerolog.Logger) *Router {
	return &Router{
		hub:    h,
		store:  st,
		logger: logger.With().Str("component", "router").Logger(),
	}
}

// Serve registers client and processes its frames in arrival order until the
// transport closes or a frame fails fatally. The client is unregistered
// exactly once on the way out.
func (r *Router) Serve(ctx context.Context, client *hub.Client) {
	r.hub.Register(client)
	defer r.hub.Unregister(client)

	for {
		raw, err := client.ReadText()
		if err != nil {
			return
		}
		if err := r.handleFrame(ctx, client.UserID, raw); err != nil {
			r.logger.Error().Err(err).
				Int64("user_id", client.UserID).
				Str("conn_id", client.ID).
				Msg("frame processing failed, closing connection")
			return
		}
	}
}

// handleFrame persists one inbound frame and routes the outbound form.
// Persistence comes first and is fatal on failure: the frame is not
// delivered and the connection loop ends. Delivery itself is best effort
// and never returns an error.
func (r *Router) handleFrame(ctx context.Context, senderID int64, raw string) error {
	in := types.DecodeFrame(raw)

	var receiverID *int64
	if in.Kind == types.KindTargeted {
		receiverID = &in.ReceiverID
	}
	rec, err := r.store.Append(ctx, senderID, receiverID, in.Content)
	if err != nil {
		return fmt.Errorf("persist frame: %w", err)
	}

	switch in.Kind {
	case types.KindTargeted:
		payload, err := encodeEnvelope(rec)
		if err != nil {
			return err
		}
		r.hub.SendToUser(in.ReceiverID, payload)
		// The sender always gets an echo of their own targeted message.
		r.hub.SendToUser(senderID, payload)
	case types.KindBroadcast:
		payload, err := encodeEnvelope(rec)
		if err != nil {
			return err
		}
		r.hub.Broadcast(payload)
	case types.KindRaw:
		// Fallback frames go out verbatim, not wrapped in an envelope.
		r.hub.Broadcast(raw)
	}
	return nil
}

func encodeEnvelope(rec types.MessageRecord) (string, error) {
	data, err := json.Marshal(types.Envelope{
		SenderID:  rec.SenderID,
		Content:   rec.Content,
		Timestamp: rec.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	return string(data), nil
}
