package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phantomop26/TeachForward/src/types"
	"github.com/rs/zerolog"
)

const messagesSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id          BIGSERIAL PRIMARY KEY,
	sender_id   BIGINT NOT NULL,
	receiver_id BIGINT,
	content     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres appends message records to a Postgres-backed log via pgxpool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres connects to databaseURL and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{
		pool:   pool,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Migrate creates the messages table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, messagesSchema); err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}
	return nil
}

// Append inserts one message record and returns it with the assigned id and
// creation timestamp.
func (p *Postgres) Append(ctx context.Context, senderID int64, receiverID *int64, content string) (types.MessageRecord, error) {
	rec := types.MessageRecord{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO messages (sender_id, receiver_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		senderID, receiverID, content,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return types.MessageRecord{}, fmt.Errorf("append message: %w", err)
	}
	p.logger.Debug().Int64("message_id", rec.ID).Msg("message appended")
	return rec, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
