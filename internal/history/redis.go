// internal/history/redis.go
package history

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the move log is pushed onto.
var DefaultQueueName = "connect4_moves"

// MoveRecord is one accepted move, queued for offline consumers.
type MoveRecord struct {
	MatchID   uuid.UUID `json:"match_id"`
	MoveIndex int       `json:"move_index"`
	PlayerID  uuid.UUID `json:"player_id"`
	Column    int       `json:"column"`
	Timestamp int64     `json:"timestamp"`
}

// Publisher pushes per-move records onto a Redis queue. It is strictly
// best-effort: a nil Publisher or a Redis failure never affects the match.
type Publisher struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

// Connect builds a Publisher from REDIS_ADDR and REDIS_DB. It returns nil
// when REDIS_ADDR is unset or the server is unreachable; callers hold the nil
// and keep going.
func Connect(logger *logrus.Logger) *Publisher {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	dbIdx := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			dbIdx = v
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warnf("Redis unreachable at %s, move history disabled", addr)
		return nil
	}

	queue := os.Getenv("HISTORY_QUEUE_NAME")
	if queue == "" {
		queue = DefaultQueueName
	}
	logger.Infof("Move history queue enabled on %s (%s)", addr, queue)
	return &Publisher{rdb: rdb, queue: queue, logger: logger}
}

// PublishMove serializes the record and pushes it onto the queue. Safe to
// call on a nil Publisher.
func (p *Publisher) PublishMove(ctx context.Context, rec MoveRecord) {
	if p == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		p.logger.WithError(err).Warn("failed to marshal move record")
		return
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		p.logger.WithError(err).Warnf("failed to enqueue move record for match %s", rec.MatchID)
	}
}
