// Package service contains the service layer for the Findex API
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/pkg/utils/zaplogger"
)

// PostgresSyncChannel carries sync-commit notifications inside Postgres
var PostgresSyncChannel = "ch_findex_sync_events"

// RedisSyncChannel is the channel downstream consumers subscribe to
var RedisSyncChannel = "CH:FINDEX:SYNC:EVENTS"

// PublishService relays sync-commit notifications from Postgres to Redis
// so downstream consumers see ingestion events without polling the ledger
type PublishService struct {
	db          *gorm.DB
	redisClient *redis.Client
	pgConnStr   string
}

// NewPublishService creates a new PublishService
func NewPublishService(db *gorm.DB, redisClient *redis.Client, pgConnStr string) *PublishService {
	return &PublishService{
		db:          db,
		redisClient: redisClient,
		pgConnStr:   pgConnStr,
	}
}

// NotifySyncCommitted emits a sync-commit event on the Postgres channel.
// Delivery is best-effort: a failed notification never fails the sync run
// that produced it.
func (s *PublishService) NotifySyncCommitted(kind models.JobKind, units int) {
	payload := fmt.Sprintf(`{"job_kind":%q,"units":%d,"at":%q}`, kind, units, time.Now().Format(time.RFC3339))
	if err := s.db.Exec("SELECT pg_notify(?, ?)", PostgresSyncChannel, payload).Error; err != nil {
		zaplogger.Error("Failed to notify sync commit", zaplogger.Fields{
			"job_kind": string(kind),
			"error":    err.Error(),
		})
	}
}

// RelaySyncEventsToRedis listens on the Postgres channel and republishes
// every notification to Redis. Runs until the process exits.
func (s *PublishService) RelaySyncEventsToRedis() {
	listener := pq.NewListener(s.pgConnStr, 10*time.Second, time.Minute, nil)
	if err := listener.Listen(PostgresSyncChannel); err != nil {
		zaplogger.Error("Failed to listen on Postgres sync channel", zaplogger.Fields{"error": err.Error()})
		return
	}

	ctx := context.Background()

	for {
		select {
		case n := <-listener.Notify:
			if n == nil {
				continue
			}
			if err := s.redisClient.Publish(ctx, RedisSyncChannel, n.Extra).Err(); err != nil {
				zaplogger.Error("Failed to publish sync event to Redis", zaplogger.Fields{"error": err.Error()})
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					zaplogger.Error("Error pinging PostgreSQL", zaplogger.Fields{"error": err.Error()})
				}
			}()
		}
	}
}
