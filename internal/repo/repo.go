package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/karimjaber/finsync-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seenEventTTL bounds the redis fast-path cache for processed event ids.
// The durable table is the source of truth; this only absorbs hot retries.
const seenEventTTL = 24 * time.Hour

// RepositoryInterface restricts Repo methods (方便单元测试 mock)
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	ProcessedEventExists(ctx context.Context, eventID string) (bool, error)
	InsertProcessedEvent(ctx context.Context, evt *model.ProcessedEvent) (bool, error)
	EventSeenInCache(ctx context.Context, eventID string) bool
	CacheEventSeen(ctx context.Context, eventID string) error
	ListAccountsByUser(ctx context.Context, userID uint64) ([]model.BankAccount, error)
	MarkAccountSynced(ctx context.Context, accountID uint64, syncedAt time.Time) error
	ListUsersDueForSync(ctx context.Context, olderThan time.Time, limit int) ([]uint64, error)
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	PublishSyncRequest(ctx context.Context, req model.SyncRequest) error
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// ProcessedEventExists does a point lookup by event id.
func (r *Repository) ProcessedEventExists(ctx context.Context, eventID string) (bool, error) {
	var evt model.ProcessedEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&evt).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// InsertProcessedEvent inserts-if-absent. Returns false when the unique
// constraint on event_id already held a row, which callers treat as success.
func (r *Repository) InsertProcessedEvent(ctx context.Context, evt *model.ProcessedEvent) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(evt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func seenKey(eventID string) string { return "event:seen:" + eventID }

// EventSeenInCache is a best-effort redis check; any error reads as "not seen".
func (r *Repository) EventSeenInCache(ctx context.Context, eventID string) bool {
	if r.rdb == nil {
		return false
	}
	n, err := r.rdb.Exists(ctx, seenKey(eventID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// CacheEventSeen writes the redis fast-path marker.
func (r *Repository) CacheEventSeen(ctx context.Context, eventID string) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Set(ctx, seenKey(eventID), "1", seenEventTTL).Err()
}

// ListAccountsByUser fetches a user's linked bank accounts.
func (r *Repository) ListAccountsByUser(ctx context.Context, userID uint64) ([]model.BankAccount, error) {
	var accts []model.BankAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&accts).Error
	return accts, err
}

// MarkAccountSynced stamps last_synced_at; called back by the refresh worker.
func (r *Repository) MarkAccountSynced(ctx context.Context, accountID uint64, syncedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.BankAccount{}).Where("id = ?", accountID).
		Update("last_synced_at", &syncedAt).Error
}

// ListUsersDueForSync returns users whose stalest account sync predates
// olderThan. Never-synced accounts sort as oldest via the epoch coalesce.
func (r *Repository) ListUsersDueForSync(ctx context.Context, olderThan time.Time, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Raw(
		`SELECT user_id FROM bank_account
		 GROUP BY user_id
		 HAVING MIN(COALESCE(last_synced_at, '1970-01-01 00:00:00')) < ?
		 ORDER BY MIN(COALESCE(last_synced_at, '1970-01-01 00:00:00'))
		 LIMIT ?`, olderThan, limit).Scan(&ids).Error
	return ids, err
}

// UpsertSubscription creates or replaces the user's subscription row.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_subscription_id", "tier", "status", "current_period_end", "updated_at",
		}),
	}).Create(sub).Error
}

// PublishSyncRequest sends the refresh request to Kafka.
func (r *Repository) PublishSyncRequest(ctx context.Context, req model.SyncRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", req.UserID)),
		Value: payload,
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}
