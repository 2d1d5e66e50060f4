package repo

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/karimjaber/finsync-service/internal/logger"
	"github.com/karimjaber/finsync-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func must(l *zap.SugaredLogger, err error) *zap.SugaredLogger {
	if err != nil {
		panic(err)
	}
	return l
}

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.ProcessedEvent{}, &model.BankAccount{}, &model.Subscription{}))
	assert.NoError(t, db.Exec("DELETE FROM bank_account").Error)

	return NewRepository(db, nil, &kafka.Writer{}, must(logger.NewLogger("test"))), db
}

func TestInsertProcessedEvent_Duplicate(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	created, err := r.InsertProcessedEvent(ctx, &model.ProcessedEvent{EventID: "evt_r1", EventType: "t"})
	assert.NoError(t, err)
	assert.True(t, created)

	// second insert hits the unique index and reports not-created, no error
	created, err = r.InsertProcessedEvent(ctx, &model.ProcessedEvent{EventID: "evt_r1", EventType: "t"})
	assert.NoError(t, err)
	assert.False(t, created)

	exists, err := r.ProcessedEventExists(ctx, "evt_r1")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = r.ProcessedEventExists(ctx, "evt_r2")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestEventCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSet("event:seen:evt_c1", "1", seenEventTTL).SetVal("OK")
	mock.ExpectExists("event:seen:evt_c1").SetVal(1)
	mock.ExpectExists("event:seen:evt_c2").SetVal(0)

	r := NewRepository(nil, rdb, &kafka.Writer{}, must(logger.NewLogger("test")))
	ctx := context.Background()

	assert.NoError(t, r.CacheEventSeen(ctx, "evt_c1"))
	assert.True(t, r.EventSeenInCache(ctx, "evt_c1"))
	assert.False(t, r.EventSeenInCache(ctx, "evt_c2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventCache_NilClientIsNoop(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	assert.False(t, r.EventSeenInCache(ctx, "evt_x"))
	assert.NoError(t, r.CacheEventSeen(ctx, "evt_x"))
}

func TestListUsersDueForSync(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()

	old := time.Now().Add(-20 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)
	seed := []model.BankAccount{
		{ID: 1, UserID: 50, ProviderID: "a", Name: "A", LastSyncedAt: &old},
		{ID: 2, UserID: 50, ProviderID: "b", Name: "B", LastSyncedAt: &recent}, // stalest wins
		{ID: 3, UserID: 51, ProviderID: "c", Name: "C", LastSyncedAt: &recent},
		{ID: 4, UserID: 52, ProviderID: "d", Name: "D", LastSyncedAt: nil}, // never synced
	}
	for i := range seed {
		assert.NoError(t, db.Create(&seed[i]).Error)
	}

	ids, err := r.ListUsersDueForSync(ctx, time.Now().Add(-12*time.Hour), 10)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []uint64{50, 52}, ids)

	// never-synced sorts oldest, so a limit of one returns it first
	ids, err = r.ListUsersDueForSync(ctx, time.Now().Add(-12*time.Hour), 1)
	assert.NoError(t, err)
	assert.Equal(t, []uint64{52}, ids)
}

func TestUpsertSubscription(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	assert.NoError(t, db.Exec("DELETE FROM subscription").Error)

	assert.NoError(t, r.UpsertSubscription(ctx, &model.Subscription{
		UserID: 60, ProviderSubscriptionID: "sub_a", Tier: "plus", Status: "active",
	}))
	assert.NoError(t, r.UpsertSubscription(ctx, &model.Subscription{
		UserID: 60, ProviderSubscriptionID: "sub_a", Tier: "family", Status: "active",
	}))

	var subs []model.Subscription
	assert.NoError(t, db.Where("user_id = ?", 60).Find(&subs).Error)
	assert.Len(t, subs, 1)
	assert.Equal(t, "family", subs[0].Tier)
}
