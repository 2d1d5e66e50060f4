package service

import (
	"context"
	"time"

	"github.com/karimjaber/finsync-service/internal/model"
	"github.com/karimjaber/finsync-service/internal/repo"
	"github.com/karimjaber/finsync-service/internal/syncpolicy"
	"go.uber.org/zap"
)

// Overview is what the accounts endpoint serves: the rows plus the staleness
// verdict that drove (or skipped) an out-of-band refresh request.
type Overview struct {
	Accounts      []model.BankAccount `json:"accounts"`
	Action        string              `json:"sync_action"`
	LastRefreshed string              `json:"last_refreshed"`
}

// SyncService decides when externally-sourced account data needs a refresh
// and asks the refresh worker to perform one via Kafka. It never talks to
// the aggregator itself.
type SyncService struct {
	repo       repo.RepositoryInterface
	thresholds syncpolicy.Thresholds
	batch      syncpolicy.BatchPolicy
	log        *zap.SugaredLogger
}

// NewSyncService returns SyncService.
func NewSyncService(r repo.RepositoryInterface, th syncpolicy.Thresholds, bp syncpolicy.BatchPolicy, logger *zap.SugaredLogger) *SyncService {
	return &SyncService{repo: r, thresholds: th, batch: bp, log: logger}
}

// AccountOverview loads the user's accounts and applies the staleness
// policy, keyed off the stalest account so one lagging account refreshes the
// whole set. When a refresh is warranted the request is published
// best-effort: stale data is still served if Kafka is down.
func (s *SyncService) AccountOverview(ctx context.Context, userID uint64) (*Overview, error) {
	accts, err := s.repo.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	times := make([]*time.Time, 0, len(accts))
	for i := range accts {
		times = append(times, accts[i].LastSyncedAt)
	}
	oldest := syncpolicy.OldestSyncTime(times)

	action := syncpolicy.ActionNone
	if len(accts) > 0 {
		action = s.thresholds.Decide(oldest, now)
	}
	if action != syncpolicy.ActionNone {
		if err := s.publish(ctx, userID, accts, action, oldest, "interactive"); err != nil {
			s.log.Warnf("sync request for user %d: %v", userID, err)
		}
	}

	return &Overview{
		Accounts:      accts,
		Action:        action.String(),
		LastRefreshed: syncpolicy.FormatRecency(oldest, now),
	}, nil
}

// RequestSync is the explicit refresh trigger behind POST /users/:id/sync.
// Unlike the passive path this propagates publish errors, since the user
// asked for the refresh and should hear that it could not be scheduled.
func (s *SyncService) RequestSync(ctx context.Context, userID uint64, full bool) error {
	accts, err := s.repo.ListAccountsByUser(ctx, userID)
	if err != nil {
		return err
	}
	times := make([]*time.Time, 0, len(accts))
	for i := range accts {
		times = append(times, accts[i].LastSyncedAt)
	}
	action := syncpolicy.ActionBalanceOnly
	if full {
		action = syncpolicy.ActionFull
	}
	return s.publish(ctx, userID, accts, action, syncpolicy.OldestSyncTime(times), "manual")
}

// DispatchDue selects users whose stalest sync exceeds the batch skip
// threshold and publishes a full refresh for each. The caller owns pacing;
// this only caps the batch size.
func (s *SyncService) DispatchDue(ctx context.Context) ([]uint64, error) {
	cutoff := time.Now().Add(-s.batch.SkipIfSyncedWithin)
	users, err := s.repo.ListUsersDueForSync(ctx, cutoff, s.batch.BatchSize)
	if err != nil {
		return nil, err
	}
	dispatched := make([]uint64, 0, len(users))
	for _, uid := range users {
		accts, err := s.repo.ListAccountsByUser(ctx, uid)
		if err != nil {
			s.log.Errorf("load accounts for user %d: %v", uid, err)
			continue
		}
		times := make([]*time.Time, 0, len(accts))
		for i := range accts {
			times = append(times, accts[i].LastSyncedAt)
		}
		if err := s.publish(ctx, uid, accts, syncpolicy.ActionFull, syncpolicy.OldestSyncTime(times), "batch"); err != nil {
			s.log.Errorf("dispatch sync for user %d: %v", uid, err)
			continue
		}
		dispatched = append(dispatched, uid)
	}
	return dispatched, nil
}

// MarkAccountSynced is the write-back used by the refresh worker once a pull
// completes. Exposed here so the worker shares one persistence path.
func (s *SyncService) MarkAccountSynced(ctx context.Context, accountID uint64, syncedAt time.Time) error {
	return s.repo.MarkAccountSynced(ctx, accountID, syncedAt)
}

func (s *SyncService) publish(ctx context.Context, userID uint64, accts []model.BankAccount, action syncpolicy.Action, oldest *time.Time, source string) error {
	ids := make([]uint64, 0, len(accts))
	for i := range accts {
		ids = append(ids, accts[i].ID)
	}
	req := model.SyncRequest{
		UserID:      userID,
		AccountIDs:  ids,
		Action:      action.String(),
		WindowHours: int(s.batch.FetchWindow(oldest).Hours()),
		RequestedAt: time.Now(),
		Source:      source,
	}
	return s.repo.PublishSyncRequest(ctx, req)
}
