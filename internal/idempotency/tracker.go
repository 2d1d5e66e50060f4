package idempotency

import (
	"context"
	"encoding/json"

	"github.com/karimjaber/finsync-service/internal/model"
	"github.com/karimjaber/finsync-service/internal/repo"
	"go.uber.org/zap"
)

// Tracker answers "has this webhook event already been handled?" against the
// processed_event table. It is deliberately soft on storage failure: webhook
// availability wins over strict duplicate prevention, and the business logic
// behind the webhook is expected to be idempotent in its own right.
type Tracker struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewTracker builds a tracker over an injected repository; there is no
// package-level client.
func NewTracker(r repo.RepositoryInterface, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{repo: r, log: logger}
}

// lookup carries the raw outcome of a duplicate check so the fail-open policy
// is applied in exactly one place instead of inside each error branch.
type lookup struct {
	processed    bool
	storageError error
}

func (t *Tracker) check(ctx context.Context, eventID string) lookup {
	if t.repo.EventSeenInCache(ctx, eventID) {
		return lookup{processed: true}
	}
	exists, err := t.repo.ProcessedEventExists(ctx, eventID)
	if err != nil {
		return lookup{storageError: err}
	}
	return lookup{processed: exists}
}

// HasBeenProcessed reports whether eventID was already handled. On storage
// failure it fails open: the event reads as unprocessed so the caller can
// still run, at the cost of a possible duplicate execution.
func (t *Tracker) HasBeenProcessed(ctx context.Context, eventID string) bool {
	res := t.check(ctx, eventID)
	if res.storageError != nil {
		t.log.Warnf("idempotency check for %s failed, failing open: %v", eventID, res.storageError)
		return false
	}
	return res.processed
}

// MarkProcessed records that eventID was handled. Call only after the
// business logic succeeded. A concurrent duplicate insert is success (the
// unique constraint already holds a row); any other failure is logged and
// swallowed, since losing the marker only risks one more idempotent run.
func (t *Tracker) MarkProcessed(ctx context.Context, eventID, eventType string, metadata map[string]interface{}) {
	evt := &model.ProcessedEvent{EventID: eventID, EventType: eventType}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			t.log.Warnf("drop unmarshalable metadata for %s: %v", eventID, err)
		} else {
			evt.Metadata = string(raw)
		}
	}

	created, err := t.repo.InsertProcessedEvent(ctx, evt)
	if err != nil {
		t.log.Warnf("mark %s processed: %v", eventID, err)
		return
	}
	if !created {
		t.log.Debugf("event %s already marked processed", eventID)
	}
	if err := t.repo.CacheEventSeen(ctx, eventID); err != nil {
		t.log.Warnf("cache marker for %s: %v", eventID, err)
	}
}
