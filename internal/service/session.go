package service

import (
	"time"

	"go.uber.org/zap"

	"readinglist/backend/internal/clock"
	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/model"
)

type ActiveSession struct {
	ItemID    string    `json:"itemId"`
	StartTime time.Time `json:"startTime"`
}

// Tracker holds at most one active reading session. The active session is
// process state and is never persisted.
type Tracker struct {
	active *ActiveSession
	clock  clock.Clock
	logger *zap.Logger
}

func NewTracker(clk clock.Clock, logger *zap.Logger) *Tracker {
	return &Tracker{clock: clk, logger: logger}
}

// Start ends any running session, then starts timing itemID. An unread item
// moves to reading.
func (t *Tracker) Start(lib *Library, itemID string) (*model.Session, *apperrors.APIError) {
	item, _ := lib.lookup(itemID)
	if item == nil {
		return nil, apperrors.ItemNotFound(itemID)
	}

	ended := t.End(lib)

	now := t.clock.Now()
	t.active = &ActiveSession{ItemID: itemID, StartTime: now}
	if item.Status == model.StatusUnread {
		item.Status = model.StatusReading
	}
	lastRead := now
	item.LastRead = &lastRead
	return ended, nil
}

// End folds the running session into its item and returns the recorded
// session. It returns nil when idle, and also when the item has been deleted
// in the meantime.
func (t *Tracker) End(lib *Library) *model.Session {
	if t.active == nil {
		return nil
	}
	active := *t.active
	t.active = nil

	item, _ := lib.lookup(active.ItemID)
	if item == nil {
		t.logger.Debug("session ended for missing item", zap.String("item", active.ItemID))
		return nil
	}

	now := t.clock.Now()
	duration := int(now.Sub(active.StartTime) / time.Second)
	if duration < 0 {
		duration = 0
	}
	session := model.Session{
		StartTime: active.StartTime,
		EndTime:   now,
		Duration:  duration,
	}
	item.ReadingSessions = append(item.ReadingSessions, session)
	item.TimeSpent += duration
	return &session
}

// EndFor ends the running session only when it belongs to itemID.
func (t *Tracker) EndFor(lib *Library, itemID string) *model.Session {
	if t.active == nil || t.active.ItemID != itemID {
		return nil
	}
	return t.End(lib)
}

func (t *Tracker) Active() (ActiveSession, bool) {
	if t.active == nil {
		return ActiveSession{}, false
	}
	return *t.active, true
}

// Elapsed is the running session's age in whole seconds, for display. It
// changes nothing.
func (t *Tracker) Elapsed() (int, bool) {
	if t.active == nil {
		return 0, false
	}
	elapsed := int(t.clock.Now().Sub(t.active.StartTime) / time.Second)
	return max(elapsed, 0), true
}
