package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"readinglist/backend/internal/achievement"
	"readinglist/backend/internal/clock"
	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/model"
	"readinglist/backend/internal/query"
	"readinglist/backend/internal/repository"
	"readinglist/backend/internal/stats"
)

const DefaultUndoWindow = 5 * time.Second

type Options struct {
	Clock      clock.Clock
	Location   *time.Location
	UndoWindow time.Duration
	Logger     *zap.Logger
	Notifier   achievement.Notifier
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.System{}
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.UndoWindow <= 0 {
		o.UndoWindow = DefaultUndoWindow
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Workspace is one reader's library, session tracker and achievement
// engine. Every method holds the workspace lock for its whole duration, so
// each operation sees and leaves the invariants intact.
type Workspace struct {
	mu       sync.Mutex
	library  *Library
	tracker  *Tracker
	engine   *achievement.Engine
	clock    clock.Clock
	location *time.Location
	logger   *zap.Logger
}

type ItemResult struct {
	Item   model.ReadingItem   `json:"item"`
	Earned []achievement.Award `json:"earned"`
}

type DeleteResult struct {
	ItemID        string    `json:"itemId"`
	UndoExpiresAt time.Time `json:"undoExpiresAt"`
}

type RestoreResult struct {
	Restored bool                `json:"restored"`
	Earned   []achievement.Award `json:"earned"`
}

type SessionView struct {
	Active         bool                `json:"active"`
	ItemID         string              `json:"itemId,omitempty"`
	StartTime      *time.Time          `json:"startTime,omitempty"`
	ElapsedSeconds int                 `json:"elapsedSeconds"`
	Ended          *model.Session      `json:"ended,omitempty"`
	Earned         []achievement.Award `json:"earned,omitempty"`
}

// OpenWorkspace loads the collection and achievement progress from store.
// The workspace is always usable; a non-nil error means a read failed and
// the workspace started empty, so saving from it would overwrite stored data.
func OpenWorkspace(ctx context.Context, store repository.BlobStore, opts Options) (*Workspace, error) {
	opts = opts.withDefaults()
	library, libraryErr := LoadLibrary(ctx, store, opts.Clock, opts.UndoWindow, opts.Logger)
	engine, engineErr := achievement.Load(ctx, store, opts.Clock, opts.Notifier, opts.Logger)
	return &Workspace{
		library:  library,
		tracker:  NewTracker(opts.Clock, opts.Logger),
		engine:   engine,
		clock:    opts.Clock,
		location: opts.Location,
		logger:   opts.Logger,
	}, errors.Join(libraryErr, engineErr)
}

// commit persists the collection and re-evaluates achievements. A failed
// save is reported but the in-memory change stands.
func (w *Workspace) commit(ctx context.Context) ([]achievement.Award, *apperrors.APIError) {
	saveErr := w.library.Persist(ctx)
	awards := w.engine.Check(ctx, w.statsLocked())
	return awards, saveErr
}

func (w *Workspace) statsLocked() stats.Stats {
	return stats.Compute(w.library.Snapshot(), w.clock.Now(), w.location)
}

// AddItem inserts a new unread item at the front of the collection. On a
// storage error the item is kept and returned along with the error.
func (w *Workspace) AddItem(ctx context.Context, input AddItemInput) (*ItemResult, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.library.ExpireDeletions()

	item, apiErr := w.library.Add(input)
	if apiErr != nil {
		return nil, apiErr
	}
	awards, saveErr := w.commit(ctx)
	return &ItemResult{Item: item.Clone(), Earned: awards}, saveErr
}

// UpdateItem applies input to the item. When progress reaches 100 the item
// is completed and its running session, if any, is ended in the same step.
func (w *Workspace) UpdateItem(ctx context.Context, id string, input UpdateItemInput) (*ItemResult, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.library.ExpireDeletions()

	item, apiErr := w.library.Update(id, input)
	if apiErr != nil {
		return nil, apiErr
	}
	if input.Progress != nil && item.Progress == model.MaxProgress {
		w.tracker.EndFor(w.library, id)
	}
	awards, saveErr := w.commit(ctx)
	return &ItemResult{Item: item.Clone(), Earned: awards}, saveErr
}

func (w *Workspace) DeleteItem(ctx context.Context, id string) (*DeleteResult, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.library.ExpireDeletions()

	expiresAt, apiErr := w.library.Delete(id)
	if apiErr != nil {
		return nil, apiErr
	}
	_, saveErr := w.commit(ctx)
	return &DeleteResult{ItemID: id, UndoExpiresAt: expiresAt}, saveErr
}

// UndoDelete restores a deleted item while its undo window is open. It
// reports Restored false, without error, when there is nothing to restore.
func (w *Workspace) UndoDelete(ctx context.Context, id string) (*RestoreResult, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.library.Restore(id) {
		return &RestoreResult{Restored: false}, nil
	}
	awards, saveErr := w.commit(ctx)
	return &RestoreResult{Restored: true, Earned: awards}, saveErr
}

func (w *Workspace) StartSession(ctx context.Context, itemID string) (*SessionView, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.library.ExpireDeletions()

	ended, apiErr := w.tracker.Start(w.library, itemID)
	if apiErr != nil {
		return nil, apiErr
	}
	awards, saveErr := w.commit(ctx)
	view := w.sessionLocked()
	view.Ended = ended
	view.Earned = awards
	return &view, saveErr
}

// EndSession is a no-op when no session is running.
func (w *Workspace) EndSession(ctx context.Context) (*SessionView, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.library.ExpireDeletions()

	if _, ok := w.tracker.Active(); !ok {
		view := w.sessionLocked()
		return &view, nil
	}
	ended := w.tracker.End(w.library)
	awards, saveErr := w.commit(ctx)
	view := w.sessionLocked()
	view.Ended = ended
	view.Earned = awards
	return &view, saveErr
}

// Session reports the running session and its elapsed time.
func (w *Workspace) Session() SessionView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionLocked()
}

func (w *Workspace) sessionLocked() SessionView {
	active, ok := w.tracker.Active()
	if !ok {
		return SessionView{}
	}
	elapsed, _ := w.tracker.Elapsed()
	start := active.StartTime
	return SessionView{
		Active:         true,
		ItemID:         active.ItemID,
		StartTime:      &start,
		ElapsedSeconds: elapsed,
	}
}

func (w *Workspace) Item(id string) (model.ReadingItem, *apperrors.APIError) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.library.Get(id)
	if !ok {
		return model.ReadingItem{}, apperrors.ItemNotFound(id)
	}
	return item, nil
}

func (w *Workspace) Items() []model.ReadingItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.library.Snapshot()
}

func (w *Workspace) FilteredItems(spec query.Spec) query.Result {
	return query.FilterAndSort(w.Items(), spec)
}

func (w *Workspace) Tags() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.library.Tags()
}

func (w *Workspace) Progress() achievement.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Summary()
}

func (w *Workspace) Achievements() []achievement.Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.Catalog()
}

func (w *Workspace) Stats() stats.Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statsLocked()
}

func (w *Workspace) Overview() stats.Overview {
	w.mu.Lock()
	defer w.mu.Unlock()
	return stats.BuildOverview(w.library.Snapshot(), w.clock.Now(), w.location)
}
