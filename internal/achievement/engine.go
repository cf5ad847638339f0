package achievement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"readinglist/backend/internal/clock"
	"readinglist/backend/internal/repository"
	"readinglist/backend/internal/stats"
)

// Award is emitted once per achievement, the first time its rule holds.
type Award struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Points      int       `json:"points"`
	EarnedDate  time.Time `json:"earnedDate"`
	TotalPoints int       `json:"totalPoints"`
	Level       int       `json:"level"`
}

// Notifier receives awards as they happen.
type Notifier interface {
	AchievementEarned(Award)
}

type NotifierFunc func(Award)

func (f NotifierFunc) AchievementEarned(a Award) { f(a) }

type Status struct {
	Achievement
	Earned     bool       `json:"earned"`
	EarnedDate *time.Time `json:"earnedDate"`
}

type Summary struct {
	EarnedAchievements []Status `json:"earnedAchievements"`
	TotalAchievements  int      `json:"totalAchievements"`
	Points             int      `json:"points"`
	Level              int      `json:"level"`
}

// Engine is not safe for concurrent use; callers serialise access.
type Engine struct {
	store    repository.BlobStore
	clock    clock.Clock
	notifier Notifier
	logger   *zap.Logger
	progress progress
}

// Load restores the earned overlay from store. A missing or unreadable blob
// starts from nothing. A failed read also starts from nothing but is
// returned, since saving over it would lose the stored progress.
func Load(ctx context.Context, store repository.BlobStore, clk clock.Clock, notifier Notifier, logger *zap.Logger) (*Engine, error) {
	e := &Engine{
		store:    store,
		clock:    clk,
		notifier: notifier,
		logger:   logger,
		progress: newProgress(),
	}

	raw, found, err := store.Load(ctx, ProgressKey)
	if err != nil {
		logger.Warn("load achievement progress failed, starting empty", zap.Error(err))
		return e, fmt.Errorf("load achievement progress: %w", err)
	}
	if !found {
		return e, nil
	}
	p, err := unmarshalProgress([]byte(raw))
	if err != nil {
		logger.Warn("achievement progress unreadable, starting empty", zap.Error(err))
		return e, nil
	}
	e.progress = p
	return e, nil
}

// Check evaluates every unearned rule against s and awards the ones that
// hold, in catalog order. Progress is saved only when something was awarded.
func (e *Engine) Check(ctx context.Context, s stats.Stats) []Award {
	var awards []Award
	for _, a := range Catalog {
		if e.progress.has(a.ID) || !Satisfied(a.ID, s) {
			continue
		}
		now := e.clock.Now()
		e.progress.award(a, now)
		awards = append(awards, Award{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Icon:        a.Icon,
			Points:      a.Points,
			EarnedDate:  now,
			TotalPoints: e.progress.totalPoints,
			Level:       LevelFor(e.progress.totalPoints),
		})
	}
	if len(awards) == 0 {
		return nil
	}

	e.save(ctx)
	for _, award := range awards {
		e.logger.Info("achievement earned",
			zap.String("achievement", string(award.ID)),
			zap.Int("points", award.Points),
			zap.Int("totalPoints", award.TotalPoints),
			zap.Int("level", award.Level),
		)
		if e.notifier != nil {
			e.notifier.AchievementEarned(award)
		}
	}
	return awards
}

func (e *Engine) save(ctx context.Context) {
	raw, err := e.progress.marshal()
	if err != nil {
		e.logger.Error("encode achievement progress", zap.Error(err))
		return
	}
	if err := e.store.Save(ctx, ProgressKey, string(raw)); err != nil {
		e.logger.Warn("save achievement progress failed", zap.Error(err))
	}
}

// Catalog lists every achievement with its earned state.
func (e *Engine) Catalog() []Status {
	out := make([]Status, 0, len(Catalog))
	for _, a := range Catalog {
		st := Status{Achievement: a}
		if at, ok := e.progress.earned[a.ID]; ok {
			st.Earned = true
			if !at.IsZero() {
				earnedAt := at
				st.EarnedDate = &earnedAt
			}
		}
		out = append(out, st)
	}
	return out
}

func (e *Engine) Summary() Summary {
	earned := make([]Status, 0, len(e.progress.earned))
	for _, st := range e.Catalog() {
		if st.Earned {
			earned = append(earned, st)
		}
	}
	return Summary{
		EarnedAchievements: earned,
		TotalAchievements:  len(Catalog),
		Points:             e.progress.totalPoints,
		Level:              LevelFor(e.progress.totalPoints),
	}
}
