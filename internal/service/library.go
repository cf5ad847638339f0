package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"readinglist/backend/internal/clock"
	apperrors "readinglist/backend/internal/errors"
	"readinglist/backend/internal/model"
	"readinglist/backend/internal/repository"
)

const ItemsKey = "readingItems"

type AddItemInput struct {
	Title    string
	URL      string
	Tags     []string
	Priority model.Priority
}

// UpdateItemInput carries the fields to change; nil fields are left alone.
type UpdateItemInput struct {
	Title    *string
	URL      *string
	Tags     *[]string
	Status   *model.Status
	Progress *int
	Priority *model.Priority
	Notes    *string
}

type deletion struct {
	item      model.ReadingItem
	index     int
	expiresAt time.Time
}

// Library owns the ordered item collection, newest first, and the undo
// buffer for recent deletions. It is not safe for concurrent use.
type Library struct {
	items      []*model.ReadingItem
	deleted    map[string]deletion
	store      repository.BlobStore
	clock      clock.Clock
	undoWindow time.Duration
	logger     *zap.Logger
}

// LoadLibrary reads the collection from store. Unreadable blobs leave the
// library empty. A failed read leaves it empty too and is returned, so the
// caller can avoid saving the empty collection over the stored one.
func LoadLibrary(ctx context.Context, store repository.BlobStore, clk clock.Clock, undoWindow time.Duration, logger *zap.Logger) (*Library, error) {
	l := &Library{
		items:      []*model.ReadingItem{},
		deleted:    make(map[string]deletion),
		store:      store,
		clock:      clk,
		undoWindow: undoWindow,
		logger:     logger,
	}

	raw, found, err := store.Load(ctx, ItemsKey)
	if err != nil {
		logger.Warn("load reading items failed, starting empty", zap.Error(err))
		return l, fmt.Errorf("load reading items: %w", err)
	}
	if !found {
		return l, nil
	}

	var items []model.ReadingItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("reading items unreadable, starting empty", zap.Error(err))
		return l, nil
	}
	for _, item := range items {
		loaded := item.Clone()
		l.items = append(l.items, &loaded)
	}
	return l, nil
}

func (l *Library) Snapshot() []model.ReadingItem {
	out := make([]model.ReadingItem, len(l.items))
	for i, item := range l.items {
		out[i] = item.Clone()
	}
	return out
}

func (l *Library) Get(id string) (model.ReadingItem, bool) {
	item, _ := l.lookup(id)
	if item == nil {
		return model.ReadingItem{}, false
	}
	return item.Clone(), true
}

func (l *Library) lookup(id string) (*model.ReadingItem, int) {
	for i, item := range l.items {
		if item.ID == id {
			return item, i
		}
	}
	return nil, -1
}

func (l *Library) Add(input AddItemInput) (*model.ReadingItem, *apperrors.APIError) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}
	link, apiErr := normalizeURL(input.URL)
	if apiErr != nil {
		return nil, apiErr
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.Validation("priority must be one of low, medium, high")
	}

	item := &model.ReadingItem{
		ID:              uuid.NewString(),
		Title:           title,
		URL:             link,
		Tags:            model.NormalizeTags(input.Tags),
		Status:          model.StatusUnread,
		DateAdded:       l.clock.Now(),
		Progress:        0,
		Priority:        priority,
		TimeSpent:       0,
		ReadingSessions: []model.Session{},
	}
	l.items = slices.Insert(l.items, 0, item)
	return item, nil
}

// Update validates every field before applying any of them. Progress is
// clamped, and reaching 100 forces the completed status.
func (l *Library) Update(id string, input UpdateItemInput) (*model.ReadingItem, *apperrors.APIError) {
	item, _ := l.lookup(id)
	if item == nil {
		return nil, apperrors.ItemNotFound(id)
	}

	var title, link string
	if input.Title != nil {
		title = strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.Validation("title is required")
		}
	}
	if input.URL != nil {
		normalized, apiErr := normalizeURL(*input.URL)
		if apiErr != nil {
			return nil, apiErr
		}
		link = normalized
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.Validation("status must be one of unread, reading, completed")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.Validation("priority must be one of low, medium, high")
	}

	if input.Title != nil {
		item.Title = title
	}
	if input.URL != nil {
		item.URL = link
	}
	if input.Tags != nil {
		item.Tags = model.NormalizeTags(*input.Tags)
	}
	if input.Notes != nil {
		item.Notes = *input.Notes
	}
	if input.Priority != nil {
		item.Priority = *input.Priority
	}
	if input.Status != nil {
		item.Status = *input.Status
	}
	if input.Progress != nil {
		item.Progress = model.ClampProgress(*input.Progress)
		if item.Progress == model.MaxProgress {
			item.Status = model.StatusCompleted
		}
	}
	return item, nil
}

// Delete removes the item and keeps it restorable until the returned
// deadline.
func (l *Library) Delete(id string) (time.Time, *apperrors.APIError) {
	item, index := l.lookup(id)
	if item == nil {
		return time.Time{}, apperrors.ItemNotFound(id)
	}

	expiresAt := l.clock.Now().Add(l.undoWindow)
	l.deleted[id] = deletion{item: item.Clone(), index: index, expiresAt: expiresAt}
	l.items = slices.Delete(l.items, index, index+1)
	return expiresAt, nil
}

// Restore puts a deleted item back at its old index, or at the end when the
// collection has shrunk below it. It reports false when there is nothing to
// restore.
func (l *Library) Restore(id string) bool {
	l.ExpireDeletions()
	d, ok := l.deleted[id]
	if !ok {
		return false
	}
	delete(l.deleted, id)

	restored := d.item.Clone()
	index := min(d.index, len(l.items))
	l.items = slices.Insert(l.items, index, &restored)
	return true
}

// ExpireDeletions makes deletions past their undo window permanent.
func (l *Library) ExpireDeletions() {
	now := l.clock.Now()
	for id, d := range l.deleted {
		if now.Before(d.expiresAt) {
			continue
		}
		delete(l.deleted, id)
		l.logger.Debug("undo window closed", zap.String("item", id))
	}
}

// Persist writes the whole collection.
func (l *Library) Persist(ctx context.Context) *apperrors.APIError {
	raw, err := json.Marshal(l.Snapshot())
	if err != nil {
		l.logger.Error("encode reading items", zap.Error(err))
		return apperrors.Storage("failed to encode reading items")
	}
	if err := l.store.Save(ctx, ItemsKey, string(raw)); err != nil {
		l.logger.Warn("save reading items failed", zap.Error(err))
		return apperrors.Storage("failed to save reading items")
	}
	return nil
}

// Tags returns every tag in use, sorted.
func (l *Library) Tags() []string {
	seen := make(map[string]struct{})
	tags := []string{}
	for _, item := range l.items {
		for _, tag := range item.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	return tags
}

func normalizeURL(raw string) (string, *apperrors.APIError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "", apperrors.Validation("url must be an absolute URL")
	}
	return raw, nil
}
