// Package query narrows and orders a reading collection for display. It never
// mutates its input.
package query

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"readinglist/backend/internal/model"
)

// StatusAll disables the status filter.
const StatusAll = "all"

type TagsMode string

const (
	TagsAny TagsMode = "any"
	TagsAll TagsMode = "all"
)

type SortField string

const (
	SortDateAdded SortField = "dateAdded"
	SortPriority  SortField = "priority"
	SortProgress  SortField = "progress"
	SortTimeSpent SortField = "timeSpent"
	SortTitle     SortField = "title"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Both tables are applied the same way (rank(b) - rank(a)); ascending order
// comes from the second table, not from flipping the comparison.
var (
	priorityRankDesc = map[model.Priority]int{model.PriorityHigh: 2, model.PriorityMedium: 1, model.PriorityLow: 0}
	priorityRankAsc  = map[model.Priority]int{model.PriorityLow: 2, model.PriorityMedium: 1, model.PriorityHigh: 0}
)

// Spec describes one view of the collection. The zero value keeps every item
// in stored order; a progress range of [0, 0] counts as unset.
type Spec struct {
	Status      string
	Priorities  []model.Priority
	ProgressMin int
	ProgressMax int
	From        *time.Time
	To          *time.Time
	Tags        []string
	TagsMode    TagsMode
	Query       string
	SortBy      SortField
	Order       SortOrder
}

// DefaultSpec matches every item and orders newest first.
func DefaultSpec() Spec {
	return Spec{
		Status:      StatusAll,
		ProgressMin: model.MinProgress,
		ProgressMax: model.MaxProgress,
		TagsMode:    TagsAny,
		SortBy:      SortDateAdded,
		Order:       Desc,
	}
}

type Result struct {
	Items      []model.ReadingItem `json:"items"`
	MatchCount int                 `json:"matchCount"`
}

// FilterAndSort applies the status, priority, progress, date, tag and search
// filters in that order, then a stable sort.
func FilterAndSort(items []model.ReadingItem, spec Spec) Result {
	filtered := make([]model.ReadingItem, 0, len(items))
	for _, item := range items {
		if matches(item, spec) {
			filtered = append(filtered, item)
		}
	}

	if cmp := comparator(spec.SortBy, spec.Order); cmp != nil {
		slices.SortStableFunc(filtered, cmp)
	}
	return Result{Items: filtered, MatchCount: len(filtered)}
}

func matches(item model.ReadingItem, spec Spec) bool {
	if spec.Status != "" && spec.Status != StatusAll && string(item.Status) != spec.Status {
		return false
	}
	if len(spec.Priorities) > 0 && !slices.Contains(spec.Priorities, item.Priority) {
		return false
	}
	if hasProgressRange(spec) && (item.Progress < spec.ProgressMin || item.Progress > spec.ProgressMax) {
		return false
	}
	if spec.From != nil && item.DateAdded.Before(*spec.From) {
		return false
	}
	if spec.To != nil && item.DateAdded.After(*spec.To) {
		return false
	}
	if len(spec.Tags) > 0 && !matchesTags(item, spec.Tags, spec.TagsMode) {
		return false
	}
	if spec.Query != "" && !matchesQuery(item, strings.ToLower(spec.Query)) {
		return false
	}
	return true
}

func hasProgressRange(spec Spec) bool {
	return spec.ProgressMin != 0 || spec.ProgressMax != 0
}

func matchesTags(item model.ReadingItem, tags []string, mode TagsMode) bool {
	if mode == TagsAll {
		for _, tag := range tags {
			if !item.HasTag(tag) {
				return false
			}
		}
		return true
	}
	return slices.ContainsFunc(tags, item.HasTag)
}

func matchesQuery(item model.ReadingItem, query string) bool {
	if strings.Contains(strings.ToLower(item.Title), query) {
		return true
	}
	if strings.Contains(strings.ToLower(item.URL), query) {
		return true
	}
	return slices.ContainsFunc(item.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), query)
	})
}

func comparator(field SortField, order SortOrder) func(a, b model.ReadingItem) int {
	desc := order != Asc
	switch field {
	case SortDateAdded:
		return func(a, b model.ReadingItem) int {
			if desc {
				return b.DateAdded.Compare(a.DateAdded)
			}
			return a.DateAdded.Compare(b.DateAdded)
		}
	case SortPriority:
		ranks := priorityRankAsc
		if desc {
			ranks = priorityRankDesc
		}
		return func(a, b model.ReadingItem) int {
			return ranks[b.Priority] - ranks[a.Priority]
		}
	case SortProgress:
		return func(a, b model.ReadingItem) int {
			if desc {
				return b.Progress - a.Progress
			}
			return a.Progress - b.Progress
		}
	case SortTimeSpent:
		return func(a, b model.ReadingItem) int {
			if desc {
				return b.TimeSpent - a.TimeSpent
			}
			return a.TimeSpent - b.TimeSpent
		}
	case SortTitle:
		// collate.Collator keeps internal buffers, so each sort gets its own.
		collator := collate.New(language.English)
		return func(a, b model.ReadingItem) int {
			if desc {
				return collator.CompareString(b.Title, a.Title)
			}
			return collator.CompareString(a.Title, b.Title)
		}
	default:
		return nil
	}
}

var sortKeys = map[string]struct {
	field SortField
	order SortOrder
}{
	"date-added-desc": {SortDateAdded, Desc},
	"date-added-asc":  {SortDateAdded, Asc},
	"priority-desc":   {SortPriority, Desc},
	"priority-asc":    {SortPriority, Asc},
	"progress-desc":   {SortProgress, Desc},
	"progress-asc":    {SortProgress, Asc},
	"time-spent-desc": {SortTimeSpent, Desc},
	"time-spent-asc":  {SortTimeSpent, Asc},
	"title-asc":       {SortTitle, Asc},
	"title-desc":      {SortTitle, Desc},
}

// ParseSort accepts keys such as "priority-desc" or "title-asc".
// ParseStatus accepts "all" or a known item status.
func ParseStatus(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v != StatusAll && !model.Status(v).Valid() {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return v, nil
}

func ParseSort(key string) (SortField, SortOrder, error) {
	sk, ok := sortKeys[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", "", fmt.Errorf("unknown sort %q", key)
	}
	return sk.field, sk.order, nil
}
