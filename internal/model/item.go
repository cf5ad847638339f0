package model

import (
	"slices"
	"strings"
	"time"
	"unicode"
)

type Status string

const (
	StatusUnread    Status = "unread"
	StatusReading   Status = "reading"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusUnread || s == StatusReading || s == StatusCompleted
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

const (
	MinProgress = 0
	MaxProgress = 100
)

// Session is one finished reading interval. Duration is captured when the
// session ends and is never recomputed from the timestamps.
type Session struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int       `json:"duration"`
}

type ReadingItem struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Tags            []string   `json:"tags"`
	Status          Status     `json:"status"`
	DateAdded       time.Time  `json:"dateAdded"`
	Progress        int        `json:"progress"`
	Priority        Priority   `json:"priority"`
	TimeSpent       int        `json:"timeSpent"`
	LastRead        *time.Time `json:"lastRead"`
	ReadingSessions []Session  `json:"readingSessions"`
	Notes           string     `json:"notes"`
}

// Clone returns a copy that shares no slices or pointers with i.
func (i ReadingItem) Clone() ReadingItem {
	out := i
	out.Tags = slices.Clone(i.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	out.ReadingSessions = slices.Clone(i.ReadingSessions)
	if out.ReadingSessions == nil {
		out.ReadingSessions = []Session{}
	}
	if i.LastRead != nil {
		lastRead := *i.LastRead
		out.LastRead = &lastRead
	}
	return out
}

func (i ReadingItem) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

func ClampProgress(progress int) int {
	if progress < MinProgress {
		return MinProgress
	}
	if progress > MaxProgress {
		return MaxProgress
	}
	return progress
}

// NormalizeTag lowercases raw and drops everything except letters, digits,
// underscores and whitespace.
func NormalizeTag(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeTags normalizes every tag, dropping empties and keeping the first
// occurrence of duplicates.
func NormalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	for _, tag := range raw {
		normalized := NormalizeTag(tag)
		if normalized == "" || slices.Contains(tags, normalized) {
			continue
		}
		tags = append(tags, normalized)
	}
	return tags
}
