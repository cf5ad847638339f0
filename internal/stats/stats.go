// Package stats aggregates a reading collection into the figures consumed by
// achievement rules and the dashboard.
package stats

import (
	"time"

	"readinglist/backend/internal/model"
)

const dayLayout = "2006-01-02"

type Stats struct {
	TotalItems     int `json:"totalItems"`
	CompletedItems int `json:"completedItems"`
	ReadingStreak  int `json:"readingStreak"`
	TotalTimeSpent int `json:"totalTimeSpent"`
	UniqueTags     int `json:"uniqueTags"`
	// FastestCompletion is nil when no completed item has recorded time.
	FastestCompletion   *int `json:"fastestCompletion"`
	UsedAllPriorities   bool `json:"usedAllPriorities"`
	LateNightReading    bool `json:"lateNightReading"`
	EarlyMorningReading bool `json:"earlyMorningReading"`
}

// Compute aggregates items as of now. Calendar days and hours of day are
// taken in loc.
func Compute(items []model.ReadingItem, now time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}

	var s Stats
	s.TotalItems = len(items)

	tags := make(map[string]struct{})
	priorities := make(map[model.Priority]struct{})
	sessionDays := make(map[string]struct{})

	for _, item := range items {
		s.TotalTimeSpent += item.TimeSpent
		priorities[item.Priority] = struct{}{}
		for _, tag := range item.Tags {
			tags[tag] = struct{}{}
		}

		if item.Status == model.StatusCompleted {
			s.CompletedItems++
			if item.TimeSpent > 0 && (s.FastestCompletion == nil || item.TimeSpent < *s.FastestCompletion) {
				fastest := item.TimeSpent
				s.FastestCompletion = &fastest
			}
		}

		for _, session := range item.ReadingSessions {
			start := session.StartTime.In(loc)
			sessionDays[start.Format(dayLayout)] = struct{}{}
			hour := start.Hour()
			if hour >= 22 || hour < 4 {
				s.LateNightReading = true
			}
			if hour >= 5 && hour < 8 {
				s.EarlyMorningReading = true
			}
		}
	}

	s.UniqueTags = len(tags)
	s.UsedAllPriorities = len(priorities) == 3
	s.ReadingStreak = streak(sessionDays, now.In(loc))
	return s
}

// streak counts consecutive days with a session, walking back from today.
// A day without a session ends the walk, so no session today means zero.
func streak(days map[string]struct{}, today time.Time) int {
	count := 0
	for day := today; ; day = day.AddDate(0, 0, -1) {
		if _, ok := days[day.Format(dayLayout)]; !ok {
			return count
		}
		count++
	}
}
