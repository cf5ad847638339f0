package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglist/backend/internal/model"
)

var now = time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)

func sessionAt(start time.Time, seconds int) model.Session {
	return model.Session{
		StartTime: start,
		EndTime:   start.Add(time.Duration(seconds) * time.Second),
		Duration:  seconds,
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, now, time.UTC)
	assert.Zero(t, s.TotalItems)
	assert.Zero(t, s.ReadingStreak)
	assert.Nil(t, s.FastestCompletion)
	assert.False(t, s.UsedAllPriorities)
}

func TestComputeAggregates(t *testing.T) {
	items := []model.ReadingItem{
		{ID: "1", Status: model.StatusCompleted, Priority: model.PriorityLow, TimeSpent: 2400, Tags: []string{"go", "db"}},
		{ID: "2", Status: model.StatusCompleted, Priority: model.PriorityHigh, TimeSpent: 900, Tags: []string{"go"}},
		{ID: "3", Status: model.StatusCompleted, Priority: model.PriorityHigh, TimeSpent: 0},
		{ID: "4", Status: model.StatusReading, Priority: model.PriorityMedium, TimeSpent: 100, Tags: []string{"ml"}},
	}

	s := Compute(items, now, time.UTC)
	assert.Equal(t, 4, s.TotalItems)
	assert.Equal(t, 3, s.CompletedItems)
	assert.Equal(t, 3400, s.TotalTimeSpent)
	assert.Equal(t, 3, s.UniqueTags)
	require.NotNil(t, s.FastestCompletion)
	assert.Equal(t, 900, *s.FastestCompletion, "zero-time completions are ignored")
	assert.True(t, s.UsedAllPriorities)
}

func TestReadingStreak(t *testing.T) {
	day := func(offset int) time.Time { return now.AddDate(0, 0, -offset) }

	cases := []struct {
		name    string
		offsets []int
		want    int
	}{
		{"no sessions", nil, 0},
		{"only yesterday", []int{1, 2}, 0},
		{"today only", []int{0}, 1},
		{"five days", []int{0, 1, 2, 3, 4}, 5},
		{"gap stops walk", []int{0, 1, 3, 4}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := model.ReadingItem{ID: "x"}
			for _, off := range tc.offsets {
				item.ReadingSessions = append(item.ReadingSessions, sessionAt(day(off), 60))
			}
			assert.Equal(t, tc.want, Compute([]model.ReadingItem{item}, now, time.UTC).ReadingStreak)
		})
	}
}

func TestStreakUsesLocationCalendarDays(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-06-10 01:00 JST is still 2026-06-09 in UTC.
	localNow := time.Date(2026, 6, 10, 1, 0, 0, 0, tokyo)
	item := model.ReadingItem{ReadingSessions: []model.Session{sessionAt(localNow.Add(-30*time.Minute), 60)}}

	assert.Equal(t, 1, Compute([]model.ReadingItem{item}, localNow, tokyo).ReadingStreak)
}

func TestTimeOfDayFlags(t *testing.T) {
	at := func(hour int) model.ReadingItem {
		start := time.Date(2026, 6, 1, hour, 30, 0, 0, time.UTC)
		return model.ReadingItem{ReadingSessions: []model.Session{sessionAt(start, 60)}}
	}

	cases := []struct {
		hour         int
		night, early bool
	}{
		{22, true, false},
		{3, true, false},
		{4, false, false},
		{5, false, true},
		{7, false, true},
		{8, false, false},
		{21, false, false},
	}
	for _, tc := range cases {
		s := Compute([]model.ReadingItem{at(tc.hour)}, now, time.UTC)
		assert.Equal(t, tc.night, s.LateNightReading, "hour %d", tc.hour)
		assert.Equal(t, tc.early, s.EarlyMorningReading, "hour %d", tc.hour)
	}
}

func TestBuildOverview(t *testing.T) {
	items := []model.ReadingItem{
		{
			ID: "1", Title: "One", Status: model.StatusCompleted, TimeSpent: 100, Tags: []string{"go", "db"},
			ReadingSessions: []model.Session{sessionAt(now.Add(-time.Hour), 100)},
		},
		{
			ID: "2", Title: "Two", Status: model.StatusCompleted, TimeSpent: 201, Tags: []string{"go"},
			ReadingSessions: []model.Session{sessionAt(now.AddDate(0, 0, -2), 150), sessionAt(now.AddDate(0, 0, -2).Add(time.Hour), 51)},
		},
		{ID: "3", Title: "Three", Status: model.StatusUnread},
	}

	o := BuildOverview(items, now, time.UTC)
	assert.Equal(t, 3, o.TotalItems)
	assert.Equal(t, 301, o.TotalTimeSpent)
	assert.Equal(t, 67, o.CompletionRate)
	assert.Equal(t, 151, o.AverageCompletionTime)
	assert.Equal(t, 2, o.StatusCounts[model.StatusCompleted])
	assert.Equal(t, 0, o.StatusCounts[model.StatusReading])

	require.Len(t, o.Trend, 7)
	assert.Equal(t, DayCount{Date: "2026-06-10", Sessions: 1}, o.Trend[0])
	assert.Equal(t, 2, o.Trend[2].Sessions)

	require.Len(t, o.TagCloud, 2)
	assert.Equal(t, TagWeight{Tag: "go", Count: 2, Weight: 1}, o.TagCloud[0])
	assert.Equal(t, TagWeight{Tag: "db", Count: 1, Weight: 0.5}, o.TagCloud[1])

	require.Len(t, o.RecentSessions, 3)
	assert.Equal(t, "One", o.RecentSessions[0].Title)
}
