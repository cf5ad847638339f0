package stats

import (
	"math"
	"slices"
	"strings"
	"time"

	"readinglist/backend/internal/model"
)

const (
	trendDays      = 7
	recentActivity = 5
)

type Overview struct {
	TotalItems            int                  `json:"totalItems"`
	TotalTimeSpent        int                  `json:"totalTimeSpent"`
	CompletionRate        int                  `json:"completionRate"`
	AverageCompletionTime int                  `json:"averageCompletionTime"`
	StatusCounts          map[model.Status]int `json:"statusCounts"`
	Trend                 []DayCount           `json:"trend"`
	TagCloud              []TagWeight          `json:"tagCloud"`
	RecentSessions        []Activity           `json:"recentSessions"`
}

type DayCount struct {
	Date     string `json:"date"`
	Sessions int    `json:"sessions"`
}

// TagWeight carries a tag's share of the most used tag, in (0, 1].
type TagWeight struct {
	Tag    string  `json:"tag"`
	Count  int     `json:"count"`
	Weight float64 `json:"weight"`
}

type Activity struct {
	ItemID    string    `json:"itemId"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	Duration  int       `json:"duration"`
}

func BuildOverview(items []model.ReadingItem, now time.Time, loc *time.Location) Overview {
	if loc == nil {
		loc = time.UTC
	}

	o := Overview{
		TotalItems: len(items),
		StatusCounts: map[model.Status]int{
			model.StatusUnread:    0,
			model.StatusReading:   0,
			model.StatusCompleted: 0,
		},
		TagCloud:       []TagWeight{},
		RecentSessions: []Activity{},
	}

	completedTime, completed := 0, 0
	tagCounts := make(map[string]int)
	sessionsPerDay := make(map[string]int)

	for _, item := range items {
		o.TotalTimeSpent += item.TimeSpent
		o.StatusCounts[item.Status]++
		if item.Status == model.StatusCompleted {
			completed++
			completedTime += item.TimeSpent
		}
		for _, tag := range item.Tags {
			tagCounts[tag]++
		}
		for _, session := range item.ReadingSessions {
			sessionsPerDay[session.StartTime.In(loc).Format(dayLayout)]++
			o.RecentSessions = append(o.RecentSessions, Activity{
				ItemID:    item.ID,
				Title:     item.Title,
				StartTime: session.StartTime,
				Duration:  session.Duration,
			})
		}
	}

	if o.TotalItems > 0 {
		o.CompletionRate = int(math.Round(float64(completed) / float64(o.TotalItems) * 100))
	}
	if completed > 0 {
		o.AverageCompletionTime = int(math.Round(float64(completedTime) / float64(completed)))
	}

	today := now.In(loc)
	o.Trend = make([]DayCount, 0, trendDays)
	for i := 0; i < trendDays; i++ {
		day := today.AddDate(0, 0, -i).Format(dayLayout)
		o.Trend = append(o.Trend, DayCount{Date: day, Sessions: sessionsPerDay[day]})
	}

	maxCount := 1
	for tag, count := range tagCounts {
		o.TagCloud = append(o.TagCloud, TagWeight{Tag: tag, Count: count})
		maxCount = max(maxCount, count)
	}
	for i := range o.TagCloud {
		o.TagCloud[i].Weight = float64(o.TagCloud[i].Count) / float64(maxCount)
	}
	slices.SortFunc(o.TagCloud, func(a, b TagWeight) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Tag, b.Tag)
	})

	slices.SortStableFunc(o.RecentSessions, func(a, b Activity) int {
		return b.StartTime.Compare(a.StartTime)
	})
	if len(o.RecentSessions) > recentActivity {
		o.RecentSessions = o.RecentSessions[:recentActivity]
	}
	return o
}
