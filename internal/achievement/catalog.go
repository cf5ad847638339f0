// Package achievement evaluates a fixed rule table against reading stats and
// keeps the earned overlay, points and level for one reader.
package achievement

import "readinglist/backend/internal/stats"

type ID string

const (
	FirstBook        ID = "first_book"
	ReadingStreak    ID = "reading_streak"
	TimeSpent        ID = "time_spent"
	CompletionMaster ID = "completion_master"
	OrganizationPro  ID = "organization_pro"
	SpeedReader      ID = "speed_reader"
	PriorityPlanner  ID = "priority_planner"
	NightOwl         ID = "night_owl"
	EarlyBird        ID = "early_bird"
	Bookworm         ID = "bookworm"
)

type Achievement struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Points      int    `json:"points"`
}

// Catalog is evaluated in this order; awards from one pass are emitted in
// the same order.
var Catalog = []Achievement{
	{FirstBook, "First Steps", "Add your first reading item", "📚", 10},
	{ReadingStreak, "Reading Streak", "Read for 5 consecutive days", "🔥", 50},
	{TimeSpent, "Dedicated Reader", "Spend 2 hours reading", "⏱️", 30},
	{CompletionMaster, "Completion Master", "Complete 5 reading items", "✅", 40},
	{OrganizationPro, "Organization Pro", "Use 5 different tags", "🏷️", 20},
	{SpeedReader, "Speed Reader", "Complete a reading item in under 30 minutes", "⚡", 25},
	{PriorityPlanner, "Priority Planner", "Have items in all priority levels", "📊", 15},
	{NightOwl, "Night Owl", "Read after 10 PM", "🦉", 20},
	{EarlyBird, "Early Bird", "Read before 8 AM", "🌅", 20},
	{Bookworm, "Bookworm", "Read 10 different items", "🪱", 60},
}

var rules = map[ID]func(stats.Stats) bool{
	FirstBook:        func(s stats.Stats) bool { return s.TotalItems >= 1 },
	ReadingStreak:    func(s stats.Stats) bool { return s.ReadingStreak >= 5 },
	TimeSpent:        func(s stats.Stats) bool { return s.TotalTimeSpent >= 7200 },
	CompletionMaster: func(s stats.Stats) bool { return s.CompletedItems >= 5 },
	OrganizationPro:  func(s stats.Stats) bool { return s.UniqueTags >= 5 },
	SpeedReader: func(s stats.Stats) bool {
		return s.FastestCompletion != nil && *s.FastestCompletion <= 1800
	},
	PriorityPlanner: func(s stats.Stats) bool { return s.UsedAllPriorities },
	NightOwl:        func(s stats.Stats) bool { return s.LateNightReading },
	EarlyBird:       func(s stats.Stats) bool { return s.EarlyMorningReading },
	Bookworm:        func(s stats.Stats) bool { return s.TotalItems >= 10 },
}

// Satisfied reports whether the rule for id holds. Unknown ids never hold.
func Satisfied(id ID, s stats.Stats) bool {
	rule, ok := rules[id]
	return ok && rule(s)
}

func Lookup(id ID) (Achievement, bool) {
	for _, a := range Catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
