package achievement

import (
	"encoding/json"
	"time"
)

const ProgressKey = "achievementProgress"

const pointsPerLevel = 100

// LevelFor is the only source of a level; stored levels are never trusted.
func LevelFor(points int) int {
	return points/pointsPerLevel + 1
}

// progressRecord is the persisted achievementProgress blob.
type progressRecord struct {
	TotalPoints  int               `json:"totalPoints"`
	Level        int               `json:"level"`
	Achievements []ID              `json:"achievements"`
	EarnedDates  map[ID]*time.Time `json:"earnedDates"`
}

type progress struct {
	totalPoints int
	earned      map[ID]time.Time
	order       []ID
}

func newProgress() progress {
	return progress{earned: make(map[ID]time.Time)}
}

func (p *progress) award(a Achievement, at time.Time) {
	p.earned[a.ID] = at
	p.order = append(p.order, a.ID)
	p.totalPoints += a.Points
}

func (p progress) has(id ID) bool {
	_, ok := p.earned[id]
	return ok
}

func (p progress) marshal() ([]byte, error) {
	rec := progressRecord{
		TotalPoints:  p.totalPoints,
		Level:        LevelFor(p.totalPoints),
		Achievements: append([]ID{}, p.order...),
		EarnedDates:  make(map[ID]*time.Time, len(p.earned)),
	}
	for id, at := range p.earned {
		earnedAt := at
		rec.EarnedDates[id] = &earnedAt
	}
	return json.Marshal(rec)
}

func unmarshalProgress(raw []byte) (progress, error) {
	var rec progressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return progress{}, err
	}

	p := newProgress()
	p.totalPoints = rec.TotalPoints
	for _, id := range rec.Achievements {
		if _, known := Lookup(id); !known || p.has(id) {
			continue
		}
		var at time.Time
		if earnedAt := rec.EarnedDates[id]; earnedAt != nil {
			at = *earnedAt
		}
		p.earned[id] = at
		p.order = append(p.order, id)
	}
	return p, nil
}
