// Package scoring accumulates a session's hits and false alarms and derives
// the efficiency and time credit awarded at the end.
package scoring

import (
	"gonum.org/v1/gonum/floats/scalar"

	"xray-cbt/internal/region"
)

// epsilon keeps the efficiency ratio defined when nothing was answered.
const epsilon = 0.0001

// CategoryStat counts answers for one expected category.
type CategoryStat struct {
	Hits  int `json:"hits"`
	Total int `json:"total"`
}

// Rate returns the hit percentage, or 0 when nothing was seen.
func (c CategoryStat) Rate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Total) * 100
}

// WrongAnswer records one incorrect or missed item.
type WrongAnswer struct {
	ItemID     int        `json:"itemId"`
	Code       string     `json:"code"`
	ExpectedID int        `json:"expectedCategoryId"`
	Expected   string     `json:"expectedCategory"`
	ChosenID   int        `json:"chosenCategoryId"`
	Chosen     string     `json:"chosenCategory"`
	Regions    region.Set `json:"targetRegion"`
}

// Stats is the running tally of a session. Counters only grow.
type Stats struct {
	Score        int                  `json:"score"`
	Hits         int                  `json:"hits"`
	FalseAlarms  int                  `json:"falseAlarms"`
	Categories   map[int]CategoryStat `json:"categoryStats"`
	WrongAnswers []WrongAnswer        `json:"wrongAnswers"`
}

// NewStats returns an empty tally.
func NewStats() *Stats {
	return &Stats{Categories: make(map[int]CategoryStat)}
}

// Evaluate decides an answer. A clean bag is correct only when the clean
// category was chosen, without any click. Any other bag needs the right
// category and at least one click inside its target region.
func Evaluate(expected, chosen, clean int, clickedInside bool) bool {
	if expected == clean {
		return chosen == clean
	}
	return chosen == expected && clickedInside
}

// RecordCorrect counts a correct answer for the expected category.
func (s *Stats) RecordCorrect(expected int) {
	s.Score++
	s.Hits++
	c := s.Categories[expected]
	c.Hits++
	c.Total++
	s.Categories[expected] = c
}

// RecordWrong counts an incorrect answer or a miss and logs it.
func (s *Stats) RecordWrong(w WrongAnswer) {
	s.FalseAlarms++
	c := s.Categories[w.ExpectedID]
	c.Total++
	s.Categories[w.ExpectedID] = c
	s.WrongAnswers = append(s.WrongAnswers, w)
}

// Answered returns the number of items scored so far.
func (s *Stats) Answered() int {
	return s.Hits + s.FalseAlarms
}

// HitRate returns hits as a percentage of answered items.
func (s *Stats) HitRate() float64 {
	if s.Answered() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Answered()) * 100
}

// FalseAlarmRate returns false alarms as a percentage of answered items.
func (s *Stats) FalseAlarmRate() float64 {
	if s.Answered() == 0 {
		return 0
	}
	return float64(s.FalseAlarms) / float64(s.Answered()) * 100
}

// UniqueWrongAnswers returns the wrong-answer log with repeated items
// dropped, keeping each item's first occurrence.
func (s *Stats) UniqueWrongAnswers() []WrongAnswer {
	seen := make(map[int]bool, len(s.WrongAnswers))
	out := make([]WrongAnswer, 0, len(s.WrongAnswers))
	for _, w := range s.WrongAnswers {
		if seen[w.ItemID] {
			continue
		}
		seen[w.ItemID] = true
		out = append(out, w)
	}
	return out
}

// Efficiency returns hits/(hits+falseAlarms) as a percentage rounded to one
// decimal place. It is 0 when nothing was answered.
func Efficiency(hits, falseAlarms int) float64 {
	raw := float64(hits) / (float64(hits+falseAlarms) + epsilon) * 100
	return scalar.Round(raw, 1)
}

// credit tiers, highest first.
var creditTiers = []struct {
	min     float64
	minutes int
}{
	{81, 20},
	{71, 16},
	{61, 14},
	{50, 12},
}

// TimeCredit maps an efficiency percentage to credited training minutes.
func TimeCredit(efficiency float64) int {
	for _, t := range creditTiers {
		if efficiency >= t.min {
			return t.minutes
		}
	}
	return 0
}
