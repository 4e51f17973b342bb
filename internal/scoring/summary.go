package scoring

import (
	"time"
)

// EndReason tells why a session finished.
type EndReason string

const (
	EndTimeout EndReason = "timeout"
	EndAbort   EndReason = "abort"
	EndAFK     EndReason = "afk"
)

// Summary is the end-of-session result: what gets submitted and what the
// results screen shows.
type Summary struct {
	SessionID     string               `json:"sessionId"`
	Operator      string               `json:"operator,omitempty"`
	Area          int                  `json:"areaId"`
	Category      string               `json:"category"`
	Score         int                  `json:"score"`
	Hits          int                  `json:"hits"`
	FalseAlarms   int                  `json:"falseAlarms"`
	Efficiency    float64              `json:"efficiency"`
	TimeCredit    int                  `json:"timeCredit"`
	CategoryStats map[int]CategoryStat `json:"categoryStats"`
	CategoryNames map[int]string       `json:"categoryNames,omitempty"`
	WrongAnswers  []WrongAnswer        `json:"wrongAnswers"`
	EndReason     EndReason            `json:"endReason"`
	StartedAt     time.Time            `json:"startedAt"`
	EndedAt       time.Time            `json:"endedAt"`
	TimeUsed      float64              `json:"timeUsed"` // seconds
}

// Summarize freezes the tally into a summary. Wrong answers are deduplicated
// by item.
func (s *Stats) Summarize(reason EndReason, started, ended time.Time) Summary {
	cats := make(map[int]CategoryStat, len(s.Categories))
	for id, c := range s.Categories {
		cats[id] = c
	}
	eff := Efficiency(s.Hits, s.FalseAlarms)
	return Summary{
		Score:         s.Score,
		Hits:          s.Hits,
		FalseAlarms:   s.FalseAlarms,
		Efficiency:    eff,
		TimeCredit:    TimeCredit(eff),
		CategoryStats: cats,
		WrongAnswers:  s.UniqueWrongAnswers(),
		EndReason:     reason,
		StartedAt:     started,
		EndedAt:       ended,
		TimeUsed:      ended.Sub(started).Seconds(),
	}
}
