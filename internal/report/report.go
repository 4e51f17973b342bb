// Package report renders a finished session for people: a plain-text
// summary for the terminal and an HTML radar chart of per-category hit rates.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"xray-cbt/internal/scoring"
)

// Names resolves a category id to a display name.
type Names func(id int) string

func namesFor(s scoring.Summary, names Names) Names {
	return func(id int) string {
		if names != nil {
			if n := names(id); n != "" && !strings.HasPrefix(n, "#") {
				return n
			}
		}
		if n, ok := s.CategoryNames[id]; ok {
			return n
		}
		if id == 0 {
			return "N/A"
		}
		return fmt.Sprintf("#%d", id)
	}
}

func sortedIDs(stats map[int]scoring.CategoryStat) []int {
	ids := make([]int, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Text writes a human-readable summary. names may be nil, in which case the
// names captured in the summary are used.
func Text(w io.Writer, s scoring.Summary, names Names) error {
	name := namesFor(s, names)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Session %s (%s)\n", s.SessionID, s.EndReason)
	if s.Operator != "" {
		fmt.Fprintf(&buf, "Operator:     %s\n", s.Operator)
	}
	fmt.Fprintf(&buf, "Area:         %d  category %s\n", s.Area, s.Category)
	fmt.Fprintf(&buf, "Time used:    %s\n", (time.Duration(s.TimeUsed) * time.Second).Round(time.Second))
	fmt.Fprintf(&buf, "Score:        %d\n", s.Score)
	fmt.Fprintf(&buf, "Hits:         %d\n", s.Hits)
	fmt.Fprintf(&buf, "False alarms: %d\n", s.FalseAlarms)
	fmt.Fprintf(&buf, "Efficiency:   %.1f%%  (time credit %d min)\n", s.Efficiency, s.TimeCredit)

	if len(s.CategoryStats) > 0 {
		buf.WriteString("\n")
		tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\tHITS\tTOTAL\tRATE")
		for _, id := range sortedIDs(s.CategoryStats) {
			c := s.CategoryStats[id]
			fmt.Fprintf(tw, "%s\t%d\t%d\t%.0f%%\n", name(id), c.Hits, c.Total, c.Rate()*100)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(s.WrongAnswers) > 0 {
		fmt.Fprintf(&buf, "\nWrong answers (%d):\n", len(s.WrongAnswers))
		for _, wa := range s.WrongAnswers {
			expected, chosen := wa.Expected, wa.Chosen
			if expected == "" {
				expected = name(wa.ExpectedID)
			}
			if chosen == "" {
				chosen = name(wa.ChosenID)
			}
			fmt.Fprintf(&buf, "  %-12s expected %-16s chose %s\n", wa.Code, expected, chosen)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Radar writes a standalone HTML page with a radar chart of the hit rate
// per category.
func Radar(w io.Writer, s scoring.Summary, names Names) error {
	name := namesFor(s, names)
	ids := sortedIDs(s.CategoryStats)

	indicators := make([]*opts.Indicator, 0, len(ids))
	values := make([]float32, 0, len(ids))
	for _, id := range ids {
		indicators = append(indicators, &opts.Indicator{Name: name(id), Max: 100})
		values = append(values, float32(s.CategoryStats[id].Rate()*100))
	}

	radar := charts.NewRadar()
	radar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Training Result", Width: "720px", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Hit rate by category",
			Subtitle: fmt.Sprintf("session=%s score=%d efficiency=%.1f%%", s.SessionID, s.Score, s.Efficiency),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithRadarComponentOpts(opts.RadarComponent{
			Indicator:   indicators,
			Shape:       "polygon",
			SplitNumber: 5,
		}),
	)
	radar.AddSeries("hit rate", []opts.RadarData{{Name: "hit rate %", Value: values}})

	var buf bytes.Buffer
	if err := radar.Render(&buf); err != nil {
		return fmt.Errorf("failed to render radar chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
