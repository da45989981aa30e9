package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"communityhub/internal/core/domain"
)

// Thresholds configure the snapshot evaluator. A level is reached when
// either the rate or the error ratio meets its threshold.
type Thresholds struct {
	Window        time.Duration
	RPMWarning    int
	RPMCritical   int
	ErrorWarning  float64
	ErrorCritical float64
	TopSources    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:        DefaultWindow,
		RPMWarning:    400,
		RPMCritical:   600,
		ErrorWarning:  0.10,
		ErrorCritical: 0.20,
		TopSources:    5,
	}
}

// Evaluate derives a snapshot from window counts. It has no side effects;
// the disaster mode flag is filled in by the caller.
func Evaluate(counts WindowCounts, now time.Time, th Thresholds) domain.SecuritySnapshot {
	window := th.Window
	if window <= 0 {
		window = DefaultWindow
	}

	rpm := int(math.Round(float64(counts.Requests) / window.Seconds() * 60))

	total, errorsSeen := 0, 0
	for code, n := range counts.Statuses {
		total += n
		if code >= 500 {
			errorsSeen += n
		}
	}
	if total < 1 {
		total = 1
	}
	errorRatio := float64(errorsSeen) / float64(total)

	level := Level(rpm, errorRatio, th)

	var notes []string
	if level != domain.StatusOK {
		if rpm >= th.RPMWarning {
			notes = append(notes, fmt.Sprintf("high traffic (%d/min)", rpm))
		}
		if errorRatio >= th.ErrorWarning {
			notes = append(notes, fmt.Sprintf("high error rate (%.1f%%)", errorRatio*100))
		}
	}

	return domain.SecuritySnapshot{
		Since:            now.Add(-window),
		RPM:              rpm,
		UniqueSources:    len(counts.Sources),
		RequestsInWindow: counts.Requests,
		TotalResponses:   total,
		ErrorRatio:       errorRatio,
		StatusLevel:      level,
		TopSources:       topSources(counts.Sources, th.TopSources),
		Notes:            notes,
	}
}

// Level maps a rate and an error ratio to a status level
func Level(rpm int, errorRatio float64, th Thresholds) domain.StatusLevel {
	switch {
	case rpm >= th.RPMCritical || errorRatio >= th.ErrorCritical:
		return domain.StatusCritical
	case rpm >= th.RPMWarning || errorRatio >= th.ErrorWarning:
		return domain.StatusWarning
	default:
		return domain.StatusOK
	}
}

// topSources expects sources in registration order and keeps it among equal counts
func topSources(sources []domain.SourceCount, n int) []domain.SourceCount {
	sorted := make([]domain.SourceCount, len(sources))
	copy(sorted, sources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func sortBySeq(sources []domain.SourceCount, seqs map[string]uint64) {
	sort.Slice(sources, func(i, j int) bool {
		return seqs[sources[i].Source] < seqs[sources[j].Source]
	})
}
