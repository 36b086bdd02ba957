// Package activityfeed builds the activity timeline and usage stats of
// one app user from the collections the mobile app writes.
//
// All sources are fetched concurrently. Ordering is decided only by the
// final sort, so the result does not depend on which fetch finishes
// first. Any failed source aborts the whole aggregation.
package activityfeed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Type is the category of a timeline record.
type Type string

const (
	Kick            Type = "Kick"
	Contraction     Type = "Contraction"
	Breathing       Type = "Breathing"
	Mood            Type = "Mood"
	Psychoeducation Type = "Psychoeducation"
	Visualization   Type = "Visualization"
)

// Types lists the timeline categories in display order.
var Types = []Type{Kick, Contraction, Breathing, Mood, Psychoeducation, Visualization}

// Icon returns the icon name used by the timeline template.
func (t Type) Icon() string {
	switch t {
	case Kick:
		return "footprints"
	case Contraction:
		return "heart-pulse"
	case Breathing:
		return "wind"
	case Mood:
		return "smile"
	case Psychoeducation:
		return "book-open"
	case Visualization:
		return "eye"
	}
	return "activity"
}

// Record is one timeline entry.
type Record struct {
	ID      string
	Type    Type
	Time    time.Time
	HasTime bool
	Details string
}

// Icon returns the icon name of the record's type.
func (r Record) Icon() string { return r.Type.Icon() }

// Stats are derived per aggregation and never stored.
type Stats struct {
	Kick            int
	Contraction     int
	Breathing       int
	Mood            int
	Psychoeducation int
	Visualization   int
	Feedback        int

	OnlineSeconds  int64
	OfflineSeconds int64
	TotalSeconds   int64
}

// Count returns the number of records of type t.
func (s Stats) Count(t Type) int {
	switch t {
	case Kick:
		return s.Kick
	case Contraction:
		return s.Contraction
	case Breathing:
		return s.Breathing
	case Mood:
		return s.Mood
	case Psychoeducation:
		return s.Psychoeducation
	case Visualization:
		return s.Visualization
	}
	return 0
}

func (s *Stats) add(t Type) {
	switch t {
	case Kick:
		s.Kick++
	case Contraction:
		s.Contraction++
	case Breathing:
		s.Breathing++
	case Mood:
		s.Mood++
	case Psychoeducation:
		s.Psychoeducation++
	case Visualization:
		s.Visualization++
	}
}

// Feed is the result of one aggregation.
type Feed struct {
	Records []Record
	Stats   Stats
}

// Source reads the raw activity collections of one user.
type Source interface {
	Kicks(ctx context.Context, uid string) ([]models.KickEntry, error)
	Contractions(ctx context.Context, uid string) ([]models.ContractionEntry, error)
	BreathingSessions(ctx context.Context, uid string) ([]models.ExerciseSession, error)
	Moods(ctx context.Context, uid string) ([]models.MoodEntry, error)
	ReadChapters(ctx context.Context, uid string) ([]models.ChapterRead, error)
	VisualizationSessions(ctx context.Context, uid string) ([]models.ExerciseSession, error)
	VisualizationLogs(ctx context.Context, uid string) ([]models.ExerciseSession, error)
	AppSessions(ctx context.Context, uid string) ([]models.AppSession, error)
}

// Source names reported in AggregationError.
const (
	SourceKicks                 = "kicks"
	SourceContractions          = "contractions"
	SourceBreathing             = "breathing_sessions"
	SourceMoods                 = "moods"
	SourceChapters              = "read_chapters"
	SourceVisualizationSessions = "visualization_sessions"
	SourceVisualizationLogs     = "activity_logs"
	SourceAppSessions           = "app_sessions"
)

// AggregationError names the source whose fetch failed.
type AggregationError struct {
	Source string
	Err    error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("activity source %s: %v", e.Source, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Aggregator fans out over a Source.
type Aggregator struct {
	src Source
	log *zap.Logger
}

// New creates an Aggregator.
func New(src Source, log *zap.Logger) *Aggregator {
	return &Aggregator{src: src, log: log}
}

// Aggregate fetches every source for uid and returns the merged timeline,
// newest first, with stats. The whole fan-out shares one deadline.
func (a *Aggregator) Aggregate(ctx context.Context, uid string) (Feed, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Aggregate(), a.log, "activity aggregation")
	defer cancel()

	// One slot per timeline source, filled in fixed order so the merge
	// input is the same however the fetches interleave.
	var (
		kicks, contractions, breathing, moods []Record
		chapters, vizSessions, vizLogs        []Record
		feedback                              int
		sessions                              []models.AppSession
	)

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(source string, fn func(context.Context) error) {
		g.Go(func() error {
			if err := fn(gctx); err != nil {
				return &AggregationError{Source: source, Err: err}
			}
			return nil
		})
	}

	fetch(SourceKicks, func(ctx context.Context) error {
		rows, err := a.src.Kicks(ctx, uid)
		kicks = mapRecords(rows, kickRecord)
		return err
	})
	fetch(SourceContractions, func(ctx context.Context) error {
		rows, err := a.src.Contractions(ctx, uid)
		contractions = mapRecords(rows, contractionRecord)
		return err
	})
	fetch(SourceBreathing, func(ctx context.Context) error {
		rows, err := a.src.BreathingSessions(ctx, uid)
		breathing = mapRecords(rows, exerciseRecord(Breathing))
		return err
	})
	fetch(SourceMoods, func(ctx context.Context) error {
		rows, err := a.src.Moods(ctx, uid)
		moods = mapRecords(rows, moodRecord)
		return err
	})
	fetch(SourceChapters, func(ctx context.Context) error {
		rows, err := a.src.ReadChapters(ctx, uid)
		chapters = mapRecords(rows, chapterRecord)
		for _, c := range rows {
			if c.Rating != 0 {
				feedback++
			}
		}
		return err
	})
	fetch(SourceVisualizationSessions, func(ctx context.Context) error {
		rows, err := a.src.VisualizationSessions(ctx, uid)
		vizSessions = mapRecords(rows, exerciseRecord(Visualization))
		return err
	})
	fetch(SourceVisualizationLogs, func(ctx context.Context) error {
		rows, err := a.src.VisualizationLogs(ctx, uid)
		vizLogs = mapRecords(rows, exerciseRecord(Visualization))
		return err
	})
	fetch(SourceAppSessions, func(ctx context.Context) error {
		var err error
		sessions, err = a.src.AppSessions(ctx, uid)
		return err
	})

	if err := g.Wait(); err != nil {
		a.log.Warn("activity aggregation failed", zap.String("uid", uid), zap.Error(err))
		return Feed{}, err
	}

	var merged []Record
	for _, part := range [][]Record{kicks, contractions, breathing, moods, chapters, vizSessions, vizLogs} {
		merged = append(merged, part...)
	}
	SortRecords(merged)

	var stats Stats
	for _, r := range merged {
		stats.add(r.Type)
	}
	stats.Feedback = feedback
	for _, s := range sessions {
		if s.IsOnline() {
			stats.OnlineSeconds += int64(s.DurationSeconds)
		} else {
			stats.OfflineSeconds += int64(s.DurationSeconds)
		}
		stats.TotalSeconds += int64(s.DurationSeconds)
	}

	return Feed{Records: merged, Stats: stats}, nil
}

// SortRecords orders records newest first. Records without a resolvable
// time go last; equal keys keep their input order.
func SortRecords(rs []Record) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.HasTime != b.HasTime {
			return a.HasTime
		}
		return a.Time.After(b.Time)
	})
}

func mapRecords[T any](rows []T, fn func(T) Record) []Record {
	if len(rows) == 0 {
		return nil
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = fn(row)
	}
	return out
}

func newRecord(id models.DocID, t Type, times models.EventTimes, details string) Record {
	ts, ok := times.Resolve()
	return Record{ID: string(id), Type: t, Time: ts, HasTime: ok, Details: details}
}

func kickRecord(k models.KickEntry) Record {
	return newRecord(k.ID, Kick, k.EventTimes, KickDetails(k.KickCount.Int()))
}

func contractionRecord(c models.ContractionEntry) Record {
	return newRecord(c.ID, Contraction, c.EventTimes, ContractionDetails(c.DurationSeconds.Int()))
}

func exerciseRecord(t Type) func(models.ExerciseSession) Record {
	return func(s models.ExerciseSession) Record {
		return newRecord(s.ID, t, s.EventTimes, SessionDetails(s.DurationMs.Int64Ptr(), s.Details))
	}
}

func moodRecord(m models.MoodEntry) Record {
	return newRecord(m.ID, Mood, m.EventTimes, MoodDetails(m.Emoji, m.Emotion))
}

func chapterRecord(c models.ChapterRead) Record {
	chapter := c.Chapter
	if chapter == "" {
		chapter = string(c.ID)
	}
	return newRecord(c.ID, Psychoeducation, c.EventTimes, ChapterDetails(chapter, c.Rating.Int()))
}
