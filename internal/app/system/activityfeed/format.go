package activityfeed

import (
	"fmt"
	"strings"
)

var feedbackLabels = map[int]string{
	1: "Not useful at all 😞",
	2: "Slightly useful 😐",
	3: "Moderately useful 🙂",
	4: "Very useful 😀",
	5: "Extremely useful 🤩",
}

// FeedbackLabel returns the label for a chapter rating.
func FeedbackLabel(rating int) string {
	if l, ok := feedbackLabels[rating]; ok {
		return l
	}
	return fmt.Sprintf("%d Stars", rating)
}

// KickDetails formats a kick-counting session.
func KickDetails(count int) string {
	return fmt.Sprintf("%d kicks recorded", count)
}

// ContractionDetails formats a timed contraction.
func ContractionDetails(seconds int) string {
	return fmt.Sprintf("Duration: %ds", seconds)
}

// SessionDetails formats a breathing or visualization session from its
// duration, falling back to the stored details text.
func SessionDetails(durationMs *int64, details string) string {
	if durationMs != nil {
		ms := *durationMs
		return fmt.Sprintf("Session: %dm %ds", ms/60000, (ms%60000)/1000)
	}
	if details != "" {
		return details
	}
	return "Session completed"
}

// MoodDetails formats a mood check-in.
func MoodDetails(emoji, emotion string) string {
	return emoji + " " + emotion
}

// ChapterDetails formats a chapter read, e.g. "chapter3" becomes
// "Read Chapter 3", with the feedback label appended when rated.
func ChapterDetails(chapter string, rating int) string {
	s := "Read " + strings.Replace(chapter, "chapter", "Chapter ", 1)
	if rating != 0 {
		s += " • Feedback: " + FeedbackLabel(rating)
	}
	return s
}

// FormatDuration renders seconds for the stats cards: "0m", "Mm" or "Hh Mm".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0m"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
