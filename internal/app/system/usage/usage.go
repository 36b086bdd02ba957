// Package usage derives the registration and activity figures shown on
// the dashboard and analytics pages from app-user summaries.
package usage

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
)

const day = 24 * time.Hour

// Point is one bar of a chart.
type Point struct {
	Label string
	Users int
}

// PlatformShare is one row of the platform split.
type PlatformShare struct {
	Platform   string
	Users      int
	Percentage int
}

// Summary holds every figure derived from the user list.
type Summary struct {
	Total     int
	Active24h int
	IOS       PlatformShare
	Android   PlatformShare
	// Daily is the last seven days of sign-ups, oldest first, labelled by
	// short weekday.
	Daily []Point
	// Weekly is the last four weeks of sign-ups, oldest first.
	Weekly []Point
	// NewLast30 counts sign-ups in the last 30 days.
	NewLast30 int
	// Growth is NewLast30 as a percentage of the users who existed before.
	Growth float64
}

// GrowthLabel renders Growth as "+12.5%" or "0.0%".
func (s Summary) GrowthLabel() string {
	if s.Growth > 0 {
		return fmt.Sprintf("+%.1f%%", s.Growth)
	}
	return fmt.Sprintf("%.1f%%", s.Growth)
}

// Summarize computes the figures as of now.
func Summarize(users []models.AppUser, now time.Time) Summary {
	s := Summary{Total: len(users)}

	dailyStart := startOfDay(now).Add(-6 * day)
	s.Daily = make([]Point, 7)
	for i := range s.Daily {
		s.Daily[i].Label = dailyStart.Add(time.Duration(i) * day).Format("Mon")
	}
	s.Weekly = []Point{{Label: "Week 1"}, {Label: "Week 2"}, {Label: "Week 3"}, {Label: "Week 4"}}

	var ios, android int
	for _, u := range users {
		if u.LastActive.Valid && !u.LastActive.Time.Before(now.Add(-day)) {
			s.Active24h++
		}

		switch strings.ToLower(u.Platform) {
		case models.PlatformIOS:
			ios++
		case models.PlatformAndroid:
			android++
		}

		if !u.CreatedAt.Valid {
			continue
		}
		created := u.CreatedAt.Time
		if created.After(now) {
			continue
		}

		if !created.Before(dailyStart) {
			idx := int(startOfDay(created).Sub(dailyStart) / day)
			if idx >= 0 && idx < 7 {
				s.Daily[idx].Users++
			}
		}

		age := now.Sub(created)
		switch {
		case age <= 7*day:
			s.Weekly[3].Users++
		case age <= 14*day:
			s.Weekly[2].Users++
		case age <= 21*day:
			s.Weekly[1].Users++
		case age <= 28*day:
			s.Weekly[0].Users++
		}

		if age <= 30*day {
			s.NewLast30++
		}
	}

	totalPlatforms := ios + android
	if totalPlatforms == 0 {
		totalPlatforms = 1
	}
	s.IOS = PlatformShare{Platform: "iOS", Users: ios, Percentage: percent(ios, totalPlatforms)}
	s.Android = PlatformShare{Platform: "Android", Users: android, Percentage: percent(android, totalPlatforms)}

	prev := s.Total - s.NewLast30
	switch {
	case prev > 0:
		s.Growth = float64(s.NewLast30) / float64(prev) * 100
	case s.NewLast30 > 0:
		s.Growth = 100
	}
	return s
}

// Platforms returns the platform split in display order.
func (s Summary) Platforms() []PlatformShare {
	return []PlatformShare{s.IOS, s.Android}
}

// MaxDaily is the tallest daily bar, at least 1, for chart scaling.
func (s Summary) MaxDaily() int { return maxUsers(s.Daily) }

// MaxWeekly is the tallest weekly bar, at least 1.
func (s Summary) MaxWeekly() int { return maxUsers(s.Weekly) }

// Bar is a Point scaled for a CSS bar chart.
type Bar struct {
	Point
	// Height is the bar height as a percentage of the tallest bar.
	Height int
}

// Bars scales points against the tallest one.
func Bars(ps []Point) []Bar {
	m := maxUsers(ps)
	out := make([]Bar, len(ps))
	for i, p := range ps {
		out[i] = Bar{Point: p, Height: percent(p.Users, m)}
	}
	return out
}

// DailyBars returns Daily scaled for a chart.
func (s Summary) DailyBars() []Bar { return Bars(s.Daily) }

// WeeklyBars returns Weekly scaled for a chart.
func (s Summary) WeeklyBars() []Bar { return Bars(s.Weekly) }

func maxUsers(ps []Point) int {
	m := 1
	for _, p := range ps {
		if p.Users > m {
			m = p.Users
		}
	}
	return m
}

func percent(n, of int) int {
	return int(math.Round(float64(n) / float64(of) * 100))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TimeAgo renders a past time as "3 days ago", "Just now", etc.
func TimeAgo(t, now time.Time) string {
	secs := now.Sub(t).Seconds()
	units := []struct {
		secs float64
		name string
	}{
		{31536000, "years"},
		{2592000, "months"},
		{86400, "days"},
		{3600, "hours"},
		{60, "minutes"},
	}
	for _, u := range units {
		if v := secs / u.secs; v > 1 {
			return fmt.Sprintf("%d %s ago", int(v), u.name)
		}
	}
	return "Just now"
}
