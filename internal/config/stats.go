package config

import (
	"math"
	"time"
)

// UsageStats holds the running usage counters persisted with the settings.
type UsageStats struct {
	TotalMinutes    float64  `json:"total_minutes"`
	TotalRequests   int      `json:"total_requests"`
	SessionMinutes  float64  `json:"session_minutes"`
	SessionRequests int      `json:"session_requests"`
	TotalWords      int      `json:"total_words"`
	FirstUseDate    string   `json:"first_use_date,omitempty"`
	LastUseDate     string   `json:"last_use_date,omitempty"`
	ActiveDays      []string `json:"active_days"`
}

const dateLayout = "2006-01-02"

// Pricing used for the cost estimate, in USD.
const (
	TranscriptionCostPerMinute = 0.006
	EnhancementCostPerRequest  = 0.0003
)

// Add records one completed transcription.
func (s *UsageStats) Add(d time.Duration, words int, now time.Time) {
	if d < 0 {
		d = 0
	}
	if words < 0 {
		words = 0
	}
	minutes := d.Minutes()
	s.TotalMinutes += minutes
	s.TotalRequests++
	s.SessionMinutes += minutes
	s.SessionRequests++
	s.TotalWords += words

	today := now.Format(dateLayout)
	if s.FirstUseDate == "" {
		s.FirstUseDate = today
	}
	s.LastUseDate = today
	for _, d := range s.ActiveDays {
		if d == today {
			return
		}
	}
	s.ActiveDays = append(s.ActiveDays, today)
}

func (s *UsageStats) ResetSession() {
	s.SessionMinutes = 0
	s.SessionRequests = 0
}

// Cost is an estimate of API spend.
type Cost struct {
	Transcription float64
	Enhancement   float64
	Total         float64
}

// EstimatedCost prices the accumulated usage. Enhancement is only charged
// when it is enabled.
func (s UsageStats) EstimatedCost(enhance bool) Cost {
	c := Cost{Transcription: round4(s.TotalMinutes * TranscriptionCostPerMinute)}
	if enhance {
		c.Enhancement = round4(float64(s.TotalRequests) * EnhancementCostPerRequest)
	}
	c.Total = round4(c.Transcription + c.Enhancement)
	return c
}

// WeeksActive counts distinct ISO weeks with at least one transcription.
func (s UsageStats) WeeksActive() int {
	weeks := make(map[[2]int]struct{})
	for _, d := range s.ActiveDays {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			continue
		}
		y, w := t.ISOWeek()
		weeks[[2]int{y, w}] = struct{}{}
	}
	return len(weeks)
}

// WordsPerMinute estimates dictation speed from the totals.
func (s UsageStats) WordsPerMinute() int {
	if s.TotalMinutes == 0 {
		return 0
	}
	return int(math.Round(float64(s.TotalWords) / s.TotalMinutes))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
