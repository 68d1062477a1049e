package metrics

import (
	"strings"
	"time"

	"backend-optikick/internal/analysis"
	"backend-optikick/internal/user"
)

// Sample is one recorded observation for a player. Samples are never
// updated after insert.
type Sample struct {
	ID               string    `json:"id"`
	PlayerID         string    `json:"player_id"`
	RestingHR        *float64  `json:"resting_hr"`
	MaxHR            *float64  `json:"max_hr"`
	HRV              *float64  `json:"hrv"`
	VO2Max           *float64  `json:"vo2_max"`
	Weight           *float64  `json:"weight"`
	ReactionTime     *float64  `json:"reaction_time"`
	MatchConsistency *float64  `json:"match_consistency,omitempty"`
	MinutesPlayed    *float64  `json:"minutes_played,omitempty"`
	TrainingHours    *float64  `json:"training_hours,omitempty"`
	InjuryFrequency  *float64  `json:"injury_frequency,omitempty"`
	RecoveryTime     *float64  `json:"recovery_time,omitempty"`
	FatigueScore     *float64  `json:"fatigue_score,omitempty"`
	InjuryRisk       *float64  `json:"injury_risk,omitempty"`
	ReadinessScore   *float64  `json:"readiness_score,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Value returns the sample's reading for an analyzable metric.
func (s Sample) Value(m analysis.MetricType) *float64 {
	switch m {
	case analysis.RestingHR:
		return s.RestingHR
	case analysis.MaxHR:
		return s.MaxHR
	case analysis.HRV:
		return s.HRV
	case analysis.VO2Max:
		return s.VO2Max
	case analysis.Weight:
		return s.Weight
	case analysis.ReactionTime:
		return s.ReactionTime
	}
	return nil
}

type RecordRequest struct {
	PlayerID         string     `json:"player_id" validate:"required"`
	RestingHR        *float64   `json:"resting_hr" validate:"omitempty,gte=0"`
	MaxHR            *float64   `json:"max_hr" validate:"omitempty,gte=0"`
	HRV              *float64   `json:"hrv" validate:"omitempty,gte=0"`
	VO2Max           *float64   `json:"vo2_max" validate:"omitempty,gte=0"`
	Weight           *float64   `json:"weight" validate:"omitempty,gte=0"`
	ReactionTime     *float64   `json:"reaction_time" validate:"omitempty,gte=0"`
	MatchConsistency *float64   `json:"match_consistency" validate:"omitempty,gte=0,lte=100"`
	MinutesPlayed    *float64   `json:"minutes_played" validate:"omitempty,gte=0"`
	TrainingHours    *float64   `json:"training_hours" validate:"omitempty,gte=0"`
	InjuryFrequency  *float64   `json:"injury_frequency" validate:"omitempty,gte=0"`
	RecoveryTime     *float64   `json:"recovery_time" validate:"omitempty,gte=0"`
	FatigueScore     *float64   `json:"fatigue_score" validate:"omitempty,gte=0,lte=100"`
	InjuryRisk       *float64   `json:"injury_risk" validate:"omitempty,gte=0,lte=100"`
	ReadinessScore   *float64   `json:"readiness_score" validate:"omitempty,gte=0,lte=100"`
	RecordedAt       *time.Time `json:"recorded_at"`
}

// Reading is a single metric value with its unit and clock time.
type Reading struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
	Time  string   `json:"time"`
}

// Vitals is a sample rendered for dashboards, keyed by metric type.
type Vitals struct {
	ID       string                          `json:"id"`
	Readings map[analysis.MetricType]Reading `json:"readings"`
}

const clockLayout = "3:04 pm"

func NewVitals(s Sample, metrics ...analysis.MetricType) Vitals {
	if len(metrics) == 0 {
		metrics = analysis.MetricTypes
	}
	v := Vitals{ID: s.ID, Readings: make(map[analysis.MetricType]Reading, len(metrics))}
	clock := s.CreatedAt.Format(clockLayout)
	for _, m := range metrics {
		v.Readings[m] = Reading{Value: s.Value(m), Unit: m.Unit(), Time: clock}
	}
	return v
}

// Period selects how far back a metric detail view looks.
type Period string

const (
	Daily      Period = "D"
	Weekly     Period = "W"
	Monthly    Period = "M"
	SixMonthly Period = "6M"
)

var (
	AllPeriods    = []Period{Daily, Weekly, Monthly, SixMonthly}
	DoctorPeriods = []Period{Weekly, Monthly, SixMonthly}
)

// ParsePeriod returns def for an empty or disallowed value.
func ParsePeriod(raw string, allowed []Period, def Period) Period {
	p := Period(strings.ToUpper(strings.TrimSpace(raw)))
	for _, a := range allowed {
		if p == a {
			return p
		}
	}
	return def
}

// Since is the start of the window ending at now.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case Weekly:
		return now.AddDate(0, 0, -28)
	case Monthly:
		return now.AddDate(0, -1, 0)
	case SixMonthly:
		return now.AddDate(0, -6, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

type GraphPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type Detail struct {
	Player     user.Summary        `json:"player"`
	MetricType analysis.MetricType `json:"metric_type"`
	Period     Period              `json:"period"`
	GraphData  []GraphPoint        `json:"graph_data"`
	Highlights []string            `json:"highlights"`
	Trend      *analysis.Slope     `json:"trend"`
	Peak       *analysis.Extreme   `json:"peak,omitempty"`
	Lowest     *analysis.Extreme   `json:"lowest,omitempty"`
}
