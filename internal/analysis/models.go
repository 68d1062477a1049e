package analysis

import (
	"encoding/json"
	"math"
)

type MetricType string

const (
	ReactionTime MetricType = "reaction_time"
	Weight       MetricType = "weight"
	MaxHR        MetricType = "max_hr"
	RestingHR    MetricType = "resting_hr"
	HRV          MetricType = "hrv"
	VO2Max       MetricType = "vo2_max"
)

// MetricTypes lists the analyzable metrics in display order.
var MetricTypes = []MetricType{RestingHR, MaxHR, HRV, VO2Max, Weight, ReactionTime}

func (m MetricType) Valid() bool {
	switch m {
	case ReactionTime, Weight, MaxHR, RestingHR, HRV, VO2Max:
		return true
	}
	return false
}

func (m MetricType) Unit() string {
	switch m {
	case RestingHR, MaxHR:
		return "bpm"
	case HRV, ReactionTime:
		return "ms"
	case VO2Max:
		return "ml/kg/min"
	case Weight:
		return "kg"
	}
	return ""
}

// Slope is a least-squares slope. It is kept at full precision and
// rendered with four decimals.
type Slope float64

func (s Slope) MarshalJSON() ([]byte, error) {
	return json.Marshal(math.Round(float64(s)*10000) / 10000)
}

type Extreme struct {
	Value float64 `json:"value"`
	Day   int     `json:"day"`
}

// Result is the output of Analyze. Trend, Peak and Lowest are nil when the
// input was empty.
type Result struct {
	Highlights []string `json:"highlights"`
	Trend      *Slope   `json:"trend,omitempty"`
	Peak       *Extreme `json:"peak,omitempty"`
	Lowest     *Extreme `json:"lowest,omitempty"`
}

func (r Result) HasData() bool { return r.Trend != nil }
