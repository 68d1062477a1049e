// Package analysis derives trend insights from a player's metric history.
package analysis

import (
	"fmt"
	"math"
	"strconv"
)

const NoDataHighlight = "No metrics data available for the specified period."

const (
	restingHRAlertBPM  = 70
	maxHRAlertBPM      = 190
	weightSwingKg      = 2
	reactionWindowDays = 2
)

// Analyze computes trend, extremes and highlight sentences for values
// ordered oldest first. Days are 1-based positions in values.
func Analyze(values []float64, metric MetricType) Result {
	if len(values) == 0 {
		return Result{Highlights: []string{NoDataHighlight}}
	}

	slope := Trend(values)
	peak := extreme(values, func(a, b float64) bool { return a > b })
	lowest := extreme(values, func(a, b float64) bool { return a < b })

	s := Slope(slope)
	return Result{
		Highlights: highlights(metric, slope, peak, lowest),
		Trend:      &s,
		Peak:       &peak,
		Lowest:     &lowest,
	}
}

// Trend is the ordinary least-squares slope of values against x = 1..n.
func Trend(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	meanX := float64(n+1) / 2
	var sumY float64
	for _, v := range values {
		sumY += v
	}
	meanY := sumY / float64(n)

	var num, den float64
	for i, v := range values {
		dx := float64(i+1) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// extreme returns the first value for which better holds against all
// earlier candidates.
func extreme(values []float64, better func(a, b float64) bool) Extreme {
	e := Extreme{Value: values[0], Day: 1}
	for i, v := range values[1:] {
		if better(v, e.Value) {
			e = Extreme{Value: v, Day: i + 2}
		}
	}
	return e
}

func direction(slope float64) string {
	switch {
	case slope > 0:
		return "increase"
	case slope < 0:
		return "decrease"
	default:
		return "stable"
	}
}

func highlights(metric MetricType, slope float64, peak, lowest Extreme) []string {
	p, l := num(peak.Value), num(lowest.Value)
	rising := slope > 0

	switch metric {
	case ReactionTime:
		out := []string{
			fmt.Sprintf("Day %d had the slowest reaction time (%s ms), possibly due to fatigue or stress.", peak.Day, p),
			fmt.Sprintf("Day %d had the fastest reaction time (%s ms).", lowest.Day, l),
			pick(rising,
				"Reaction time worsens over time, indicating rising fatigue or external stressors.",
				"Reaction time improves over the period, showing good adaptation."),
		}
		if absInt(peak.Day-lowest.Day) <= reactionWindowDays {
			out = append(out, "Notable fluctuation occurred in a short window.")
		}
		return out

	case Weight:
		change := math.Abs(peak.Value - lowest.Value)
		out := []string{
			fmt.Sprintf("Weight %s of %s kg observed.", direction(slope), num(change)),
			fmt.Sprintf("Heaviest on Day %d (%s kg), lightest on Day %d (%s kg).", peak.Day, p, lowest.Day, l),
		}
		if change > weightSwingKg {
			out = append(out, "Significant fluctuation may reflect changes in hydration, diet, or training.")
		}
		return out

	case MaxHR:
		out := []string{
			fmt.Sprintf("Highest Max HR on Day %d (%s bpm), lowest on Day %d (%s bpm).", peak.Day, p, lowest.Day, l),
			pick(rising,
				"Increasing trend may indicate higher training intensity or stress.",
				"Decreasing trend suggests potential fatigue or better recovery."),
		}
		if peak.Value > maxHRAlertBPM {
			out = append(out, "HR above 190 bpm may signal intense effort or stress.")
		}
		return out

	case RestingHR:
		out := []string{
			fmt.Sprintf("Resting HR peaked at %s bpm (Day %d), lowest was %s bpm (Day %d).", p, peak.Day, l, lowest.Day),
			pick(rising,
				"Rising resting HR may indicate poor recovery or stress.",
				"Decreasing trend points to improved recovery."),
		}
		if peak.Value > restingHRAlertBPM {
			out = append(out, "Elevated resting HR might be due to overtraining, illness, or poor sleep.")
		}
		return out

	case HRV:
		return []string{
			fmt.Sprintf("HRV ranged from %s ms (Day %d) to %s ms (Day %d).", l, lowest.Day, p, peak.Day),
			pick(rising,
				"Increasing HRV trend suggests improved recovery and nervous system balance.",
				"Declining HRV could indicate fatigue, stress, or overtraining."),
		}

	case VO2Max:
		return []string{
			fmt.Sprintf("VO2 Max was highest on Day %d (%s ml/kg/min), lowest on Day %d (%s ml/kg/min).", peak.Day, p, lowest.Day, l),
			pick(rising,
				"VO2 Max improvement implies better aerobic capacity.",
				"Decline may indicate fatigue or inadequate training stimulus."),
		}
	}

	return []string{fmt.Sprintf("Metric type '%s' is not recognized.", metric)}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// num renders a stored reading (two decimal places at most) in its
// shortest form: 75, 76.1, 1.1.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
