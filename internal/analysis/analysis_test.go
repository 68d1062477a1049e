package analysis

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestAnalyzeReactionTime(t *testing.T) {
	res := Analyze([]float64{200, 180, 220, 190, 210}, ReactionTime)

	if res.Peak.Value != 220 || res.Peak.Day != 3 {
		t.Fatalf("unexpected peak: %+v", res.Peak)
	}
	if res.Lowest.Value != 180 || res.Lowest.Day != 2 {
		t.Fatalf("unexpected lowest: %+v", res.Lowest)
	}
	joined := strings.Join(res.Highlights, " ")
	for _, want := range []string{
		"Day 3 had the slowest reaction time (220 ms)",
		"Day 2 had the fastest reaction time (180 ms)",
		"Reaction time worsens over time",
		"Notable fluctuation occurred in a short window.",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
}

func TestAnalyzeWeight(t *testing.T) {
	res := Analyze([]float64{75.5, 75.2, 76.1, 75.8, 75.0}, Weight)

	if res.Peak.Value != 76.1 || res.Peak.Day != 3 {
		t.Fatalf("unexpected peak: %+v", res.Peak)
	}
	if res.Lowest.Value != 75.0 || res.Lowest.Day != 5 {
		t.Fatalf("unexpected lowest: %+v", res.Lowest)
	}
	want := []string{
		"Weight decrease of 1.1 kg observed.",
		"Heaviest on Day 3 (76.1 kg), lightest on Day 5 (75 kg).",
	}
	if !reflect.DeepEqual(res.Highlights, want) {
		t.Fatalf("unexpected highlights: %q", res.Highlights)
	}
}

func TestAnalyzeWeightSwing(t *testing.T) {
	res := Analyze([]float64{70, 73}, Weight)
	if len(res.Highlights) != 3 || !strings.Contains(res.Highlights[2], "hydration, diet, or training") {
		t.Fatalf("expected swing highlight: %q", res.Highlights)
	}
	if res.Highlights[0] != "Weight increase of 3 kg observed." {
		t.Fatalf("unexpected first highlight: %q", res.Highlights[0])
	}
}

func TestAnalyzeThresholds(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		metric MetricType
		want   string
		absent bool
	}{
		{"resting hr elevated", []float64{60, 72}, RestingHR, "Elevated resting HR might be due to overtraining", false},
		{"resting hr at limit", []float64{60, 70}, RestingHR, "Elevated resting HR", true},
		{"max hr intense", []float64{185, 195}, MaxHR, "HR above 190 bpm may signal intense effort or stress.", false},
		{"max hr at limit", []float64{185, 190}, MaxHR, "HR above 190", true},
		{"reaction close together", []float64{300, 250, 260, 270, 280, 290}, ReactionTime, "Notable fluctuation", false},
		{"reaction window exceeded", []float64{250, 260, 270, 300}, ReactionTime, "Notable fluctuation", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			joined := strings.Join(Analyze(tc.values, tc.metric).Highlights, " ")
			if got := strings.Contains(joined, tc.want); got == tc.absent {
				t.Fatalf("contains(%q) = %v in %q", tc.want, got, joined)
			}
		})
	}
}

func TestAnalyzeTrendSentences(t *testing.T) {
	up := []float64{1, 2, 3}
	down := []float64{3, 2, 1}
	cases := []struct {
		metric   MetricType
		up, down string
	}{
		{MaxHR, "Increasing trend may indicate higher training intensity", "Decreasing trend suggests potential fatigue"},
		{RestingHR, "Rising resting HR may indicate poor recovery", "Decreasing trend points to improved recovery."},
		{HRV, "Increasing HRV trend suggests improved recovery", "Declining HRV could indicate fatigue"},
		{VO2Max, "VO2 Max improvement implies better aerobic capacity.", "Decline may indicate fatigue or inadequate training stimulus."},
		{ReactionTime, "Reaction time worsens over time", "Reaction time improves over the period"},
	}
	for _, tc := range cases {
		if joined := strings.Join(Analyze(up, tc.metric).Highlights, " "); !strings.Contains(joined, tc.up) {
			t.Fatalf("%s up: expected %q in %q", tc.metric, tc.up, joined)
		}
		if joined := strings.Join(Analyze(down, tc.metric).Highlights, " "); !strings.Contains(joined, tc.down) {
			t.Fatalf("%s down: expected %q in %q", tc.metric, tc.down, joined)
		}
	}
}

func TestAnalyzeHRVAndVO2Templates(t *testing.T) {
	hrv := Analyze([]float64{55.5, 48, 62}, HRV)
	if hrv.Highlights[0] != "HRV ranged from 48 ms (Day 2) to 62 ms (Day 3)." {
		t.Fatalf("unexpected hrv highlight: %q", hrv.Highlights[0])
	}
	vo2 := Analyze([]float64{50.25, 52}, VO2Max)
	if vo2.Highlights[0] != "VO2 Max was highest on Day 2 (52 ml/kg/min), lowest on Day 1 (50.25 ml/kg/min)." {
		t.Fatalf("unexpected vo2 highlight: %q", vo2.Highlights[0])
	}
}

func TestAnalyzeUnknownMetric(t *testing.T) {
	res := Analyze([]float64{10, 20, 30}, MetricType("unknown_metric"))
	if len(res.Highlights) != 1 || res.Highlights[0] != "Metric type 'unknown_metric' is not recognized." {
		t.Fatalf("unexpected highlights: %q", res.Highlights)
	}
	if !res.HasData() {
		t.Fatalf("expected numeric fields for unknown metric")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	for _, m := range append(MetricTypes, MetricType("bogus")) {
		res := Analyze(nil, m)
		if !reflect.DeepEqual(res, Result{Highlights: []string{NoDataHighlight}}) {
			t.Fatalf("%s: unexpected empty result %+v", m, res)
		}
		raw, _ := json.Marshal(res)
		if string(raw) != `{"highlights":["No metrics data available for the specified period."]}` {
			t.Fatalf("%s: unexpected json %s", m, raw)
		}
	}
}

func TestAnalyzeSingleSample(t *testing.T) {
	res := Analyze([]float64{64}, RestingHR)
	if float64(*res.Trend) != 0 {
		t.Fatalf("expected zero trend")
	}
	if *res.Peak != (Extreme{Value: 64, Day: 1}) || *res.Lowest != (Extreme{Value: 64, Day: 1}) {
		t.Fatalf("unexpected extremes: %+v %+v", res.Peak, res.Lowest)
	}
}

func TestTrendDirection(t *testing.T) {
	if Trend([]float64{1, 2, 4, 8, 9}) <= 0 {
		t.Fatalf("expected positive trend for increasing sequence")
	}
	if Trend([]float64{9, 7, 6, 2}) >= 0 {
		t.Fatalf("expected negative trend for decreasing sequence")
	}
	if Trend([]float64{5, 5, 5, 5}) != 0 {
		t.Fatalf("expected zero trend for constant sequence")
	}
	if got := Trend([]float64{10, 20, 30, 40, 50}); got != 10 {
		t.Fatalf("expected slope 10, got %v", got)
	}
}

func TestExtremesFirstOccurrence(t *testing.T) {
	values := []float64{3, 9, 1, 9, 1, 4}
	res := Analyze(values, HRV)
	if res.Peak.Day != 2 || res.Lowest.Day != 3 {
		t.Fatalf("expected first occurrences, got peak %d lowest %d", res.Peak.Day, res.Lowest.Day)
	}
	if res.Peak.Value != 9 || res.Lowest.Value != 1 {
		t.Fatalf("expected max/min values")
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	values := []float64{61, 63.5, 59, 70.25, 66}
	a, _ := json.Marshal(Analyze(values, RestingHR))
	b, _ := json.Marshal(Analyze(values, RestingHR))
	if string(a) != string(b) {
		t.Fatalf("expected identical output:\n%s\n%s", a, b)
	}
}

func TestSlopeJSONRounding(t *testing.T) {
	raw, _ := json.Marshal(Slope(0.123456789))
	if string(raw) != "0.1235" {
		t.Fatalf("unexpected slope json %s", raw)
	}
}

func TestMetricTypeUnits(t *testing.T) {
	for _, m := range MetricTypes {
		if !m.Valid() || m.Unit() == "" {
			t.Fatalf("%s: expected valid metric with unit", m)
		}
	}
	if MetricType("fatigue_score").Valid() {
		t.Fatalf("expected invalid metric type")
	}
}
