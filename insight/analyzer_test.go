package insight_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/automatonhq/automaton/insight"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyze_EmptyProcess(t *testing.T) {
	a := insight.NewAnalyzer()
	in := a.Analyze(insight.Process{Name: "empty"})

	if in.TotalDuration != 0 || in.AvgStepDuration != 0 {
		t.Errorf("durations = %v/%v, want 0/0", in.TotalDuration, in.AvgStepDuration)
	}
	if in.EfficiencyScore != 0 {
		t.Errorf("score = %v, want 0 for empty process", in.EfficiencyScore)
	}
	if len(in.BottleneckSteps) != 0 {
		t.Errorf("bottlenecks = %v, want none", in.BottleneckSteps)
	}
}

func TestAnalyze_NoBottleneck(t *testing.T) {
	a := insight.NewAnalyzer()
	in := a.Analyze(insight.Process{
		Name: "order intake",
		Steps: []insight.Step{
			{Name: "A", Duration: 10},
			{Name: "B", Duration: 50},
		},
	})

	if !almostEqual(in.AvgStepDuration, 30) {
		t.Errorf("avg = %v, want 30", in.AvgStepDuration)
	}
	// 50 is not more than 2x the 30-minute average.
	if len(in.BottleneckSteps) != 0 {
		t.Errorf("bottlenecks = %v, want none", in.BottleneckSteps)
	}
	if !almostEqual(in.EfficiencyScore, 100) {
		t.Errorf("score = %v, want 100", in.EfficiencyScore)
	}
}

func TestAnalyze_BottleneckDetection(t *testing.T) {
	a := insight.NewAnalyzer()
	in := a.Analyze(insight.Process{
		Name: "invoice approval",
		Steps: []insight.Step{
			{Name: "A", Duration: 10},
			{Name: "B", Duration: 70},
			{Name: "C", Duration: 10},
		},
	})

	if !almostEqual(in.TotalDuration, 90) || !almostEqual(in.AvgStepDuration, 30) {
		t.Errorf("total/avg = %v/%v, want 90/30", in.TotalDuration, in.AvgStepDuration)
	}
	if len(in.BottleneckSteps) != 1 || in.BottleneckSteps[0] != "B" {
		t.Fatalf("bottlenecks = %v, want [B]", in.BottleneckSteps)
	}
	if !almostEqual(in.EfficiencyScore, 100-100.0/3) {
		t.Errorf("score = %v, want %v", in.EfficiencyScore, 100-100.0/3)
	}

	// B exceeds 1.5x avg, so savings assume it can be brought to average.
	if !almostEqual(in.TimeSavingsPotential, 40) {
		t.Errorf("time savings = %v, want 40", in.TimeSavingsPotential)
	}
	if !almostEqual(in.CostSavingsPotential, 40*insight.DefaultRatePerMinute) {
		t.Errorf("cost savings = %v, want %v", in.CostSavingsPotential, 40*insight.DefaultRatePerMinute)
	}

	found := false
	for _, s := range in.Suggestions {
		if strings.Contains(s, `"B"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("no bottleneck suggestion naming B in %v", in.Suggestions)
	}
}

func TestAnalyze_ParallelizationSuggestion(t *testing.T) {
	a := insight.NewAnalyzer()
	in := a.Analyze(insight.Process{
		Steps: []insight.Step{
			{Name: "A", Duration: 90},
			{Name: "B", Duration: 80},
		},
	})

	found := false
	for _, s := range in.Suggestions {
		if strings.Contains(s, "parallel") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected parallelization suggestion, got %v", in.Suggestions)
	}
}

func TestAnalyze_DecompositionSuggestion(t *testing.T) {
	steps := make([]insight.Step, 11)
	for i := range steps {
		steps[i] = insight.Step{Name: "step", Duration: 5}
	}
	a := insight.NewAnalyzer()
	in := a.Analyze(insight.Process{Steps: steps})

	found := false
	for _, s := range in.Suggestions {
		if strings.Contains(s, "decompos") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected decomposition suggestion, got %v", in.Suggestions)
	}
}

func TestAnalyze_ConfigurableRateAndConfidence(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := insight.NewAnalyzer(
		insight.WithRatePerMinute(2),
		insight.WithConfidence(0.5),
		insight.WithClock(func() time.Time { return fixed }),
	)
	in := a.Analyze(insight.Process{
		Steps: []insight.Step{
			{Name: "A", Duration: 10},
			{Name: "B", Duration: 70},
			{Name: "C", Duration: 10},
		},
	})

	if !almostEqual(in.CostSavingsPotential, 80) {
		t.Errorf("cost savings = %v, want 80 at rate 2", in.CostSavingsPotential)
	}
	if in.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", in.Confidence)
	}
	if !in.AnalyzedAt.Equal(fixed) {
		t.Errorf("analyzed_at = %v, want %v", in.AnalyzedAt, fixed)
	}
}

type flagHeuristic struct{ msg string }

func (f flagHeuristic) Name() string                       { return "flag" }
func (f flagHeuristic) Suggest(_ insight.Analysis) []string { return []string{f.msg} }

func TestAnalyze_CustomHeuristic(t *testing.T) {
	a := insight.NewAnalyzer(insight.WithHeuristic(flagHeuristic{msg: "review SLA"}))
	in := a.Analyze(insight.Process{Steps: []insight.Step{{Name: "A", Duration: 1}}})

	found := false
	for _, s := range in.Suggestions {
		if s == "review SLA" {
			found = true
		}
	}
	if !found {
		t.Errorf("custom heuristic output missing from %v", in.Suggestions)
	}
}
