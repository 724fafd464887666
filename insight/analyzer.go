// Package insight analyzes business process descriptions: step timings
// are folded into bottleneck detection, an efficiency score, and savings
// estimates. Improvement suggestions come from registered heuristics so
// business policy can evolve without touching the arithmetic.
package insight

import (
	"fmt"
	"log/slog"
	"time"
)

// Tunable defaults. Both are deployment policy, not derived statistics.
const (
	// DefaultRatePerMinute is the assumed cost of one process minute,
	// used to convert time savings into cost savings.
	DefaultRatePerMinute = 0.5

	// DefaultConfidence is attached to every insight.
	DefaultConfidence = 0.85
)

// Step is one named stage of a process with its duration in minutes.
type Step struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
}

// Process describes the workflow under analysis.
type Process struct {
	ID    string `json:"process_id,omitempty"`
	Name  string `json:"process_name,omitempty"`
	Steps []Step `json:"steps"`
}

// Analysis is the computed view of a process handed to heuristics.
type Analysis struct {
	Steps       []Step
	Total       float64
	Avg         float64
	Bottlenecks []string
}

// Insight is the full analyzer output for one process.
type Insight struct {
	ProcessID       string   `json:"process_id,omitempty"`
	ProcessName     string   `json:"process_name,omitempty"`
	TotalDuration   float64  `json:"total_duration"`
	AvgStepDuration float64  `json:"avg_step_duration"`
	BottleneckSteps []string `json:"bottleneck_steps"`
	// EfficiencyScore is 0-100; each bottleneck step drags it down
	// proportionally.
	EfficiencyScore      float64   `json:"efficiency_score"`
	Suggestions          []string  `json:"suggestions"`
	TimeSavingsPotential float64   `json:"time_savings_potential"`
	CostSavingsPotential float64   `json:"cost_savings_potential"`
	Confidence           float64   `json:"confidence"`
	AnalyzedAt           time.Time `json:"analyzed_at"`
}

// Heuristic proposes improvements for an analyzed process. Heuristics
// are side-effect free; returning nil means nothing to suggest.
type Heuristic interface {
	Name() string
	Suggest(a Analysis) []string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithRatePerMinute sets the cost assumed for one process minute.
func WithRatePerMinute(rate float64) Option {
	return func(a *Analyzer) { a.ratePerMinute = rate }
}

// WithConfidence sets the confidence attached to insights.
func WithConfidence(c float64) Option {
	return func(a *Analyzer) { a.confidence = c }
}

// WithHeuristic appends a suggestion heuristic after the built-ins.
func WithHeuristic(h Heuristic) Option {
	return func(a *Analyzer) { a.heuristics = append(a.heuristics, h) }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithLogger sets the analyzer's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// Analyzer computes process insights. It is stateless and safe for
// concurrent use once constructed.
type Analyzer struct {
	ratePerMinute float64
	confidence    float64
	heuristics    []Heuristic
	logger        *slog.Logger
	now           func() time.Time
}

// NewAnalyzer creates an Analyzer with the built-in heuristics
// installed: bottleneck optimization, parallelization, decomposition.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		ratePerMinute: DefaultRatePerMinute,
		confidence:    DefaultConfidence,
		heuristics: []Heuristic{
			bottleneckHeuristic{},
			parallelizationHeuristic{},
			decompositionHeuristic{},
		},
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze folds the process steps into an Insight. A process with no
// steps scores zero with no bottlenecks or savings.
func (a *Analyzer) Analyze(p Process) Insight {
	in := Insight{
		ProcessID:       p.ID,
		ProcessName:     p.Name,
		BottleneckSteps: []string{},
		Suggestions:     []string{},
		Confidence:      a.confidence,
		AnalyzedAt:      a.now(),
	}
	if len(p.Steps) == 0 {
		return in
	}

	var total float64
	for _, s := range p.Steps {
		total += s.Duration
	}
	avg := total / float64(len(p.Steps))

	// A bottleneck takes more than twice the average step time.
	var bottlenecks []string
	for _, s := range p.Steps {
		if s.Duration > 2*avg {
			bottlenecks = append(bottlenecks, s.Name)
		}
	}

	// Savings assume a bottleneck can be brought down to the average.
	var savings float64
	for _, s := range p.Steps {
		if s.Duration > 1.5*avg {
			savings += s.Duration - avg
		}
	}

	in.TotalDuration = total
	in.AvgStepDuration = avg
	if bottlenecks != nil {
		in.BottleneckSteps = bottlenecks
	}
	in.EfficiencyScore = max(0, 100-float64(len(bottlenecks))/float64(len(p.Steps))*100)
	in.TimeSavingsPotential = savings
	in.CostSavingsPotential = savings * a.ratePerMinute

	analysis := Analysis{
		Steps:       p.Steps,
		Total:       total,
		Avg:         avg,
		Bottlenecks: in.BottleneckSteps,
	}
	for _, h := range a.heuristics {
		in.Suggestions = append(in.Suggestions, h.Suggest(analysis)...)
	}

	a.logger.Debug("process analyzed",
		slog.String("process", p.Name),
		slog.Int("steps", len(p.Steps)),
		slog.Int("bottlenecks", len(in.BottleneckSteps)),
		slog.Float64("efficiency_score", in.EfficiencyScore),
	)
	return in
}

// ──────────────────────────────────────────────────
// Built-in heuristics
// ──────────────────────────────────────────────────

type bottleneckHeuristic struct{}

func (bottleneckHeuristic) Name() string { return "bottleneck-optimization" }

func (bottleneckHeuristic) Suggest(a Analysis) []string {
	if len(a.Bottlenecks) == 0 {
		return nil
	}
	var out []string
	for _, name := range a.Bottlenecks {
		out = append(out, fmt.Sprintf("Optimize step %q: it takes more than twice the average step time", name))
	}
	return out
}

type parallelizationHeuristic struct{}

func (parallelizationHeuristic) Name() string { return "parallelization" }

func (parallelizationHeuristic) Suggest(a Analysis) []string {
	if a.Avg <= 60 {
		return nil
	}
	return []string{"Average step duration exceeds an hour; consider running independent steps in parallel"}
}

type decompositionHeuristic struct{}

func (decompositionHeuristic) Name() string { return "decomposition" }

func (decompositionHeuristic) Suggest(a Analysis) []string {
	if len(a.Steps) <= 10 {
		return nil
	}
	return []string{"Process has more than ten steps; consider decomposing it into sub-processes"}
}
