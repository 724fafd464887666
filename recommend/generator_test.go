package recommend_test

import (
	"testing"
	"time"

	"github.com/automatonhq/automaton/recommend"
)

func TestGenerate_EmptySnapshot(t *testing.T) {
	g := recommend.NewGenerator()
	if got := g.Generate(map[string]any{}); len(got) != 0 {
		t.Errorf("empty snapshot produced %d suggestions, want 0", len(got))
	}
}

func TestGenerate_LowStockYieldsOneInventorySuggestion(t *testing.T) {
	g := recommend.NewGenerator()
	got := g.Generate(map[string]any{
		"inventory_data": []any{
			map[string]any{"current_stock": 1, "min_stock": 5},
		},
	})

	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want exactly 1", len(got))
	}
	s := got[0]
	if s.Type != recommend.TypeInventoryAutomation {
		t.Errorf("type = %q, want %q", s.Type, recommend.TypeInventoryAutomation)
	}
	if s.ID.IsNil() {
		t.Error("suggestion ID was not assigned")
	}
	if s.CreatedAt.IsZero() {
		t.Error("suggestion timestamp was not assigned")
	}
}

func TestGenerate_ManyLowItemsStillOneSuggestion(t *testing.T) {
	items := make([]any, 5)
	for i := range items {
		items[i] = map[string]any{"current_stock": 0, "min_stock": 10}
	}
	g := recommend.NewGenerator()
	got := g.Generate(map[string]any{"inventory_data": items})

	if len(got) != 1 {
		t.Errorf("got %d suggestions, want 1", len(got))
	}
}

func TestGenerate_HealthyStockYieldsNothing(t *testing.T) {
	g := recommend.NewGenerator()
	got := g.Generate(map[string]any{
		"inventory_data": []any{
			map[string]any{"current_stock": 20, "min_stock": 5},
		},
	})
	if len(got) != 0 {
		t.Errorf("got %d suggestions, want 0", len(got))
	}
}

func TestGenerate_SalesThreshold(t *testing.T) {
	below := make([]any, 99)
	atLeast := make([]any, 100)
	for i := range below {
		below[i] = map[string]any{"order": i}
	}
	for i := range atLeast {
		atLeast[i] = map[string]any{"order": i}
	}

	g := recommend.NewGenerator()
	if got := g.Generate(map[string]any{"sales_data": below}); len(got) != 0 {
		t.Errorf("99 records produced %d suggestions, want 0", len(got))
	}
	got := g.Generate(map[string]any{"sales_data": atLeast})
	if len(got) != 1 || got[0].Type != recommend.TypeSalesAutomation {
		t.Errorf("100 records produced %v, want one sales_automation", got)
	}
}

func TestGenerate_RetentionThreshold(t *testing.T) {
	// The 90-day cutoff is computed from the injected clock, so the
	// boundary is exact against a fixed time.
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := fixed.AddDate(0, 0, -120).Format(time.RFC3339)
	fresh := fixed.AddDate(0, 0, -5).Format(time.RFC3339)
	boundary := fixed.AddDate(0, 0, -90).Format(time.RFC3339)

	quiet := make([]any, 11)
	for i := range quiet {
		quiet[i] = map[string]any{"last_activity": stale}
	}
	active := make([]any, 11)
	for i := range active {
		active[i] = map[string]any{"last_activity": fresh}
	}
	edge := make([]any, 11)
	for i := range edge {
		edge[i] = map[string]any{"last_activity": boundary}
	}

	g := recommend.NewGenerator(recommend.WithClock(func() time.Time { return fixed }))
	got := g.Generate(map[string]any{"customer_data": quiet})
	if len(got) != 1 || got[0].Type != recommend.TypeRetentionAutomation {
		t.Errorf("11 inactive customers produced %v, want one retention_automation", got)
	}
	if got := g.Generate(map[string]any{"customer_data": active}); len(got) != 0 {
		t.Errorf("active customers produced %d suggestions, want 0", len(got))
	}
	// Exactly 90 days is not "over 90 days".
	if got := g.Generate(map[string]any{"customer_data": edge}); len(got) != 0 {
		t.Errorf("boundary customers produced %d suggestions, want 0", len(got))
	}
}

func TestGenerate_CombinedSnapshot(t *testing.T) {
	sales := make([]any, 150)
	for i := range sales {
		sales[i] = map[string]any{"order": i}
	}
	g := recommend.NewGenerator()
	got := g.Generate(map[string]any{
		"sales_data": sales,
		"inventory_data": []any{
			map[string]any{"current_stock": 1, "min_stock": 5},
		},
	})

	types := map[string]bool{}
	for _, s := range got {
		types[s.Type] = true
	}
	if len(got) != 2 || !types[recommend.TypeSalesAutomation] || !types[recommend.TypeInventoryAutomation] {
		t.Errorf("combined snapshot produced %v, want sales + inventory", got)
	}
}

type staticHeuristic struct{}

func (staticHeuristic) Name() string { return "static" }

func (staticHeuristic) Evaluate(_ map[string]any, _ time.Time) []recommend.Suggestion {
	return []recommend.Suggestion{{Type: "custom_policy", Title: "Always suggested"}}
}

func TestGenerate_CustomHeuristic(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g := recommend.NewGenerator(
		recommend.WithHeuristic(staticHeuristic{}),
		recommend.WithClock(func() time.Time { return fixed }),
	)
	got := g.Generate(map[string]any{})

	if len(got) != 1 || got[0].Type != "custom_policy" {
		t.Fatalf("got %v, want one custom_policy suggestion", got)
	}
	if !got[0].CreatedAt.Equal(fixed) {
		t.Errorf("created_at = %v, want %v", got[0].CreatedAt, fixed)
	}
}
