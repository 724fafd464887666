package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/automatonhq/automaton"
	"github.com/automatonhq/automaton/event"
	"github.com/automatonhq/automaton/hook"
	"github.com/automatonhq/automaton/id"
	"github.com/automatonhq/automaton/rule"
)

type fakeRuleStore struct {
	mu      sync.Mutex
	rules   []*rule.Rule
	listErr error
}

func (s *fakeRuleStore) CreateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r.Clone())
	return nil
}

func (s *fakeRuleStore) GetRule(_ context.Context, ruleID id.RuleID) (*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.ID.String() == ruleID.String() {
			return r.Clone(), nil
		}
	}
	return nil, automaton.ErrRuleNotFound
}

func (s *fakeRuleStore) UpdateRule(_ context.Context, _ id.RuleID, _ rule.Update) (*rule.Rule, error) {
	return nil, automaton.ErrRuleNotFound
}

func (s *fakeRuleStore) DeleteRule(_ context.Context, _ id.RuleID) error { return nil }

func (s *fakeRuleStore) ListRules(_ context.Context, f rule.Filter) ([]*rule.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*rule.Rule
	for _, r := range s.rules {
		if f.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (s *fakeRuleStore) RecordResult(_ context.Context, _ id.RuleID, _ rule.Result) error {
	return nil
}

func (s *fakeRuleStore) SetNextExecution(_ context.Context, _ id.RuleID, _ *time.Time) error {
	return nil
}

type submission struct {
	ruleID  id.RuleID
	execCtx map[string]any
}

func eventRule(name, eventName string) *rule.Rule {
	return rule.New(rule.Spec{
		Name:    name,
		Trigger: rule.TriggerEvent,
		Event:   eventName,
	}, time.Now().UTC())
}

func TestBus_PublishSubmitsSubscribedRules(t *testing.T) {
	store := &fakeRuleStore{}
	ctx := context.Background()
	matchA := eventRule("escalate", "invoice.overdue")
	matchB := eventRule("notify finance", "invoice.overdue")
	other := eventRule("welcome", "customer.created")
	store.CreateRule(ctx, matchA)
	store.CreateRule(ctx, matchB)
	store.CreateRule(ctx, other)

	var mu sync.Mutex
	var subs []submission
	submit := func(_ context.Context, ruleID id.RuleID, execCtx map[string]any) error {
		mu.Lock()
		defer mu.Unlock()
		subs = append(subs, submission{ruleID, execCtx})
		return nil
	}

	bus := event.NewBus(store, submit, hook.NewRegistry(nil), nil)
	matched, err := bus.Publish(ctx, "invoice.overdue", map[string]any{"invoice_id": "INV-42", "amount": 1200})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if matched != 2 {
		t.Errorf("matched = %d, want 2", matched)
	}
	if len(subs) != 2 {
		t.Fatalf("submitted %d rules, want 2", len(subs))
	}
	for _, s := range subs {
		if s.execCtx["event"] != "invoice.overdue" {
			t.Errorf("execCtx[event] = %v, want invoice.overdue", s.execCtx["event"])
		}
		if s.execCtx["invoice_id"] != "INV-42" {
			t.Errorf("payload not merged into context: %v", s.execCtx)
		}
	}
}

func TestBus_PublishSkipsInactiveRules(t *testing.T) {
	store := &fakeRuleStore{}
	ctx := context.Background()
	r := eventRule("paused escalation", "invoice.overdue")
	r.State = rule.StateInactive
	store.CreateRule(ctx, r)

	submit := func(_ context.Context, _ id.RuleID, _ map[string]any) error {
		t.Fatal("inactive rule was submitted")
		return nil
	}

	bus := event.NewBus(store, submit, hook.NewRegistry(nil), nil)
	matched, err := bus.Publish(ctx, "invoice.overdue", nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if matched != 0 {
		t.Errorf("matched = %d, want 0", matched)
	}
}

func TestBus_PublishCountsOnlySuccessfulSubmissions(t *testing.T) {
	store := &fakeRuleStore{}
	ctx := context.Background()
	store.CreateRule(ctx, eventRule("a", "stock.low"))
	store.CreateRule(ctx, eventRule("b", "stock.low"))

	calls := 0
	submit := func(_ context.Context, _ id.RuleID, _ map[string]any) error {
		calls++
		if calls == 1 {
			return automaton.ErrQueueFull
		}
		return nil
	}

	bus := event.NewBus(store, submit, hook.NewRegistry(nil), nil)
	matched, err := bus.Publish(ctx, "stock.low", nil)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if matched != 1 {
		t.Errorf("matched = %d, want 1", matched)
	}
}

func TestBus_PublishStoreError(t *testing.T) {
	wantErr := errors.New("store down")
	store := &fakeRuleStore{listErr: wantErr}

	bus := event.NewBus(store, func(_ context.Context, _ id.RuleID, _ map[string]any) error {
		return nil
	}, hook.NewRegistry(nil), nil)

	if _, err := bus.Publish(context.Background(), "anything", nil); !errors.Is(err, wantErr) {
		t.Errorf("Publish error = %v, want %v", err, wantErr)
	}
}
