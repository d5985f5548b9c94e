package budget_test

import (
	"sync"
	"testing"

	"github.com/jonesrussell/aeoscan/internal/budget"
	"github.com/jonesrussell/aeoscan/internal/domain"
)

func TestTryAdmit_UnderCeiling(t *testing.T) {
	t.Parallel()

	c := budget.NewController(budget.Limits{MaxPages: 3})

	for i := 0; i < 3; i++ {
		if !c.TryAdmit(domain.BudgetFetch, 1) {
			t.Fatalf("expected admit %d under ceiling", i)
		}
	}

	if c.TryAdmit(domain.BudgetFetch, 1) {
		t.Fatal("expected denial at ceiling")
	}

	usage := c.Usage()
	if usage.PagesFetched != 3 {
		t.Fatalf("expected 3 pages fetched, got %d", usage.PagesFetched)
	}
}

func TestTryAdmit_RecordsLimitHit(t *testing.T) {
	t.Parallel()

	c := budget.NewController(budget.Limits{MaxPages: 1, MaxLLMCalls: 5})

	if !c.TryAdmit(domain.BudgetFetch, 1) {
		t.Fatal("first fetch should be admitted")
	}
	if c.TryAdmit(domain.BudgetFetch, 1) {
		t.Fatal("second fetch should be denied")
	}

	hit := c.LimitsHit()
	if hit[string(domain.BudgetFetch)] != true {
		t.Fatal("expected fetch limit hit flag")
	}
	if _, ok := hit[string(domain.BudgetLLMCall)]; ok {
		t.Fatal("llm limit should not be flagged")
	}

	if !c.AnyLimitHit() {
		t.Fatal("expected AnyLimitHit true")
	}
}

func TestTryAdmit_DenialDoesNotConsume(t *testing.T) {
	t.Parallel()

	c := budget.NewController(budget.Limits{MaxLLMCalls: 2})

	if !c.TryAdmit(domain.BudgetLLMCall, 2) {
		t.Fatal("expected admit of cost 2")
	}
	if c.TryAdmit(domain.BudgetLLMCall, 1) {
		t.Fatal("expected denial")
	}

	if got := c.Usage().LLMCalls; got != 2 {
		t.Fatalf("denied admission must not consume budget, got %d", got)
	}
}

func TestAdmitTokens_Truncates(t *testing.T) {
	t.Parallel()

	c := budget.NewController(budget.Limits{MaxTokensPerCall: 1000})

	granted, truncated := c.AdmitTokens(4000)
	if granted != 1000 {
		t.Fatalf("expected grant truncated to 1000, got %d", granted)
	}
	if !truncated {
		t.Fatal("expected truncation flag")
	}

	granted, truncated = c.AdmitTokens(500)
	if granted != 500 || truncated {
		t.Fatalf("expected full grant of 500 without truncation, got %d/%v", granted, truncated)
	}

	if got := c.Usage().EstTokens; got != 1500 {
		t.Fatalf("expected 1500 total tokens, got %d", got)
	}
}

func TestTryAdmit_ConcurrentNoOverAdmission(t *testing.T) {
	t.Parallel()

	const (
		ceiling = 50
		workers = 20
		tries   = 10
	)

	c := budget.NewController(budget.Limits{MaxPages: ceiling})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < tries; j++ {
				c.TryAdmit(domain.BudgetFetch, 1)
			}
		}()
	}
	wg.Wait()

	if got := c.Usage().PagesFetched; got != ceiling {
		t.Fatalf("expected exactly %d admissions, got %d", ceiling, got)
	}
}

func TestLimitsApply(t *testing.T) {
	t.Parallel()

	base := budget.Limits{MaxPages: 200, MaxRenders: 20, MaxLLMCalls: 60, MaxTokensPerCall: 4000}

	got := base.Apply(budget.Overrides{MaxPages: 10, MaxLLMCalls: 5})
	if got.MaxPages != 10 || got.MaxLLMCalls != 5 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.MaxRenders != 20 || got.MaxTokensPerCall != 4000 {
		t.Fatalf("zero overrides must keep configured limits: %+v", got)
	}
	if base.MaxPages != 200 {
		t.Fatal("Apply must not mutate the receiver")
	}
}
