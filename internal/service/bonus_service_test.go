package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unitshop/internal/models"

	"github.com/shopspring/decimal"
)

func bonusRule(id uint, threshold, pct string) models.TopUpBonus {
	return models.TopUpBonus{
		ID:                 id,
		MinAmountThreshold: models.NewMoneyFromDecimal(decimal.RequireFromString(threshold)),
		BonusPercentage:    decimal.RequireFromString(pct),
		IsActive:           true,
	}
}

func TestBestBonusStrictThreshold(t *testing.T) {
	now := time.Now()
	rules := []models.TopUpBonus{
		bonusRule(1, "0", "0"),
		bonusRule(2, "100", "5"),
		bonusRule(3, "500", "10"),
	}
	cases := []struct {
		amount  string
		wantID  uint
		wantPct string
		wantHit bool
	}{
		{amount: "150", wantID: 2, wantPct: "5", wantHit: true},
		{amount: "50", wantID: 1, wantPct: "0", wantHit: true},
		{amount: "500", wantID: 2, wantPct: "5", wantHit: true},
		{amount: "500.01", wantID: 3, wantPct: "10", wantHit: true},
		{amount: "100", wantID: 1, wantPct: "0", wantHit: true},
		{amount: "0", wantHit: false},
	}
	for _, tc := range cases {
		best, ok := BestBonus(rules, decimal.RequireFromString(tc.amount), now)
		if ok != tc.wantHit {
			t.Fatalf("amount %s: expected hit=%v, got %v", tc.amount, tc.wantHit, ok)
		}
		if !ok {
			continue
		}
		if best.ID != tc.wantID || !best.BonusPercentage.Equal(decimal.RequireFromString(tc.wantPct)) {
			t.Fatalf("amount %s: expected rule %d (%s%%), got %d (%s%%)", tc.amount, tc.wantID, tc.wantPct, best.ID, best.BonusPercentage)
		}
	}
}

func TestBestBonusTieBreakAndWindow(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := bonusRule(10, "200", "50")
	expired.ExpiresAt = &past
	notStarted := bonusRule(11, "200", "40")
	notStarted.StartsAt = &future
	inactive := bonusRule(12, "200", "30")
	inactive.IsActive = false

	rules := []models.TopUpBonus{
		bonusRule(5, "100", "5"),
		bonusRule(4, "100", "8"),
		bonusRule(3, "100", "8"),
		expired,
		notStarted,
		inactive,
	}
	best, ok := BestBonus(rules, decimal.RequireFromString("300"), now)
	if !ok {
		t.Fatalf("expected a bonus")
	}
	if best.ID != 3 {
		t.Fatalf("expected rule 3 (higher pct, lower id), got %d", best.ID)
	}
}

func TestBonusAmount(t *testing.T) {
	rule := bonusRule(1, "100", "5")
	if got := BonusAmount(decimal.RequireFromString("150"), &rule); got.StringFixed(2) != "7.50" {
		t.Fatalf("expected 7.50, got %s", got.StringFixed(2))
	}
	if got := BonusAmount(decimal.RequireFromString("150"), nil); !got.IsZero() {
		t.Fatalf("expected zero bonus without rule, got %s", got)
	}
	zero := bonusRule(2, "0", "0")
	if got := BonusAmount(decimal.RequireFromString("150"), &zero); !got.IsZero() {
		t.Fatalf("expected zero bonus for 0%% rule, got %s", got)
	}
}

func TestBonusServiceLifecycle(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()

	if _, err := f.bonus.Create(ctx, CreateBonusInput{
		MinAmountThreshold: decimal.RequireFromString("100"),
		BonusPercentage:    decimal.RequireFromString("0"),
	}); !errors.Is(err, ErrBonusInvalid) {
		t.Fatalf("expected ErrBonusInvalid for zero pct, got %v", err)
	}
	if _, err := f.bonus.Create(ctx, CreateBonusInput{
		MinAmountThreshold: decimal.RequireFromString("100"),
		BonusPercentage:    decimal.RequireFromString("101"),
	}); !errors.Is(err, ErrBonusInvalid) {
		t.Fatalf("expected ErrBonusInvalid for pct above 100, got %v", err)
	}

	low, err := f.bonus.Create(ctx, CreateBonusInput{
		MinAmountThreshold: decimal.RequireFromString("100"),
		BonusPercentage:    decimal.RequireFromString("5"),
	})
	if err != nil {
		t.Fatalf("create bonus failed: %v", err)
	}
	high, err := f.bonus.Create(ctx, CreateBonusInput{
		MinAmountThreshold: decimal.RequireFromString("500"),
		BonusPercentage:    decimal.RequireFromString("10"),
	})
	if err != nil {
		t.Fatalf("create bonus failed: %v", err)
	}

	picked, err := f.bonus.Resolve(ctx, decimal.RequireFromString("600"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if picked == nil || picked.ID != high.ID {
		t.Fatalf("expected high rule, got %+v", picked)
	}

	if err := f.bonus.Deactivate(ctx, high.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	picked, err = f.bonus.Resolve(ctx, decimal.RequireFromString("600"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if picked == nil || picked.ID != low.ID {
		t.Fatalf("expected low rule after deactivation, got %+v", picked)
	}

	picked, err = f.bonus.Resolve(ctx, decimal.RequireFromString("100"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if picked != nil {
		t.Fatalf("expected no rule at exact threshold, got %+v", picked)
	}

	if err := f.bonus.Deactivate(ctx, 9999); !errors.Is(err, ErrBonusNotFound) {
		t.Fatalf("expected ErrBonusNotFound, got %v", err)
	}
	all, err := f.bonus.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(all))
	}
}

func TestBonusServiceScheduledRuleBecomesEligible(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	start := time.Now().Add(time.Hour)
	clock := time.Now()
	f.bonus.now = func() time.Time { return clock }

	scheduled, err := f.bonus.Create(ctx, CreateBonusInput{
		MinAmountThreshold: decimal.RequireFromString("50"),
		BonusPercentage:    decimal.RequireFromString("20"),
		StartsAt:           &start,
	})
	if err != nil {
		t.Fatalf("create bonus failed: %v", err)
	}

	picked, err := f.bonus.Resolve(ctx, decimal.RequireFromString("80"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if picked != nil {
		t.Fatalf("expected no rule before start, got %+v", picked)
	}

	// 快照保留未开始的规则，开始后无需失效缓存即可命中
	snapshot, err := f.bonus.enabledSnapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].ID != scheduled.ID {
		t.Fatalf("expected scheduled rule in snapshot, got %+v", snapshot)
	}

	clock = start.Add(time.Minute)
	picked, err = f.bonus.Resolve(ctx, decimal.RequireFromString("80"))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if picked == nil || picked.ID != scheduled.ID {
		t.Fatalf("expected scheduled rule after start, got %+v", picked)
	}
}
