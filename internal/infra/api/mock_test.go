//go:build !integration

package api_test

import (
	"context"
	"time"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
)

type mockStoryUC struct {
	CreateFunc func(ctx context.Context, userID string, in model.StoryInput) (*model.Story, *model.GateResult, error)
	StartFunc  func(ctx context.Context, userID, storyID string) error
	StatusFunc func(ctx context.Context, userID, storyID string) (*model.StoryStatusView, error)
	GetFunc    func(ctx context.Context, userID, storyID string) (*model.StoryWithPages, error)
}

func (m *mockStoryUC) Create(ctx context.Context, userID string, in model.StoryInput) (*model.Story, *model.GateResult, error) {
	return m.CreateFunc(ctx, userID, in)
}

func (m *mockStoryUC) Start(ctx context.Context, userID, storyID string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, userID, storyID)
	}
	return nil
}

func (m *mockStoryUC) Status(ctx context.Context, userID, storyID string) (*model.StoryStatusView, error) {
	return m.StatusFunc(ctx, userID, storyID)
}

func (m *mockStoryUC) Get(ctx context.Context, userID, storyID string) (*model.StoryWithPages, error) {
	return m.GetFunc(ctx, userID, storyID)
}

type mockNarrationUC struct {
	NarrateFunc func(ctx context.Context, userID, storyID string, req model.NarrationRequest) (*model.NarrationResult, *model.GateResult, error)
}

func (m *mockNarrationUC) Narrate(ctx context.Context, userID, storyID string, req model.NarrationRequest) (*model.NarrationResult, *model.GateResult, error) {
	return m.NarrateFunc(ctx, userID, storyID, req)
}

type mockGate struct {
	EstimateFunc func(ctx context.Context, userID, length string) (model.CostEstimate, error)
}

func (m *mockGate) Evaluate(ctx context.Context, req model.GateRequest) (model.GateResult, error) {
	return model.Allow(0), nil
}

func (m *mockGate) Estimate(ctx context.Context, userID, length string) (model.CostEstimate, error) {
	return m.EstimateFunc(ctx, userID, length)
}

// mockWallets keeps wallets in memory and records admin calls.
type mockWallets struct {
	wallets map[string]*model.Wallet
	ledger  []*model.LedgerEntry
	limits  []int
}

func newMockWallets() *mockWallets {
	return &mockWallets{wallets: map[string]*model.Wallet{}}
}

func (m *mockWallets) get(userID string) *model.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w, _ = model.NewWallet(userID)
		m.wallets[userID] = w
	}
	return w
}

func (m *mockWallets) GetOrCreate(ctx context.Context, userID string) (*model.Wallet, error) {
	return m.get(userID), nil
}

func (m *mockWallets) CanAfford(w *model.Wallet, cost int) bool { return w.CanAfford(cost) }

func (m *mockWallets) Deduct(ctx context.Context, userID string, amount int, source, referenceID, description string) (bool, error) {
	return m.get(userID).Debit(amount), nil
}

func (m *mockWallets) Charge(ctx context.Context, userID string, amount int, source, referenceID, description string) (int, error) {
	return amount, nil
}

func (m *mockWallets) Outstanding(ctx context.Context, userID, referenceID string) (int, error) {
	return 0, nil
}

func (m *mockWallets) GrantMonthly(ctx context.Context, userID string, credits int) (*model.Wallet, error) {
	w := m.get(userID)
	w.ResetMonthly(credits)
	return w, nil
}

func (m *mockWallets) AddPurchased(ctx context.Context, userID string, credits int, referenceID string) (*model.Wallet, error) {
	if credits <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	w := m.get(userID)
	w.CreditPurchased(credits)
	return w, nil
}

func (m *mockWallets) Refund(ctx context.Context, userID string, credits int, referenceID string) (*model.Wallet, error) {
	return m.get(userID), nil
}

func (m *mockWallets) UpgradeToPremium(ctx context.Context, userID string) (*model.Wallet, error) {
	w := m.get(userID)
	w.Plan = model.PlanPremium
	return w, nil
}

func (m *mockWallets) DowngradeToFree(ctx context.Context, userID string) (*model.Wallet, error) {
	w := m.get(userID)
	w.Plan = model.PlanFree
	return w, nil
}

func (m *mockWallets) Ledger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	m.limits = append(m.limits, limit)
	return m.ledger, nil
}

func (m *mockWallets) IsExempt(userID string) bool { return false }

type mockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}
