package model

import (
	"time"

	"storybook-platform/internal/domain"
)

type PlanType string

const (
	PlanFree    PlanType = "free"
	PlanPremium PlanType = "premium"
)

type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Wallet holds a user's credit balances. Monthly credits expire at renewal,
// purchased credits never do.
type Wallet struct {
	UserID                  string             `json:"userId"`
	Plan                    PlanType           `json:"plan"`
	MonthlyCreditsRemaining int                `json:"monthlyCreditsRemaining"`
	MonthlyCreditsTotal     int                `json:"monthlyCreditsTotal"`
	PurchasedCreditsBalance int                `json:"purchasedCreditsBalance"`
	RenewalDate             *time.Time         `json:"renewalDate,omitempty"`
	SubscriptionStatus      SubscriptionStatus `json:"subscriptionStatus"`
	CreatedAt               time.Time          `json:"createdAt"`
	UpdatedAt               time.Time          `json:"updatedAt"`
}

// NewWallet returns the lazily created default: free plan, zero balances.
func NewWallet(userID string) (*Wallet, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Wallet{
		UserID:             userID,
		Plan:               PlanFree,
		SubscriptionStatus: SubscriptionNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (w *Wallet) TotalCredits() int {
	return w.MonthlyCreditsRemaining + w.PurchasedCreditsBalance
}

func (w *Wallet) IsPremium() bool { return w.Plan == PlanPremium }

// CanAfford is always true for free wallets since they are never charged.
func (w *Wallet) CanAfford(cost int) bool {
	if !w.IsPremium() {
		return true
	}
	return w.TotalCredits() >= cost
}

// Debit spends monthly credits first and the remainder from purchased ones.
// It leaves the wallet untouched and returns false when the total is short.
func (w *Wallet) Debit(amount int) bool {
	if amount < 0 || w.TotalCredits() < amount {
		return false
	}
	fromMonthly := amount
	if fromMonthly > w.MonthlyCreditsRemaining {
		fromMonthly = w.MonthlyCreditsRemaining
	}
	w.MonthlyCreditsRemaining -= fromMonthly
	w.PurchasedCreditsBalance -= amount - fromMonthly
	w.UpdatedAt = time.Now()
	return true
}

// CreditPurchased adds to the bucket that survives renewals. Top-ups and
// refunds both land here.
func (w *Wallet) CreditPurchased(amount int) {
	w.PurchasedCreditsBalance += amount
	w.UpdatedAt = time.Now()
}

// ResetMonthly replaces the monthly allotment; leftovers do not accumulate.
func (w *Wallet) ResetMonthly(credits int) {
	w.MonthlyCreditsRemaining = credits
	w.MonthlyCreditsTotal = credits
	w.UpdatedAt = time.Now()
}
