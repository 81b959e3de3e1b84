package model

import (
	"strings"
	"time"
)

// Ledger sources.
const (
	SourceStoryText     = "story_text"
	SourceStoryImage    = "story_image"
	SourceNarration     = "narration"
	SourcePDFExport     = "pdf_export"
	SourceImageRegen    = "image_regen"
	SourceMonthlyGrant  = "monthly_grant"
	SourceMonthlyExpiry = "monthly_expiry"
	SourceTopup         = "topup"
	SourcePlanChange    = "plan_change"
	sourceRefundPrefix  = "refund_"
)

// RefundSource tags a compensating entry with the job it undoes.
func RefundSource(referenceID string) string { return sourceRefundPrefix + referenceID }

func IsRefundSource(source string) bool { return strings.HasPrefix(source, sourceRefundPrefix) }

// LedgerEntry is append-only. Amount is negative for spends.
type LedgerEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	Amount       int       `json:"amount"`
	BalanceAfter int       `json:"balanceAfter"`
	Source       string    `json:"source"`
	ReferenceID  string    `json:"referenceId,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Replay sums entries given in creation order starting from zero.
func Replay(entries []*LedgerEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Amount
	}
	return total
}
