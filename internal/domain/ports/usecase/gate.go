package usecase

import (
	"context"

	"storybook-platform/internal/domain/model"
)

// Gatekeeper decides whether a privileged action may proceed.
type Gatekeeper interface {
	Evaluate(ctx context.Context, req model.GateRequest) (model.GateResult, error)
	Estimate(ctx context.Context, userID, length string) (model.CostEstimate, error)
}
