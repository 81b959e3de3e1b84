// File: internal/usecase/story_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/domain/ports/repository"
	ucport "storybook-platform/internal/domain/ports/usecase"
	"storybook-platform/internal/infra/logging"
)

// Compile-time check
var _ StoryUseCase = (*storyUC)(nil)

const defaultStartLockTTL = 10 * time.Second

type StoryUseCase interface {
	// Create admits a story. A denied gate returns the result and no story.
	Create(ctx context.Context, userID string, in model.StoryInput) (*model.Story, *model.GateResult, error)
	// Start moves a queued story into background generation and returns at once.
	Start(ctx context.Context, userID, storyID string) error
	Status(ctx context.Context, userID, storyID string) (*model.StoryStatusView, error)
	Get(ctx context.Context, userID, storyID string) (*model.StoryWithPages, error)
}

type storyUC struct {
	stories    repository.StoryRepository
	pages      repository.PageRepository
	gate       ucport.Gatekeeper
	wallets    ucport.WalletManager
	locker     repository.Locker
	dispatcher ucport.JobDispatcher
	moderator  adapter.ContentModerator
	telemetry  adapter.TelemetrySink
	pricing    model.Pricing
	lockTTL    time.Duration
	log        *zerolog.Logger
}

func NewStoryUseCase(
	stories repository.StoryRepository,
	pages repository.PageRepository,
	gate ucport.Gatekeeper,
	wallets ucport.WalletManager,
	locker repository.Locker,
	dispatcher ucport.JobDispatcher,
	moderator adapter.ContentModerator,
	telemetry adapter.TelemetrySink,
	pricing model.Pricing,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *storyUC {
	if lockTTL <= 0 {
		lockTTL = defaultStartLockTTL
	}
	return &storyUC{
		stories:    stories,
		pages:      pages,
		gate:       gate,
		wallets:    wallets,
		locker:     locker,
		dispatcher: dispatcher,
		moderator:  moderator,
		telemetry:  telemetry,
		pricing:    pricing,
		lockTTL:    lockTTL,
		log:        logger,
	}
}

func (uc *storyUC) Create(ctx context.Context, userID string, in model.StoryInput) (*model.Story, *model.GateResult, error) {
	defer logging.TraceDuration(uc.log, "StoryUseCase.Create")()
	if userID == "" {
		return nil, nil, domain.ErrInvalidArgument
	}
	if err := in.Validate(uc.pricing.Lengths()); err != nil {
		return nil, nil, err
	}
	inputs := append([]string{in.ChildName, in.Theme}, in.Attributes.Values()...)
	for _, text := range inputs {
		if res := uc.moderator.Check(text); !res.Safe {
			logging.With(ctx, uc.log).Warn().Strs("flagged", res.FlaggedTerms).Msg("story input rejected by moderation")
			return nil, nil, domain.ErrContentRejected
		}
	}

	res, err := uc.gate.Evaluate(ctx, model.GateRequest{
		UserID:   userID,
		Feature:  model.FeatureCreateStory,
		Length:   in.Length,
		ArtStyle: in.Attributes.ArtStyle,
	})
	if err != nil {
		return nil, nil, err
	}
	if !res.Allowed {
		uc.telemetry.Track(ctx, userID, model.EventPaywallViewed, map[string]any{
			"feature":     string(model.FeatureCreateStory),
			"reason":      string(res.Reason),
			"paywallType": string(res.PaywallType),
		})
		return nil, &res, nil
	}

	w, err := uc.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	story, err := model.NewStory(uuid.NewString(), userID, in, res.EstimatedCost, uc.pricing.QualityFor(w.Plan))
	if err != nil {
		return nil, nil, err
	}
	if err := uc.stories.Create(ctx, repository.NoTX, story); err != nil {
		return nil, nil, err
	}
	logging.With(ctx, uc.log).Info().
		Str("story_id", story.ID).
		Str("length", story.Length).
		Int("estimated_cost", story.CreditCost).
		Msg("story admitted")
	return story, &res, nil
}

func (uc *storyUC) Start(ctx context.Context, userID, storyID string) error {
	story, err := uc.owned(ctx, userID, storyID)
	if err != nil {
		return err
	}
	if story.Status != model.StoryStatusQueued {
		return fmt.Errorf("%w: story is %s", domain.ErrInvalidState, story.Status)
	}

	key := "story:start:" + storyID
	token, err := uc.locker.TryLock(ctx, key, uc.lockTTL)
	if errors.Is(err, domain.ErrLockHeld) {
		return domain.ErrAlreadyStarted
	}
	if err != nil {
		return fmt.Errorf("acquire start lock: %w", err)
	}
	defer func() {
		if err := uc.locker.Unlock(context.Background(), key, token); err != nil {
			uc.log.Warn().Err(err).Str("story_id", storyID).Msg("releasing start lock failed")
		}
	}()

	ok, err := uc.stories.StartIfQueued(ctx, repository.NoTX, storyID, model.ProgressStarted)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyStarted
	}
	story.Advance(model.StoryStatusGeneratingText, model.ProgressStarted)
	uc.telemetry.Track(ctx, userID, model.EventStoryGenerateStarted, map[string]any{
		"storyId": storyID,
		"length":  story.Length,
	})

	if err := uc.dispatcher.Dispatch(ctx, storyID); err != nil {
		// nothing was charged yet, so failing the story is the whole cleanup
		logging.With(ctx, uc.log).Error().Err(err).Str("story_id", storyID).Msg("dispatching story job failed")
		msg := genericFailure
		if errors.Is(err, domain.ErrQueueFull) {
			msg = domain.ErrQueueFull.Error()
		}
		if story.Fail(msg) {
			if serr := uc.stories.Save(context.Background(), repository.NoTX, story); serr != nil {
				uc.log.Error().Err(serr).Str("story_id", storyID).Msg("saving failed status failed")
			}
		}
		return err
	}
	return nil
}

func (uc *storyUC) Status(ctx context.Context, userID, storyID string) (*model.StoryStatusView, error) {
	view, err := uc.stories.FindStatus(ctx, repository.NoTX, storyID)
	if err != nil {
		return nil, err
	}
	if view.Owner != userID && !uc.wallets.IsExempt(userID) {
		return nil, domain.ErrNotFound
	}
	return view, nil
}

func (uc *storyUC) Get(ctx context.Context, userID, storyID string) (*model.StoryWithPages, error) {
	story, err := uc.owned(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	pages, err := uc.pages.ListByStory(ctx, repository.NoTX, storyID)
	if err != nil {
		return nil, err
	}
	return &model.StoryWithPages{Story: story, Pages: pages}, nil
}

// owned loads a story the caller may act on. Other users' stories look missing.
func (uc *storyUC) owned(ctx context.Context, userID, storyID string) (*model.Story, error) {
	if userID == "" || storyID == "" {
		return nil, domain.ErrInvalidArgument
	}
	story, err := uc.stories.FindByID(ctx, repository.NoTX, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID && !uc.wallets.IsExempt(userID) {
		return nil, domain.ErrNotFound
	}
	return story, nil
}
