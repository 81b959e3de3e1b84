// File: internal/usecase/narration_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/domain/ports/repository"
	ucport "storybook-platform/internal/domain/ports/usecase"
	"storybook-platform/internal/infra/logging"
	"storybook-platform/internal/infra/metrics"
)

// Compile-time check
var _ NarrationUseCase = (*narrationUC)(nil)

type NarrationUseCase interface {
	// Narrate voices every page of a ready story once. A denied gate returns
	// the result and changes nothing.
	Narrate(ctx context.Context, userID, storyID string, req model.NarrationRequest) (*model.NarrationResult, *model.GateResult, error)
}

type narrationUC struct {
	stories   repository.StoryRepository
	pages     repository.PageRepository
	tm        repository.TransactionManager
	gate      ucport.Gatekeeper
	wallets   ucport.WalletManager
	audio     adapter.AudioGenerator
	persister adapter.AssetPersister
	telemetry adapter.TelemetrySink
	pricing   model.Pricing
	fanout    int
	log       *zerolog.Logger
}

func NewNarrationUseCase(
	stories repository.StoryRepository,
	pages repository.PageRepository,
	tm repository.TransactionManager,
	gate ucport.Gatekeeper,
	wallets ucport.WalletManager,
	audio adapter.AudioGenerator,
	persister adapter.AssetPersister,
	telemetry adapter.TelemetrySink,
	pricing model.Pricing,
	fanout int,
	logger *zerolog.Logger,
) *narrationUC {
	if fanout <= 0 {
		fanout = defaultImageFanout
	}
	return &narrationUC{
		stories:   stories,
		pages:     pages,
		tm:        tm,
		gate:      gate,
		wallets:   wallets,
		audio:     audio,
		persister: persister,
		telemetry: telemetry,
		pricing:   pricing,
		fanout:    fanout,
		log:       logger,
	}
}

func (uc *narrationUC) Narrate(ctx context.Context, userID, storyID string, req model.NarrationRequest) (*model.NarrationResult, *model.GateResult, error) {
	story, err := uc.stories.FindByID(ctx, repository.NoTX, storyID)
	if err != nil {
		return nil, nil, err
	}
	if story.UserID != userID && !uc.wallets.IsExempt(userID) {
		return nil, nil, domain.ErrNotFound
	}
	if story.Status != model.StoryStatusReady {
		return nil, nil, fmt.Errorf("%w: story is %s", domain.ErrInvalidState, story.Status)
	}
	pages, err := uc.pages.ListByStory(ctx, repository.NoTX, storyID)
	if err != nil {
		return nil, nil, err
	}
	if len(pages) == 0 {
		return nil, nil, domain.ErrNoPages
	}
	if story.NarrationVoice != "" {
		return nil, nil, domain.ErrAlreadyNarrated
	}
	for _, p := range pages {
		if p.HasAudio() {
			return nil, nil, domain.ErrAlreadyNarrated
		}
	}
	if err := req.Normalize(); err != nil {
		return nil, nil, err
	}

	res, err := uc.gate.Evaluate(ctx, model.GateRequest{
		UserID:    story.UserID,
		Feature:   model.FeatureNarrate,
		PageCount: len(pages),
	})
	if err != nil {
		return nil, nil, err
	}
	if !res.Allowed {
		uc.telemetry.Track(ctx, story.UserID, model.EventPaywallViewed, map[string]any{
			"feature": string(model.FeatureNarrate),
			"reason":  string(res.Reason),
		})
		return nil, &res, nil
	}

	ctx = logging.WithJobID(ctx, storyID)
	log := logging.With(ctx, uc.log)
	started := time.Now()
	urls := uc.voice(ctx, log, story, pages, req)
	metrics.ObserveStage("narration", time.Since(started).Seconds())

	narrated := 0
	for _, u := range urls {
		if u != "" {
			narrated++
		}
	}
	if narrated == 0 {
		return nil, nil, fmt.Errorf("narration: %w", domain.ErrProviderUnavailable)
	}

	cost := narrated * uc.pricing.Costs.NarratePerPage
	charged, err := uc.wallets.Charge(ctx, story.UserID, cost, model.SourceNarration, storyID,
		fmt.Sprintf("Narration of %d pages (voice %s)", narrated, req.Voice))
	if err != nil {
		return nil, nil, err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := uc.stories.SetNarration(ctx, tx, storyID, req.Voice)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyNarrated
		}
		for i, p := range pages {
			if urls[i] == "" {
				continue
			}
			if err := uc.pages.SetAudioURL(ctx, tx, storyID, p.PageNumber, urls[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if charged > 0 {
			if _, rerr := uc.wallets.Refund(logging.Detach(ctx), story.UserID, charged, storyID); rerr != nil {
				log.Error().Err(rerr).Int("amount", charged).Msg("refunding narration failed")
			}
		}
		return nil, nil, err
	}

	for i, p := range pages {
		if urls[i] != "" {
			u := urls[i]
			p.AudioURL = &u
		}
	}
	uc.telemetry.Track(ctx, story.UserID, model.EventNarrationGenerated, map[string]any{
		"storyId":       storyID,
		"voice":         req.Voice,
		"pagesNarrated": narrated,
		"creditCost":    charged,
	})
	log.Info().Int("pages", narrated).Int("charged", charged).Msg("story narrated")
	return &model.NarrationResult{
		StoryID:       storyID,
		Voice:         req.Voice,
		PagesNarrated: narrated,
		CreditCost:    charged,
		Pages:         pages,
	}, &res, nil
}

// voice returns one stored url per page, empty where generation or storage failed.
func (uc *narrationUC) voice(ctx context.Context, log *zerolog.Logger, story *model.Story, pages []*model.Page, req model.NarrationRequest) []string {
	urls := make([]string, len(pages))
	var g errgroup.Group
	g.SetLimit(uc.fanout)
	for i, p := range pages {
		g.Go(func() error {
			asset, err := uc.audio.GenerateSpeech(ctx, adapter.SpeechRequest{
				StoryID:    story.ID,
				PageNumber: p.PageNumber,
				Text:       p.Text,
				Voice:      req.Voice,
				Speed:      req.Speed,
			})
			if err != nil || asset.Empty() {
				log.Warn().Err(err).Int("page", p.PageNumber).Msg("page narration failed")
				return nil
			}
			url, err := uc.persister.Persist(ctx, fmt.Sprintf("stories/%s/audio-%d", story.ID, p.PageNumber), asset)
			if err != nil || url == "" {
				log.Warn().Err(err).Int("page", p.PageNumber).Msg("storing narration failed")
				return nil
			}
			urls[i] = url
			return nil
		})
	}
	_ = g.Wait()
	return urls
}
