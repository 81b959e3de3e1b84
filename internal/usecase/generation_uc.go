// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

const (
	defaultImageFanout = 4
	finalizeTimeout    = 15 * time.Second
	genericFailure     = "story generation failed"
)

var _ ucport.StoryRunner = (*GenerationUseCase)(nil)

// GenerationUseCase runs a started story through text, illustrations and
// persistence, charging per stage and refunding on failure.
type GenerationUseCase struct {
	stories   repository.StoryRepository
	pages     repository.PageRepository
	tm        repository.TransactionManager
	wallets   ucport.WalletManager
	text      adapter.TextGenerator
	images    adapter.ImageGenerator
	persister adapter.AssetPersister
	moderator adapter.ContentModerator
	telemetry adapter.TelemetrySink
	pricing   model.Pricing
	fanout    int
	log       *zerolog.Logger
	now       func() time.Time
}

func NewGenerationUseCase(
	stories repository.StoryRepository,
	pages repository.PageRepository,
	tm repository.TransactionManager,
	wallets ucport.WalletManager,
	text adapter.TextGenerator,
	images adapter.ImageGenerator,
	persister adapter.AssetPersister,
	moderator adapter.ContentModerator,
	telemetry adapter.TelemetrySink,
	pricing model.Pricing,
	fanout int,
	logger *zerolog.Logger,
) *GenerationUseCase {
	if fanout <= 0 {
		fanout = defaultImageFanout
	}
	return &GenerationUseCase{
		stories:   stories,
		pages:     pages,
		tm:        tm,
		wallets:   wallets,
		text:      text,
		images:    images,
		persister: persister,
		moderator: moderator,
		telemetry: telemetry,
		pricing:   pricing,
		fanout:    fanout,
		log:       logger,
		now:       time.Now,
	}
}

// storyRun is the state of one execution. spent counts only credits that
// were actually taken from the wallet.
type storyRun struct {
	story *model.Story
	spent int
	log   *zerolog.Logger
}

// Run executes a story that Start moved to generating_text. Any stage error
// fails the story and refunds what this run spent.
func (uc *GenerationUseCase) Run(ctx context.Context, storyID string) error {
	story, err := uc.stories.FindByID(ctx, repository.NoTX, storyID)
	if err != nil {
		return err
	}
	if story.Status != model.StoryStatusGeneratingText {
		return fmt.Errorf("%w: story %s is %s", domain.ErrInvalidState, storyID, story.Status)
	}

	ctx = logging.WithJobID(logging.WithUserID(ctx, story.UserID), story.ID)
	run := &storyRun{story: story, log: logging.With(ctx, uc.log)}
	started := uc.now()
	metrics.JobStarted()
	defer metrics.JobFinished()

	run.log.Info().Str("length", story.Length).Str("quality", string(story.ImageQuality)).Msg("story job started")
	if err := uc.execute(ctx, run); err != nil {
		uc.fail(ctx, run, err)
		metrics.IncStoryJob(string(model.StoryStatusFailed), time.Since(started).Seconds())
		return err
	}
	metrics.IncStoryJob(string(model.StoryStatusReady), time.Since(started).Seconds())
	run.log.Info().Int("credits_spent", run.spent).Dur("took", time.Since(started)).Msg("story job finished")
	return nil
}

func (uc *GenerationUseCase) execute(ctx context.Context, run *storyRun) error {
	s := run.story
	total := uc.pricing.PagesFor(s.Length)

	// text
	if err := uc.advance(ctx, s, model.StoryStatusGeneratingText, model.ProgressTextStarted); err != nil {
		return err
	}
	stageStart := time.Now()
	gen, err := uc.text.GenerateStory(ctx, adapter.StoryRequest{
		ChildName:  s.ChildName,
		AgeGroup:   s.AgeGroup,
		Theme:      s.Theme,
		Tone:       s.Tone,
		PageCount:  total,
		Attributes: s.Attributes,
	})
	metrics.ObserveStage("text", time.Since(stageStart).Seconds())
	if err != nil {
		return fmt.Errorf("text stage: %w", err)
	}
	pages, err := normalizePages(gen, total)
	if err != nil {
		return err
	}
	if res := uc.moderator.Check(storyText(gen.Title, pages)); !res.Safe {
		run.log.Warn().Strs("flagged", res.FlaggedTerms).Msg("generated text rejected by moderation")
		return domain.ErrContentRejected
	}

	charged, err := uc.wallets.Charge(ctx, s.UserID, uc.pricing.Costs.GenerateText, model.SourceStoryText, s.ID, "Story text")
	if err != nil {
		return fmt.Errorf("charge text: %w", err)
	}
	run.spent += charged

	s.Title = strings.TrimSpace(gen.Title)
	if s.Title == "" {
		s.Title = "El cuento de " + s.ChildName
	}
	s.Attributes = s.Attributes.WithCharacters(gen.Characters)
	if err := uc.advance(ctx, s, model.StoryStatusGeneratingText, model.ProgressTextDone); err != nil {
		return err
	}

	// images
	if err := uc.advance(ctx, s, model.StoryStatusGeneratingImages, model.ProgressImagesStarted); err != nil {
		return err
	}
	prompts := make([]string, len(pages))
	for i, p := range pages {
		prompts[i] = imagePrompt(s, p.SceneDescription, p.Number, total)
	}
	stageStart = time.Now()
	assets := uc.illustrate(ctx, run, prompts)
	metrics.ObserveStage("images", time.Since(stageStart).Seconds())

	imageCost := uc.pricing.ImageCost(s.ImageQuality)
	for i, a := range assets {
		if a.Empty() {
			continue
		}
		charged, err := uc.wallets.Charge(ctx, s.UserID, imageCost, model.SourceStoryImage, s.ID, fmt.Sprintf("Illustration for page %d", i+1))
		if errors.Is(err, domain.ErrInsufficientCredits) {
			run.log.Warn().Int("page", i+1).Msg("illustration dropped, wallet cannot cover it")
			assets[i] = nil
			continue
		}
		if err != nil {
			return fmt.Errorf("charge image: %w", err)
		}
		run.spent += charged
	}
	if err := uc.advance(ctx, s, model.StoryStatusGeneratingImages, model.ProgressImagesDone); err != nil {
		return err
	}

	// persist
	stageStart = time.Now()
	urls := uc.persist(ctx, run, assets)
	metrics.ObserveStage("persist", time.Since(stageStart).Seconds())

	now := uc.now()
	records := make([]*model.Page, len(pages))
	withImage := 0
	for i, p := range pages {
		records[i] = &model.Page{
			ID:          uuid.NewString(),
			StoryID:     s.ID,
			PageNumber:  p.Number,
			Text:        strings.TrimSpace(p.Text),
			ImageURL:    urls[i],
			ImagePrompt: prompts[i],
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if records[i].HasImage() {
			withImage++
		}
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.pages.InsertBatch(ctx, tx, records); err != nil {
			return err
		}
		s.Advance(model.StoryStatusReady, model.ProgressReady)
		return uc.stories.Save(ctx, tx, s)
	})
	if err != nil {
		return fmt.Errorf("store pages: %w", err)
	}
	metrics.AddPages(withImage, len(records)-withImage)

	uc.telemetry.Track(ctx, s.UserID, model.EventStoryGenerateCompleted, map[string]any{
		"storyId":      s.ID,
		"pages":        len(records),
		"pagesWithArt": withImage,
		"creditsSpent": run.spent,
		"imageQuality": string(s.ImageQuality),
	})
	if run.spent > 0 {
		uc.telemetry.Track(ctx, s.UserID, model.EventCreditsSpent, map[string]any{
			"storyId": s.ID,
			"amount":  run.spent,
		})
	}
	return nil
}

// illustrate asks for every page at once and waits for all of them. A page
// whose provider chain failed comes back nil; it never aborts the others.
func (uc *GenerationUseCase) illustrate(ctx context.Context, run *storyRun, prompts []string) []*adapter.Asset {
	out := make([]*adapter.Asset, len(prompts))
	var g errgroup.Group
	g.SetLimit(uc.fanout)
	for i, prompt := range prompts {
		g.Go(func() error {
			asset, err := uc.images.GenerateImage(ctx, adapter.ImageRequest{
				StoryID:    run.story.ID,
				PageNumber: i + 1,
				TotalPages: len(prompts),
				Prompt:     prompt,
				Quality:    run.story.ImageQuality,
			})
			if err != nil || asset.Empty() {
				run.log.Warn().Err(err).Int("page", i+1).Msg("page illustration failed")
				return nil
			}
			out[i] = asset
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (uc *GenerationUseCase) persist(ctx context.Context, run *storyRun, assets []*adapter.Asset) []*string {
	urls := make([]*string, len(assets))
	var g errgroup.Group
	g.SetLimit(uc.fanout)
	for i, a := range assets {
		if a.Empty() {
			continue
		}
		g.Go(func() error {
			key := fmt.Sprintf("stories/%s/page-%d", run.story.ID, i+1)
			url, err := uc.persister.Persist(ctx, key, a)
			if err != nil || url == "" {
				run.log.Warn().Err(err).Int("page", i+1).Msg("persisting illustration failed, keeping provider url")
				url = a.URL
			}
			if url != "" {
				urls[i] = &url
			}
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

func (uc *GenerationUseCase) advance(ctx context.Context, s *model.Story, status model.StoryStatus, progress int) error {
	if !s.Advance(status, progress) {
		return domain.ErrInvalidState
	}
	if err := uc.stories.Save(ctx, repository.NoTX, s); err != nil {
		return fmt.Errorf("save progress %d: %w", progress, err)
	}
	return nil
}

// fail marks the story failed and refunds what is still owed for the run.
// Only the caller that wins the transition refunds. It works on a detached
// context so a cancelled or timed out job still finishes its bookkeeping.
func (uc *GenerationUseCase) fail(ctx context.Context, run *storyRun, cause error) {
	ctx, cancel := context.WithTimeout(logging.Detach(ctx), finalizeTimeout)
	defer cancel()
	s := run.story
	run.log.Error().Err(cause).Int("credits_spent", run.spent).Msg("story job failed")

	if !s.Fail(publicMessage(cause)) {
		return
	}
	if err := uc.stories.Save(ctx, repository.NoTX, s); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			run.log.Warn().Msg("story already finalized elsewhere, skipping refund")
			return
		}
		run.log.Error().Err(err).Msg("saving failed status failed")
	}

	refunded := 0
	if run.spent > 0 {
		owed, err := uc.wallets.Outstanding(ctx, s.UserID, s.ID)
		if err != nil {
			run.log.Error().Err(err).Msg("reading outstanding spend failed, refunding run total")
			owed = run.spent
		}
		refunded = uc.refund(ctx, run.log, s.UserID, s.ID, min(run.spent, owed))
	}
	uc.telemetry.Track(ctx, s.UserID, model.EventStoryGenerateFailed, map[string]any{
		"storyId":         s.ID,
		"error":           s.ErrorMessage,
		"creditsRefunded": refunded,
	})
}

func (uc *GenerationUseCase) refund(ctx context.Context, log *zerolog.Logger, userID, storyID string, amount int) int {
	if amount <= 0 {
		return 0
	}
	if _, err := uc.wallets.Refund(ctx, userID, amount, storyID); err != nil {
		log.Error().Err(err).Int("amount", amount).Msg("refund failed")
		return 0
	}
	uc.telemetry.Track(ctx, userID, model.EventCreditsRefunded, map[string]any{
		"storyId": storyID,
		"amount":  amount,
	})
	return amount
}

// ReapStale fails stories that have been generating for longer than
// olderThan, typically because the process died mid-run, and refunds their
// outstanding spend.
func (uc *GenerationUseCase) ReapStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := uc.stories.ListStale(ctx, repository.NoTX, uc.now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, s := range stale {
		log := uc.log.With().Str("job_id", s.ID).Str("user_id", s.UserID).Logger()
		if !s.Fail("generation timed out") {
			continue
		}
		if err := uc.stories.Save(ctx, repository.NoTX, s); err != nil {
			if !errors.Is(err, domain.ErrInvalidState) {
				log.Error().Err(err).Msg("reaper: saving failed status failed")
			}
			continue
		}
		reaped++
		refunded := 0
		if owed, err := uc.wallets.Outstanding(ctx, s.UserID, s.ID); err != nil {
			log.Error().Err(err).Msg("reaper: reading outstanding spend failed")
		} else {
			refunded = uc.refund(ctx, &log, s.UserID, s.ID, owed)
		}
		metrics.IncStoryJob(string(model.StoryStatusFailed), time.Since(s.CreatedAt).Seconds())
		uc.telemetry.Track(ctx, s.UserID, model.EventStoryGenerateFailed, map[string]any{
			"storyId":         s.ID,
			"error":           s.ErrorMessage,
			"creditsRefunded": refunded,
		})
		log.Warn().Int("refunded", refunded).Msg("reaper: stale story failed")
	}
	return reaped, nil
}

// normalizePages keeps the first want pages and renumbers them 1..want.
func normalizePages(gen *adapter.GeneratedStory, want int) ([]adapter.GeneratedPage, error) {
	if gen == nil {
		return nil, domain.ErrUnparseableStory
	}
	if len(gen.Pages) < want {
		return nil, fmt.Errorf("%w: got %d pages, want %d", domain.ErrUnparseableStory, len(gen.Pages), want)
	}
	out := make([]adapter.GeneratedPage, want)
	copy(out, gen.Pages[:want])
	for i := range out {
		if strings.TrimSpace(out[i].Text) == "" {
			return nil, fmt.Errorf("%w: page %d is empty", domain.ErrUnparseableStory, i+1)
		}
		out[i].Number = i + 1
		if strings.TrimSpace(out[i].SceneDescription) == "" {
			out[i].SceneDescription = out[i].Text
		}
	}
	return out, nil
}

func storyText(title string, pages []adapter.GeneratedPage) string {
	parts := make([]string, 0, len(pages)+1)
	parts = append(parts, title)
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// publicMessage is what the owner sees on a failed story. Provider and
// database details stay in the logs.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrContentRejected):
		return domain.ErrContentRejected.Error()
	case errors.Is(err, domain.ErrUnparseableStory):
		return domain.ErrUnparseableStory.Error()
	case errors.Is(err, domain.ErrInsufficientCredits):
		return domain.ErrInsufficientCredits.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		return domain.ErrProviderUnavailable.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	default:
		return genericFailure
	}
}
