//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
	"storybook-platform/internal/usecase"
)

type storyFixture struct {
	*walletFixture
	stories    *MockStoryRepo
	pages      *MockPageRepo
	usage      *MockUsageCounter
	locker     *MockLocker
	dispatcher *MockDispatcher
	moderator  *MockModerator
	telemetry  *MockTelemetry
	uc         usecase.StoryUseCase
}

func newStoryFixture(admins ...string) *storyFixture {
	wf := newWalletFixture(admins...)
	f := &storyFixture{
		walletFixture: wf,
		stories:       NewMockStoryRepo(),
		pages:         NewMockPageRepo(),
		usage:         &MockUsageCounter{},
		locker:        NewMockLocker(),
		dispatcher:    &MockDispatcher{},
		moderator:     &MockModerator{Blocked: map[string]bool{}},
		telemetry:     &MockTelemetry{},
	}
	pricing := model.DefaultPricing()
	gate := usecase.NewGateUseCase(wf.uc, f.usage, pricing, newTestLogger())
	f.uc = usecase.NewStoryUseCase(f.stories, f.pages, gate, wf.uc, f.locker, f.dispatcher, f.moderator, f.telemetry, pricing, time.Second, newTestLogger())
	return f
}

func validInput() model.StoryInput {
	return model.StoryInput{ChildName: "Tomás", AgeGroup: "6-8", Theme: "dinosaurios", Tone: "divertido", Length: "corto"}
}

func TestStoryUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should admit a queued story with cost and quality fixed", func(t *testing.T) {
		f := newStoryFixture()

		story, gate, err := f.uc.Create(ctx, "u1", validInput())

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if story == nil || !gate.Allowed {
			t.Fatalf("expected admission, got story=%v gate=%+v", story, gate)
		}
		if story.Status != model.StoryStatusQueued || story.Progress != 0 {
			t.Errorf("expected queued/0, got %s/%d", story.Status, story.Progress)
		}
		if story.CreditCost != 37 || story.ImageQuality != model.ImageQualityStandard {
			t.Errorf("expected cost 37 standard, got %d %s", story.CreditCost, story.ImageQuality)
		}
		if _, err := f.stories.FindByID(ctx, repository.NoTX, story.ID); err != nil {
			t.Errorf("story was not stored: %v", err)
		}
	})

	t.Run("should return the denial without creating anything", func(t *testing.T) {
		f := newStoryFixture()
		in := validInput()
		in.Length = "largo"

		story, gate, err := f.uc.Create(ctx, "u1", in)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if story != nil || gate == nil || gate.Reason != model.ReasonPremiumLength {
			t.Fatalf("expected premium_length denial, got story=%v gate=%+v", story, gate)
		}
		if f.telemetry.Count(model.EventPaywallViewed) != 1 {
			t.Error("expected a paywall_viewed event")
		}
	})

	t.Run("should reject invalid input", func(t *testing.T) {
		f := newStoryFixture()
		in := validInput()
		in.Tone = "aterrador"

		_, _, err := f.uc.Create(ctx, "u1", in)

		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should reject input that fails moderation", func(t *testing.T) {
		f := newStoryFixture()
		in := validInput()
		in.Theme = "armas"
		f.moderator.Blocked["armas"] = true

		_, _, err := f.uc.Create(ctx, "u1", in)

		if !errors.Is(err, domain.ErrContentRejected) {
			t.Errorf("expected ErrContentRejected, got %v", err)
		}
	})
}

func TestStoryUseCase_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("should flip a queued story and dispatch it", func(t *testing.T) {
		f := newStoryFixture()
		story, _, _ := f.uc.Create(ctx, "u1", validInput())

		err := f.uc.Start(ctx, "u1", story.ID)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, _ := f.stories.FindByID(ctx, repository.NoTX, story.ID)
		if got.Status != model.StoryStatusGeneratingText || got.Progress != model.ProgressStarted {
			t.Errorf("expected generating_text/5, got %s/%d", got.Status, got.Progress)
		}
		if len(f.dispatcher.Dispatched) != 1 || f.dispatcher.Dispatched[0] != story.ID {
			t.Errorf("expected story dispatched once, got %v", f.dispatcher.Dispatched)
		}
	})

	t.Run("should refuse to start a story twice", func(t *testing.T) {
		f := newStoryFixture()
		story, _, _ := f.uc.Create(ctx, "u1", validInput())
		_ = f.uc.Start(ctx, "u1", story.ID)

		err := f.uc.Start(ctx, "u1", story.ID)

		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
		if len(f.dispatcher.Dispatched) != 1 {
			t.Errorf("expected a single dispatch, got %d", len(f.dispatcher.Dispatched))
		}
	})

	t.Run("should refuse while another start holds the lock", func(t *testing.T) {
		f := newStoryFixture()
		story, _, _ := f.uc.Create(ctx, "u1", validInput())
		f.locker.ErrOn["story:start:"+story.ID] = domain.ErrLockHeld

		err := f.uc.Start(ctx, "u1", story.ID)

		if !errors.Is(err, domain.ErrAlreadyStarted) {
			t.Fatalf("expected ErrAlreadyStarted, got %v", err)
		}
	})

	t.Run("should surface a lock backend outage instead of reporting a conflict", func(t *testing.T) {
		// Arrange
		f := newStoryFixture()
		story, _, _ := f.uc.Create(ctx, "u1", validInput())
		outage := errors.New("dial tcp 127.0.0.1:6379: connection refused")
		f.locker.ErrOn["story:start:"+story.ID] = outage

		// Act
		err := f.uc.Start(ctx, "u1", story.ID)

		// Assert
		if !errors.Is(err, outage) || errors.Is(err, domain.ErrAlreadyStarted) {
			t.Fatalf("expected the wrapped outage, got %v", err)
		}
		got, _ := f.stories.FindByID(ctx, repository.NoTX, story.ID)
		if got.Status != model.StoryStatusQueued || len(f.dispatcher.Dispatched) != 0 {
			t.Errorf("expected the story to stay queued, got %s with %d dispatches", got.Status, len(f.dispatcher.Dispatched))
		}
	})

	t.Run("should fail the story when the queue is full", func(t *testing.T) {
		f := newStoryFixture()
		f.dispatcher.DispatchFunc = func(ctx context.Context, storyID string) error { return domain.ErrQueueFull }
		story, _, _ := f.uc.Create(ctx, "u1", validInput())

		err := f.uc.Start(ctx, "u1", story.ID)

		if !errors.Is(err, domain.ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
		got, _ := f.stories.FindByID(ctx, repository.NoTX, story.ID)
		if got.Status != model.StoryStatusFailed || got.ErrorMessage != domain.ErrQueueFull.Error() {
			t.Errorf("expected failed with queue message, got %s %q", got.Status, got.ErrorMessage)
		}
	})

	t.Run("should hide other users' stories", func(t *testing.T) {
		f := newStoryFixture()
		story, _, _ := f.uc.Create(ctx, "u1", validInput())

		err := f.uc.Start(ctx, "intruder", story.ID)

		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStoryUseCase_Read(t *testing.T) {
	ctx := context.Background()

	t.Run("should report status to the owner", func(t *testing.T) {
		f := newStoryFixture()
		story, _, _ := f.uc.Create(ctx, "u1", validInput())

		view, err := f.uc.Status(ctx, "u1", story.ID)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if view.Status != model.StoryStatusQueued || view.Progress != 0 {
			t.Errorf("unexpected view %+v", view)
		}
		if _, err := f.uc.Status(ctx, "u2", story.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for another user, got %v", err)
		}
	})

	t.Run("should let admins read any story", func(t *testing.T) {
		f := newStoryFixture("admin")
		story, _, _ := f.uc.Create(ctx, "u1", validInput())

		got, err := f.uc.Get(ctx, "admin", story.ID)

		if err != nil || got.Story.ID != story.ID {
			t.Fatalf("expected admin read, got %v %v", got, err)
		}
	})
}
