//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/domain/ports/repository"
)

// -----------------------------
// Wallet storage
// -----------------------------

type MockWalletRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.Wallet

	SaveFunc              func(ctx context.Context, tx repository.Tx, w *model.Wallet) error
	ListDueForRenewalFunc func(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Wallet, error)
}

var _ repository.WalletRepository = (*MockWalletRepo)(nil)

func NewMockWalletRepo() *MockWalletRepo {
	return &MockWalletRepo{byUser: map[string]*model.Wallet{}}
}

// Seed stores a copy of w as is.
func (r *MockWalletRepo) Seed(w *model.Wallet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.byUser[w.UserID] = &cp
}

func (r *MockWalletRepo) Get(userID string) *model.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}

func (r *MockWalletRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *MockWalletRepo) FindByUserIDForUpdate(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	return r.FindByUserID(ctx, tx, userID)
}

func (r *MockWalletRepo) Insert(ctx context.Context, tx repository.Tx, w *model.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[w.UserID]; ok {
		return nil
	}
	cp := *w
	r.byUser[w.UserID] = &cp
	return nil
}

func (r *MockWalletRepo) Save(ctx context.Context, tx repository.Tx, w *model.Wallet) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, w)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *w
	r.byUser[w.UserID] = &cp
	return nil
}

func (r *MockWalletRepo) ListDueForRenewal(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Wallet, error) {
	if r.ListDueForRenewalFunc != nil {
		return r.ListDueForRenewalFunc(ctx, tx, before, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Wallet
	for _, w := range r.byUser {
		if w.IsPremium() && w.RenewalDate != nil && !w.RenewalDate.After(before) {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MockLedgerRepo struct {
	mu      sync.Mutex
	entries []*model.LedgerEntry

	AppendFunc func(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error
}

var _ repository.LedgerRepository = (*MockLedgerRepo)(nil)

func NewMockLedgerRepo() *MockLedgerRepo { return &MockLedgerRepo{} }

func (r *MockLedgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	if r.AppendFunc != nil {
		return r.AppendFunc(ctx, tx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MockLedgerRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.LedgerEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if r.entries[i].UserID == userID {
			cp := *r.entries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockLedgerRepo) NetByReference(ctx context.Context, tx repository.Tx, userID, referenceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	net := 0
	for _, e := range r.entries {
		if e.UserID == userID && e.ReferenceID == referenceID {
			net += e.Amount
		}
	}
	return net, nil
}

// Entries returns the user's entries oldest first.
func (r *MockLedgerRepo) Entries(userID string) []*model.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.LedgerEntry
	for _, e := range r.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

type MockWalletLocker struct {
	mu    sync.Mutex
	Calls int
}

func (l *MockWalletLocker) LockWallet(ctx context.Context, tx repository.Tx, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls++
	return nil
}

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// -----------------------------
// Story storage
// -----------------------------

type MockStoryRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.Story
	progress map[string][]int

	SaveFunc          func(ctx context.Context, tx repository.Tx, s *model.Story) error
	StartIfQueuedFunc func(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error)
	ListStaleFunc     func(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Story, error)
}

var _ repository.StoryRepository = (*MockStoryRepo)(nil)

func NewMockStoryRepo() *MockStoryRepo {
	return &MockStoryRepo{byID: map[string]*model.Story{}, progress: map[string][]int{}}
}

func (r *MockStoryRepo) Create(ctx context.Context, tx repository.Tx, s *model.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *s
	r.byID[s.ID] = &cp
	r.progress[s.ID] = append(r.progress[s.ID], s.Progress)
	return nil
}

func (r *MockStoryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Save mirrors the database guard: terminal rows are frozen, progress never drops.
func (r *MockStoryRepo) Save(ctx context.Context, tx repository.Tx, s *model.Story) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status.Terminal() {
		return domain.ErrInvalidState
	}
	cp := *s
	if cur.Progress > cp.Progress {
		cp.Progress = cur.Progress
	}
	r.byID[s.ID] = &cp
	r.progress[s.ID] = append(r.progress[s.ID], cp.Progress)
	return nil
}

func (r *MockStoryRepo) StartIfQueued(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error) {
	if r.StartIfQueuedFunc != nil {
		return r.StartIfQueuedFunc(ctx, tx, id, progress)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok || s.Status != model.StoryStatusQueued {
		return false, nil
	}
	s.Status = model.StoryStatusGeneratingText
	s.Progress = progress
	r.progress[id] = append(r.progress[id], progress)
	return true, nil
}

func (r *MockStoryRepo) FindStatus(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
	s, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	v := s.StatusView()
	return &v, nil
}

func (r *MockStoryRepo) SetNarration(ctx context.Context, tx repository.Tx, id, voice string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.NarrationVoice != "" {
		return false, nil
	}
	s.NarrationVoice = voice
	return true, nil
}

func (r *MockStoryRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Story, error) {
	if r.ListStaleFunc != nil {
		return r.ListStaleFunc(ctx, tx, before, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Story
	for _, s := range r.byID {
		if s.Status.Active() && s.UpdatedAt.Before(before) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Progress returns every progress value written for id, in order.
func (r *MockStoryRepo) Progress(id string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress[id]...)
}

type MockPageRepo struct {
	mu      sync.Mutex
	byStory map[string][]*model.Page

	InsertBatchFunc func(ctx context.Context, tx repository.Tx, pages []*model.Page) error
}

var _ repository.PageRepository = (*MockPageRepo)(nil)

func NewMockPageRepo() *MockPageRepo {
	return &MockPageRepo{byStory: map[string][]*model.Page{}}
}

func (r *MockPageRepo) InsertBatch(ctx context.Context, tx repository.Tx, pages []*model.Page) error {
	if r.InsertBatchFunc != nil {
		return r.InsertBatchFunc(ctx, tx, pages)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pages {
		cp := *p
		r.byStory[p.StoryID] = append(r.byStory[p.StoryID], &cp)
	}
	return nil
}

func (r *MockPageRepo) ListByStory(ctx context.Context, tx repository.Tx, storyID string) ([]*model.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Page, 0, len(r.byStory[storyID]))
	for _, p := range r.byStory[storyID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (r *MockPageRepo) SetAudioURL(ctx context.Context, tx repository.Tx, storyID string, pageNumber int, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byStory[storyID] {
		if p.PageNumber == pageNumber {
			u := url
			p.AudioURL = &u
			return nil
		}
	}
	return domain.ErrNotFound
}

type MockUsageCounter struct {
	CountStoriesSinceFunc func(ctx context.Context, userID string, since time.Time) (int, error)
	CountLibraryFunc      func(ctx context.Context, userID string) (int, error)
}

var _ repository.UsageCounter = (*MockUsageCounter)(nil)

func (m *MockUsageCounter) CountStoriesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if m.CountStoriesSinceFunc != nil {
		return m.CountStoriesSinceFunc(ctx, userID, since)
	}
	return 0, nil
}

func (m *MockUsageCounter) CountLibrary(ctx context.Context, userID string) (int, error) {
	if m.CountLibraryFunc != nil {
		return m.CountLibraryFunc(ctx, userID)
	}
	return 0, nil
}

// ---- In-memory Locker (implements repository.Locker port) ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ repository.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockHeld
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// -----------------------------
// Generators and side channels
// -----------------------------

type MockTextGenerator struct {
	GenerateStoryFunc func(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error)
	Calls             int
}

func (m *MockTextGenerator) Name() string { return "mock-text" }

func (m *MockTextGenerator) GenerateStory(ctx context.Context, req adapter.StoryRequest) (*adapter.GeneratedStory, error) {
	m.Calls++
	if m.GenerateStoryFunc != nil {
		return m.GenerateStoryFunc(ctx, req)
	}
	return fakeStory(req.PageCount), nil
}

type MockImageGenerator struct {
	mu       sync.Mutex
	Requests []adapter.ImageRequest

	GenerateImageFunc func(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error)
}

func (m *MockImageGenerator) Name() string { return "mock-image" }

func (m *MockImageGenerator) GenerateImage(ctx context.Context, req adapter.ImageRequest) (*adapter.Asset, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, req)
	}
	return &adapter.Asset{Data: []byte("png"), MIMEType: "image/png", Provider: "mock"}, nil
}

type MockAudioGenerator struct {
	GenerateSpeechFunc func(ctx context.Context, req adapter.SpeechRequest) (*adapter.Asset, error)
}

func (m *MockAudioGenerator) Name() string { return "mock-audio" }

func (m *MockAudioGenerator) GenerateSpeech(ctx context.Context, req adapter.SpeechRequest) (*adapter.Asset, error) {
	if m.GenerateSpeechFunc != nil {
		return m.GenerateSpeechFunc(ctx, req)
	}
	return &adapter.Asset{Data: []byte("mp3"), MIMEType: "audio/mpeg", Provider: "mock"}, nil
}

// MockPersister returns a deterministic url per key.
type MockPersister struct {
	PersistFunc func(ctx context.Context, key string, asset *adapter.Asset) (string, error)
}

func (m *MockPersister) Persist(ctx context.Context, key string, asset *adapter.Asset) (string, error) {
	if m.PersistFunc != nil {
		return m.PersistFunc(ctx, key, asset)
	}
	return "https://cdn.test/" + key, nil
}

type MockModerator struct {
	Blocked map[string]bool
}

func (m *MockModerator) Check(text string) adapter.ModerationResult {
	if m.Blocked[text] {
		return adapter.ModerationResult{Safe: false, FlaggedTerms: []string{text}}
	}
	return adapter.ModerationResult{Safe: true}
}

type trackedEvent struct {
	UserID string
	Type   model.EventType
	Data   map[string]any
}

type MockTelemetry struct {
	mu     sync.Mutex
	Events []trackedEvent
}

func (m *MockTelemetry) Track(ctx context.Context, userID string, event model.EventType, data map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, trackedEvent{UserID: userID, Type: event, Data: data})
}

func (m *MockTelemetry) Count(t model.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type MockDispatcher struct {
	mu         sync.Mutex
	Dispatched []string

	DispatchFunc func(ctx context.Context, storyID string) error
}

func (m *MockDispatcher) Dispatch(ctx context.Context, storyID string) error {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, storyID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dispatched = append(m.Dispatched, storyID)
	return nil
}

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func fakeStory(pages int) *adapter.GeneratedStory {
	out := &adapter.GeneratedStory{Title: "La gran aventura", Characters: map[string]string{"Luna": "a girl with a yellow raincoat"}}
	for i := 1; i <= pages; i++ {
		out.Pages = append(out.Pages, adapter.GeneratedPage{
			Number:           i,
			Text:             "Había una vez una niña muy curiosa.",
			SceneDescription: "a girl looking at the stars",
		})
	}
	return out
}

func premiumWallet(userID string, monthly, purchased int) *model.Wallet {
	w, _ := model.NewWallet(userID)
	w.Plan = model.PlanPremium
	w.SubscriptionStatus = model.SubscriptionActive
	w.MonthlyCreditsRemaining = monthly
	w.MonthlyCreditsTotal = monthly
	w.PurchasedCreditsBalance = purchased
	return w
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
