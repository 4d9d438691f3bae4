package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/unirea/internal/core/domain"
	"github.com/vncsmyrnk/unirea/internal/core/ports"
	"github.com/vncsmyrnk/unirea/internal/metrics"
)

// memStore backs every fake repository. One mutex serialises all access so
// the conditional updates behave like their SQL counterparts.
type memStore struct {
	mu        sync.Mutex
	polls     map[uuid.UUID]*domain.Poll
	responses map[uuid.UUID]map[uuid.UUID]*domain.Response
	peeks     map[uuid.UUID]map[uuid.UUID]bool
	posts     []*domain.Post
	profiles  map[uuid.UUID]*domain.Profile

	publishErr  error
	countCalls  int
	incrementFn func(ctx context.Context) error
	afterCount  func()
}

func newMemStore() *memStore {
	return &memStore{
		polls:     make(map[uuid.UUID]*domain.Poll),
		responses: make(map[uuid.UUID]map[uuid.UUID]*domain.Response),
		peeks:     make(map[uuid.UUID]map[uuid.UUID]bool),
		profiles:  make(map[uuid.UUID]*domain.Profile),
	}
}

func (m *memStore) poll(id uuid.UUID) *domain.Poll {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.polls[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (m *memStore) postCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts)
}

func (m *memStore) responseCount(pollID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses[pollID])
}

type fakePollRepo struct{ *memStore }

func (r fakePollRepo) Save(_ context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *poll
	r.polls[poll.ID] = &cp
	return nil
}

func (r fakePollRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	if p := r.poll(id); p != nil {
		return p, nil
	}
	return nil, domain.ErrPollNotFound
}

func (r fakePollRepo) ListVisible(_ context.Context, viewer *domain.Profile, limit, offset int) ([]*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Poll
	for _, p := range r.polls {
		if !p.Open(time.Now()) {
			continue
		}
		if viewer.IsAdmin || viewer.ID == p.CreatedBy || viewer.CanSee(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (r fakePollRepo) Update(_ context.Context, id uuid.UUID, u ports.PollUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.ClearExpiry {
		p.ExpiresAt = nil
	} else if u.ExpiresAt != nil {
		p.ExpiresAt = u.ExpiresAt
	}
	if u.Active != nil {
		p.Active = *u.Active
	}
	if u.RevealThreshold != nil {
		p.RevealThreshold = *u.RevealThreshold
	}
	return nil
}

func (r fakePollRepo) IncrementResponseCount(ctx context.Context, id uuid.UUID) (*domain.Counter, error) {
	if r.incrementFn != nil {
		if err := r.incrementFn(ctx); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	p.ResponseCount++
	return &domain.Counter{ResponseCount: p.ResponseCount, RevealThreshold: p.RevealThreshold, ResultsUnlockedAt: p.ResultsUnlockedAt}, nil
}

func (r fakePollRepo) GetCounter(_ context.Context, id uuid.UUID) (*domain.Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return &domain.Counter{ResponseCount: p.ResponseCount, RevealThreshold: p.RevealThreshold, ResultsUnlockedAt: p.ResultsUnlockedAt}, nil
}

func (r fakePollRepo) MarkResultsUnlocked(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok || p.ResultsUnlockedAt != nil {
		return false, nil
	}
	p.ResultsUnlockedAt = &at
	return true, nil
}

func (r fakePollRepo) ListUnlockedWithoutPost(_ context.Context) ([]*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Poll
	for _, p := range r.polls {
		if p.ResultsUnlockedAt != nil && p.ResultPostID == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeResponseRepo struct{ *memStore }

func (r fakeResponseRepo) Save(_ context.Context, resp *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.responses[resp.PollID]
	if !ok {
		byUser = make(map[uuid.UUID]*domain.Response)
		r.responses[resp.PollID] = byUser
	}
	if _, dup := byUser[resp.UserID]; dup {
		return domain.ErrAlreadyAnswered
	}
	cp := *resp
	byUser[resp.UserID] = &cp
	return nil
}

func (r fakeResponseRepo) HasAnswered(_ context.Context, pollID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.responses[pollID][userID]
	return ok, nil
}

func (r fakeResponseRepo) GetByUser(_ context.Context, pollID, userID uuid.UUID) (*domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[pollID][userID]
	if !ok {
		return nil, nil
	}
	cp := *resp
	return &cp, nil
}

func (m *memStore) countLocked(pollID uuid.UUID) *domain.AnswerCounts {
	counts := &domain.AnswerCounts{PerOption: make(map[uuid.UUID]int)}
	for _, resp := range m.responses[pollID] {
		counts.Total++
		for _, optionID := range resp.Answers {
			counts.PerOption[optionID]++
		}
	}
	return counts
}

type fakeStatsRepo struct{ *memStore }

// GetAnswerCounts runs afterCount, if set, once the tally is taken and the
// store is unlocked, so a test can hold a reader between its read and its
// cache write.
func (r fakeStatsRepo) GetAnswerCounts(_ context.Context, pollID uuid.UUID) (*domain.AnswerCounts, error) {
	r.mu.Lock()
	r.countCalls++
	counts := r.countLocked(pollID)
	afterCount := r.afterCount
	r.mu.Unlock()

	if afterCount != nil {
		afterCount()
	}
	return counts, nil
}

type fakePeekRepo struct{ *memStore }

func (r fakePeekRepo) ClaimPeek(_ context.Context, pollID, userID uuid.UUID) (*domain.AnswerCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.peeks[pollID]
	if !ok {
		byUser = make(map[uuid.UUID]bool)
		r.peeks[pollID] = byUser
	}
	if byUser[userID] {
		return nil, domain.ErrAlreadyPeeked
	}
	byUser[userID] = true
	return r.countLocked(pollID), nil
}

func (r fakePeekRepo) HasPeeked(_ context.Context, pollID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peeks[pollID][userID], nil
}

type fakePostRepo struct{ *memStore }

func (r fakePostRepo) PublishResult(_ context.Context, pollID uuid.UUID, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return r.publishErr
	}
	p, ok := r.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	if p.ResultPostID != nil {
		return domain.ErrAlreadyPublished
	}
	id := post.ID
	p.ResultPostID = &id
	r.posts = append(r.posts, post)
	return nil
}

type fakeProfileRepo struct{ *memStore }

func (r fakeProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

type cachedCounts struct {
	version int
	counts  *domain.AnswerCounts
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID]cachedCounts
	invalidated int
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[uuid.UUID]cachedCounts)}
}

func (c *fakeCache) Get(_ context.Context, pollID uuid.UUID, version int) (*domain.AnswerCounts, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	entry, ok := c.entries[pollID]
	if !ok || entry.version != version {
		return nil, false, nil
	}
	return entry.counts, true, nil
}

func (c *fakeCache) Set(_ context.Context, pollID uuid.UUID, version int, counts *domain.AnswerCounts) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pollID] = cachedCounts{version: version, counts: counts}
	return nil
}

func (c *fakeCache) cached(pollID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[pollID]
	return ok
}

func (c *fakeCache) Invalidate(_ context.Context, pollID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pollID)
	c.invalidated++
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.PollEvent
}

func (e *fakeEvents) Publish(_ context.Context, event domain.PollEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) Close() error { return nil }

func (e *fakeEvents) ofType(t domain.EventType) []domain.PollEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.PollEvent
	for _, ev := range e.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	store    *memStore
	cache    *fakeCache
	events   *fakeEvents
	metrics  *metrics.PollMetrics
	polls    ports.PollService
	submit   ports.ResponseService
	stats    ports.StatsService
	publish  ports.PublishService
	unlock   ports.UnlockService
	backfill ports.BackfillService
	admin    *domain.Profile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	env := &testEnv{
		store:   store,
		cache:   newFakeCache(),
		events:  &fakeEvents{},
		metrics: metrics.NewPollMetrics(prometheus.NewRegistry(), "test"),
	}

	pollRepo := fakePollRepo{store}
	responseRepo := fakeResponseRepo{store}
	peekRepo := fakePeekRepo{store}
	profileRepo := fakeProfileRepo{store}

	env.publish = NewPublishService(pollRepo, profileRepo, fakePostRepo{store})
	env.unlock = NewUnlockService(pollRepo, env.publish, env.events, env.metrics)
	env.polls = NewPollService(pollRepo, profileRepo, responseRepo, peekRepo, env.unlock)
	env.submit = NewResponseService(pollRepo, responseRepo, profileRepo, env.unlock, env.cache, env.events, env.metrics)
	env.stats = NewStatsService(pollRepo, responseRepo, profileRepo, fakeStatsRepo{store}, peekRepo, env.cache, env.metrics)
	env.backfill = NewBackfillService(pollRepo, env.publish)

	env.admin = env.addProfile(true, "CNMB", 2015, "12A")
	return env
}

func (e *testEnv) addProfile(admin bool, school string, year int, class string) *domain.Profile {
	p := &domain.Profile{
		ID:             uuid.New(),
		FullName:       "Ion Popescu",
		School:         &school,
		GraduationYear: &year,
		ClassName:      &class,
		IsAdmin:        admin,
	}
	e.store.mu.Lock()
	e.store.profiles[p.ID] = p
	e.store.mu.Unlock()
	return p
}

// createPoll creates a poll of n questions with the given option counts.
func (e *testEnv) createPoll(t *testing.T, threshold int, scope domain.Scope, optionsPerQuestion ...int) *domain.Poll {
	t.Helper()

	input := ports.CreatePollInput{
		CreatorID:       e.admin.ID,
		Title:           "Reuniunea de 10 ani",
		Scope:           scope,
		RevealThreshold: &threshold,
	}
	for i, n := range optionsPerQuestion {
		q := ports.QuestionInput{Text: fmt.Sprintf("Intrebarea %d", i+1)}
		for j := 0; j < n; j++ {
			q.Options = append(q.Options, fmt.Sprintf("Varianta %d", j+1))
		}
		input.Questions = append(input.Questions, q)
	}

	poll, err := e.polls.Create(context.Background(), input)
	require.NoError(t, err)
	return poll
}

// answers picks option index choice for every question.
func answers(poll *domain.Poll, choice int) domain.Answers {
	a := make(domain.Answers, len(poll.Questions))
	for _, q := range poll.Questions {
		a[q.ID] = q.Options[choice].ID
	}
	return a
}

func (e *testEnv) respond(t *testing.T, poll *domain.Poll, choice int) (uuid.UUID, *ports.SubmitResult) {
	t.Helper()

	userID := uuid.New()
	result, err := e.submit.Submit(context.Background(), ports.SubmitInput{
		PollID:  poll.ID,
		UserID:  userID,
		Answers: answers(poll, choice),
	})
	require.NoError(t, err)
	return userID, result
}

func (e *testEnv) forceUnlock(t *testing.T, pollID uuid.UUID) {
	t.Helper()

	e.store.mu.Lock()
	defer e.store.mu.Unlock()
	now := time.Now()
	e.store.polls[pollID].ResultsUnlockedAt = &now
}
