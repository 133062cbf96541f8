package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/item"
	"google.golang.org/api/gmail/v1"
)

type fakeSources struct {
	feeds []feed.Source
	mail  feed.MailSettings
}

func (f *fakeSources) Feeds() []feed.Source    { return f.feeds }
func (f *fakeSources) Mail() feed.MailSettings { return f.mail }

type fakeFetcher struct {
	mu      sync.Mutex
	results map[string][]item.Candidate
	errors  map[string]error
	calls   []string
	times   []time.Time
	ends    []time.Time
	delay   time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, source feed.Source, timeout time.Duration) ([]item.Candidate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, source.Name)
	f.times = append(f.times, time.Now())
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.ends = append(f.ends, time.Now())
	f.mu.Unlock()

	if err := f.errors[source.Name]; err != nil {
		return nil, err
	}
	return f.results[source.Name], nil
}

type fakeStore struct {
	mu          sync.Mutex
	items       map[string]item.Candidate
	failKeys    map[string]bool
	unavailable bool
	onInsert    func(ctx context.Context, candidate item.Candidate)
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]item.Candidate), failKeys: make(map[string]bool)}
}

func (s *fakeStore) Insert(ctx context.Context, candidate item.Candidate) (database.InsertResult, error) {
	if s.onInsert != nil {
		s.onInsert(ctx, candidate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return database.InsertFailed, fmt.Errorf("%w: failed to begin transaction: disk I/O error", database.ErrStoreUnavailable)
	}
	if s.failKeys[candidate.IdentityKey] {
		return database.InsertFailed, fmt.Errorf("failed to insert item: constraint failed")
	}
	if _, ok := s.items[candidate.IdentityKey]; ok {
		return database.Duplicate, nil
	}
	s.items[candidate.IdentityKey] = candidate
	return database.Inserted, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakeMailbox struct {
	mu        sync.Mutex
	ids       []string
	messages  map[string]*gmail.Message
	searchErr error
	queries   []string
	max       int
}

func (m *fakeMailbox) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, query)
	m.max = maxResults
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.ids, nil
}

func (m *fakeMailbox) Fetch(ctx context.Context, id string) (*gmail.Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("failed to fetch message %s: 404 not found", id)
	}
	return msg, nil
}

func feedCandidate(source, link string) item.Candidate {
	return item.Candidate{
		Title:       "Title " + link,
		IdentityKey: link,
		Published:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Body:        "summary",
		SourceName:  source,
	}
}

type stubCycle struct {
	kind    Kind
	mu      sync.Mutex
	runs    int
	release chan struct{}
	started chan struct{}
	panics  bool
	err     error
}

func (c *stubCycle) Kind() Kind { return c.kind }

func (c *stubCycle) Run(ctx context.Context) (*Summary, error) {
	c.mu.Lock()
	c.runs++
	c.mu.Unlock()

	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	if c.panics {
		panic("boom")
	}

	summary := newSummary(NewTask(c.kind))
	summary.source("stub").New = 1
	return summary, c.err
}

func (c *stubCycle) runCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}
