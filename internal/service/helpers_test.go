package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/queue"
	"github.com/iliyamo/memos/internal/repository"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type capturePublisher struct {
	mu     sync.Mutex
	events []queue.MemoEvent
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, ev queue.MemoEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeFiles struct{ removed []string }

func (f *fakeFiles) Remove(ref string) error {
	f.removed = append(f.removed, ref)
	return nil
}

type env struct {
	store  *repository.Memory
	stores Stores
	clock  *clock
	pub    *capturePublisher
	files  *fakeFiles
	memos  *MemoService
	query  *QueryService
	alice  model.Principal
	bob    model.Principal
	anon   model.Principal
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store: repository.NewMemory(),
		clock: &clock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		pub:   &capturePublisher{},
		files: &fakeFiles{},
		anon:  model.Anonymous(),
	}
	e.stores = MemoryStores(e.store)
	e.memos = NewMemoService(e.stores.Memos).
		WithClock(e.clock.now).
		WithPublisher(e.pub).
		WithAttachmentCleanup(e.stores.Attachments, e.files)
	e.query = NewQueryService(e.stores.Memos)

	e.alice = e.user(t, "alice")
	e.bob = e.user(t, "bob")
	return e
}

func (e *env) user(t *testing.T, name string) model.Principal {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com"}
	require.NoError(t, e.stores.Users.Create(context.Background(), u))
	return model.Authenticated(u.ID, model.CredentialSession)
}

// memo creates a memo one minute after the previous one.
func (e *env) memo(t *testing.T, owner model.Principal, vis model.Visibility, content string, tags ...string) *model.Memo {
	t.Helper()
	e.clock.advance(time.Minute)
	m, err := e.memos.Create(context.Background(), owner, CreateMemoInput{Content: content, Visibility: &vis, Tags: tags})
	require.NoError(t, err)
	return m
}

func ids(ms []model.Memo) []uint64 {
	out := make([]uint64, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
