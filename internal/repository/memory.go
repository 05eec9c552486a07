package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
)

// Memory is a process-local store with the same behavior as the MySQL
// repositories.  It backs STORE=memory development runs and the service
// and handler tests.  All views share one lock so that memo deletion
// cascades atomically.
type Memory struct {
	mu          sync.Mutex
	seq         uint64
	users       map[uint64]model.User
	memos       map[uint64]model.Memo
	tokens      map[uint64]model.AccessToken
	attachments map[uint64]model.Attachment
	reactions   map[uint64]model.Reaction
	relations   map[uint64]model.MemoRelation
}

func NewMemory() *Memory {
	return &Memory{
		users:       map[uint64]model.User{},
		memos:       map[uint64]model.Memo{},
		tokens:      map[uint64]model.AccessToken{},
		attachments: map[uint64]model.Attachment{},
		reactions:   map[uint64]model.Reaction{},
		relations:   map[uint64]model.MemoRelation{},
	}
}

func (s *Memory) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Memory) Users() *MemoryUsers             { return &MemoryUsers{s} }
func (s *Memory) Memos() *MemoryMemos             { return &MemoryMemos{s} }
func (s *Memory) Tokens() *MemoryTokens           { return &MemoryTokens{s} }
func (s *Memory) Attachments() *MemoryAttachments { return &MemoryAttachments{s} }
func (s *Memory) Reactions() *MemoryReactions     { return &MemoryReactions{s} }
func (s *Memory) Relations() *MemoryRelations     { return &MemoryRelations{s} }

// ---- users ----

type MemoryUsers struct{ s *Memory }

func (r *MemoryUsers) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	for _, x := range r.s.users {
		if x.Username == u.Username || x.Email == u.Email {
			return apperr.New(apperr.ErrConflict, "username or email already exists")
		}
	}
	u.ID = r.s.next()
	r.s.users[u.ID] = *u
	return nil
}

func (r *MemoryUsers) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *MemoryUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *MemoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *MemoryUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *MemoryUsers) List(_ context.Context, page Page) ([]model.User, error) {
	r.s.mu.Lock()
	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return Slice(out, page), nil
}

func (r *MemoryUsers) UpdateProfile(_ context.Context, id uint64, patch model.UserPatch, now time.Time) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	patch.Apply(&u)
	u.UpdatedAt = &now
	r.s.users[id] = u
	return &u, nil
}

// ---- memos ----

type MemoryMemos struct{ s *Memory }

func cloneMemo(m model.Memo) model.Memo {
	m.Tags = append([]string{}, m.Tags...)
	return m
}

func (r *MemoryMemos) Create(_ context.Context, m *model.Memo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.memos {
		if x.UID == m.UID {
			return apperr.New(apperr.ErrConflict, "memo uid already exists")
		}
	}
	m.ID = r.s.next()
	if m.Tags == nil {
		m.Tags = []string{}
	}
	r.s.memos[m.ID] = cloneMemo(*m)
	return nil
}

func (r *MemoryMemos) GetByID(_ context.Context, id uint64) (*model.Memo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memos[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	m = cloneMemo(m)
	return &m, nil
}

func (r *MemoryMemos) GetByUID(_ context.Context, uid string) (*model.Memo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.memos {
		if m.UID == uid {
			m = cloneMemo(m)
			return &m, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *MemoryMemos) Query(_ context.Context, f MemoFilter, page Page) ([]model.Memo, error) {
	r.s.mu.Lock()
	out := make([]model.Memo, 0)
	for _, m := range r.s.memos {
		if f.Matches(&m) {
			out = append(out, cloneMemo(m))
		}
	}
	r.s.mu.Unlock()
	SortMemos(out)
	return Slice(out, page), nil
}

func (r *MemoryMemos) Update(_ context.Context, id uint64, mutate func(*model.Memo) error) (*model.Memo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memos[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	m = cloneMemo(m)
	if err := mutate(&m); err != nil {
		return nil, err
	}
	r.s.memos[id] = cloneMemo(m)
	return &m, nil
}

func (r *MemoryMemos) Delete(_ context.Context, id uint64, guard func(*model.Memo) error) (*model.Memo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.memos[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if err := guard(&m); err != nil {
		return nil, err
	}
	for k, a := range r.s.attachments {
		if a.MemoID != nil && *a.MemoID == id {
			delete(r.s.attachments, k)
		}
	}
	for k, rc := range r.s.reactions {
		if rc.MemoID == id {
			delete(r.s.reactions, k)
		}
	}
	for k, rel := range r.s.relations {
		if rel.MemoID == id || rel.RelatedMemoID == id {
			delete(r.s.relations, k)
		}
	}
	delete(r.s.memos, id)
	return &m, nil
}

// SortMemos orders memos newest first, breaking ties by descending id.
func SortMemos(ms []model.Memo) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.After(ms[j].CreatedAt)
		}
		return ms[i].ID > ms[j].ID
	})
}

// ---- access tokens ----

type MemoryTokens struct{ s *Memory }

func (r *MemoryTokens) Create(_ context.Context, t *model.AccessToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.tokens {
		if x.TokenHash == t.TokenHash {
			return apperr.New(apperr.ErrConflict, "token already exists")
		}
	}
	t.ID = r.s.next()
	r.s.tokens[t.ID] = *t
	return nil
}

func (r *MemoryTokens) FindByHash(_ context.Context, hash string) (*model.AccessToken, *model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tokens {
		if t.TokenHash != hash {
			continue
		}
		u, ok := r.s.users[t.UserID]
		if !ok {
			return nil, nil, apperr.ErrNotFound
		}
		return &t, &u, nil
	}
	return nil, nil, apperr.ErrNotFound
}

func (r *MemoryTokens) ListByUser(_ context.Context, userID uint64) ([]model.AccessToken, error) {
	r.s.mu.Lock()
	out := make([]model.AccessToken, 0)
	for _, t := range r.s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemoryTokens) DeleteByIDAndUser(_ context.Context, id, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok || t.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(r.s.tokens, id)
	return nil
}

// ---- attachments ----

type MemoryAttachments struct{ s *Memory }

func (r *MemoryAttachments) Create(_ context.Context, a *model.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.next()
	r.s.attachments[a.ID] = *a
	return nil
}

func (r *MemoryAttachments) GetByID(_ context.Context, id uint64) (*model.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attachments[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &a, nil
}

func (r *MemoryAttachments) DeleteByID(_ context.Context, id uint64, guard func(*model.Attachment) error) (*model.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.attachments[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if err := guard(&a); err != nil {
		return nil, err
	}
	delete(r.s.attachments, id)
	return &a, nil
}

func (r *MemoryAttachments) list(match func(model.Attachment) bool, page Page) []model.Attachment {
	r.s.mu.Lock()
	out := make([]model.Attachment, 0)
	for _, a := range r.s.attachments {
		if match(a) {
			out = append(out, a)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return Slice(out, page)
}

func (r *MemoryAttachments) ListByCreator(_ context.Context, creatorID uint64, page Page) ([]model.Attachment, error) {
	return r.list(func(a model.Attachment) bool { return a.CreatorID == creatorID }, page), nil
}

func (r *MemoryAttachments) ListByMemo(_ context.Context, memoID uint64) ([]model.Attachment, error) {
	return r.list(func(a model.Attachment) bool { return a.MemoID != nil && *a.MemoID == memoID }, Page{}), nil
}

// ---- reactions ----

type MemoryReactions struct{ s *Memory }

func (r *MemoryReactions) Create(_ context.Context, rc *model.Reaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.reactions {
		if x.CreatorID == rc.CreatorID && x.MemoID == rc.MemoID && x.Reaction == rc.Reaction {
			return apperr.New(apperr.ErrConflict, "reaction already exists")
		}
	}
	rc.ID = r.s.next()
	r.s.reactions[rc.ID] = *rc
	return nil
}

func (r *MemoryReactions) ListByMemo(_ context.Context, memoID uint64) ([]model.Reaction, error) {
	r.s.mu.Lock()
	out := make([]model.Reaction, 0)
	for _, rc := range r.s.reactions {
		if rc.MemoID == memoID {
			out = append(out, rc)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryReactions) DeleteByIDAndCreator(_ context.Context, id, creatorID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc, ok := r.s.reactions[id]
	if !ok || rc.CreatorID != creatorID {
		return apperr.ErrNotFound
	}
	delete(r.s.reactions, id)
	return nil
}

// ---- relations ----

type MemoryRelations struct{ s *Memory }

func (r *MemoryRelations) Create(_ context.Context, rel *model.MemoRelation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.relations {
		if x.MemoID == rel.MemoID && x.RelatedMemoID == rel.RelatedMemoID && x.Type == rel.Type {
			return apperr.New(apperr.ErrConflict, "relation already exists")
		}
	}
	rel.ID = r.s.next()
	r.s.relations[rel.ID] = *rel
	return nil
}

func (r *MemoryRelations) ListByMemo(_ context.Context, memoID uint64) ([]model.MemoRelation, error) {
	r.s.mu.Lock()
	out := make([]model.MemoRelation, 0)
	for _, rel := range r.s.relations {
		if rel.MemoID == memoID {
			out = append(out, rel)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
