package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/memos/internal/apperr"
	"github.com/iliyamo/memos/internal/model"
	"github.com/iliyamo/memos/internal/policy"
	"github.com/iliyamo/memos/internal/queue"
)

// CreateMemoInput is the body of a memo creation.  A nil Visibility
// means PRIVATE.
type CreateMemoInput struct {
	Content    string
	Visibility *model.Visibility
	Tags       []string
	Pinned     bool
	Payload    json.RawMessage
}

// MemoService runs memo mutations and single-memo reads.
type MemoService struct {
	memos       MemoStore
	attachments AttachmentStore
	files       FileStore
	publisher   queue.Publisher
	commands    CommandRecorder
	publishes   PublishRecorder
	now         func() time.Time
}

func NewMemoService(memos MemoStore) *MemoService {
	return &MemoService{memos: memos, publisher: queue.NopPublisher{}, now: time.Now}
}

// WithAttachmentCleanup makes Delete remove the files of the memo's
// attachments after the rows are gone.
func (s *MemoService) WithAttachmentCleanup(a AttachmentStore, f FileStore) *MemoService {
	s.attachments, s.files = a, f
	return s
}

// WithPublisher sets the event sink.
func (s *MemoService) WithPublisher(p queue.Publisher) *MemoService {
	s.publisher = p
	return s
}

// WithMetrics attaches command and publish counters.
func (s *MemoService) WithMetrics(c CommandRecorder, p PublishRecorder) *MemoService {
	s.commands, s.publishes = c, p
	return s
}

// WithClock replaces the time source.
func (s *MemoService) WithClock(now func() time.Time) *MemoService {
	s.now = now
	return s
}

func (s *MemoService) record(command string, err error) {
	if s.commands != nil {
		s.commands.RecordCommand(command, apperr.Kind(err))
	}
}

// publish is best effort: failures are logged and counted, never
// returned.  It runs after the store committed.
func (s *MemoService) publish(ctx context.Context, typ string, m *model.Memo) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	err := s.publisher.Publish(ctx, queue.NewMemoEvent(typ, m, s.now()))
	if s.publishes != nil {
		s.publishes.RecordPublish(err)
	}
	if err != nil {
		slog.WarnContext(ctx, "memo event not published",
			slog.String("event", typ), slog.Uint64("memo_id", m.ID), slog.String("error", err.Error()))
	}
}

func requireUser(p model.Principal) error {
	if !p.IsAuthenticated() {
		return apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.New(apperr.ErrInvalid, "content is required")
	}
	return nil
}

// Create stores a new memo owned by the caller under a fresh uid.
func (s *MemoService) Create(ctx context.Context, p model.Principal, in CreateMemoInput) (m *model.Memo, err error) {
	defer func() { s.record("create", err) }()
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	vis := model.VisibilityPrivate
	if in.Visibility != nil {
		if !in.Visibility.Valid() {
			return nil, apperr.New(apperr.ErrInvalid, "invalid visibility")
		}
		vis = *in.Visibility
	}
	if len(in.Payload) > 0 && !json.Valid(in.Payload) {
		return nil, apperr.New(apperr.ErrInvalid, "payload must be JSON")
	}

	m = &model.Memo{
		UID:        uuid.NewString(),
		CreatorID:  p.UserID,
		Content:    in.Content,
		Visibility: vis,
		Tags:       model.NormalizeTags(in.Tags),
		Pinned:     in.Pinned,
		Payload:    in.Payload,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.memos.Create(ctx, m); err != nil {
		return nil, err
	}
	s.publish(ctx, queue.MemoCreated, m)
	return m, nil
}

// Update applies the supplied fields of patch to memo id.  The caller
// must own the memo; the check and the write share one transaction.
// Fields absent from patch keep their stored values.
func (s *MemoService) Update(ctx context.Context, p model.Principal, id uint64, patch model.MemoPatch) (m *model.Memo, err error) {
	defer func() { s.record("update", err) }()
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if patch.Content != nil {
		if err := validateContent(*patch.Content); err != nil {
			return nil, err
		}
	}
	if patch.Visibility != nil && !patch.Visibility.Valid() {
		return nil, apperr.New(apperr.ErrInvalid, "invalid visibility")
	}

	now := s.now().UTC()
	m, err = s.memos.Update(ctx, id, func(m *model.Memo) error {
		if m.CreatorID != p.UserID {
			return apperr.New(apperr.ErrForbidden, "only the creator can modify this memo")
		}
		patch.Apply(m)
		m.UpdatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.MemoUpdated, m)
	return m, nil
}

// Delete removes memo id and everything hanging off it.  Same ownership
// rule as Update.
func (s *MemoService) Delete(ctx context.Context, p model.Principal, id uint64) (err error) {
	defer func() { s.record("delete", err) }()
	if err := requireUser(p); err != nil {
		return err
	}

	// file refs are read before the rows disappear with the memo
	var refs []string
	if s.attachments != nil && s.files != nil {
		atts, err := s.attachments.ListByMemo(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range atts {
			refs = append(refs, a.Reference)
		}
	}

	m, err := s.memos.Delete(ctx, id, func(m *model.Memo) error {
		if m.CreatorID != p.UserID {
			return apperr.New(apperr.ErrForbidden, "only the creator can delete this memo")
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := s.files.Remove(ref); err != nil {
			slog.WarnContext(ctx, "attachment file not removed", slog.String("ref", ref), slog.String("error", err.Error()))
		}
	}
	s.publish(ctx, queue.MemoDeleted, m)
	return nil
}

// Get returns memo id if p may view it.  A denied anonymous caller gets
// ErrUnauthenticated, a denied user ErrForbidden.
func (s *MemoService) Get(ctx context.Context, p model.Principal, id uint64) (*model.Memo, error) {
	m, err := s.memos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckView(m, p); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByUID is Get keyed by the external uid.
func (s *MemoService) GetByUID(ctx context.Context, p model.Principal, uid string) (*model.Memo, error) {
	m, err := s.memos.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckView(m, p); err != nil {
		return nil, err
	}
	return m, nil
}
