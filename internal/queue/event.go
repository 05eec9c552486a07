// Package queue carries memo lifecycle events over RabbitMQ: a publisher
// used by the command service and a consumer run by `memos consumer`.
package queue

import (
	"time"

	"github.com/iliyamo/memos/internal/model"
)

// QueueName is the durable queue every memo event is routed to.
const QueueName = "memo.events"

// Event types.
const (
	MemoCreated = "memo.created"
	MemoUpdated = "memo.updated"
	MemoDeleted = "memo.deleted"
)

// MemoEvent is published after a memo mutation commits.  It carries
// identifiers and visibility only, never content.
type MemoEvent struct {
	Type       string           `json:"type"`
	MemoID     uint64           `json:"memo_id"`
	MemoUID    string           `json:"memo_uid"`
	CreatorID  uint64           `json:"creator_id"`
	Visibility model.Visibility `json:"visibility"`
	At         time.Time        `json:"at"`
}

// NewMemoEvent builds an event of typ for m at time at.
func NewMemoEvent(typ string, m *model.Memo, at time.Time) MemoEvent {
	return MemoEvent{
		Type:       typ,
		MemoID:     m.ID,
		MemoUID:    m.UID,
		CreatorID:  m.CreatorID,
		Visibility: m.Visibility,
		At:         at.UTC(),
	}
}
