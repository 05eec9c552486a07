package model

import "time"

// Attachment is file metadata owned by a user and optionally bound to a
// memo.  Reference is the storage location of the bytes.
type Attachment struct {
	ID          uint64    `json:"id"`
	UID         string    `json:"uid"`
	CreatorID   uint64    `json:"creator_id"`
	MemoID      *uint64   `json:"memo_id,omitempty"`
	Filename    string    `json:"filename"`
	FileType    string    `json:"file_type,omitempty"`
	FileSize    int64     `json:"file_size"`
	StorageType string    `json:"storage_type"`
	Reference   string    `json:"-"`
	CreatedAt   time.Time `json:"created_ts"`
}

// Reaction is a short emoji or word left on a memo by a user.
type Reaction struct {
	ID        uint64    `json:"id"`
	CreatorID uint64    `json:"creator_id"`
	MemoID    uint64    `json:"memo_id"`
	Reaction  string    `json:"reaction"`
	CreatedAt time.Time `json:"created_ts"`
}

// MemoRelation is a directed, typed edge from MemoID to RelatedMemoID.
type MemoRelation struct {
	ID            uint64    `json:"id"`
	MemoID        uint64    `json:"memo_id"`
	RelatedMemoID uint64    `json:"related_memo_id"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"created_ts"`
}
