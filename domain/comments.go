package domain

import (
	"time"

	"github.com/google/uuid"
)

// VideoComment is a node in a video's comment forest. Comments are
// tombstoned on deletion, never removed, so replies keep a valid parent
// and repeated federation replays stay consistent.
type VideoComment struct {
	Id                 uuid.UUID
	URI                string
	VideoId            uuid.UUID
	ActorId            uuid.UUID
	InReplyToCommentId *uuid.UUID // nil for top-level threads
	Content            string
	HeldForReview      bool
	DeletedAt          *time.Time // tombstone marker
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsDeleted reports whether the comment has been tombstoned.
func (c *VideoComment) IsDeleted() bool {
	return c.DeletedAt != nil
}
