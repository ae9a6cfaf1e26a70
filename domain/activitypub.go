package domain

import (
	"time"

	"github.com/google/uuid"
)

// FollowState tracks the lifecycle of a follow edge. Only accepted
// edges take part in relay fan-out and collection serving.
type FollowState string

const (
	FollowPending  FollowState = "pending"
	FollowAccepted FollowState = "accepted"
	FollowRejected FollowState = "rejected"
)

// Follow represents a follow edge between two actors.
type Follow struct {
	Id            uuid.UUID
	ActorId       uuid.UUID // the follower
	TargetActorId uuid.UUID // the actor being followed
	URI           string    // Follow activity URI
	State         FollowState
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Activity is the processed-activity log row, used for deduplication
// and debugging.
type Activity struct {
	Id           uuid.UUID
	ActivityURI  string
	ActivityType string // Follow, Create, Like, Announce, Undo, etc.
	ActorURI     string
	ObjectURI    string
	RawJSON      string
	Processed    bool
	CreatedAt    time.Time
	Local        bool // true if originated from this server
}

// DeliveryQueueItem represents an item in the outbound delivery queue.
type DeliveryQueueItem struct {
	Id            uuid.UUID
	InboxURI      string
	SenderActorId uuid.UUID // local actor whose key signs the request
	ActivityJSON  string
	Attempts      int
	NextRetryAt   time.Time
	CreatedAt     time.Time
}
