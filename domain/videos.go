package domain

import (
	"time"

	"github.com/google/uuid"
)

// VideoPrivacy mirrors the federation vocabulary's privacy levels.
type VideoPrivacy int

const (
	VideoPrivacyPublic VideoPrivacy = iota + 1
	VideoPrivacyUnlisted
	VideoPrivacyPrivate
	VideoPrivacyInternal
)

// VideoState is the lifecycle state of a video.
type VideoState int

const (
	VideoStatePublished VideoState = iota + 1
	VideoStateToTranscode
	VideoStateToImport
	VideoStateWaitingForLive
	VideoStateLiveEnded
)

// Video is a local original or a mirrored remote video.
// A video is locally owned iff its channel actor is local.
type Video struct {
	Id              uuid.UUID
	URI             string // canonical URL
	UUID            uuid.UUID
	ChannelActorId  uuid.UUID
	Name            string
	Description     string
	Privacy         VideoPrivacy
	State           VideoState
	Duration        int // seconds
	Views           int64
	TagsJSON        string // JSON array of tag strings
	PublishedAt     time.Time
	LastRefreshedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StreamingPlaylistType distinguishes streaming formats; only HLS exists today.
type StreamingPlaylistType int

const (
	StreamingPlaylistHLS StreamingPlaylistType = 1
)

// StreamingPlaylist is one streaming representation of a video.
// Cache files (redundancy) attach to a playlist, not the video itself.
type StreamingPlaylist struct {
	Id          uuid.UUID
	VideoId     uuid.UUID
	Type        StreamingPlaylistType
	PlaylistURL string
	CreatedAt   time.Time
}

// VideoRateType is a like or dislike.
type VideoRateType string

const (
	VideoRateLike    VideoRateType = "like"
	VideoRateDislike VideoRateType = "dislike"
)

// VideoRate is one actor's rating of one video.
type VideoRate struct {
	Id        uuid.UUID
	ActorId   uuid.UUID
	VideoId   uuid.UUID
	Type      VideoRateType
	URI       string
	CreatedAt time.Time
}

// VideoShare records an Announce of a video by an actor. UpdatedAt is
// bumped by crawls so stale shares can be swept afterwards.
type VideoShare struct {
	Id        uuid.UUID
	ActorId   uuid.UUID
	VideoId   uuid.UUID
	URI       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
