package domain

import (
	"time"

	"github.com/google/uuid"
)

// VideoPlaylist is a playlist owned by a channel actor. Remote playlists
// are not append-only logs, so their elements are rebuilt wholesale on
// every refresh instead of diffed.
type VideoPlaylist struct {
	Id              uuid.UUID
	URI             string
	UUID            uuid.UUID
	OwnerActorId    uuid.UUID
	Name            string
	Description     string
	Privacy         VideoPrivacy
	LastRefreshedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// VideoPlaylistElement is one ordered entry of a playlist.
type VideoPlaylistElement struct {
	Id             uuid.UUID
	PlaylistId     uuid.UUID
	VideoId        uuid.UUID
	Position       int
	StartTimestamp int // seconds, 0 = from start
	StopTimestamp  int // seconds, 0 = to end
	CreatedAt      time.Time
}
