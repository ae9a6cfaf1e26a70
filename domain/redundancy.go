package domain

import (
	"time"

	"github.com/google/uuid"
)

// CacheFileMediaType is the only media type accepted for redundancy
// offers; anything else is silently skipped.
const CacheFileMediaType = "application/x-mpegURL"

// VideoCacheFile describes a third party's cached copy of one of our
// videos' HLS streaming playlists. Keyed by the activity URL; only the
// actor that created the row may update it.
type VideoCacheFile struct {
	Id                  uuid.UUID
	URI                 string // activity URL, unique
	ActorId             uuid.UUID
	VideoId             uuid.UUID
	StreamingPlaylistId uuid.UUID
	FileURL             string
	ExpiresOn           time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
