package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActorType is the ActivityStreams type of an actor.
type ActorType string

const (
	ActorTypePerson      ActorType = "Person"      // an account
	ActorTypeGroup       ActorType = "Group"       // a video channel
	ActorTypeApplication ActorType = "Application" // the instance actor
)

// Actor represents a federated identity, local or remote.
// Local actors have Host == "" and carry a private key.
type Actor struct {
	Id                uuid.UUID
	URI               string // canonical URL, federation identity
	Type              ActorType
	PreferredUsername string
	Host              string // empty for local actors
	DisplayName       string
	Summary           string
	InboxURI          string
	OutboxURI         string
	FollowersURI      string
	FollowingURI      string
	SharedInboxURI    string
	PublicKeyPem      string
	PrivateKeyPem     string // empty for remote actors
	LastFetchedAt     time.Time
	CreatedAt         time.Time
}

// IsLocal reports whether this actor belongs to this node.
func (a *Actor) IsLocal() bool {
	return a.Host == ""
}

// BestInbox prefers the shared inbox for delivery when the remote
// server publishes one.
func (a *Actor) BestInbox() string {
	if a.SharedInboxURI != "" {
		return a.SharedInboxURI
	}
	return a.InboxURI
}

// CacheState classifies a cached remote row for the fetch-or-create
// resolver: a missing row must be fetched, a stale row is served and
// refreshed in the background, a fresh row is served as-is.
type CacheState int

const (
	CacheFresh CacheState = iota
	CacheStale
	CacheMissing
)

// ClassifyCache is the staleness check used by the resolver.
func ClassifyCache(lastFetched time.Time, window time.Duration, exists bool) CacheState {
	if !exists {
		return CacheMissing
	}
	if time.Since(lastFetched) < window {
		return CacheFresh
	}
	return CacheStale
}
