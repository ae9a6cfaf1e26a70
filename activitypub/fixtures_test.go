package activitypub

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testConf() *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.Host = "127.0.0.1"
	conf.Conf.HttpPort = 8080
	conf.Conf.SslDomain = "local.example"
	conf.Conf.DatabaseFile = ":memory:"
	return conf
}

func testProcessor(t *testing.T) (*db.DB, *Processor) {
	t.Helper()
	database := testDB(t)
	conf := testConf()
	resolver := NewResolver(database, conf)
	processor := NewProcessor(database, conf, resolver, nil)
	return database, processor
}

// storeActor persists an actor with a fresh fetch timestamp so the
// resolver serves it from cache without touching the network.
func storeActor(t *testing.T, database *db.DB, host, username string, actorType domain.ActorType) *domain.Actor {
	t.Helper()
	id := uuid.New()
	base := "https://local.example"
	if host != "" {
		base = "https://" + host
	}
	path := "accounts"
	if actorType == domain.ActorTypeGroup {
		path = "video-channels"
	}
	uri := fmt.Sprintf("%s/%s/%s", base, path, username)
	actor := &domain.Actor{
		Id:                id,
		URI:               uri,
		Type:              actorType,
		PreferredUsername: username,
		Host:              host,
		InboxURI:          uri + "/inbox",
		OutboxURI:         uri + "/outbox",
		FollowersURI:      uri + "/followers",
		FollowingURI:      uri + "/following",
		PublicKeyPem:      "pem",
		LastFetchedAt:     time.Now(),
		CreatedAt:         time.Now(),
	}
	if host == "" {
		keys := util.GeneratePemKeypair()
		actor.PublicKeyPem = keys.Public
		actor.PrivateKeyPem = keys.Private
	}
	if err := database.CreateActor(actor); err != nil {
		t.Fatalf("Failed to store actor %s: %v", uri, err)
	}
	return actor
}

func storeVideo(t *testing.T, database *db.DB, channel *domain.Actor) *domain.Video {
	t.Helper()
	base := "https://local.example"
	if channel.Host != "" {
		base = "https://" + channel.Host
	}
	video := &domain.Video{
		Id:              uuid.New(),
		URI:             fmt.Sprintf("%s/videos/watch/%s", base, uuid.NewString()),
		UUID:            uuid.New(),
		ChannelActorId:  channel.Id,
		Name:            "a video",
		Privacy:         domain.VideoPrivacyPublic,
		State:           domain.VideoStatePublished,
		TagsJSON:        "[]",
		PublishedAt:     time.Now(),
		LastRefreshedAt: time.Now(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := database.CreateVideo(video); err != nil {
		t.Fatalf("Failed to store video: %v", err)
	}
	return video
}

// makeItem builds an authenticated inbox item from raw activity JSON,
// signed and attributed to the same actor.
func makeItem(t *testing.T, byActor *domain.Actor, raw string) *InboxItem {
	t.Helper()
	activity, err := ValidateActivity(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Fixture activity is invalid: %v", err)
	}
	return &InboxItem{Activity: activity, Raw: json.RawMessage(raw), Signer: byActor, ByActor: byActor}
}

// makeRelayedItem builds an inbox item whose HTTP signer differs from
// the activity's actor, the shape a forwarding server produces.
func makeRelayedItem(t *testing.T, signer *domain.Actor, raw string) *InboxItem {
	t.Helper()
	activity, err := ValidateActivity(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Fixture activity is invalid: %v", err)
	}
	return &InboxItem{Activity: activity, Raw: json.RawMessage(raw), Signer: signer}
}
