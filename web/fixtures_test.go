package web

import (
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
	return conf
}

func storeLocalActor(t *testing.T, database *db.DB, conf *util.AppConfig, username string, actorType domain.ActorType) *domain.Actor {
	t.Helper()
	uri := AccountURI(conf, username)
	if actorType == domain.ActorTypeGroup {
		uri = ChannelURI(conf, username)
	}
	keys := util.GeneratePemKeypair()
	actor := &domain.Actor{
		Id:                uuid.New(),
		URI:               uri,
		Type:              actorType,
		PreferredUsername: username,
		InboxURI:          uri + "/inbox",
		OutboxURI:         uri + "/outbox",
		FollowersURI:      uri + "/followers",
		FollowingURI:      uri + "/following",
		SharedInboxURI:    conf.BaseURL() + "/inbox",
		PublicKeyPem:      keys.Public,
		PrivateKeyPem:     keys.Private,
		LastFetchedAt:     time.Now(),
		CreatedAt:         time.Now(),
	}
	if err := database.CreateActor(actor); err != nil {
		t.Fatalf("Failed to store actor %s: %v", uri, err)
	}
	return actor
}

func storeRemoteActor(t *testing.T, database *db.DB, host, username string) *domain.Actor {
	t.Helper()
	uri := fmt.Sprintf("https://%s/accounts/%s", host, username)
	actor := &domain.Actor{
		Id:                uuid.New(),
		URI:               uri,
		Type:              domain.ActorTypePerson,
		PreferredUsername: username,
		Host:              host,
		InboxURI:          uri + "/inbox",
		PublicKeyPem:      "pem",
		LastFetchedAt:     time.Now(),
		CreatedAt:         time.Now(),
	}
	if err := database.CreateActor(actor); err != nil {
		t.Fatalf("Failed to store actor %s: %v", uri, err)
	}
	return actor
}

func storeChannelVideo(t *testing.T, database *db.DB, channel *domain.Actor, name string) *domain.Video {
	t.Helper()
	videoUUID := uuid.New()
	video := &domain.Video{
		Id:              uuid.New(),
		URI:             fmt.Sprintf("https://local.example/videos/watch/%s", videoUUID),
		UUID:            videoUUID,
		ChannelActorId:  channel.Id,
		Name:            name,
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
