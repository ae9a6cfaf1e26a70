package activitypub

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
)

func storeStreamingPlaylist(t *testing.T, database *db.DB, video *domain.Video) *domain.StreamingPlaylist {
	t.Helper()
	playlist := &domain.StreamingPlaylist{
		Id:          uuid.New(),
		VideoId:     video.Id,
		Type:        domain.StreamingPlaylistHLS,
		PlaylistURL: video.URI + "/streaming-playlists/hls",
		CreatedAt:   time.Now(),
	}
	if err := database.CreateStreamingPlaylist(playlist); err != nil {
		t.Fatalf("CreateStreamingPlaylist failed: %v", err)
	}
	return playlist
}

func cacheFileActivity(n int, actor *domain.Actor, videoURI, mediaType, expires string) string {
	return fmt.Sprintf(`{
		"id": "https://remote.example/activities/cache-%d",
		"type": "Create",
		"actor": "%s",
		"object": {
			"id": "https://remote.example/cache-files/%d",
			"type": "CacheFile",
			"object": "%s",
			"expires": "%s",
			"url": {"type": "Link", "mediaType": "%s", "href": "https://remote.example/static/%d.m3u8"}
		}
	}`, n, actor.URI, n, videoURI, expires, mediaType, n)
}

func TestCacheFileLifecycle(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	storeStreamingPlaylist(t, database, video)

	mirror := storeActor(t, database, "remote.example", "mirror", domain.ActorTypePerson)
	expires := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	item := makeItem(t, mirror, cacheFileActivity(1, mirror, video.URI, domain.CacheFileMediaType, expires))
	if err := processor.Process(item); err != nil {
		t.Fatalf("Cache file create failed: %v", err)
	}

	err, stored := database.ReadCacheFileByURI("https://remote.example/cache-files/1")
	if err != nil || stored == nil {
		t.Fatal("Expected the cache file row")
	}
	if stored.ActorId != mirror.Id {
		t.Error("Cache file must belong to the offering actor")
	}

	// The owner refreshes its own offer under the same object id.
	later := time.Now().Add(96 * time.Hour).UTC().Format(time.RFC3339)
	update := makeItem(t, mirror, `{
		"id": "https://remote.example/activities/cache-update-1",
		"type": "Update",
		"actor": "`+mirror.URI+`",
		"object": {
			"id": "https://remote.example/cache-files/1",
			"type": "CacheFile",
			"object": "`+video.URI+`",
			"expires": "`+later+`",
			"url": {"type": "Link", "mediaType": "`+domain.CacheFileMediaType+`", "href": "https://remote.example/static/moved.m3u8"}
		}
	}`)
	if err := processor.Process(update); err != nil {
		t.Fatalf("Cache file update failed: %v", err)
	}
	err, stored = database.ReadCacheFileByURI("https://remote.example/cache-files/1")
	if err != nil || stored.FileURL != "https://remote.example/static/moved.m3u8" {
		t.Errorf("Expected the update to move the file url, got %q", stored.FileURL)
	}

	// Undo removes the offer.
	undo := makeItem(t, mirror, `{
		"id": "https://remote.example/activities/cache-undo-1",
		"type": "Undo",
		"actor": "`+mirror.URI+`",
		"object": {
			"id": "https://remote.example/cache-files/1",
			"type": "CacheFile",
			"object": "`+video.URI+`"
		}
	}`)
	if err := processor.Process(undo); err != nil {
		t.Fatalf("Cache file undo failed: %v", err)
	}
	err, stored = database.ReadCacheFileByURI("https://remote.example/cache-files/1")
	if err == nil && stored != nil {
		t.Error("Expected the cache file to be gone")
	}
}

func TestCacheFileUpdateWithoutURLKeepsFileLocation(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	storeStreamingPlaylist(t, database, video)
	mirror := storeActor(t, database, "remote.example", "mirror", domain.ActorTypePerson)

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	if err := processor.Process(makeItem(t, mirror, cacheFileActivity(1, mirror, video.URI, domain.CacheFileMediaType, expires))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err, before := database.ReadCacheFileByURI("https://remote.example/cache-files/1")
	if err != nil || before == nil {
		t.Fatal("Expected the cache file row")
	}

	// A refresh carrying only a new expiry keeps the announced file
	// location.
	later := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	update := makeItem(t, mirror, `{
		"id": "https://remote.example/activities/cache-extend-1",
		"type": "Update",
		"actor": "`+mirror.URI+`",
		"object": {
			"id": "https://remote.example/cache-files/1",
			"type": "CacheFile",
			"object": "`+video.URI+`",
			"expires": "`+later+`"
		}
	}`)
	if err := processor.Process(update); err != nil {
		t.Fatalf("Update with only a new expires must succeed, got: %v", err)
	}

	err, after := database.ReadCacheFileByURI("https://remote.example/cache-files/1")
	if err != nil || after == nil {
		t.Fatal("Expected the cache file row to survive")
	}
	if after.FileURL != before.FileURL {
		t.Errorf("File url must be preserved, got %q", after.FileURL)
	}
	if !after.ExpiresOn.After(before.ExpiresOn) {
		t.Error("Expiry must move forward")
	}
}

func TestCacheFileCreateRequiresURL(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	storeStreamingPlaylist(t, database, video)
	mirror := storeActor(t, database, "remote.example", "mirror", domain.ActorTypePerson)

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	item := makeItem(t, mirror, `{
		"id": "https://remote.example/activities/cache-bare",
		"type": "Create",
		"actor": "`+mirror.URI+`",
		"object": {
			"id": "https://remote.example/cache-files/bare",
			"type": "CacheFile",
			"object": "`+video.URI+`",
			"expires": "`+expires+`"
		}
	}`)
	if err := processor.applyCacheFile(item); err == nil {
		t.Error("A first offer without a file url must be rejected")
	}
}

func TestCacheFileOwnershipIsEnforced(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	storeStreamingPlaylist(t, database, video)

	mirror := storeActor(t, database, "remote.example", "mirror", domain.ActorTypePerson)
	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	if err := processor.applyCacheFile(makeItem(t, mirror, cacheFileActivity(1, mirror, video.URI, domain.CacheFileMediaType, expires))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Another actor on the same host tries to take over the offer.
	impostor := storeActor(t, database, "remote.example", "impostor", domain.ActorTypePerson)
	takeover := makeItem(t, impostor, `{
		"id": "https://remote.example/activities/cache-takeover",
		"type": "Update",
		"actor": "`+impostor.URI+`",
		"object": {
			"id": "https://remote.example/cache-files/1",
			"type": "CacheFile",
			"object": "`+video.URI+`",
			"expires": "`+expires+`",
			"url": {"type": "Link", "mediaType": "`+domain.CacheFileMediaType+`", "href": "https://remote.example/static/evil.m3u8"}
		}
	}`)
	err := processor.applyCacheFile(takeover)
	var authErr *AuthorityError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected authority error, got %v", err)
	}

	err2, stored := database.ReadCacheFileByURI("https://remote.example/cache-files/1")
	if err2 != nil || stored.ActorId != mirror.Id {
		t.Error("The original owner must keep the offer")
	}
}

func TestCacheFileSkipsForeignMediaTypes(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	storeStreamingPlaylist(t, database, video)
	mirror := storeActor(t, database, "remote.example", "mirror", domain.ActorTypePerson)

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	item := makeItem(t, mirror, cacheFileActivity(7, mirror, video.URI, "video/mp4", expires))
	if err := processor.applyCacheFile(item); err != nil {
		t.Fatalf("Foreign media types are skipped, not errors: %v", err)
	}
	err, stored := database.ReadCacheFileByURI("https://remote.example/cache-files/7")
	if err == nil && stored != nil {
		t.Error("Foreign media type must not be stored")
	}
}

func TestCacheFileRequiresLocalVideoWithPlaylist(t *testing.T) {
	database, processor := testProcessor(t)
	mirror := storeActor(t, database, "remote.example", "mirror", domain.ActorTypePerson)
	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	t.Run("remote video", func(t *testing.T) {
		remoteVideo := storeVideo(t, database, storeActor(t, database, "remote.example", "chan2", domain.ActorTypeGroup))
		item := makeItem(t, mirror, cacheFileActivity(8, mirror, remoteVideo.URI, domain.CacheFileMediaType, expires))
		if err := processor.applyCacheFile(item); err == nil {
			t.Error("Expected rejection for a video we do not own")
		}
	})

	t.Run("missing streaming playlist", func(t *testing.T) {
		bare := storeVideo(t, database, storeActor(t, database, "", "chan3", domain.ActorTypeGroup))
		item := makeItem(t, mirror, cacheFileActivity(9, mirror, bare.URI, domain.CacheFileMediaType, expires))
		if err := processor.applyCacheFile(item); err == nil {
			t.Error("Expected rejection without an HLS playlist")
		}
	})
}
