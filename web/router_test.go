package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tubefed/tubefed/activitypub"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

func testRouter(t *testing.T) (*db.DB, *util.AppConfig, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database := testDB(t)
	conf := testConf()
	resolver := activitypub.NewResolver(database, conf)
	server := NewServer(database, conf, resolver, nil)
	return database, conf, server.Router()
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRouterWebfinger(t *testing.T) {
	database, conf, router := testRouter(t)
	storeLocalActor(t, database, conf, "alice", domain.ActorTypePerson)

	w := doGet(router, "/.well-known/webfinger?resource=acct:alice@local.example")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "acct:alice@local.example") {
		t.Error("Response should contain the acct subject")
	}

	if w := doGet(router, "/.well-known/webfinger?resource=acct:ghost@local.example"); w.Code != http.StatusNotFound {
		t.Errorf("Unknown name should 404, got %d", w.Code)
	}
	if w := doGet(router, "/.well-known/webfinger"); w.Code != http.StatusNotFound {
		t.Errorf("Missing resource should 404, got %d", w.Code)
	}
}

func TestRouterServesActorDocuments(t *testing.T) {
	database, conf, router := testRouter(t)
	account := storeLocalActor(t, database, conf, "alice", domain.ActorTypePerson)
	storeLocalActor(t, database, conf, "films", domain.ActorTypeGroup)

	w := doGet(router, "/accounts/alice")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/activity+json") {
		t.Errorf("Unexpected content type %s", ct)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Actor document is not valid JSON: %v", err)
	}
	if doc["id"] != account.URI {
		t.Errorf("Expected id %s, got %v", account.URI, doc["id"])
	}

	if w := doGet(router, "/video-channels/films"); w.Code != http.StatusOK {
		t.Errorf("Channel document should be served, got %d", w.Code)
	}
	// Namespaces do not leak into each other.
	if w := doGet(router, "/accounts/films"); w.Code != http.StatusNotFound {
		t.Errorf("Channel name under /accounts should 404, got %d", w.Code)
	}
	if w := doGet(router, "/video-channels/nope"); w.Code != http.StatusNotFound {
		t.Errorf("Unknown channel should 404, got %d", w.Code)
	}
}

func TestRouterVideoCollections(t *testing.T) {
	database, conf, router := testRouter(t)
	channel := storeLocalActor(t, database, conf, "films", domain.ActorTypeGroup)
	video := storeChannelVideo(t, database, channel, "collected")

	w := doGet(router, "/videos/watch/"+video.UUID.String()+"/likes")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Collection is not valid JSON: %v", err)
	}
	if doc["type"] != "OrderedCollection" {
		t.Errorf("Page 0 should be the summary, got %v", doc["type"])
	}
	if doc["totalItems"] != float64(0) {
		t.Errorf("Expected empty collection, got %v", doc["totalItems"])
	}

	if w := doGet(router, "/videos/watch/not-a-uuid/likes"); w.Code != http.StatusNotFound {
		t.Errorf("Bad UUID should 404, got %d", w.Code)
	}
	if w := doGet(router, "/videos/watch/11111111-2222-3333-4444-555555555555/comments"); w.Code != http.StatusNotFound {
		t.Errorf("Unknown video should 404, got %d", w.Code)
	}
}

func TestRouterChannelOutbox(t *testing.T) {
	database, conf, router := testRouter(t)
	channel := storeLocalActor(t, database, conf, "films", domain.ActorTypeGroup)
	video := storeChannelVideo(t, database, channel, "published")

	w := doGet(router, "/video-channels/films/outbox?page=1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Outbox page is not valid JSON: %v", err)
	}
	items, ok := doc["orderedItems"].([]interface{})
	if !ok || len(items) != 1 || items[0] != video.URI {
		t.Errorf("Expected the video URI in the outbox, got %v", doc["orderedItems"])
	}
}

func TestRouterInboxRejectsUnsignedPosts(t *testing.T) {
	_, _, router := testRouter(t)

	for _, path := range []string{"/inbox", "/accounts/alice/inbox", "/video-channels/films/inbox"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(`{"type":"Like"}`))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("POST %s without a signature: expected 403, got %d", path, w.Code)
		}
	}
}

func TestRouterRSSFeed(t *testing.T) {
	database, conf, router := testRouter(t)
	channel := storeLocalActor(t, database, conf, "films", domain.ActorTypeGroup)
	storeChannelVideo(t, database, channel, "syndicated")

	w := doGet(router, "/feeds/videos.xml?channel=films")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "syndicated") {
		t.Error("Feed should carry the video title")
	}

	if w := doGet(router, "/feeds/videos.xml?channel=ghost"); w.Code != http.StatusNotFound {
		t.Errorf("Unknown channel feed should 404, got %d", w.Code)
	}
}
