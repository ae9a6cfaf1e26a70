package web

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/tubefed/tubefed/domain"
)

func TestGetActorDocumentStructure(t *testing.T) {
	database := testDB(t)
	conf := testConf()
	actor := storeLocalActor(t, database, conf, "alice", domain.ActorTypePerson)

	err, raw := GetActorDocument(database, "alice", domain.ActorTypePerson, conf)
	if err != nil {
		t.Fatalf("GetActorDocument failed: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("Actor document is not valid JSON: %v", err)
	}

	if doc["id"] != actor.URI {
		t.Errorf("Expected id %s, got %v", actor.URI, doc["id"])
	}
	if doc["type"] != "Person" {
		t.Errorf("Expected type Person, got %v", doc["type"])
	}
	if doc["inbox"] != actor.InboxURI {
		t.Errorf("Expected inbox %s, got %v", actor.InboxURI, doc["inbox"])
	}
	if doc["manuallyApprovesFollowers"] != false {
		t.Error("Open instances must not manually approve followers")
	}

	key, ok := doc["publicKey"].(map[string]interface{})
	if !ok {
		t.Fatal("Actor document must carry a publicKey block")
	}
	if key["id"] != actor.URI+"#main-key" {
		t.Errorf("Unexpected key id %v", key["id"])
	}
	if key["owner"] != actor.URI {
		t.Errorf("Key owner must be the actor, got %v", key["owner"])
	}
	if !strings.Contains(key["publicKeyPem"].(string), "PUBLIC KEY") {
		t.Error("publicKeyPem must carry the PEM key")
	}

	endpoints, ok := doc["endpoints"].(map[string]interface{})
	if !ok || endpoints["sharedInbox"] != actor.SharedInboxURI {
		t.Error("Actor document must advertise the shared inbox")
	}
}

func TestGetActorDocumentClosedInstance(t *testing.T) {
	database := testDB(t)
	conf := testConf()
	conf.Conf.Closed = true
	storeLocalActor(t, database, conf, "alice", domain.ActorTypePerson)

	err, raw := GetActorDocument(database, "alice", domain.ActorTypePerson, conf)
	if err != nil {
		t.Fatalf("GetActorDocument failed: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("Actor document is not valid JSON: %v", err)
	}
	if doc["manuallyApprovesFollowers"] != true {
		t.Error("Closed instances must advertise manual follower approval")
	}
}

func TestGetActorDocumentTypeMismatch(t *testing.T) {
	database := testDB(t)
	conf := testConf()
	storeLocalActor(t, database, conf, "alice", domain.ActorTypePerson)

	// The same name under the channel namespace must not resolve.
	if err, _ := GetActorDocument(database, "alice", domain.ActorTypeGroup, conf); err == nil {
		t.Error("Expected a miss when the actor type does not match")
	}
}

func TestActorURIFormats(t *testing.T) {
	conf := testConf()

	if got := AccountURI(conf, "alice"); got != "https://local.example/accounts/alice" {
		t.Errorf("AccountURI = %s", got)
	}
	if got := ChannelURI(conf, "films"); got != "https://local.example/video-channels/films" {
		t.Errorf("ChannelURI = %s", got)
	}
}
