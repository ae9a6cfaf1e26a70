package web

import (
	"encoding/json"
	"fmt"

	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

// apContext is the JSON-LD context served on actor documents; the
// security vocabulary covers the publicKey block.
var apContext = []string{
	"https://www.w3.org/ns/activitystreams",
	"https://w3id.org/security/v1",
}

// GetActorDocument renders a local actor for federation peers.
func GetActorDocument(database *db.DB, name string, actorType domain.ActorType, conf *util.AppConfig) (error, string) {
	err, actor := database.ReadLocalActorByUsername(name, actorType)
	if err != nil || actor == nil {
		return fmt.Errorf("no local %s named %s", actorType, name), "{}"
	}

	displayName := actor.DisplayName
	if displayName == "" {
		displayName = actor.PreferredUsername
	}

	doc := map[string]interface{}{
		"@context":                  apContext,
		"id":                        actor.URI,
		"type":                      string(actor.Type),
		"preferredUsername":         actor.PreferredUsername,
		"name":                      displayName,
		"summary":                   actor.Summary,
		"url":                       actor.URI,
		"inbox":                     actor.InboxURI,
		"outbox":                    actor.OutboxURI,
		"followers":                 actor.FollowersURI,
		"following":                 actor.FollowingURI,
		"manuallyApprovesFollowers": conf.Conf.Closed,
		"discoverable":              true,
		"endpoints": map[string]string{
			"sharedInbox": actor.SharedInboxURI,
		},
		"publicKey": map[string]string{
			"id":           actor.URI + "#main-key",
			"owner":        actor.URI,
			"publicKeyPem": actor.PublicKeyPem,
		},
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return err, "{}"
	}
	return nil, string(jsonBytes)
}

// AccountURI and ChannelURI are the canonical local actor URL schemes.
func AccountURI(conf *util.AppConfig, name string) string {
	return fmt.Sprintf("%s/accounts/%s", conf.BaseURL(), name)
}

func ChannelURI(conf *util.AppConfig, name string) string {
	return fmt.Sprintf("%s/video-channels/%s", conf.BaseURL(), name)
}
