package web

import (
	"fmt"

	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

// GetWebfinger resolves acct:name@host to a local actor's canonical
// URL. Accounts and channels share the username namespace, accounts
// win on collision.
func GetWebfinger(database *db.DB, name string, conf *util.AppConfig) (error, string) {
	err, actor := database.ReadLocalActorByUsername(name, domain.ActorTypePerson)
	if err != nil || actor == nil {
		err, actor = database.ReadLocalActorByUsername(name, domain.ActorTypeGroup)
	}
	if err != nil || actor == nil {
		return fmt.Errorf("no local actor named %s", name), GetWebFingerNotFound()
	}

	return nil, fmt.Sprintf(
		`{
			"subject": "acct:%s@%s",
			"links": [
				{
					"rel": "self",
					"type": "application/activity+json",
					"href": "%s"
				}
			]
		}`, actor.PreferredUsername, conf.Conf.SslDomain, actor.URI)
}

func GetWebFingerNotFound() string {
	return `{"detail":"Not Found"}`
}
