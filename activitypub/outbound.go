package activitypub

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

// BuildAccept renders the Accept a local actor sends back for a
// handled Follow. The follow activity is embedded whole, the way most
// servers expect it.
func BuildAccept(conf *util.AppConfig, byActor *domain.Actor, followActivity *Activity) ([]byte, error) {
	followActivity.Context = nil
	object, err := json.Marshal(followActivity)
	if err != nil {
		return nil, err
	}
	accept := Activity{
		Context: ActivityPubContext,
		ID:      conf.BaseURL() + "/accepts/follows/" + uuid.NewString(),
		Type:    "Accept",
		Actor:   byActor.URI,
		Object:  object,
	}
	return json.Marshal(&accept)
}
