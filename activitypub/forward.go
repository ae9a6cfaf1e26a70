package activitypub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

// ForwardVideoActivity relays a received activity that concerns one of
// our videos to the accepted followers of the video's channel. The
// original wire bytes are re-sent untouched so the origin signature
// semantics survive; our own HTTP signature authenticates the relay.
// The sender's inboxes are excluded to avoid echoing.
func (p *Processor) ForwardVideoActivity(item *InboxItem, video *domain.Video) error {
	err, owner := p.database.ReadActorById(video.ChannelActorId)
	if err != nil || owner == nil {
		return resolutionError(video.URI, err)
	}
	if !owner.IsLocal() {
		return authorityErrorf("will not forward for remote-owned video %s", video.URI)
	}

	raw := []byte(item.Raw)
	if len(raw) == 0 {
		raw, err = json.Marshal(item.Activity)
		if err != nil {
			return err
		}
	}

	err, followers := p.database.ReadAllFollowers(owner.Id)
	if err != nil {
		return err
	}

	exclude := map[string]bool{
		item.ByActor.InboxURI:       true,
		item.ByActor.SharedInboxURI: true,
	}
	if item.Signer != nil {
		exclude[item.Signer.InboxURI] = true
		exclude[item.Signer.SharedInboxURI] = true
	}
	seen := make(map[string]bool)

	for _, follow := range *followers {
		err, follower := p.database.ReadActorById(follow.ActorId)
		if err != nil || follower == nil {
			log.Printf("Forward: follower %s of %s has no actor row", follow.ActorId, owner.URI)
			continue
		}
		inbox := follower.BestInbox()
		if inbox == "" || exclude[inbox] || seen[inbox] {
			continue
		}
		seen[inbox] = true

		queued := &domain.DeliveryQueueItem{
			Id:            uuid.New(),
			InboxURI:      inbox,
			SenderActorId: owner.Id,
			ActivityJSON:  string(raw),
			Attempts:      0,
			NextRetryAt:   time.Now(),
			CreatedAt:     time.Now(),
		}
		if err := p.database.EnqueueDelivery(queued); err != nil {
			log.Printf("Forward: could not queue %s for %s: %v", item.Activity.ID, inbox, err)
		}
	}
	return nil
}
