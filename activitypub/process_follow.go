package activitypub

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

// handleFollow records an incoming follow request against a local
// actor. Open instances accept immediately; closed instances leave the
// edge pending for manual review. Duplicate Follows refresh nothing
// and re-send the Accept, which remote servers treat as idempotent.
func (p *Processor) handleFollow(item *InboxItem) error {
	targetURI := item.Activity.ObjectID()
	if targetURI == "" {
		return validationErrorf("follow without a target")
	}

	err, target := p.database.ReadActorByURI(targetURI)
	if err != nil || target == nil || !target.IsLocal() {
		return validationErrorf("follow target %s is not a local actor", targetURI)
	}

	err, follow := p.database.ReadFollowByActorIds(item.ByActor.Id, target.Id)
	if err != nil || follow == nil {
		follow = &domain.Follow{
			Id:            uuid.New(),
			ActorId:       item.ByActor.Id,
			TargetActorId: target.Id,
			URI:           item.Activity.ID,
			State:         domain.FollowPending,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if err := p.database.CreateFollow(follow); err != nil {
			return err
		}
		p.notifier.NotifyNewFollower(follow)
	}

	if p.conf.Conf.Closed {
		log.Printf("Inbox: instance is closed, follow %s stays pending", follow.URI)
		return nil
	}

	if follow.State != domain.FollowAccepted {
		if err := p.database.UpdateFollowState(follow.URI, domain.FollowAccepted); err != nil {
			return err
		}
	}
	return p.sendAccept(target, item.ByActor, item.Activity)
}

// sendAccept queues an Accept for a handled Follow through the
// delivery queue, so a flaky follower inbox gets retried.
func (p *Processor) sendAccept(target, follower *domain.Actor, followActivity *Activity) error {
	accept, err := BuildAccept(p.conf, target, followActivity)
	if err != nil {
		return err
	}
	return EnqueueActivityTo(p.database, target, follower.BestInbox(), accept)
}

// handleAccept confirms one of our outgoing follow requests. Only the
// followed actor itself may accept.
func (p *Processor) handleAccept(item *InboxItem) error {
	follow, err := p.embeddedFollow(item)
	if err != nil {
		return err
	}
	if follow == nil {
		return nil
	}
	if follow.TargetActorId != item.ByActor.Id {
		return authorityErrorf("actor %s may not accept follow %s", item.ByActor.URI, follow.URI)
	}
	return p.database.UpdateFollowState(follow.URI, domain.FollowAccepted)
}

// handleReject marks one of our outgoing follow requests as refused.
func (p *Processor) handleReject(item *InboxItem) error {
	follow, err := p.embeddedFollow(item)
	if err != nil {
		return err
	}
	if follow == nil {
		return nil
	}
	if follow.TargetActorId != item.ByActor.Id {
		return authorityErrorf("actor %s may not reject follow %s", item.ByActor.URI, follow.URI)
	}
	return p.database.UpdateFollowState(follow.URI, domain.FollowRejected)
}

// embeddedFollow locates the follow edge an Accept/Reject refers to,
// by the embedded activity's id or, failing that, by the actor pair.
func (p *Processor) embeddedFollow(item *InboxItem) (*domain.Follow, error) {
	inner, err := item.Activity.InnerActivity()
	if err != nil {
		return nil, validationErrorf("unparseable embedded activity: %v", err)
	}
	if inner.Type != "" && inner.Type != "Follow" {
		log.Printf("Dispatcher: %s of non-follow %s ignored", item.Activity.Type, inner.Type)
		return nil, nil
	}

	if inner.ID != "" {
		if err, follow := p.database.ReadFollowByURI(inner.ID); err == nil && follow != nil {
			return follow, nil
		}
	}

	// Fall back to (follower, target): some servers rewrite ids.
	followerURI := inner.Actor
	if err, follower := p.database.ReadActorByURI(followerURI); err == nil && follower != nil {
		if err, follow := p.database.ReadFollowByActorIds(follower.Id, item.ByActor.Id); err == nil && follow != nil {
			return follow, nil
		}
	}

	log.Printf("Dispatcher: %s refers to unknown follow %s", item.Activity.Type, inner.ID)
	return nil, nil
}
