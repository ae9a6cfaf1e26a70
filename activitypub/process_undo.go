package activitypub

import (
	"log"
)

// handleUndo reverses a previously applied activity. The undone
// activity is embedded as the object; only its original author may
// take it back.
func (p *Processor) handleUndo(item *InboxItem) error {
	inner, err := item.Activity.InnerActivity()
	if err != nil {
		return validationErrorf("unparseable undone activity: %v", err)
	}

	// Undo(Create(CacheFile)) arrives with one more nesting level; the
	// offer id is then the Create's object id.
	if inner.Type == "Create" && inner.ObjectType() == "CacheFile" {
		return p.undoCacheFile(item, inner.ObjectID())
	}

	switch inner.Type {
	case "Follow":
		return p.undoFollow(item, inner)
	case "Like", "Dislike":
		return p.undoRate(item, inner)
	case "Announce":
		return p.undoAnnounce(item, inner)
	case "CacheFile":
		return p.undoCacheFile(item, inner.ID)
	}

	log.Printf("Dispatcher: ignoring undo of %s from %s", inner.Type, item.Activity.Actor)
	return nil
}

func (p *Processor) undoFollow(item *InboxItem, inner *Activity) error {
	err, follow := p.database.ReadFollowByURI(inner.ID)
	if err != nil || follow == nil {
		targetURI := inner.ObjectID()
		if err, target := p.database.ReadActorByURI(targetURI); err == nil && target != nil {
			err, follow = p.database.ReadFollowByActorIds(item.ByActor.Id, target.Id)
		}
	}
	if follow == nil {
		log.Printf("Dispatcher: undo of unknown follow %s", inner.ID)
		return nil
	}
	if follow.ActorId != item.ByActor.Id {
		return authorityErrorf("actor %s may not undo follow %s", item.ByActor.URI, follow.URI)
	}
	return p.database.DeleteFollowByURI(follow.URI)
}

func (p *Processor) undoRate(item *InboxItem, inner *Activity) error {
	videoURI := inner.ObjectID()
	err, video := p.database.ReadVideoByURI(videoURI)
	if err != nil || video == nil {
		return nil
	}
	if err := p.database.DeleteVideoRate(item.ByActor.Id, video.Id); err != nil {
		return err
	}
	if p.videoIsLocal(video) {
		p.forwardToFollowers(item, video)
	}
	return nil
}

func (p *Processor) undoAnnounce(item *InboxItem, inner *Activity) error {
	err, share := p.database.ReadVideoShareByURI(inner.ID)
	if err != nil || share == nil {
		return nil
	}
	if share.ActorId != item.ByActor.Id {
		return authorityErrorf("actor %s may not undo share %s", item.ByActor.URI, share.URI)
	}
	if err := p.database.DeleteVideoShareByURI(share.URI); err != nil {
		return err
	}
	if err, video := p.database.ReadVideoById(share.VideoId); err == nil && video != nil && p.videoIsLocal(video) {
		p.forwardToFollowers(item, video)
	}
	return nil
}

func (p *Processor) undoCacheFile(item *InboxItem, uri string) error {
	err, cacheFile := p.database.ReadCacheFileByURI(uri)
	if err != nil || cacheFile == nil {
		return nil
	}
	if cacheFile.ActorId != item.ByActor.Id {
		return authorityErrorf("cannot undo redundancy of another actor")
	}
	return p.database.DeleteCacheFileByURI(cacheFile.URI)
}
