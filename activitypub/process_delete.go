package activitypub

import (
	"log"

	"github.com/tubefed/tubefed/domain"
)

// handleDelete removes whatever the object URI names. Lookup order is
// actor, video, comment, playlist; an unknown URI is a no-op since
// there is nothing left to delete.
func (p *Processor) handleDelete(item *InboxItem) error {
	objectURI := item.Activity.ObjectID()
	if objectURI == "" {
		return validationErrorf("delete without an object id")
	}
	if err := checkOrigin(item.ByActor.URI, objectURI); err != nil {
		return err
	}

	if err, actor := p.database.ReadActorByURI(objectURI); err == nil && actor != nil {
		return p.deleteActor(item, actor)
	}
	if err, video := p.database.ReadVideoByURI(objectURI); err == nil && video != nil {
		return p.deleteVideo(item, video)
	}
	if err, comment := p.database.ReadCommentByURI(objectURI); err == nil && comment != nil {
		return p.deleteComment(item, comment)
	}
	if err, playlist := p.database.ReadPlaylistByURI(objectURI); err == nil && playlist != nil {
		return p.deletePlaylist(item, playlist)
	}

	log.Printf("Dispatcher: delete of unknown object %s, nothing to do", objectURI)
	return nil
}

// deleteActor removes a remote actor and its follow edges. Only the
// actor itself may announce its own deletion.
func (p *Processor) deleteActor(item *InboxItem, actor *domain.Actor) error {
	if actor.IsLocal() {
		return authorityErrorf("refusing remote delete of local actor %s", actor.URI)
	}
	if actor.URI != item.ByActor.URI {
		return authorityErrorf("actor %s may not delete %s", item.ByActor.URI, actor.URI)
	}

	if err := p.database.DeleteFollowsByActorId(actor.Id); err != nil {
		return err
	}
	return p.database.DeleteActor(actor.Id)
}

// deleteVideo removes a cached remote video. A Delete for a
// locally-owned video from outside is forged.
func (p *Processor) deleteVideo(item *InboxItem, video *domain.Video) error {
	err, channel := p.database.ReadActorById(video.ChannelActorId)
	if err != nil || channel == nil {
		return resolutionError(video.URI, err)
	}
	if channel.IsLocal() {
		return authorityErrorf("refusing remote delete of locally-owned video %s", video.URI)
	}
	if channel.Id != item.ByActor.Id {
		return authorityErrorf("actor %s does not own video %s", item.ByActor.URI, video.URI)
	}
	return p.database.DeleteVideo(video.Id)
}

// deleteComment tombstones rather than removes, so replies keep a
// resolvable parent. When the comment sits on a local video the delete
// is forwarded to our followers.
func (p *Processor) deleteComment(item *InboxItem, comment *domain.VideoComment) error {
	err, video := p.database.ReadVideoById(comment.VideoId)
	if err != nil || video == nil {
		return resolutionError(comment.URI, err)
	}

	ownsComment := comment.ActorId == item.ByActor.Id
	// The video owner moderates its own comment section.
	ownsVideo := video.ChannelActorId == item.ByActor.Id
	if !ownsComment && !ownsVideo {
		return authorityErrorf("actor %s may not delete comment %s", item.ByActor.URI, comment.URI)
	}

	if err := p.database.TombstoneComment(comment.Id); err != nil {
		return err
	}
	if p.videoIsLocal(video) {
		p.forwardToFollowers(item, video)
	}
	return nil
}

func (p *Processor) deletePlaylist(item *InboxItem, playlist *domain.VideoPlaylist) error {
	err, owner := p.database.ReadActorById(playlist.OwnerActorId)
	if err != nil || owner == nil {
		return resolutionError(playlist.URI, err)
	}
	if owner.IsLocal() {
		return authorityErrorf("refusing remote delete of local playlist %s", playlist.URI)
	}
	if owner.Id != item.ByActor.Id {
		return authorityErrorf("actor %s does not own playlist %s", item.ByActor.URI, playlist.URI)
	}
	return p.database.DeletePlaylist(playlist.Id)
}
