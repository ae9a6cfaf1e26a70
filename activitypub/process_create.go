package activitypub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

// handleCreateVideo mirrors a remote video announcement. Idempotent: a
// duplicate Create for an already-known video is a no-op refresh.
func (p *Processor) handleCreateVideo(item *InboxItem) error {
	var doc VideoObject
	if err := json.Unmarshal(item.Activity.Object, &doc); err != nil {
		return validationErrorf("unparseable video object: %v", err)
	}
	if err := SanitizeVideoObject(&doc); err != nil {
		return err
	}
	if err := checkOrigin(item.ByActor.URI, doc.ID); err != nil {
		return err
	}

	channelURI := doc.AttributedTo.FirstOfType("Group")
	if channelURI == "" {
		return validationErrorf("video %s is attributed to no channel", doc.ID)
	}
	if err := checkOrigin(item.ByActor.URI, channelURI); err != nil {
		return err
	}
	channel, err := p.resolver.ResolveActor(channelURI)
	if err != nil {
		return err
	}

	err, existing := p.database.ReadVideoByURI(doc.ID)
	knownBefore := err == nil && existing != nil

	video, err := UpsertVideoFromObject(p.database, &doc, channel)
	if err != nil {
		return err
	}

	if !knownBefore {
		p.notifier.NotifyNewVideo(video)
	}
	return nil
}

// handleCreateNote stores a federated comment. If the comment lands on
// a locally-owned video that is not held for review, the activity is
// forwarded to our followers and subscribers are notified.
func (p *Processor) handleCreateNote(item *InboxItem) error {
	var doc NoteObject
	if err := json.Unmarshal(item.Activity.Object, &doc); err != nil {
		return validationErrorf("unparseable note object: %v", err)
	}
	if err := SanitizeNoteObject(&doc); err != nil {
		return err
	}
	if err := checkOrigin(item.ByActor.URI, doc.ID); err != nil {
		return err
	}

	video, parent, err := p.resolveCommentThread(doc.InReplyTo)
	if err != nil {
		return err
	}

	// Duplicate Create: the comment is already known.
	if err, existing := p.database.ReadCommentByURI(doc.ID); err == nil && existing != nil {
		return nil
	}

	comment := &domain.VideoComment{
		Id:        uuid.New(),
		URI:       doc.ID,
		VideoId:   video.Id,
		ActorId:   item.ByActor.Id,
		Content:   doc.Content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	// On a moderated instance, comments on our own videos wait for
	// review before they are forwarded or surfaced.
	if p.conf.Conf.ModerateComments && p.videoIsLocal(video) {
		comment.HeldForReview = true
	}
	if parent != nil {
		parentId := parent.Id
		comment.InReplyToCommentId = &parentId
	}
	if t, err := time.Parse(time.RFC3339, doc.Published); err == nil {
		comment.CreatedAt = t
	}

	if err := p.database.CreateComment(comment); err != nil {
		return err
	}

	if p.videoIsLocal(video) && !comment.HeldForReview {
		p.forwardToFollowers(item, video)
		p.notifier.NotifyNewComment(comment)
	}
	return nil
}

// resolveCommentThread maps an inReplyTo URL to (video, parent
// comment). A top-level comment replies to the video itself; a nested
// reply points at another comment.
func (p *Processor) resolveCommentThread(inReplyTo string) (*domain.Video, *domain.VideoComment, error) {
	if err, parent := p.database.ReadCommentByURI(inReplyTo); err == nil && parent != nil {
		err, video := p.database.ReadVideoById(parent.VideoId)
		if err != nil || video == nil {
			return nil, nil, resolutionError(inReplyTo, err)
		}
		return video, parent, nil
	}

	video, err := p.resolver.ResolveVideo(inReplyTo)
	if err != nil {
		return nil, nil, err
	}
	return video, nil, nil
}

// handleCreateWatchAction counts a completed view on a locally-owned
// video. Views for remote videos are ignored, their origin server
// counts them.
func (p *Processor) handleCreateWatchAction(item *InboxItem) error {
	var doc WatchActionObject
	if err := json.Unmarshal(item.Activity.Object, &doc); err != nil {
		return validationErrorf("unparseable watch action: %v", err)
	}
	if !doc.Completed() {
		return nil
	}
	if !IsFederationURL(doc.Object) {
		return validationErrorf("watch action has bad video url %q", doc.Object)
	}

	err, video := p.database.ReadVideoByURI(doc.Object)
	if err != nil || video == nil {
		return nil
	}
	if !p.videoIsLocal(video) {
		return nil
	}

	if err := p.database.IncrementVideoViews(video.Id, 1); err != nil {
		return err
	}
	p.forwardToFollowers(item, video)
	return nil
}

// handleCreatePlaylist delegates to the playlist resolver, which
// rebuilds the element list wholesale.
func (p *Processor) handleCreatePlaylist(item *InboxItem) error {
	var doc PlaylistObject
	if err := json.Unmarshal(item.Activity.Object, &doc); err != nil {
		return validationErrorf("unparseable playlist object: %v", err)
	}
	if err := SanitizePlaylistObject(&doc); err != nil {
		return err
	}
	if err := checkOrigin(item.ByActor.URI, doc.ID); err != nil {
		return err
	}

	if _, err := p.resolver.ResolvePlaylist(doc.ID); err != nil {
		return err
	}
	return nil
}

// videoIsLocal reports whether the video's channel actor is local,
// which makes this node the video's authority.
func (p *Processor) videoIsLocal(video *domain.Video) bool {
	err, channel := p.database.ReadActorById(video.ChannelActorId)
	if err != nil || channel == nil {
		return false
	}
	return channel.IsLocal()
}

// forwardToFollowers relays the accepted activity to our own
// followers, never failing the triggering request.
func (p *Processor) forwardToFollowers(item *InboxItem, video *domain.Video) {
	if err := p.ForwardVideoActivity(item, video); err != nil {
		log.Printf("Forward: could not relay activity %s: %v", item.Activity.ID, err)
	}
}
