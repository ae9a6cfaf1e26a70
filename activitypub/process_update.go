package activitypub

import (
	"encoding/json"
)

// handleUpdateVideo refreshes a cached remote video from the inline
// object. Updates claiming authority over a locally-owned video are
// forged and rejected.
func (p *Processor) handleUpdateVideo(item *InboxItem) error {
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

	err, existing := p.database.ReadVideoByURI(doc.ID)
	if err != nil || existing == nil {
		// Update for a video we never saw: treat as Create.
		return p.handleCreateVideo(item)
	}

	err, channel := p.database.ReadActorById(existing.ChannelActorId)
	if err != nil || channel == nil {
		return resolutionError(doc.ID, err)
	}
	if channel.IsLocal() {
		return authorityErrorf("refusing remote update of locally-owned video %s", doc.ID)
	}

	// The channel attribution of an existing video must not move.
	channelURI := doc.AttributedTo.FirstOfType("Group")
	if channelURI != "" && channelURI != channel.URI {
		return authorityErrorf("update of %s reassigns channel %s to %s", doc.ID, channel.URI, channelURI)
	}

	if _, err := UpsertVideoFromObject(p.database, &doc, channel); err != nil {
		return err
	}
	return nil
}

// handleUpdateActor refreshes a cached actor profile. An actor can
// only update itself.
func (p *Processor) handleUpdateActor(item *InboxItem) error {
	var doc ActorDocument
	if err := json.Unmarshal(item.Activity.Object, &doc); err != nil {
		return validationErrorf("unparseable actor object: %v", err)
	}
	if err := SanitizeActorDocument(&doc); err != nil {
		return err
	}
	if doc.ID != item.ByActor.URI {
		return authorityErrorf("actor %s may not update profile of %s", item.ByActor.URI, doc.ID)
	}
	if item.ByActor.IsLocal() {
		return authorityErrorf("refusing remote update of local actor %s", doc.ID)
	}

	_, err := p.resolver.RefreshActor(doc.ID)
	return err
}

// handleUpdatePlaylist refreshes a cached playlist and rebuilds its
// element list from the wire state.
func (p *Processor) handleUpdatePlaylist(item *InboxItem) error {
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

	err, existing := p.database.ReadPlaylistByURI(doc.ID)
	if err == nil && existing != nil {
		err, owner := p.database.ReadActorById(existing.OwnerActorId)
		if err == nil && owner != nil && owner.IsLocal() {
			return authorityErrorf("refusing remote update of local playlist %s", doc.ID)
		}
	}

	// Force a refetch so a stale cache window cannot swallow the edit.
	_, err = p.resolver.fetchAndUpsertPlaylist(doc.ID)
	return err
}
