package activitypub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

func (p *Processor) handleCreateCacheFile(item *InboxItem) error {
	return p.applyCacheFile(item)
}

func (p *Processor) handleUpdateCacheFile(item *InboxItem) error {
	return p.applyCacheFile(item)
}

// applyCacheFile accepts or refreshes a redundancy offer on one of our
// videos. The offer must target a video we own, point at an HLS
// streaming playlist, and may only be updated by the actor that made
// it. Offers for other media types are skipped without error.
func (p *Processor) applyCacheFile(item *InboxItem) error {
	var doc CacheFileObject
	if err := json.Unmarshal(item.Activity.Object, &doc); err != nil {
		return validationErrorf("unparseable cache file object: %v", err)
	}
	if err := SanitizeCacheFileObject(&doc); err != nil {
		return err
	}
	if err := checkOrigin(item.ByActor.URI, doc.ID); err != nil {
		return err
	}

	if doc.URL.Href != "" && doc.URL.MediaType != domain.CacheFileMediaType {
		log.Printf("Inbox: skipping cache file %s with media type %q", doc.ID, doc.URL.MediaType)
		return nil
	}

	err, video := p.database.ReadVideoByURI(doc.Object)
	if err != nil || video == nil {
		return validationErrorf("cache file %s targets unknown video %s", doc.ID, doc.Object)
	}
	if !p.videoIsLocal(video) {
		return validationErrorf("cache file %s targets video %s we do not own", doc.ID, video.URI)
	}

	err, existing := p.database.ReadCacheFileByURI(doc.ID)
	if err == nil && existing != nil {
		if existing.ActorId != item.ByActor.Id {
			return authorityErrorf("cannot update redundancy of another actor")
		}
		// An update without a url block keeps the announced file
		// location and only moves the expiry forward.
		if doc.URL.Href != "" {
			existing.FileURL = doc.URL.Href
		}
		existing.ExpiresOn = doc.ExpiresTime()
		if err := p.database.UpdateCacheFile(existing); err != nil {
			return err
		}
		p.forwardToFollowers(item, video)
		return nil
	}

	if doc.URL.Href == "" {
		return validationErrorf("cache file %s announces no file url", doc.ID)
	}

	err, playlist := p.database.ReadStreamingPlaylist(video.Id, domain.StreamingPlaylistHLS)
	if err != nil || playlist == nil {
		return validationErrorf("video %s has no streaming playlist to cache", video.URI)
	}

	cacheFile := &domain.VideoCacheFile{
		Id:                  uuid.New(),
		URI:                 doc.ID,
		ActorId:             item.ByActor.Id,
		VideoId:             video.Id,
		StreamingPlaylistId: playlist.Id,
		FileURL:             doc.URL.Href,
		ExpiresOn:           doc.ExpiresTime(),
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	if err := p.database.CreateCacheFile(cacheFile); err != nil {
		return err
	}
	p.forwardToFollowers(item, video)
	return nil
}
