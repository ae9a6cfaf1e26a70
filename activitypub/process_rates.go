package activitypub

import (
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

func (p *Processor) handleLike(item *InboxItem) error {
	return p.applyRate(item, domain.VideoRateLike)
}

func (p *Processor) handleDislike(item *InboxItem) error {
	return p.applyRate(item, domain.VideoRateDislike)
}

// applyRate upserts the sender's rating of a video. One rate per
// (actor, video): a Like after a Dislike flips it. Rates on a local
// video are forwarded so our followers see the same counters.
func (p *Processor) applyRate(item *InboxItem, rateType domain.VideoRateType) error {
	videoURI := item.Activity.ObjectID()
	if videoURI == "" {
		return validationErrorf("%s without a video url", item.Activity.Type)
	}

	video, err := p.resolver.ResolveVideo(videoURI)
	if err != nil {
		return err
	}

	rate := &domain.VideoRate{
		Id:        uuid.New(),
		ActorId:   item.ByActor.Id,
		VideoId:   video.Id,
		Type:      rateType,
		URI:       item.Activity.ID,
		CreatedAt: time.Now(),
	}
	if err := p.database.UpsertVideoRate(rate); err != nil {
		return err
	}

	if p.videoIsLocal(video) {
		p.forwardToFollowers(item, video)
	}
	return nil
}

// handleAnnounce records a share edge. Re-announcing refreshes the
// edge's timestamp, which keeps it alive across crawl sweeps.
func (p *Processor) handleAnnounce(item *InboxItem) error {
	videoURI := item.Activity.ObjectID()
	if videoURI == "" {
		return validationErrorf("announce without a video url")
	}

	video, err := p.resolver.ResolveVideo(videoURI)
	if err != nil {
		return err
	}

	share := &domain.VideoShare{
		Id:        uuid.New(),
		ActorId:   item.ByActor.Id,
		VideoId:   video.Id,
		URI:       item.Activity.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := p.database.CreateOrRefreshVideoShare(share); err != nil {
		return err
	}

	if p.videoIsLocal(video) {
		p.forwardToFollowers(item, video)
	}
	return nil
}

// handleView counts a single view on a locally-owned video. The bare
// View form predates WatchAction and carries no completion state, so
// it always counts.
func (p *Processor) handleView(item *InboxItem) error {
	videoURI := item.Activity.ObjectID()
	if videoURI == "" {
		return validationErrorf("view without a video url")
	}

	err, video := p.database.ReadVideoByURI(videoURI)
	if err != nil || video == nil {
		return nil
	}
	if !p.videoIsLocal(video) {
		return nil
	}
	return p.database.IncrementVideoViews(video.Id, 1)
}
