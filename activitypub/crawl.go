package activitypub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxCrawlPages bounds a remote-controlled walk.
	MaxCrawlPages = 2000
	// CrawlItemConcurrency bounds the per-page item fan-out.
	CrawlItemConcurrency = 5
)

// CrawlItemHandler processes one collection item. Failures are logged
// and the item skipped; they never abort the crawl.
type CrawlItemHandler func(item json.RawMessage) error

// CrawlCleanup runs once after a complete walk, with the crawl's start
// timestamp. Callers use it to sweep local rows the crawl did not
// refresh (last-write-wins full resync).
type CrawlCleanup func(crawlStartedAt time.Time) error

// collectionPage is the wire shape of a collection or collection page.
// First may be a URL string or an embedded page object.
type collectionPage struct {
	Type         string            `json:"type"`
	TotalItems   int               `json:"totalItems"`
	First        json.RawMessage   `json:"first"`
	Next         string            `json:"next"`
	Items        []json.RawMessage `json:"items"`
	OrderedItems []json.RawMessage `json:"orderedItems"`
}

func (p *collectionPage) items() []json.RawMessage {
	if len(p.OrderedItems) > 0 {
		return p.OrderedItems
	}
	return p.Items
}

// CrawlCollection walks a remote paginated collection. Pages are
// inherently sequential (page N+1 is only known from page N's next
// link); items within one page are handled with a bounded fan-out.
func (r *Resolver) CrawlCollection(rootURL string, perItem CrawlItemHandler, cleanup CrawlCleanup) error {
	crawlStartedAt := time.Now()
	log.Printf("Crawler: walking collection %s", rootURL)

	url := rootURL
	for pageCount := 0; url != ""; pageCount++ {
		if pageCount >= MaxCrawlPages {
			return fmt.Errorf("collection %s exceeds %d pages, aborting crawl", rootURL, MaxCrawlPages)
		}

		doc, err := r.FetchRemoteDocument(url)
		if err != nil {
			return resolutionError(url, err)
		}

		var page collectionPage
		if err := json.Unmarshal(doc.Body, &page); err != nil {
			return resolutionError(url, fmt.Errorf("unparseable collection page: %w", err))
		}

		// A collection summary points at its first page, either by URL
		// or as an embedded page object.
		if len(page.items()) == 0 && len(page.First) > 0 {
			var firstURL string
			if err := json.Unmarshal(page.First, &firstURL); err == nil {
				url = firstURL
				continue
			}
			var firstPage collectionPage
			if err := json.Unmarshal(page.First, &firstPage); err != nil {
				return resolutionError(url, fmt.Errorf("unparseable first page: %w", err))
			}
			page = firstPage
		}

		crawlPageItems(page.items(), perItem)

		url = page.Next
	}

	if cleanup != nil {
		if err := cleanup(crawlStartedAt); err != nil {
			return fmt.Errorf("crawl cleanup failed: %w", err)
		}
	}
	return nil
}

func crawlPageItems(items []json.RawMessage, perItem CrawlItemHandler) {
	group := new(errgroup.Group)
	group.SetLimit(CrawlItemConcurrency)

	for _, item := range items {
		item := item
		group.Go(func() error {
			if err := perItem(item); err != nil {
				// One bad item must not sink the crawl.
				log.Printf("Crawler: skipping item: %v", err)
			}
			return nil
		})
	}

	group.Wait()
}

// crawlVideoComments resyncs a remote video's comment thread from its
// comments collection. Known comments are refreshed in place, new ones
// created; the sweep afterwards tombstones whatever the origin no
// longer lists.
func (r *Resolver) crawlVideoComments(video *domain.Video, commentsURL string) error {
	return r.CrawlCollection(commentsURL, func(item json.RawMessage) error {
		var doc NoteObject
		var itemURL string
		if err := json.Unmarshal(item, &itemURL); err == nil {
			if err := r.fetchChecked(itemURL, &doc, func() string { return doc.ID }); err != nil {
				return err
			}
		} else if err := json.Unmarshal(item, &doc); err != nil {
			return validationErrorf("unparseable comment item: %v", err)
		}
		if err := SanitizeNoteObject(&doc); err != nil {
			return err
		}

		authorURI := doc.AttributedTo.FirstOfType("Person")
		if authorURI == "" {
			return validationErrorf("comment %s names no author", doc.ID)
		}
		if !util.SameHost(authorURI, doc.ID) {
			return validationErrorf("comment %s does not share a host with author %s", doc.ID, authorURI)
		}
		author, err := r.ResolveActor(authorURI)
		if err != nil {
			return err
		}

		err, existing := r.database.ReadCommentByURI(doc.ID)
		if err == nil && existing != nil {
			existing.Content = doc.Content
			// UpdateComment stamps updated_at, which is what keeps the
			// comment out of the stale sweep below.
			return r.database.UpdateComment(existing)
		}

		comment := &domain.VideoComment{
			Id:        uuid.New(),
			URI:       doc.ID,
			VideoId:   video.Id,
			ActorId:   author.Id,
			Content:   doc.Content,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err, parent := r.database.ReadCommentByURI(doc.InReplyTo); err == nil && parent != nil {
			comment.InReplyToCommentId = &parent.Id
		}
		return r.database.CreateComment(comment)
	}, func(crawlStartedAt time.Time) error {
		return r.database.TombstoneStaleComments(video.Id, crawlStartedAt)
	})
}

// crawlVideoShares resyncs who announces a remote video. Share edges
// the origin no longer lists are deleted outright, they carry no
// thread to preserve.
func (r *Resolver) crawlVideoShares(video *domain.Video, sharesURL string) error {
	return r.CrawlCollection(sharesURL, func(item json.RawMessage) error {
		var announce struct {
			ID    string `json:"id"`
			Actor string `json:"actor"`
		}
		var itemURL string
		if err := json.Unmarshal(item, &itemURL); err == nil {
			announce.ID = itemURL
			if err := r.fetchChecked(itemURL, &announce, func() string { return announce.ID }); err != nil {
				return err
			}
		} else if err := json.Unmarshal(item, &announce); err != nil {
			return validationErrorf("unparseable share item: %v", err)
		}
		if !IsFederationURL(announce.ID) {
			return validationErrorf("share item has bad id %q", announce.ID)
		}
		if !IsFederationURL(announce.Actor) {
			return validationErrorf("share %s has bad actor %q", announce.ID, announce.Actor)
		}
		if !util.SameHost(announce.Actor, announce.ID) {
			return validationErrorf("share %s does not share a host with actor %s", announce.ID, announce.Actor)
		}
		actor, err := r.ResolveActor(announce.Actor)
		if err != nil {
			return err
		}

		share := &domain.VideoShare{
			Id:        uuid.New(),
			ActorId:   actor.Id,
			VideoId:   video.Id,
			URI:       announce.ID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		return r.database.CreateOrRefreshVideoShare(share)
	}, func(crawlStartedAt time.Time) error {
		return r.database.DeleteStaleVideoShares(video.Id, crawlStartedAt)
	})
}

// CrawlChannelOutbox walks a remote channel's outbox and resolves every
// video it announces. Run on first contact with a channel, it backfills
// the videos published before we knew the channel existed.
func (r *Resolver) CrawlChannelOutbox(channel *domain.Actor) error {
	if channel.OutboxURI == "" {
		return nil
	}
	return r.CrawlCollection(channel.OutboxURI, func(item json.RawMessage) error {
		var activity Activity
		if err := json.Unmarshal(item, &activity); err != nil {
			return validationErrorf("unparseable outbox item: %v", err)
		}
		switch activity.Type {
		case "Create", "Update", "Announce":
		default:
			return nil
		}
		videoURI := activity.ObjectID()
		if !IsFederationURL(videoURI) {
			return nil
		}
		_, err := r.ResolveVideo(videoURI)
		return err
	}, nil)
}
