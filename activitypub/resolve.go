package activitypub

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

// Freshness windows for cached remote rows. Stale rows are served and
// refreshed in the background, they never block the caller.
const (
	ActorFreshness    = 24 * time.Hour
	VideoFreshness    = 6 * time.Hour
	PlaylistFreshness = 24 * time.Hour
)

const fetchTimeout = 10 * time.Second

// RemoteDocument is a dereferenced federation document.
type RemoteDocument struct {
	StatusCode int
	Body       []byte
}

// Resolver turns bare federation URLs into validated local rows
// (fetch-or-create). All remote dereferences run through a circuit
// breaker so a misbehaving peer cannot tie up every inbound request.
type Resolver struct {
	database *db.DB
	conf     *util.AppConfig
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*RemoteDocument]

	refreshCh chan refreshRequest
}

type refreshRequest struct {
	kind string // "actor", "video", "playlist", "video-comments", "video-shares", "outbox"
	uri  string

	// videoId carries the local row for the video-comments and
	// video-shares kinds, whose uri is the collection rather than the
	// video itself.
	videoId uuid.UUID
}

func NewResolver(database *db.DB, conf *util.AppConfig) *Resolver {
	breaker := gobreaker.NewCircuitBreaker[*RemoteDocument](gobreaker.Settings{
		Name:        "federation-fetch",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.TotalFailures > counts.Requests/2
		},
	})

	return &Resolver{
		database:  database,
		conf:      conf,
		client:    &http.Client{Timeout: fetchTimeout},
		breaker:   breaker,
		refreshCh: make(chan refreshRequest, 128),
	}
}

// StartRefreshWorker runs the background stale-row refresher.
func (r *Resolver) StartRefreshWorker() {
	go func() {
		for req := range r.refreshCh {
			var err error
			switch req.kind {
			case "actor":
				_, err = r.RefreshActor(req.uri)
			case "video":
				_, err = r.fetchAndUpsertVideo(req.uri)
			case "playlist":
				_, err = r.fetchAndUpsertPlaylist(req.uri)
			case "video-comments":
				err = r.crawlForVideo(req, r.crawlVideoComments)
			case "video-shares":
				err = r.crawlForVideo(req, r.crawlVideoShares)
			case "outbox":
				err = r.crawlOutboxByURI(req.uri)
			}
			if err != nil {
				log.Printf("Resolver: background refresh of %s failed: %v", req.uri, err)
			}
		}
	}()
}

func (r *Resolver) scheduleRefresh(kind, uri string) {
	select {
	case r.refreshCh <- refreshRequest{kind: kind, uri: uri}:
	default:
		// Refresh queue full, the row stays stale until next time.
	}
}

func (r *Resolver) scheduleVideoCrawl(kind, collectionURL string, videoId uuid.UUID) {
	select {
	case r.refreshCh <- refreshRequest{kind: kind, uri: collectionURL, videoId: videoId}:
	default:
		// Queue full, the collections resync on the next refresh.
	}
}

func (r *Resolver) crawlForVideo(req refreshRequest, crawl func(*domain.Video, string) error) error {
	err, video := r.database.ReadVideoById(req.videoId)
	if err != nil || video == nil {
		return fmt.Errorf("video %s vanished before its %s crawl", req.videoId, req.kind)
	}
	return crawl(video, req.uri)
}

func (r *Resolver) crawlOutboxByURI(actorURI string) error {
	err, channel := r.database.ReadActorByURI(actorURI)
	if err != nil || channel == nil {
		return fmt.Errorf("channel %s vanished before its outbox crawl", actorURI)
	}
	return r.CrawlChannelOutbox(channel)
}

// FetchRemoteDocument dereferences a federation URL.
func (r *Resolver) FetchRemoteDocument(uri string) (*RemoteDocument, error) {
	return r.breaker.Execute(func() (*RemoteDocument, error) {
		req, err := http.NewRequest("GET", uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/activity+json")
		req.Header.Set("User-Agent", util.GetNameAndVersion())

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch failed with status: %d", resp.StatusCode)
		}

		return &RemoteDocument{StatusCode: resp.StatusCode, Body: body}, nil
	})
}

// fetchChecked dereferences uri and enforces the same-host invariant: a
// document whose id lives on another host than the URL it was fetched
// from is an identity spoof. A document id differing on the same host
// is chased once (the URL was an alias or redirect).
func (r *Resolver) fetchChecked(uri string, out interface{}, idOf func() string) error {
	doc, err := r.FetchRemoteDocument(uri)
	if err != nil {
		return resolutionError(uri, err)
	}
	if err := json.Unmarshal(doc.Body, out); err != nil {
		return resolutionError(uri, fmt.Errorf("unparseable document: %w", err))
	}

	id := idOf()
	if id == uri {
		return nil
	}
	if !util.SameHost(id, uri) {
		return resolutionError(uri, fmt.Errorf("document id %s violates same-host invariant", id))
	}

	// Chase the canonical id once.
	doc, err = r.FetchRemoteDocument(id)
	if err != nil {
		return resolutionError(id, err)
	}
	if err := json.Unmarshal(doc.Body, out); err != nil {
		return resolutionError(id, fmt.Errorf("unparseable document: %w", err))
	}
	if got := idOf(); got != id {
		return resolutionError(id, fmt.Errorf("document id %s is not canonical", got))
	}
	return nil
}

// ResolveActor returns the local row for an actor URL, fetching and
// creating it when unknown. Stale rows are returned as-is and refreshed
// in the background.
func (r *Resolver) ResolveActor(uri string) (*domain.Actor, error) {
	err, cached := r.database.ReadActorByURI(uri)
	exists := err == nil && cached != nil

	if exists && cached.IsLocal() {
		return cached, nil
	}

	var lastFetched time.Time
	if exists {
		lastFetched = cached.LastFetchedAt
	}

	switch domain.ClassifyCache(lastFetched, ActorFreshness, exists) {
	case domain.CacheFresh:
		return cached, nil
	case domain.CacheStale:
		r.scheduleRefresh("actor", uri)
		return cached, nil
	}

	return r.RefreshActor(uri)
}

// RefreshActor force-fetches an actor document and upserts the local
// row. The published key may live in a separate key-owner document; in
// that case the owner is fetched once and becomes the actor.
func (r *Resolver) RefreshActor(uri string) (*domain.Actor, error) {
	var doc ActorDocument
	if err := r.fetchChecked(uri, &doc, func() string { return doc.ID }); err != nil {
		return nil, err
	}

	// Public key owner redirection, bounded to a single extra fetch.
	if doc.PublicKey.Owner != "" && doc.PublicKey.Owner != doc.ID {
		ownerURI := doc.PublicKey.Owner
		if !util.SameHost(ownerURI, doc.ID) {
			return nil, resolutionError(uri, fmt.Errorf("public key owner %s violates same-host invariant", ownerURI))
		}
		doc = ActorDocument{}
		if err := r.fetchChecked(ownerURI, &doc, func() string { return doc.ID }); err != nil {
			return nil, err
		}
	}

	if err := SanitizeActorDocument(&doc); err != nil {
		return nil, resolutionError(uri, err)
	}

	host, err := util.ExtractHost(doc.ID)
	if err != nil {
		return nil, resolutionError(uri, err)
	}

	actor := &domain.Actor{
		Id:                uuid.New(),
		URI:               doc.ID,
		Type:              domain.ActorType(doc.Type),
		PreferredUsername: doc.PreferredUsername,
		Host:              host,
		DisplayName:       doc.Name,
		Summary:           doc.Summary,
		InboxURI:          doc.Inbox,
		OutboxURI:         doc.Outbox,
		FollowersURI:      doc.Followers,
		FollowingURI:      doc.Following,
		SharedInboxURI:    doc.Endpoints.SharedInbox,
		PublicKeyPem:      doc.PublicKey.PublicKeyPem,
		LastFetchedAt:     time.Now(),
		CreatedAt:         time.Now(),
	}

	readErr, known := r.database.ReadActorByURI(doc.ID)
	firstContact := readErr != nil || known == nil

	if err := r.database.UpsertActor(actor); err != nil {
		return nil, fmt.Errorf("failed to store actor %s: %w", doc.ID, err)
	}

	// Re-read so updates return the original row id.
	err, stored := r.database.ReadActorByURI(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload actor %s: %w", doc.ID, err)
	}

	// A channel seen for the first time gets its outbox walked so its
	// existing videos show up without waiting for new announcements.
	if firstContact && stored.Type == domain.ActorTypeGroup && !stored.IsLocal() {
		r.scheduleRefresh("outbox", stored.URI)
	}
	return stored, nil
}

// ResolveVideo returns the local row for a video URL, fetching and
// creating it (and its channel) when unknown.
func (r *Resolver) ResolveVideo(uri string) (*domain.Video, error) {
	err, cached := r.database.ReadVideoByURI(uri)
	exists := err == nil && cached != nil

	if exists {
		err, channel := r.database.ReadActorById(cached.ChannelActorId)
		if err == nil && channel != nil && channel.IsLocal() {
			return cached, nil
		}
		switch domain.ClassifyCache(cached.LastRefreshedAt, VideoFreshness, true) {
		case domain.CacheFresh:
			return cached, nil
		case domain.CacheStale:
			r.scheduleRefresh("video", uri)
			return cached, nil
		}
	}

	return r.fetchAndUpsertVideo(uri)
}

func (r *Resolver) fetchAndUpsertVideo(uri string) (*domain.Video, error) {
	var doc VideoObject
	if err := r.fetchChecked(uri, &doc, func() string { return doc.ID }); err != nil {
		return nil, err
	}
	if err := SanitizeVideoObject(&doc); err != nil {
		return nil, resolutionError(uri, err)
	}

	channelURI := doc.AttributedTo.FirstOfType("Group")
	if channelURI == "" {
		return nil, resolutionError(uri, fmt.Errorf("video %s is attributed to no channel", doc.ID))
	}
	if !util.SameHost(channelURI, doc.ID) {
		return nil, resolutionError(uri, fmt.Errorf("channel %s violates same-host invariant", channelURI))
	}
	channel, err := r.ResolveActor(channelURI)
	if err != nil {
		return nil, err
	}

	video, err := UpsertVideoFromObject(r.database, &doc, channel)
	if err != nil {
		return nil, err
	}

	// Comments and shares live in the video's own collections and only
	// reach us when the origin forwards them; a periodic resync catches
	// what the forwarding missed.
	if !channel.IsLocal() {
		if doc.Comments != "" {
			r.scheduleVideoCrawl("video-comments", doc.Comments, video.Id)
		}
		if doc.Shares != "" {
			r.scheduleVideoCrawl("video-shares", doc.Shares, video.Id)
		}
	}
	return video, nil
}

// UpsertVideoFromObject projects a sanitized video document onto the
// local row, creating or refreshing it. Idempotent: a duplicate Create
// for a known video is a no-op refresh.
func UpsertVideoFromObject(database *db.DB, doc *VideoObject, channel *domain.Actor) (*domain.Video, error) {
	tagsJSON, _ := json.Marshal(doc.TagNames())

	publishedAt := time.Now()
	if t, err := time.Parse(time.RFC3339, doc.Published); err == nil {
		publishedAt = t
	}

	err, existing := database.ReadVideoByURI(doc.ID)
	if err == nil && existing != nil {
		existing.Name = doc.Name
		existing.Description = doc.Content
		existing.Privacy = doc.Privacy()
		existing.State = domain.VideoState(doc.State)
		existing.Duration = doc.Duration
		existing.TagsJSON = string(tagsJSON)
		existing.LastRefreshedAt = time.Now()
		if err := database.UpdateVideo(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	video := &domain.Video{
		Id:              uuid.New(),
		URI:             doc.ID,
		UUID:            uuid.MustParse(doc.UUID),
		ChannelActorId:  channel.Id,
		Name:            doc.Name,
		Description:     doc.Content,
		Privacy:         doc.Privacy(),
		State:           domain.VideoState(doc.State),
		Duration:        doc.Duration,
		Views:           doc.Views,
		TagsJSON:        string(tagsJSON),
		PublishedAt:     publishedAt,
		LastRefreshedAt: time.Now(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := database.CreateVideo(video); err != nil {
		return nil, err
	}
	return video, nil
}

// ResolvePlaylist returns the local row for a playlist URL, fetching
// and creating it when unknown. A fetch rebuilds the element list
// wholesale: remote playlists are not append-only.
func (r *Resolver) ResolvePlaylist(uri string) (*domain.VideoPlaylist, error) {
	err, cached := r.database.ReadPlaylistByURI(uri)
	exists := err == nil && cached != nil

	if exists {
		err, owner := r.database.ReadActorById(cached.OwnerActorId)
		if err == nil && owner != nil && owner.IsLocal() {
			return cached, nil
		}
		switch domain.ClassifyCache(cached.LastRefreshedAt, PlaylistFreshness, true) {
		case domain.CacheFresh:
			return cached, nil
		case domain.CacheStale:
			r.scheduleRefresh("playlist", uri)
			return cached, nil
		}
	}

	return r.fetchAndUpsertPlaylist(uri)
}

func (r *Resolver) fetchAndUpsertPlaylist(uri string) (*domain.VideoPlaylist, error) {
	var doc PlaylistObject
	if err := r.fetchChecked(uri, &doc, func() string { return doc.ID }); err != nil {
		return nil, err
	}
	if err := SanitizePlaylistObject(&doc); err != nil {
		return nil, resolutionError(uri, err)
	}

	ownerURI := doc.AttributedTo.FirstOfType("Group")
	if ownerURI == "" {
		ownerURI = doc.AttributedTo.FirstOfType("Person")
	}
	if ownerURI == "" {
		return nil, resolutionError(uri, fmt.Errorf("playlist %s has no owner", doc.ID))
	}
	if !util.SameHost(ownerURI, doc.ID) {
		return nil, resolutionError(uri, fmt.Errorf("owner %s violates same-host invariant", ownerURI))
	}
	owner, err := r.ResolveActor(ownerURI)
	if err != nil {
		return nil, err
	}

	playlist, err := r.upsertPlaylistFromObject(&doc, owner)
	if err != nil {
		return nil, err
	}

	if err := r.rebuildPlaylistElements(playlist); err != nil {
		log.Printf("Resolver: rebuilding elements of playlist %s failed: %v", playlist.URI, err)
	}
	return playlist, nil
}

func (r *Resolver) upsertPlaylistFromObject(doc *PlaylistObject, owner *domain.Actor) (*domain.VideoPlaylist, error) {
	err, existing := r.database.ReadPlaylistByURI(doc.ID)
	if err == nil && existing != nil {
		existing.Name = doc.Name
		existing.Description = doc.Content
		existing.Privacy = doc.Privacy()
		existing.LastRefreshedAt = time.Now()
		if err := r.database.UpdatePlaylist(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	playlist := &domain.VideoPlaylist{
		Id:              uuid.New(),
		URI:             doc.ID,
		UUID:            uuid.MustParse(doc.UUID),
		OwnerActorId:    owner.Id,
		Name:            doc.Name,
		Description:     doc.Content,
		Privacy:         doc.Privacy(),
		LastRefreshedAt: time.Now(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := r.database.CreatePlaylist(playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// rebuildPlaylistElements crawls the playlist's own collection and
// replaces all local elements with what the walk produced.
func (r *Resolver) rebuildPlaylistElements(playlist *domain.VideoPlaylist) error {
	var mu sync.Mutex
	var elements []domain.VideoPlaylistElement

	err := r.CrawlCollection(playlist.URI, func(item json.RawMessage) error {
		var elementDoc PlaylistElementObject
		if err := json.Unmarshal(item, &elementDoc); err != nil {
			return validationErrorf("unparseable playlist element: %v", err)
		}
		if err := SanitizePlaylistElementObject(&elementDoc); err != nil {
			return err
		}
		video, err := r.ResolveVideo(elementDoc.URL)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		elements = append(elements, domain.VideoPlaylistElement{
			Id:             uuid.New(),
			PlaylistId:     playlist.Id,
			VideoId:        video.Id,
			Position:       elementDoc.Position,
			StartTimestamp: elementDoc.StartTimestamp,
			StopTimestamp:  elementDoc.StopTimestamp,
			CreatedAt:      time.Now(),
		})
		return nil
	}, nil)
	if err != nil {
		return err
	}

	return r.database.ReplacePlaylistElements(playlist.Id, elements)
}
