package activitypub

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

// dispatchKey routes an activity to its handler. Create and Update
// dispatch on the embedded object's type as well; all other activity
// types dispatch on the activity type alone.
type dispatchKey struct {
	ActivityType string
	ObjectType   string
}

// InboxItem is one authenticated, validated activity awaiting
// processing. Signer is the actor whose HTTP signature authenticated
// the request; ByActor is the actor the activity is attributed to. The
// two differ when a server relays another actor's activity, and the
// dispatcher fills ByActor from the activity's actor field before
// handling.
type InboxItem struct {
	Activity *Activity
	Raw      json.RawMessage // original wire form, kept for forwarding
	Signer   *domain.Actor
	ByActor  *domain.Actor
}

type handlerFunc func(item *InboxItem) error

// Processor interprets validated activities and applies their effects
// to local storage.
type Processor struct {
	database *db.DB
	conf     *util.AppConfig
	resolver *Resolver
	notifier Notifier
	table    map[dispatchKey]handlerFunc
}

func NewProcessor(database *db.DB, conf *util.AppConfig, resolver *Resolver, notifier Notifier) *Processor {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	p := &Processor{
		database: database,
		conf:     conf,
		resolver: resolver,
		notifier: notifier,
	}
	p.table = map[dispatchKey]handlerFunc{
		{"Create", "Video"}:       p.handleCreateVideo,
		{"Create", "Note"}:        p.handleCreateNote,
		{"Create", "WatchAction"}: p.handleCreateWatchAction,
		{"Create", "CacheFile"}:   p.handleCreateCacheFile,
		{"Create", "Playlist"}:    p.handleCreatePlaylist,
		{"Update", "Video"}:       p.handleUpdateVideo,
		{"Update", "CacheFile"}:   p.handleUpdateCacheFile,
		{"Update", "Playlist"}:    p.handleUpdatePlaylist,
		{"Update", "Person"}:      p.handleUpdateActor,
		{"Update", "Group"}:       p.handleUpdateActor,
		{"Update", "Application"}: p.handleUpdateActor,
		{"Delete", ""}:            p.handleDelete,
		{"Follow", ""}:            p.handleFollow,
		{"Accept", ""}:            p.handleAccept,
		{"Reject", ""}:            p.handleReject,
		{"Undo", ""}:              p.handleUndo,
		{"Like", ""}:              p.handleLike,
		{"Dislike", ""}:           p.handleDislike,
		{"Announce", ""}:          p.handleAnnounce,
		{"View", ""}:              p.handleView,
	}
	return p
}

// keyFor computes the dispatch key of an activity.
func keyFor(activity *Activity) dispatchKey {
	switch activity.Type {
	case "Create", "Update":
		return dispatchKey{activity.Type, activity.ObjectType()}
	default:
		return dispatchKey{activity.Type, ""}
	}
}

// Process routes one activity to its handler and runs it under the
// conflict-retry discipline. Unknown (type, object.type) pairs are a
// logged no-op: federation must tolerate future vocabulary.
func (p *Processor) Process(item *InboxItem) error {
	key := keyFor(item.Activity)
	handler, ok := p.table[key]
	if !ok {
		log.Printf("Dispatcher: ignoring unsupported activity %s(%s) from %s",
			key.ActivityType, key.ObjectType, item.Activity.Actor)
		return nil
	}

	if p.alreadyProcessed(item.Activity) {
		log.Printf("Dispatcher: activity %s already processed, skipping", item.Activity.ID)
		return nil
	}

	byActor, err := p.attributeActor(item)
	if err != nil {
		return err
	}
	item.ByActor = byActor

	if err := db.WithRetry(db.MaxTxRetries, func() error {
		return handler(item)
	}); err != nil {
		return err
	}

	p.recordActivity(item.Activity)
	return nil
}

// alreadyProcessed consults the activity log for idempotent replay
// handling.
func (p *Processor) alreadyProcessed(activity *Activity) bool {
	err, existing := p.database.ReadActivityByURI(activity.ID)
	return err == nil && existing != nil && existing.Processed
}

func (p *Processor) recordActivity(activity *Activity) {
	raw, err := json.Marshal(activity)
	if err != nil {
		return
	}
	record := &domain.Activity{
		Id:           uuid.New(),
		ActivityURI:  activity.ID,
		ActivityType: activity.Type,
		ActorURI:     activity.Actor,
		ObjectURI:    activity.ObjectID(),
		RawJSON:      string(raw),
		Processed:    true,
		Local:        false,
		CreatedAt:    time.Now(),
	}
	if err := p.database.CreateActivity(record); err != nil {
		// The log is advisory, processing already succeeded.
		log.Printf("Dispatcher: failed to record activity %s: %v", activity.ID, err)
	}
}

// attributeActor resolves the actor the activity is attributed to.
// Mutations are recorded under the activity's actor, never under the
// HTTP signer: servers forward their followers' activities verbatim,
// re-signed with their own key. A signer relaying someone else's
// activity is only trusted when its host owns the object the activity
// targets.
func (p *Processor) attributeActor(item *InboxItem) (*domain.Actor, error) {
	if item.Signer != nil && item.Signer.URI == item.Activity.Actor {
		return item.Signer, nil
	}

	actor, err := p.resolver.ResolveActor(item.Activity.Actor)
	if err != nil {
		return nil, err
	}

	if item.Signer != nil && item.Signer.Id != actor.Id {
		if err := p.checkRelayTrust(item.Signer, item.Activity); err != nil {
			return nil, err
		}
	}
	return actor, nil
}

// checkRelayTrust accepts a signer that differs from the activity's
// actor only when the signer's host owns the object the activity
// concerns: the video under a comment, rate, share or view, or the
// thread of a deleted comment.
func (p *Processor) checkRelayTrust(signer *domain.Actor, activity *Activity) error {
	target := relayTargetURI(activity)
	if target != "" {
		if util.SameHost(signer.URI, target) {
			return nil
		}
		// A reply to another remote comment names the parent comment,
		// not the video; the thread's video decides ownership.
		if err, comment := p.database.ReadCommentByURI(target); err == nil && comment != nil {
			if err, video := p.database.ReadVideoById(comment.VideoId); err == nil && video != nil &&
				util.SameHost(signer.URI, video.URI) {
				return nil
			}
		}
	}
	return authorityErrorf("relayed activity %s is not signed by the target's owner %s", activity.ID, signer.URI)
}

// relayTargetURI extracts the URL of the object a relayed activity
// ultimately concerns.
func relayTargetURI(activity *Activity) string {
	switch activity.Type {
	case "Create", "Update":
		var obj struct {
			InReplyTo string `json:"inReplyTo"`
			Object    string `json:"object"`
		}
		if err := json.Unmarshal(activity.Object, &obj); err == nil {
			if obj.InReplyTo != "" {
				return obj.InReplyTo
			}
			if obj.Object != "" {
				return obj.Object
			}
		}
		return activity.ObjectID()
	case "Undo":
		if inner, err := activity.InnerActivity(); err == nil && inner.Type != "" {
			return relayTargetURI(inner)
		}
		return activity.ObjectID()
	default:
		return activity.ObjectID()
	}
}

// checkOrigin enforces that an embedded object lives on the same host
// as the actor distributing it: a server cannot mint objects on another
// server's behalf.
func checkOrigin(actorURI, objectURI string) error {
	if !util.SameHost(actorURI, objectURI) {
		return validationErrorf("object %s does not share a host with actor %s", objectURI, actorURI)
	}
	return nil
}
