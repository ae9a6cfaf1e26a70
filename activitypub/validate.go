package activitypub

import (
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

const (
	MaxURLLength         = 2000
	MaxNameLength        = 120
	MaxDescriptionLength = 10000
	MaxSummaryLength     = 500
	MaxTagLength         = 30
	MaxTags              = 5
)

// IsFederationURL reports whether s looks like a usable http(s)
// federation URL of acceptable length. Identity fields must pass this;
// everything else is sanitized rather than rejected.
func IsFederationURL(s string) bool {
	if s == "" || len(s) > MaxURLLength {
		return false
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// UnwrapActivityBody turns an inbox body into its list of activity
// items. A Collection/OrderedCollection wrapper is unwrapped to
// items/orderedItems; anything else is a single activity.
func UnwrapActivityBody(body []byte) ([]json.RawMessage, error) {
	var wrapper struct {
		Type         string            `json:"type"`
		Items        []json.RawMessage `json:"items"`
		OrderedItems []json.RawMessage `json:"orderedItems"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, validationErrorf("body is not a JSON object: %v", err)
	}

	switch wrapper.Type {
	case "Collection":
		return wrapper.Items, nil
	case "OrderedCollection":
		return wrapper.OrderedItems, nil
	default:
		return []json.RawMessage{json.RawMessage(body)}, nil
	}
}

// ValidateBatch parses and filters a batch of raw activities. Invalid
// items are dropped with a log line; the valid remainder is returned in
// order. An empty remainder is not an error.
func ValidateBatch(raws []json.RawMessage) []*Activity {
	activities := make([]*Activity, 0, len(raws))
	for _, raw := range raws {
		activity, err := ValidateActivity(raw)
		if err != nil {
			log.Printf("Validator: dropping invalid activity: %v", err)
			continue
		}
		activities = append(activities, activity)
	}
	return activities
}

// ValidateActivity checks the envelope of a single activity.
func ValidateActivity(raw json.RawMessage) (*Activity, error) {
	var activity Activity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return nil, validationErrorf("unparseable activity: %v", err)
	}
	if activity.Type == "" {
		return nil, validationErrorf("missing type")
	}
	if !IsFederationURL(activity.ID) {
		return nil, validationErrorf("bad activity id %q", activity.ID)
	}
	if !IsFederationURL(activity.Actor) {
		return nil, validationErrorf("bad actor %q", activity.Actor)
	}
	if len(activity.Object) == 0 {
		return nil, validationErrorf("missing object")
	}
	for _, audience := range append(append(AudienceList{}, activity.To...), activity.Cc...) {
		if !IsFederationURL(audience) {
			return nil, validationErrorf("bad audience entry %q", audience)
		}
	}
	return &activity, nil
}

// ActorDocument is the wire shape of a fetched actor.
type ActorDocument struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	PreferredUsername string `json:"preferredUsername"`
	Name              string `json:"name"`
	Summary           string `json:"summary"`
	Inbox             string `json:"inbox"`
	Outbox            string `json:"outbox"`
	Followers         string `json:"followers"`
	Following         string `json:"following"`
	Endpoints         struct {
		SharedInbox string `json:"sharedInbox"`
	} `json:"endpoints"`
	PublicKey struct {
		ID           string `json:"id"`
		Owner        string `json:"owner"`
		PublicKeyPem string `json:"publicKeyPem"`
	} `json:"publicKey"`
}

// SanitizeActorDocument validates identity fields and coerces the rest.
func SanitizeActorDocument(doc *ActorDocument) error {
	if !IsFederationURL(doc.ID) {
		return validationErrorf("actor document has bad id %q", doc.ID)
	}
	if doc.PreferredUsername == "" {
		return validationErrorf("actor %s has no preferredUsername", doc.ID)
	}
	if !IsFederationURL(doc.Inbox) {
		return validationErrorf("actor %s has no usable inbox", doc.ID)
	}
	if doc.PublicKey.PublicKeyPem == "" {
		return validationErrorf("actor %s publishes no public key", doc.ID)
	}
	switch doc.Type {
	case "Person", "Group", "Application":
	default:
		// Unknown actor flavors federate as plain accounts.
		doc.Type = "Person"
	}
	doc.Name = util.TruncateString(doc.Name, MaxNameLength)
	doc.Summary = util.TruncateString(doc.Summary, MaxSummaryLength)
	if doc.Endpoints.SharedInbox != "" && !IsFederationURL(doc.Endpoints.SharedInbox) {
		doc.Endpoints.SharedInbox = ""
	}
	return nil
}

// Attribution is one attributedTo entry; the wire form is a URL string
// or an object with type and id.
type Attribution struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// AttributionList accepts a single attribution or an array.
type AttributionList []Attribution

func (l *AttributionList) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		*l = AttributionList{{ID: uri}}
		return nil
	}
	var one Attribution
	if err := json.Unmarshal(data, &one); err == nil && one.ID != "" {
		*l = AttributionList{one}
		return nil
	}
	var many []Attribution
	if err := json.Unmarshal(data, &many); err == nil {
		*l = AttributionList(many)
		return nil
	}
	return validationErrorf("unparseable attributedTo")
}

// FirstOfType returns the first attribution of the given type, or the
// first entry at all when no type information is present.
func (l AttributionList) FirstOfType(actorType string) string {
	for _, attribution := range l {
		if attribution.Type == actorType {
			return attribution.ID
		}
	}
	for _, attribution := range l {
		if attribution.Type == "" {
			return attribution.ID
		}
	}
	return ""
}

// Tag is a hashtag entry on a video object.
type Tag struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// VideoObject is the wire shape of a federated video.
type VideoObject struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Duration     int             `json:"duration"`
	Views        int64           `json:"views"`
	State        int             `json:"state"`
	Content      string          `json:"content"`
	Published    string          `json:"published"`
	Tag          []Tag           `json:"tag"`
	Comments     string          `json:"comments"`
	Shares       string          `json:"shares"`
	AttributedTo AttributionList `json:"attributedTo"`
	To           AudienceList    `json:"to"`
	Cc           AudienceList    `json:"cc"`
}

// SanitizeVideoObject validates identity fields (id, uuid) and
// best-effort-sanitizes the rest: federation input is untrusted, minor
// deviations are coerced instead of rejected.
func SanitizeVideoObject(doc *VideoObject) error {
	if !IsFederationURL(doc.ID) {
		return validationErrorf("video has bad id %q", doc.ID)
	}
	if _, err := uuid.Parse(doc.UUID); err != nil {
		return validationErrorf("video %s has bad uuid %q", doc.ID, doc.UUID)
	}
	if doc.Name == "" {
		return validationErrorf("video %s has no name", doc.ID)
	}
	doc.Name = util.TruncateString(doc.Name, MaxNameLength)
	doc.Content = util.TruncateString(doc.Content, MaxDescriptionLength)
	if doc.Duration < 0 {
		doc.Duration = 0
	}
	if doc.Views < 0 {
		doc.Views = 0
	}
	if doc.State < int(domain.VideoStatePublished) || doc.State > int(domain.VideoStateLiveEnded) {
		doc.State = int(domain.VideoStatePublished)
	}
	// Collection links are advisory, a bad or cross-host one just
	// disables its crawl.
	if !IsFederationURL(doc.Comments) || !util.SameHost(doc.Comments, doc.ID) {
		doc.Comments = ""
	}
	if !IsFederationURL(doc.Shares) || !util.SameHost(doc.Shares, doc.ID) {
		doc.Shares = ""
	}
	tags := make([]Tag, 0, MaxTags)
	for _, tag := range doc.Tag {
		if tag.Type != "Hashtag" || tag.Name == "" {
			continue
		}
		tag.Name = util.TruncateString(tag.Name, MaxTagLength)
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	doc.Tag = tags
	return nil
}

// TagNames returns the sanitized hashtag names.
func (doc *VideoObject) TagNames() []string {
	names := make([]string, 0, len(doc.Tag))
	for _, tag := range doc.Tag {
		names = append(names, tag.Name)
	}
	return names
}

// Privacy derives the privacy level from the audience: public when
// addressed to the public collection, unlisted when only cc'd to it.
func (doc *VideoObject) Privacy() domain.VideoPrivacy {
	if doc.To.Contains(PublicAudience) {
		return domain.VideoPrivacyPublic
	}
	if doc.Cc.Contains(PublicAudience) {
		return domain.VideoPrivacyUnlisted
	}
	return domain.VideoPrivacyPrivate
}

// NoteObject is the wire shape of a video comment.
type NoteObject struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Content      string          `json:"content"`
	InReplyTo    string          `json:"inReplyTo"`
	Published    string          `json:"published"`
	AttributedTo AttributionList `json:"attributedTo"`
}

func SanitizeNoteObject(doc *NoteObject) error {
	if !IsFederationURL(doc.ID) {
		return validationErrorf("note has bad id %q", doc.ID)
	}
	if !IsFederationURL(doc.InReplyTo) {
		return validationErrorf("note %s has bad inReplyTo %q", doc.ID, doc.InReplyTo)
	}
	doc.Content = util.TruncateString(doc.Content, MaxDescriptionLength)
	return nil
}

// PlaylistObject is the wire shape of a video playlist.
type PlaylistObject struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Content      string          `json:"content"`
	AttributedTo AttributionList `json:"attributedTo"`
	To           AudienceList    `json:"to"`
	Cc           AudienceList    `json:"cc"`
}

func SanitizePlaylistObject(doc *PlaylistObject) error {
	if !IsFederationURL(doc.ID) {
		return validationErrorf("playlist has bad id %q", doc.ID)
	}
	if _, err := uuid.Parse(doc.UUID); err != nil {
		return validationErrorf("playlist %s has bad uuid %q", doc.ID, doc.UUID)
	}
	if doc.Name == "" {
		return validationErrorf("playlist %s has no name", doc.ID)
	}
	doc.Name = util.TruncateString(doc.Name, MaxNameLength)
	doc.Content = util.TruncateString(doc.Content, MaxDescriptionLength)
	return nil
}

// Privacy derives playlist privacy the same way videos do.
func (doc *PlaylistObject) Privacy() domain.VideoPrivacy {
	if doc.To.Contains(PublicAudience) {
		return domain.VideoPrivacyPublic
	}
	if doc.Cc.Contains(PublicAudience) {
		return domain.VideoPrivacyUnlisted
	}
	return domain.VideoPrivacyPrivate
}

// PlaylistElementObject is one ordered playlist entry on the wire.
type PlaylistElementObject struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Position       int    `json:"position"`
	URL            string `json:"url"` // the video's canonical URL
	StartTimestamp int    `json:"startTimestamp"`
	StopTimestamp  int    `json:"stopTimestamp"`
}

func SanitizePlaylistElementObject(doc *PlaylistElementObject) error {
	if !IsFederationURL(doc.ID) {
		return validationErrorf("playlist element has bad id %q", doc.ID)
	}
	if !IsFederationURL(doc.URL) {
		return validationErrorf("playlist element %s has bad video url %q", doc.ID, doc.URL)
	}
	if doc.Position < 0 {
		doc.Position = 0
	}
	if doc.StartTimestamp < 0 {
		doc.StartTimestamp = 0
	}
	if doc.StopTimestamp < 0 {
		doc.StopTimestamp = 0
	}
	return nil
}

// CacheFileObject is the wire shape of a redundancy offer.
type CacheFileObject struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Object  string `json:"object"` // URL of the cached video
	Expires string `json:"expires"`
	URL     struct {
		Type      string `json:"type"`
		MediaType string `json:"mediaType"`
		Href      string `json:"href"`
	} `json:"url"`
}

// SanitizeCacheFileObject validates identity fields. The url block is
// optional: an update may carry only a new expiry, keeping the
// previously announced file location.
func SanitizeCacheFileObject(doc *CacheFileObject) error {
	if !IsFederationURL(doc.ID) {
		return validationErrorf("cache file has bad id %q", doc.ID)
	}
	if !IsFederationURL(doc.Object) {
		return validationErrorf("cache file %s has bad video url %q", doc.ID, doc.Object)
	}
	if doc.URL.Href != "" && !IsFederationURL(doc.URL.Href) {
		return validationErrorf("cache file %s has bad file url %q", doc.ID, doc.URL.Href)
	}
	return nil
}

// ExpiresTime parses the expiry timestamp, zero time when absent or
// unparseable.
func (doc *CacheFileObject) ExpiresTime() time.Time {
	t, err := time.Parse(time.RFC3339, doc.Expires)
	if err != nil {
		return time.Time{}
	}
	return t
}

// WatchActionObject is the wire shape of a completed-view report.
type WatchActionObject struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	ActionStatus string `json:"actionStatus"`
	Object       string `json:"object"` // URL of the watched video
}

// Completed reports whether the watch action describes a finished view.
func (doc *WatchActionObject) Completed() bool {
	return doc.ActionStatus == "CompletedActionStatus" || doc.ActionStatus == "completed"
}
