package activitypub

import (
	"encoding/json"
)

// ActivityPubContext is the JSON-LD context sent on outgoing activities.
const ActivityPubContext = "https://www.w3.org/ns/activitystreams"

// PublicAudience marks an activity as publicly addressed.
const PublicAudience = "https://www.w3.org/ns/activitystreams#Public"

// AudienceList accepts the federation wire forms of to/cc: absent, a
// single URL string, or an array of URLs.
type AudienceList []string

func (a *AudienceList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AudienceList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*a = AudienceList(many)
		return nil
	}
	// Arrays of objects with ids also occur in the wild.
	var objects []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &objects); err == nil {
		list := make(AudienceList, 0, len(objects))
		for _, o := range objects {
			if o.ID != "" {
				list = append(list, o.ID)
			}
		}
		*a = list
		return nil
	}
	return validationErrorf("to/cc is neither a URL nor a URL array")
}

// Contains reports whether the audience list carries the given URL.
func (a AudienceList) Contains(url string) bool {
	for _, entry := range a {
		if entry == url {
			return true
		}
	}
	return false
}

// Activity is the inbound activity envelope. Object stays raw because
// its shape depends on (type, object.type).
type Activity struct {
	Context interface{}     `json:"@context,omitempty"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Actor   string          `json:"actor"`
	Object  json.RawMessage `json:"object"`
	To      AudienceList    `json:"to,omitempty"`
	Cc      AudienceList    `json:"cc,omitempty"`
}

// ObjectID extracts the object's identity URL, whether the object is a
// bare URL string or an embedded object.
func (a *Activity) ObjectID() string {
	if len(a.Object) == 0 {
		return ""
	}
	var uri string
	if err := json.Unmarshal(a.Object, &uri); err == nil {
		return uri
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(a.Object, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// InnerActivity decodes the object as a nested activity, as carried by
// Accept, Reject and Undo. A bare URL object yields an activity with
// only its ID set.
func (a *Activity) InnerActivity() (*Activity, error) {
	var uri string
	if err := json.Unmarshal(a.Object, &uri); err == nil {
		return &Activity{ID: uri}, nil
	}
	var inner Activity
	if err := json.Unmarshal(a.Object, &inner); err != nil {
		return nil, err
	}
	return &inner, nil
}

// ObjectType extracts the embedded object's declared type, or "" when
// the object is a bare URL.
func (a *Activity) ObjectType() string {
	if len(a.Object) == 0 {
		return ""
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(a.Object, &obj); err == nil {
		return obj.Type
	}
	return ""
}
