package activitypub

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

func TestUnwrapActivityBodySingle(t *testing.T) {
	body := []byte(`{"id":"https://remote.example/a/1","type":"Like","actor":"https://remote.example/accounts/x","object":"https://local.example/videos/watch/1"}`)
	raws, err := UnwrapActivityBody(body)
	if err != nil {
		t.Fatalf("UnwrapActivityBody failed: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(raws))
	}
}

func TestUnwrapActivityBodyOrderedCollection(t *testing.T) {
	body := []byte(`{"type":"OrderedCollection","orderedItems":[{"a":1},{"a":2},{"a":3}]}`)
	raws, err := UnwrapActivityBody(body)
	if err != nil {
		t.Fatalf("UnwrapActivityBody failed: %v", err)
	}
	if len(raws) != 3 {
		t.Errorf("Expected 3 items, got %d", len(raws))
	}
}

func TestUnwrapActivityBodyRejectsGarbage(t *testing.T) {
	if _, err := UnwrapActivityBody([]byte(`not json`)); err == nil {
		t.Error("Expected error for non-JSON body")
	}
}

// A batch with K valid and M invalid activities yields the K valid
// ones, in order.
func TestValidateBatchPartialTolerance(t *testing.T) {
	valid := func(i int) string {
		return fmt.Sprintf(`{"id":"https://remote.example/a/%d","type":"Like","actor":"https://remote.example/accounts/x","object":"https://local.example/v/%d"}`, i, i)
	}
	raws := []json.RawMessage{
		json.RawMessage(valid(1)),
		json.RawMessage(`{"type":"Like"}`), // no id
		json.RawMessage(valid(2)),
		json.RawMessage(`{"id":"ftp://x","type":"Like"}`), // bad scheme
		json.RawMessage(`{"id":"https://r.example/a/9"}`), // no type
		json.RawMessage(valid(3)),
	}

	activities := ValidateBatch(raws)
	if len(activities) != 3 {
		t.Fatalf("Expected 3 surviving activities, got %d", len(activities))
	}
	for i, activity := range activities {
		want := fmt.Sprintf("https://remote.example/a/%d", i+1)
		if activity.ID != want {
			t.Errorf("Expected order preserved: got %s at %d", activity.ID, i)
		}
	}
}

func TestValidateActivityEnvelope(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", `{"id":"https://r.example/a/1","type":"Follow","actor":"https://r.example/accounts/x","object":"https://l.example/accounts/y"}`, true},
		{"missing type", `{"id":"https://r.example/a/1","actor":"https://r.example/x","object":"o"}`, false},
		{"missing object", `{"id":"https://r.example/a/1","type":"Follow","actor":"https://r.example/x"}`, false},
		{"bad actor", `{"id":"https://r.example/a/1","type":"Follow","actor":"nope","object":"https://l.example/y"}`, false},
		{"bad audience", `{"id":"https://r.example/a/1","type":"Follow","actor":"https://r.example/x","object":"https://l.example/y","to":["garbage"]}`, false},
		{"overlong id", `{"id":"https://r.example/` + strings.Repeat("x", MaxURLLength) + `","type":"Follow","actor":"https://r.example/x","object":"https://l.example/y"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateActivity(json.RawMessage(tt.raw))
			if tt.ok && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestAudienceListWireForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"single string", `"https://a.example/x"`, 1},
		{"string array", `["https://a.example/x","https://a.example/y"]`, 2},
		{"object array", `[{"id":"https://a.example/x"},{"id":"https://a.example/y"}]`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list AudienceList
			if err := json.Unmarshal([]byte(tt.raw), &list); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("Expected %d entries, got %d", tt.want, len(list))
			}
		})
	}
}

func TestSanitizeVideoObject(t *testing.T) {
	base := func() *VideoObject {
		return &VideoObject{
			ID:   "https://remote.example/videos/watch/1",
			Type: "Video",
			UUID: uuid.NewString(),
			Name: "a video",
		}
	}

	t.Run("hard identity requirements", func(t *testing.T) {
		doc := base()
		doc.ID = "garbage"
		if err := SanitizeVideoObject(doc); err == nil {
			t.Error("Expected bad id to be rejected")
		}
		doc = base()
		doc.UUID = "not-a-uuid"
		if err := SanitizeVideoObject(doc); err == nil {
			t.Error("Expected bad uuid to be rejected")
		}
		doc = base()
		doc.Name = ""
		if err := SanitizeVideoObject(doc); err == nil {
			t.Error("Expected missing name to be rejected")
		}
	})

	t.Run("soft fields coerced", func(t *testing.T) {
		doc := base()
		doc.Name = strings.Repeat("n", MaxNameLength+50)
		doc.Duration = -5
		doc.Views = -1
		doc.State = 99
		if err := SanitizeVideoObject(doc); err != nil {
			t.Fatalf("Expected coercion, got %v", err)
		}
		if len(doc.Name) != MaxNameLength {
			t.Errorf("Expected name clamped to %d, got %d", MaxNameLength, len(doc.Name))
		}
		if doc.Duration != 0 || doc.Views != 0 {
			t.Errorf("Expected negative counters zeroed, got %d/%d", doc.Duration, doc.Views)
		}
		if doc.State != int(domain.VideoStatePublished) {
			t.Errorf("Expected unknown state clamped, got %d", doc.State)
		}
	})

	t.Run("tags filtered and capped", func(t *testing.T) {
		doc := base()
		for i := 0; i < MaxTags+3; i++ {
			doc.Tag = append(doc.Tag, Tag{Type: "Hashtag", Name: fmt.Sprintf("tag%d", i)})
		}
		doc.Tag = append(doc.Tag, Tag{Type: "Mention", Name: "nope"})
		if err := SanitizeVideoObject(doc); err != nil {
			t.Fatalf("Sanitize failed: %v", err)
		}
		if len(doc.TagNames()) != MaxTags {
			t.Errorf("Expected %d tags, got %d", MaxTags, len(doc.TagNames()))
		}
		for _, name := range doc.TagNames() {
			if name == "nope" {
				t.Error("Non-hashtag tag survived sanitation")
			}
		}
	})
}

func TestVideoPrivacyFromAudience(t *testing.T) {
	tests := []struct {
		name string
		to   AudienceList
		cc   AudienceList
		want domain.VideoPrivacy
	}{
		{"public", AudienceList{PublicAudience}, nil, domain.VideoPrivacyPublic},
		{"unlisted", nil, AudienceList{PublicAudience}, domain.VideoPrivacyUnlisted},
		{"private", AudienceList{"https://r.example/followers"}, nil, domain.VideoPrivacyPrivate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &VideoObject{To: tt.to, Cc: tt.cc}
			if got := doc.Privacy(); got != tt.want {
				t.Errorf("Expected privacy %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWatchActionCompleted(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"CompletedActionStatus", true},
		{"completed", true},
		{"ActiveActionStatus", false},
		{"", false},
	}
	for _, tt := range tests {
		doc := &WatchActionObject{ActionStatus: tt.status}
		if doc.Completed() != tt.want {
			t.Errorf("Completed(%q) = %v, want %v", tt.status, doc.Completed(), tt.want)
		}
	}
}

func TestSanitizeActorDocumentUnknownType(t *testing.T) {
	doc := &ActorDocument{
		ID:                "https://remote.example/accounts/x",
		Type:              "Service",
		PreferredUsername: "x",
		Inbox:             "https://remote.example/accounts/x/inbox",
	}
	doc.PublicKey.PublicKeyPem = "pem"
	if err := SanitizeActorDocument(doc); err != nil {
		t.Fatalf("Sanitize failed: %v", err)
	}
	if doc.Type != "Person" {
		t.Errorf("Expected unknown actor type coerced to Person, got %s", doc.Type)
	}
}

func TestAttributionListFirstOfType(t *testing.T) {
	var list AttributionList
	raw := `[{"type":"Person","id":"https://r.example/accounts/a"},{"type":"Group","id":"https://r.example/channels/c"}]`
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := list.FirstOfType("Group"); got != "https://r.example/channels/c" {
		t.Errorf("Expected channel attribution, got %s", got)
	}

	// A bare URL string attribution has no type and is the fallback.
	var bare AttributionList
	if err := json.Unmarshal([]byte(`"https://r.example/accounts/a"`), &bare); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := bare.FirstOfType("Group"); got != "https://r.example/accounts/a" {
		t.Errorf("Expected untyped fallback, got %s", got)
	}
}
