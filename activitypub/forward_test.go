package activitypub

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
)

func acceptedFollower(t *testing.T, database *db.DB, follower, target *domain.Actor) {
	t.Helper()
	follow := &domain.Follow{
		Id:            uuid.New(),
		ActorId:       follower.Id,
		TargetActorId: target.Id,
		URI:           "https://" + follower.Host + "/follows/" + uuid.NewString(),
		State:         domain.FollowAccepted,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := database.CreateFollow(follow); err != nil {
		t.Fatalf("CreateFollow failed: %v", err)
	}
}

func TestCommentOnLocalVideoIsStoredAndForwarded(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)

	commenter := storeActor(t, database, "remote.example", "bob", domain.ActorTypePerson)
	subscriberA := storeActor(t, database, "peer-a.example", "a", domain.ActorTypePerson)
	subscriberB := storeActor(t, database, "peer-b.example", "b", domain.ActorTypePerson)
	for _, follower := range []*domain.Actor{commenter, subscriberA, subscriberB} {
		acceptedFollower(t, database, follower, localChannel)
	}

	item := makeItem(t, commenter, `{
		"id": "https://remote.example/activities/comment-1",
		"type": "Create",
		"actor": "`+commenter.URI+`",
		"object": {
			"id": "https://remote.example/comments/1",
			"type": "Note",
			"content": "nice video",
			"inReplyTo": "`+video.URI+`",
			"published": "2026-03-01T10:00:00Z"
		}
	}`)
	if err := processor.Process(item); err != nil {
		t.Fatalf("Comment create failed: %v", err)
	}

	err, comment := database.ReadCommentByURI("https://remote.example/comments/1")
	if err != nil || comment == nil {
		t.Fatal("Expected the comment row")
	}
	if comment.VideoId != video.Id {
		t.Error("Comment must attach to the video")
	}
	if comment.InReplyToCommentId != nil {
		t.Error("A reply to the video itself is a top-level comment")
	}

	// The activity is relayed to the channel's other followers, never
	// back to the sender.
	err, pending := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("ReadPendingDeliveries failed: %v", err)
	}
	if len(*pending) != 2 {
		t.Fatalf("Expected 2 relayed deliveries, got %d", len(*pending))
	}
	for _, delivery := range *pending {
		if delivery.InboxURI == commenter.BestInbox() {
			t.Error("The sender must not receive its own activity back")
		}
		if delivery.SenderActorId != localChannel.Id {
			t.Error("Relayed deliveries are signed by the video owner")
		}
		if !strings.Contains(delivery.ActivityJSON, "https://remote.example/activities/comment-1") {
			t.Error("The relay must carry the original activity")
		}
	}
}

func TestReplyToCommentAttachesToThread(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	commenter := storeActor(t, database, "remote.example", "bob", domain.ActorTypePerson)

	parent := &domain.VideoComment{
		Id:        uuid.New(),
		URI:       "https://remote.example/comments/parent",
		VideoId:   video.Id,
		ActorId:   commenter.Id,
		Content:   "parent",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := database.CreateComment(parent); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	item := makeItem(t, commenter, `{
		"id": "https://remote.example/activities/comment-2",
		"type": "Create",
		"actor": "`+commenter.URI+`",
		"object": {
			"id": "https://remote.example/comments/reply",
			"type": "Note",
			"content": "a reply",
			"inReplyTo": "`+parent.URI+`"
		}
	}`)
	if err := processor.Process(item); err != nil {
		t.Fatalf("Reply create failed: %v", err)
	}

	err, reply := database.ReadCommentByURI("https://remote.example/comments/reply")
	if err != nil || reply == nil {
		t.Fatal("Expected the reply row")
	}
	if reply.InReplyToCommentId == nil || *reply.InReplyToCommentId != parent.Id {
		t.Error("Reply must point at its parent comment")
	}
	if reply.VideoId != video.Id {
		t.Error("Reply must inherit the thread's video")
	}
}

func TestDeleteCommentTombstones(t *testing.T) {
	database, processor := testProcessor(t)
	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	commenter := storeActor(t, database, "remote.example", "bob", domain.ActorTypePerson)

	comment := &domain.VideoComment{
		Id:        uuid.New(),
		URI:       "https://remote.example/comments/9",
		VideoId:   video.Id,
		ActorId:   commenter.Id,
		Content:   "regrettable",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := database.CreateComment(comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	item := makeItem(t, commenter, `{
		"id": "https://remote.example/activities/del-comment",
		"type": "Delete",
		"actor": "`+commenter.URI+`",
		"object": "`+comment.URI+`"
	}`)
	if err := processor.Process(item); err != nil {
		t.Fatalf("Comment delete failed: %v", err)
	}

	err, got := database.ReadCommentById(comment.Id)
	if err != nil || got == nil {
		t.Fatal("Tombstoned comment must stay readable")
	}
	if !got.IsDeleted() {
		t.Error("Expected a tombstone")
	}
}

func TestForwardRefusesRemoteOwnedVideos(t *testing.T) {
	database, processor := testProcessor(t)
	remoteChannel := storeActor(t, database, "remote.example", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, remoteChannel)
	sender := storeActor(t, database, "remote.example", "bob", domain.ActorTypePerson)

	item := makeItem(t, sender, `{
		"id": "https://remote.example/activities/like-f",
		"type": "Like",
		"actor": "`+sender.URI+`",
		"object": "`+video.URI+`"
	}`)
	if err := processor.ForwardVideoActivity(item, video); err == nil {
		t.Error("Only locally-owned videos are relayed")
	}
}

func TestModeratedInstanceHoldsCommentsForReview(t *testing.T) {
	database := testDB(t)
	conf := testConf()
	conf.Conf.ModerateComments = true
	resolver := NewResolver(database, conf)
	processor := NewProcessor(database, conf, resolver, nil)

	localChannel := storeActor(t, database, "", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, localChannel)
	commenter := storeActor(t, database, "remote.example", "bob", domain.ActorTypePerson)
	subscriber := storeActor(t, database, "peer-a.example", "a", domain.ActorTypePerson)
	for _, follower := range []*domain.Actor{commenter, subscriber} {
		acceptedFollower(t, database, follower, localChannel)
	}

	item := makeItem(t, commenter, `{
		"id": "https://remote.example/activities/comment-9",
		"type": "Create",
		"actor": "`+commenter.URI+`",
		"object": {
			"id": "https://remote.example/comments/9",
			"type": "Note",
			"content": "awaiting review",
			"inReplyTo": "`+video.URI+`"
		}
	}`)
	if err := processor.Process(item); err != nil {
		t.Fatalf("Comment create failed: %v", err)
	}

	err, comment := database.ReadCommentByURI("https://remote.example/comments/9")
	if err != nil || comment == nil {
		t.Fatal("Expected the comment row")
	}
	if !comment.HeldForReview {
		t.Error("A moderated instance must hold comments on local videos")
	}

	// Neither forwarded nor listed until a moderator clears it.
	err, pending := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("ReadPendingDeliveries failed: %v", err)
	}
	if len(*pending) != 0 {
		t.Errorf("Held comments must not be forwarded, got %d deliveries", len(*pending))
	}
	err, total := database.CountCommentsByVideo(video.Id)
	if err != nil || total != 0 {
		t.Errorf("Held comments must stay out of the public count, got %d", total)
	}
}

func TestCommentOnRemoteVideoIgnoresModeration(t *testing.T) {
	database := testDB(t)
	conf := testConf()
	conf.Conf.ModerateComments = true
	resolver := NewResolver(database, conf)
	processor := NewProcessor(database, conf, resolver, nil)

	remoteChannel := storeActor(t, database, "peer.example", "chan", domain.ActorTypeGroup)
	video := storeVideo(t, database, remoteChannel)
	commenter := storeActor(t, database, "peer.example", "bob", domain.ActorTypePerson)

	item := makeItem(t, commenter, `{
		"id": "https://peer.example/activities/comment-10",
		"type": "Create",
		"actor": "`+commenter.URI+`",
		"object": {
			"id": "https://peer.example/comments/10",
			"type": "Note",
			"content": "mirrored",
			"inReplyTo": "`+video.URI+`"
		}
	}`)
	if err := processor.Process(item); err != nil {
		t.Fatalf("Comment create failed: %v", err)
	}

	err, comment := database.ReadCommentByURI("https://peer.example/comments/10")
	if err != nil || comment == nil {
		t.Fatal("Expected the comment row")
	}
	if comment.HeldForReview {
		t.Error("Moderation applies to our own videos, mirrored threads are the origin's call")
	}
}
