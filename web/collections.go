package web

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/activitypub"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
)

// Collection endpoints serve URI lists: peers resolve the members they
// care about themselves, the way they crawl any federation collection.

// FollowersCollection pages through the accepted followers of a local
// actor.
func FollowersCollection(database *db.DB, actor *domain.Actor, page int) (map[string]interface{}, error) {
	return activitypub.MakeCollection(actor.FollowersURI, page, activitypub.CollectionPageSize,
		func(start, count int) (int, []interface{}, error) {
			err, total := database.CountFollowers(actor.Id)
			if err != nil {
				return 0, nil, err
			}
			if count == 0 {
				return total, nil, nil
			}
			err, follows := database.ReadFollowersPage(actor.Id, count, start)
			if err != nil {
				return 0, nil, err
			}
			return total, actorURIsOf(database, *follows, func(f domain.Follow) uuid.UUID { return f.ActorId }), nil
		})
}

// FollowingCollection pages through who a local actor follows.
func FollowingCollection(database *db.DB, actor *domain.Actor, page int) (map[string]interface{}, error) {
	return activitypub.MakeCollection(actor.FollowingURI, page, activitypub.CollectionPageSize,
		func(start, count int) (int, []interface{}, error) {
			err, total := database.CountFollowing(actor.Id)
			if err != nil {
				return 0, nil, err
			}
			if count == 0 {
				return total, nil, nil
			}
			err, follows := database.ReadFollowingPage(actor.Id, count, start)
			if err != nil {
				return 0, nil, err
			}
			return total, actorURIsOf(database, *follows, func(f domain.Follow) uuid.UUID { return f.TargetActorId }), nil
		})
}

// OutboxCollection pages through a channel's public videos.
func OutboxCollection(database *db.DB, actor *domain.Actor, page int) (map[string]interface{}, error) {
	return activitypub.MakeCollection(actor.OutboxURI, page, activitypub.CollectionPageSize,
		func(start, count int) (int, []interface{}, error) {
			err, total := database.CountVideosByChannel(actor.Id)
			if err != nil {
				return 0, nil, err
			}
			if count == 0 {
				return total, nil, nil
			}
			err, videos := database.ReadVideosByChannelPage(actor.Id, count, start)
			if err != nil {
				return 0, nil, err
			}
			items := make([]interface{}, 0, len(*videos))
			for _, video := range *videos {
				items = append(items, video.URI)
			}
			return total, items, nil
		})
}

// VideoRatesCollection pages through the actors who liked or disliked
// a video.
func VideoRatesCollection(database *db.DB, video *domain.Video, rateType domain.VideoRateType, collectionURL string, page int) (map[string]interface{}, error) {
	return activitypub.MakeCollection(collectionURL, page, activitypub.CollectionPageSize,
		func(start, count int) (int, []interface{}, error) {
			err, total := database.CountVideoRates(video.Id, rateType)
			if err != nil {
				return 0, nil, err
			}
			if count == 0 {
				return total, nil, nil
			}
			err, rates := database.ReadVideoRatesPage(video.Id, rateType, count, start)
			if err != nil {
				return 0, nil, err
			}
			items := make([]interface{}, 0, len(*rates))
			for _, rate := range *rates {
				if err, actor := database.ReadActorById(rate.ActorId); err == nil && actor != nil {
					items = append(items, actor.URI)
				}
			}
			return total, items, nil
		})
}

// VideoSharesCollection pages through the Announce activity URLs of a
// video.
func VideoSharesCollection(database *db.DB, video *domain.Video, collectionURL string, page int) (map[string]interface{}, error) {
	return activitypub.MakeCollection(collectionURL, page, activitypub.CollectionPageSize,
		func(start, count int) (int, []interface{}, error) {
			err, total := database.CountVideoShares(video.Id)
			if err != nil {
				return 0, nil, err
			}
			if count == 0 {
				return total, nil, nil
			}
			err, shares := database.ReadVideoSharesPage(video.Id, count, start)
			if err != nil {
				return 0, nil, err
			}
			items := make([]interface{}, 0, len(*shares))
			for _, share := range *shares {
				items = append(items, share.URI)
			}
			return total, items, nil
		})
}

// VideoCommentsCollection pages through a video's live comments;
// tombstoned ones are filtered at the storage layer.
func VideoCommentsCollection(database *db.DB, video *domain.Video, collectionURL string, page int) (map[string]interface{}, error) {
	return activitypub.MakeCollection(collectionURL, page, activitypub.CollectionPageSize,
		func(start, count int) (int, []interface{}, error) {
			err, total := database.CountCommentsByVideo(video.Id)
			if err != nil {
				return 0, nil, err
			}
			if count == 0 {
				return total, nil, nil
			}
			err, comments := database.ReadCommentsPage(video.Id, count, start)
			if err != nil {
				return 0, nil, err
			}
			items := make([]interface{}, 0, len(*comments))
			for _, comment := range *comments {
				items = append(items, comment.URI)
			}
			return total, items, nil
		})
}

// VideoCollectionURL builds the canonical URL of a video sub-collection.
func VideoCollectionURL(video *domain.Video, base, kind string) string {
	return fmt.Sprintf("%s/videos/watch/%s/%s", base, video.UUID, kind)
}

func actorURIsOf(database *db.DB, follows []domain.Follow, pick func(domain.Follow) uuid.UUID) []interface{} {
	items := make([]interface{}, 0, len(follows))
	for _, follow := range follows {
		if err, actor := database.ReadActorById(pick(follow)); err == nil && actor != nil {
			items = append(items, actor.URI)
		}
	}
	return items
}
