package web

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/feeds"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

const rssPageSize = 50

// GetChannelRSS renders the latest public videos of a local channel as
// an RSS feed.
func GetChannelRSS(database *db.DB, conf *util.AppConfig, channelName string) (string, error) {
	err, channel := database.ReadLocalActorByUsername(channelName, domain.ActorTypeGroup)
	if err != nil || channel == nil {
		return "", errors.New("unknown channel")
	}

	err, videos := database.ReadVideosByChannelPage(channel.Id, rssPageSize, 0)
	if err != nil {
		log.Printf("RSS: could not read videos of %s: %v", channelName, err)
		return "", errors.New("error retrieving channel videos")
	}

	displayName := channel.DisplayName
	if displayName == "" {
		displayName = channel.PreferredUsername
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - Videos", displayName),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feeds/videos.xml?channel=%s", conf.BaseURL(), channelName)},
		Description: channel.Summary,
		Author:      &feeds.Author{Name: displayName},
		Created:     time.Now(),
	}

	var feedItems []*feeds.Item
	for _, video := range *videos {
		feedItems = append(feedItems,
			&feeds.Item{
				Id:          video.UUID.String(),
				Title:       video.Name,
				Link:        &feeds.Link{Href: video.URI},
				Description: video.Description,
				Author:      &feeds.Author{Name: displayName},
				Created:     video.PublishedAt,
			})
	}

	feed.Items = feedItems
	return feed.ToRss()
}
