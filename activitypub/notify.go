package activitypub

import (
	"log"

	"github.com/tubefed/tubefed/domain"
)

// Notifier is the fire-and-forget notification sink. Implementations
// must never block or fail activity processing.
type Notifier interface {
	NotifyNewVideo(video *domain.Video)
	NotifyNewComment(comment *domain.VideoComment)
	NotifyNewFollower(follow *domain.Follow)
}

// LogNotifier is the default sink: it just logs.
type LogNotifier struct{}

func (LogNotifier) NotifyNewVideo(video *domain.Video) {
	log.Printf("Notify: new video %s (%s)", video.Name, video.URI)
}

func (LogNotifier) NotifyNewComment(comment *domain.VideoComment) {
	log.Printf("Notify: new comment %s", comment.URI)
}

func (LogNotifier) NotifyNewFollower(follow *domain.Follow) {
	log.Printf("Notify: new follower edge %s", follow.URI)
}
