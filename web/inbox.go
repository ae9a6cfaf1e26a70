package web

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/tubefed/tubefed/activitypub"
)

// handleInbox is the shared POST handler behind every inbox route.
// Authentication failures are the only visible error: everything else
// answers 204 so remote servers never retry what we chose to drop.
func (s *Server) handleInbox(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("Inbox: could not read body: %v", err)
		c.Status(204)
		return
	}

	byActor, err := s.resolver.CheckSignature(c.Request, body)
	if err != nil {
		if errors.Is(err, activitypub.ErrAuthentication) {
			c.JSON(403, gin.H{"error": "signature verification failed"})
			return
		}
		log.Printf("Inbox: signature check errored: %v", err)
		c.JSON(403, gin.H{"error": "signature verification failed"})
		return
	}

	raws, err := activitypub.UnwrapActivityBody(body)
	if err != nil {
		log.Printf("Inbox: dropping unparseable body from %s: %v", byActor.URI, err)
		c.Status(204)
		return
	}

	items := make([]*activitypub.InboxItem, 0, len(raws))
	for _, raw := range raws {
		activity, err := activitypub.ValidateActivity(raw)
		if err != nil {
			log.Printf("Validator: dropping invalid activity from %s: %v", byActor.URI, err)
			continue
		}
		items = append(items, &activitypub.InboxItem{
			Activity: activity,
			Raw:      raw,
			Signer:   byActor,
		})
	}
	if len(items) > 0 {
		s.queue.Enqueue(items)
	}
	c.Status(204)
}
