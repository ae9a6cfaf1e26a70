package web

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/google/uuid"
	"github.com/tubefed/tubefed/activitypub"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
	"golang.org/x/time/rate"
)

// Server wires the HTTP surface to storage and the federation engine.
type Server struct {
	database *db.DB
	conf     *util.AppConfig
	resolver *activitypub.Resolver
	queue    *activitypub.InboxQueue
}

func NewServer(database *db.DB, conf *util.AppConfig, resolver *activitypub.Resolver, queue *activitypub.InboxQueue) *Server {
	return &Server{
		database: database,
		conf:     conf,
		resolver: resolver,
		queue:    queue,
	}
}

// Router builds the gin engine with all federation routes.
func (s *Server) Router() *gin.Engine {
	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	// Stricter limit plus a body cap on the inbox endpoints
	inboxLimiter := RateLimitMiddleware(NewRateLimiter(rate.Limit(5), 10))
	maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024) // 1MB

	g.POST("/inbox", inboxLimiter, maxBodySize, s.handleInbox)
	g.POST("/accounts/:name/inbox", inboxLimiter, maxBodySize, s.handleInbox)
	g.POST("/video-channels/:name/inbox", inboxLimiter, maxBodySize, s.handleInbox)

	g.GET("/accounts/:name", func(c *gin.Context) {
		s.serveActor(c, domain.ActorTypePerson)
	})
	g.GET("/video-channels/:name", func(c *gin.Context) {
		s.serveActor(c, domain.ActorTypeGroup)
	})

	g.GET("/accounts/:name/outbox", func(c *gin.Context) {
		s.serveActorCollection(c, domain.ActorTypePerson, OutboxCollection)
	})
	g.GET("/accounts/:name/followers", func(c *gin.Context) {
		s.serveActorCollection(c, domain.ActorTypePerson, FollowersCollection)
	})
	g.GET("/accounts/:name/following", func(c *gin.Context) {
		s.serveActorCollection(c, domain.ActorTypePerson, FollowingCollection)
	})
	g.GET("/video-channels/:name/outbox", func(c *gin.Context) {
		s.serveActorCollection(c, domain.ActorTypeGroup, OutboxCollection)
	})
	g.GET("/video-channels/:name/followers", func(c *gin.Context) {
		s.serveActorCollection(c, domain.ActorTypeGroup, FollowersCollection)
	})
	g.GET("/video-channels/:name/following", func(c *gin.Context) {
		s.serveActorCollection(c, domain.ActorTypeGroup, FollowingCollection)
	})

	g.GET("/videos/watch/:uuid/likes", func(c *gin.Context) {
		s.serveVideoCollection(c, "likes")
	})
	g.GET("/videos/watch/:uuid/dislikes", func(c *gin.Context) {
		s.serveVideoCollection(c, "dislikes")
	})
	g.GET("/videos/watch/:uuid/announces", func(c *gin.Context) {
		s.serveVideoCollection(c, "announces")
	})
	g.GET("/videos/watch/:uuid/comments", func(c *gin.Context) {
		s.serveVideoCollection(c, "comments")
	})

	g.GET("/.well-known/webfinger", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")

		resource := c.Query("resource")
		if resource == "" || !strings.HasPrefix(resource, "acct:") {
			c.Render(404, render.String{Format: GetWebFingerNotFound()})
			return
		}
		resource = strings.TrimPrefix(resource, "acct:")
		resource = strings.TrimSuffix(resource, fmt.Sprintf("@%s", s.conf.Conf.SslDomain))
		err, resp := GetWebfinger(s.database, resource, s.conf)
		if err != nil {
			c.Render(404, render.String{Format: GetWebFingerNotFound()})
		} else {
			c.Render(200, render.String{Format: resp})
		}
	})

	g.GET("/feeds/videos.xml", func(c *gin.Context) {
		c.Header("Content-Type", "application/xml; charset=utf-8")

		channel := c.Query("channel")
		rss, err := GetChannelRSS(s.database, s.conf, channel)
		if err != nil {
			c.Render(404, render.String{Format: ""})
		} else {
			c.Render(200, render.String{Format: rss})
		}
	})

	return g
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	log.Printf("Starting federation server on %s:%d", s.conf.Conf.Host, s.conf.Conf.HttpPort)
	return s.Router().Run(fmt.Sprintf(":%d", s.conf.Conf.HttpPort))
}

func (s *Server) serveActor(c *gin.Context, actorType domain.ActorType) {
	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	err, doc := GetActorDocument(s.database, c.Param("name"), actorType, s.conf)
	if err != nil {
		c.Render(404, render.String{Format: doc})
	} else {
		c.Render(200, render.String{Format: doc})
	}
}

type actorCollectionFunc func(database *db.DB, actor *domain.Actor, page int) (map[string]interface{}, error)

func (s *Server) serveActorCollection(c *gin.Context, actorType domain.ActorType, collection actorCollectionFunc) {
	err, actor := s.database.ReadLocalActorByUsername(c.Param("name"), actorType)
	if err != nil || actor == nil {
		c.JSON(404, gin.H{"error": "not found"})
		return
	}

	doc, err := collection(s.database, actor, pageParam(c))
	if err != nil {
		log.Printf("Collections: %s of %s failed: %v", c.Request.URL.Path, actor.URI, err)
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(200, doc)
}

func (s *Server) serveVideoCollection(c *gin.Context, kind string) {
	videoUUID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		c.JSON(404, gin.H{"error": "not found"})
		return
	}
	err, video := s.database.ReadVideoByUUID(videoUUID)
	if err != nil || video == nil {
		c.JSON(404, gin.H{"error": "not found"})
		return
	}

	collectionURL := VideoCollectionURL(video, s.conf.BaseURL(), kind)
	page := pageParam(c)

	var doc map[string]interface{}
	switch kind {
	case "likes":
		doc, err = VideoRatesCollection(s.database, video, domain.VideoRateLike, collectionURL, page)
	case "dislikes":
		doc, err = VideoRatesCollection(s.database, video, domain.VideoRateDislike, collectionURL, page)
	case "announces":
		doc, err = VideoSharesCollection(s.database, video, collectionURL, page)
	case "comments":
		doc, err = VideoCommentsCollection(s.database, video, collectionURL, page)
	}
	if err != nil {
		log.Printf("Collections: %s of %s failed: %v", kind, video.URI, err)
		c.JSON(500, gin.H{"error": "internal error"})
		return
	}
	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(200, doc)
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
