package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/activitypub"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
	"github.com/tubefed/tubefed/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database, err := db.Open(util.ResolveFilePath(conf.Conf.DatabaseFile))
	if err != nil {
		log.Fatalln(err)
	}
	defer database.Close()

	if err := ensureInstanceActor(database, conf); err != nil {
		log.Fatalln(err)
	}

	resolver := activitypub.NewResolver(database, conf)
	resolver.StartRefreshWorker()

	processor := activitypub.NewProcessor(database, conf, resolver, nil)
	queue := activitypub.NewInboxQueue(processor)
	queue.Start()

	activitypub.StartDeliveryWorker(database, conf)

	server := web.NewServer(database, conf, resolver, queue)
	startServing(server, conf)
}

// ensureInstanceActor creates the Application actor that signs our
// crawls and deliveries, once, on first boot.
func ensureInstanceActor(database *db.DB, conf *util.AppConfig) error {
	err, existing := database.ReadLocalActorByUsername(util.Name, domain.ActorTypeApplication)
	if err == nil && existing != nil {
		return nil
	}

	keys := util.GeneratePemKeypair()
	uri := web.AccountURI(conf, util.Name)
	actor := &domain.Actor{
		Id:                uuid.New(),
		URI:               uri,
		Type:              domain.ActorTypeApplication,
		PreferredUsername: util.Name,
		Host:              "",
		DisplayName:       util.Name,
		InboxURI:          uri + "/inbox",
		OutboxURI:         uri + "/outbox",
		FollowersURI:      uri + "/followers",
		FollowingURI:      uri + "/following",
		SharedInboxURI:    conf.BaseURL() + "/inbox",
		PublicKeyPem:      keys.Public,
		PrivateKeyPem:     keys.Private,
		LastFetchedAt:     time.Now(),
		CreatedAt:         time.Now(),
	}

	log.Printf("Bootstrap: creating instance actor %s", actor.URI)
	return database.CreateActor(actor)
}

func startServing(server *web.Server, conf *util.AppConfig) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping federation server")
}
