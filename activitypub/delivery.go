package activitypub

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/db"
	"github.com/tubefed/tubefed/domain"
	"github.com/tubefed/tubefed/util"
)

const (
	deliveryBatchSize   = 50
	deliveryMaxAttempts = 10
	deliveryTimeout     = 15 * time.Second
	deliveryInterval    = 10 * time.Second
)

// retryBackoff holds the minutes to wait before each re-attempt.
var retryBackoff = []int{1, 5, 15, 60, 240, 1440}

// StartDeliveryWorker launches the outbound delivery loop. Failed
// deliveries back off exponentially and are dropped after
// deliveryMaxAttempts.
func StartDeliveryWorker(database *db.DB, conf *util.AppConfig) {
	go func() {
		client := &http.Client{Timeout: deliveryTimeout}
		ticker := time.NewTicker(deliveryInterval)
		defer ticker.Stop()
		for range ticker.C {
			processDeliveryQueue(database, conf, client)
		}
	}()
}

func processDeliveryQueue(database *db.DB, conf *util.AppConfig, client *http.Client) {
	err, pending := database.ReadPendingDeliveries(deliveryBatchSize)
	if err != nil {
		log.Printf("Delivery: could not read queue: %v", err)
		return
	}

	for _, item := range *pending {
		if err := deliverActivity(database, client, &item); err == nil {
			if err := database.DeleteDelivery(item.Id); err != nil {
				log.Printf("Delivery: could not dequeue %s: %v", item.Id, err)
			}
			continue
		} else {
			log.Printf("Delivery: attempt %d for %s failed: %v", item.Attempts+1, item.InboxURI, err)
		}

		attempts := item.Attempts + 1
		if attempts >= deliveryMaxAttempts {
			log.Printf("Delivery: giving up on %s after %d attempts", item.InboxURI, attempts)
			if err := database.DeleteDelivery(item.Id); err != nil {
				log.Printf("Delivery: could not drop %s: %v", item.Id, err)
			}
			continue
		}

		backoffIdx := attempts - 1
		if backoffIdx >= len(retryBackoff) {
			backoffIdx = len(retryBackoff) - 1
		}
		nextRetry := time.Now().Add(time.Duration(retryBackoff[backoffIdx]) * time.Minute)
		if err := database.UpdateDeliveryAttempt(item.Id, attempts, nextRetry); err != nil {
			log.Printf("Delivery: could not reschedule %s: %v", item.Id, err)
		}
	}
}

// deliverActivity POSTs one queued activity, signed with the sender
// actor's key. Any 2xx counts as delivered.
func deliverActivity(database *db.DB, client *http.Client, item *domain.DeliveryQueueItem) error {
	err, sender := database.ReadActorById(item.SenderActorId)
	if err != nil || sender == nil {
		return fmt.Errorf("sender actor %s is gone", item.SenderActorId)
	}
	privateKey, err := ParsePrivateKey(sender.PrivateKeyPem)
	if err != nil {
		return err
	}

	body := []byte(item.ActivityJSON)
	req, err := http.NewRequest(http.MethodPost, item.InboxURI, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("Digest", BuildDigest(body))
	req.Header.Set("User-Agent", util.GetNameAndVersion())

	keyId := sender.URI + "#main-key"
	if err := SignRequest(req, privateKey, keyId); err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("inbox %s answered %d", item.InboxURI, resp.StatusCode)
	}
	return nil
}

// EnqueueActivityTo places a signed delivery of the given activity
// document into the queue, due immediately.
func EnqueueActivityTo(database *db.DB, sender *domain.Actor, inboxURI string, activityJSON []byte) error {
	if inboxURI == "" {
		return fmt.Errorf("no inbox to deliver to")
	}
	return database.EnqueueDelivery(&domain.DeliveryQueueItem{
		Id:            uuid.New(),
		InboxURI:      inboxURI,
		SenderActorId: sender.Id,
		ActivityJSON:  string(activityJSON),
		Attempts:      0,
		NextRetryAt:   time.Now(),
		CreatedAt:     time.Now(),
	})
}
