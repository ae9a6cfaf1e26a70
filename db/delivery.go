package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlEnqueueDelivery = `INSERT INTO delivery_queue(id, inbox_uri, sender_actor_id, activity_json,
		attempts, next_retry_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlSelectPendingDeliveries = `SELECT id, inbox_uri, sender_actor_id, activity_json, attempts,
		next_retry_at, created_at FROM delivery_queue
		WHERE next_retry_at <= ? ORDER BY created_at ASC LIMIT ?`

	sqlUpdateDeliveryAttempt = `UPDATE delivery_queue SET attempts = ?, next_retry_at = ? WHERE id = ?`

	sqlDeleteDelivery = `DELETE FROM delivery_queue WHERE id = ?`
)

func (db *DB) EnqueueDelivery(item *domain.DeliveryQueueItem) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlEnqueueDelivery,
			item.Id,
			item.InboxURI,
			item.SenderActorId,
			item.ActivityJSON,
			item.Attempts,
			item.NextRetryAt,
			item.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadPendingDeliveries(limit int) (error, *[]domain.DeliveryQueueItem) {
	rows, err := db.db.Query(sqlSelectPendingDeliveries, time.Now(), limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var items []domain.DeliveryQueueItem
	for rows.Next() {
		var item domain.DeliveryQueueItem
		if err := rows.Scan(&item.Id, &item.InboxURI, &item.SenderActorId, &item.ActivityJSON,
			&item.Attempts, &item.NextRetryAt, &item.CreatedAt); err != nil {
			return err, &items
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return err, &items
	}
	return nil, &items
}

func (db *DB) UpdateDeliveryAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateDeliveryAttempt, attempts, nextRetry, id)
		return err
	})
}

func (db *DB) DeleteDelivery(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteDelivery, id)
		return err
	})
}
