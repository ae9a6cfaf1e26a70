package db

import (
	"database/sql"

	"github.com/tubefed/tubefed/domain"
)

const (
	sqlInsertActivity = `INSERT INTO activities(id, activity_uri, activity_type, actor_uri, object_uri,
		raw_json, processed, created_at, local) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateActivity = `UPDATE activities SET raw_json = ?, processed = ? WHERE activity_uri = ?`

	sqlSelectActivityByURI = `SELECT id, activity_uri, activity_type, actor_uri, object_uri, raw_json,
		processed, created_at, local FROM activities WHERE activity_uri = ?`
)

func (db *DB) CreateActivity(activity *domain.Activity) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActivity,
			activity.Id,
			activity.ActivityURI,
			activity.ActivityType,
			activity.ActorURI,
			activity.ObjectURI,
			activity.RawJSON,
			activity.Processed,
			activity.CreatedAt,
			activity.Local,
		)
		return err
	})
}

func (db *DB) UpdateActivity(activity *domain.Activity) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateActivity, activity.RawJSON, activity.Processed, activity.ActivityURI)
		return err
	})
}

func (db *DB) ReadActivityByURI(uri string) (error, *domain.Activity) {
	var activity domain.Activity
	err := db.db.QueryRow(sqlSelectActivityByURI, uri).Scan(
		&activity.Id,
		&activity.ActivityURI,
		&activity.ActivityType,
		&activity.ActorURI,
		&activity.ObjectURI,
		&activity.RawJSON,
		&activity.Processed,
		&activity.CreatedAt,
		&activity.Local,
	)
	if err != nil {
		return err, nil
	}
	return nil, &activity
}
