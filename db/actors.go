package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlActorColumns = `id, uri, type, preferred_username, host, display_name, summary,
		inbox_uri, outbox_uri, followers_uri, following_uri, shared_inbox_uri,
		public_key_pem, private_key_pem, last_fetched_at, created_at`

	sqlInsertActor = `INSERT INTO actors(id, uri, type, preferred_username, host, display_name, summary,
		inbox_uri, outbox_uri, followers_uri, following_uri, shared_inbox_uri,
		public_key_pem, private_key_pem, last_fetched_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateActor = `UPDATE actors SET display_name = ?, summary = ?, inbox_uri = ?, outbox_uri = ?,
		followers_uri = ?, following_uri = ?, shared_inbox_uri = ?, public_key_pem = ?,
		last_fetched_at = ? WHERE uri = ?`

	sqlSelectActorByURI = `SELECT ` + sqlActorColumns + ` FROM actors WHERE uri = ?`
	sqlSelectActorById  = `SELECT ` + sqlActorColumns + ` FROM actors WHERE id = ?`
	sqlSelectLocalActor = `SELECT ` + sqlActorColumns + ` FROM actors WHERE preferred_username = ? AND host = '' AND type = ?`
	sqlDeleteActor      = `DELETE FROM actors WHERE id = ?`
)

func (db *DB) CreateActor(actor *domain.Actor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActor,
			actor.Id,
			actor.URI,
			string(actor.Type),
			actor.PreferredUsername,
			actor.Host,
			actor.DisplayName,
			actor.Summary,
			actor.InboxURI,
			actor.OutboxURI,
			actor.FollowersURI,
			actor.FollowingURI,
			actor.SharedInboxURI,
			actor.PublicKeyPem,
			actor.PrivateKeyPem,
			actor.LastFetchedAt,
			actor.CreatedAt,
		)
		return err
	})
}

func (db *DB) UpdateActor(actor *domain.Actor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateActor,
			actor.DisplayName,
			actor.Summary,
			actor.InboxURI,
			actor.OutboxURI,
			actor.FollowersURI,
			actor.FollowingURI,
			actor.SharedInboxURI,
			actor.PublicKeyPem,
			actor.LastFetchedAt,
			actor.URI,
		)
		return err
	})
}

// UpsertActor creates the actor, falling back to update on conflict.
func (db *DB) UpsertActor(actor *domain.Actor) error {
	err := db.CreateActor(actor)
	if err != nil {
		return db.UpdateActor(actor)
	}
	return nil
}

func (db *DB) ReadActorByURI(uri string) (error, *domain.Actor) {
	row := db.db.QueryRow(sqlSelectActorByURI, uri)
	return scanActor(row)
}

func (db *DB) ReadActorById(id uuid.UUID) (error, *domain.Actor) {
	row := db.db.QueryRow(sqlSelectActorById, id)
	return scanActor(row)
}

// ReadLocalActorByUsername loads a local account (Person) or channel
// (Group) by its preferred username.
func (db *DB) ReadLocalActorByUsername(username string, actorType domain.ActorType) (error, *domain.Actor) {
	row := db.db.QueryRow(sqlSelectLocalActor, username, string(actorType))
	return scanActor(row)
}

func (db *DB) DeleteActor(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteActor, id)
		return err
	})
}

func scanActor(row *sql.Row) (error, *domain.Actor) {
	var actor domain.Actor
	var actorType string
	err := row.Scan(
		&actor.Id,
		&actor.URI,
		&actorType,
		&actor.PreferredUsername,
		&actor.Host,
		&actor.DisplayName,
		&actor.Summary,
		&actor.InboxURI,
		&actor.OutboxURI,
		&actor.FollowersURI,
		&actor.FollowingURI,
		&actor.SharedInboxURI,
		&actor.PublicKeyPem,
		&actor.PrivateKeyPem,
		&actor.LastFetchedAt,
		&actor.CreatedAt,
	)
	if err != nil {
		return err, nil
	}
	actor.Type = domain.ActorType(actorType)
	return nil, &actor
}
