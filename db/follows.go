package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlFollowColumns = `id, actor_id, target_actor_id, uri, state, created_at, updated_at`

	sqlInsertFollow = `INSERT INTO follows(id, actor_id, target_actor_id, uri, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlSelectFollowByURI      = `SELECT ` + sqlFollowColumns + ` FROM follows WHERE uri = ?`
	sqlSelectFollowByActorIds = `SELECT ` + sqlFollowColumns + ` FROM follows WHERE actor_id = ? AND target_actor_id = ?`
	sqlUpdateFollowState      = `UPDATE follows SET state = ?, updated_at = ? WHERE uri = ?`
	sqlDeleteFollowByURI      = `DELETE FROM follows WHERE uri = ?`
	sqlDeleteFollowsByActor   = `DELETE FROM follows WHERE actor_id = ? OR target_actor_id = ?`

	sqlCountFollowers  = `SELECT COUNT(*) FROM follows WHERE target_actor_id = ? AND state = 'accepted'`
	sqlSelectFollowers = `SELECT ` + sqlFollowColumns + ` FROM follows
		WHERE target_actor_id = ? AND state = 'accepted'
		ORDER BY created_at DESC LIMIT ? OFFSET ?`

	sqlCountFollowing  = `SELECT COUNT(*) FROM follows WHERE actor_id = ? AND state = 'accepted'`
	sqlSelectFollowing = `SELECT ` + sqlFollowColumns + ` FROM follows
		WHERE actor_id = ? AND state = 'accepted'
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
)

func (db *DB) CreateFollow(follow *domain.Follow) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow,
			follow.Id,
			follow.ActorId,
			follow.TargetActorId,
			follow.URI,
			string(follow.State),
			follow.CreatedAt,
			follow.UpdatedAt,
		)
		return err
	})
}

func (db *DB) ReadFollowByURI(uri string) (error, *domain.Follow) {
	return scanFollow(db.db.QueryRow(sqlSelectFollowByURI, uri))
}

func (db *DB) ReadFollowByActorIds(actorId, targetActorId uuid.UUID) (error, *domain.Follow) {
	return scanFollow(db.db.QueryRow(sqlSelectFollowByActorIds, actorId, targetActorId))
}

func (db *DB) UpdateFollowState(uri string, state domain.FollowState) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateFollowState, string(state), time.Now(), uri)
		return err
	})
}

func (db *DB) DeleteFollowByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollowByURI, uri)
		return err
	})
}

// DeleteFollowsByActorId removes all edges touching an actor, used when
// the actor deletes itself.
func (db *DB) DeleteFollowsByActorId(actorId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollowsByActor, actorId, actorId)
		return err
	})
}

func (db *DB) CountFollowers(targetActorId uuid.UUID) (error, int) {
	var total int
	err := db.db.QueryRow(sqlCountFollowers, targetActorId).Scan(&total)
	return err, total
}

// ReadFollowersPage returns accepted followers of an actor, newest first.
func (db *DB) ReadFollowersPage(targetActorId uuid.UUID, limit, offset int) (error, *[]domain.Follow) {
	return scanFollows(db.db.Query(sqlSelectFollowers, targetActorId, limit, offset))
}

func (db *DB) CountFollowing(actorId uuid.UUID) (error, int) {
	var total int
	err := db.db.QueryRow(sqlCountFollowing, actorId).Scan(&total)
	return err, total
}

func (db *DB) ReadFollowingPage(actorId uuid.UUID, limit, offset int) (error, *[]domain.Follow) {
	return scanFollows(db.db.Query(sqlSelectFollowing, actorId, limit, offset))
}

// ReadAllFollowers returns every accepted follower edge of an actor,
// used by the relay fan-out.
func (db *DB) ReadAllFollowers(targetActorId uuid.UUID) (error, *[]domain.Follow) {
	return scanFollows(db.db.Query(sqlSelectFollowers, targetActorId, -1, 0))
}

func scanFollow(row *sql.Row) (error, *domain.Follow) {
	var follow domain.Follow
	var state string
	err := row.Scan(&follow.Id, &follow.ActorId, &follow.TargetActorId, &follow.URI,
		&state, &follow.CreatedAt, &follow.UpdatedAt)
	if err != nil {
		return err, nil
	}
	follow.State = domain.FollowState(state)
	return nil, &follow
}

func scanFollows(rows *sql.Rows, err error) (error, *[]domain.Follow) {
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var follows []domain.Follow
	for rows.Next() {
		var follow domain.Follow
		var state string
		if err := rows.Scan(&follow.Id, &follow.ActorId, &follow.TargetActorId, &follow.URI,
			&state, &follow.CreatedAt, &follow.UpdatedAt); err != nil {
			return err, &follows
		}
		follow.State = domain.FollowState(state)
		follows = append(follows, follow)
	}
	if err = rows.Err(); err != nil {
		return err, &follows
	}
	return nil, &follows
}
