package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlInsertRate = `INSERT INTO video_rates(id, actor_id, video_id, type, uri, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	sqlUpdateRate = `UPDATE video_rates SET type = ?, uri = ? WHERE actor_id = ? AND video_id = ?`
	sqlSelectRate = `SELECT id, actor_id, video_id, type, uri, created_at
		FROM video_rates WHERE actor_id = ? AND video_id = ?`
	sqlDeleteRate       = `DELETE FROM video_rates WHERE actor_id = ? AND video_id = ?`
	sqlCountRatesByType = `SELECT COUNT(*) FROM video_rates WHERE video_id = ? AND type = ?`
	sqlSelectRatesPage  = `SELECT id, actor_id, video_id, type, uri, created_at
		FROM video_rates WHERE video_id = ? AND type = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`

	sqlInsertShare = `INSERT INTO video_shares(id, actor_id, video_id, uri, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	sqlRefreshShare     = `UPDATE video_shares SET updated_at = ? WHERE uri = ?`
	sqlSelectShareByURI = `SELECT id, actor_id, video_id, uri, created_at, updated_at
		FROM video_shares WHERE uri = ?`
	sqlDeleteShareByURI   = `DELETE FROM video_shares WHERE uri = ?`
	sqlCountSharesByVideo = `SELECT COUNT(*) FROM video_shares WHERE video_id = ?`
	sqlSelectSharesPage   = `SELECT id, actor_id, video_id, uri, created_at, updated_at
		FROM video_shares WHERE video_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	sqlDeleteStaleShares = `DELETE FROM video_shares WHERE video_id = ? AND updated_at < ?`
)

// UpsertVideoRate stores or replaces an actor's rate of a video.
func (db *DB) UpsertVideoRate(rate *domain.VideoRate) error {
	err, existing := db.ReadVideoRate(rate.ActorId, rate.VideoId)
	if err == nil && existing != nil {
		return db.wrapTransaction(func(tx *sql.Tx) error {
			_, err := tx.Exec(sqlUpdateRate, string(rate.Type), rate.URI, rate.ActorId, rate.VideoId)
			return err
		})
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertRate, rate.Id, rate.ActorId, rate.VideoId,
			string(rate.Type), rate.URI, rate.CreatedAt)
		return err
	})
}

func (db *DB) ReadVideoRate(actorId, videoId uuid.UUID) (error, *domain.VideoRate) {
	var rate domain.VideoRate
	var rateType string
	err := db.db.QueryRow(sqlSelectRate, actorId, videoId).Scan(
		&rate.Id, &rate.ActorId, &rate.VideoId, &rateType, &rate.URI, &rate.CreatedAt)
	if err != nil {
		return err, nil
	}
	rate.Type = domain.VideoRateType(rateType)
	return nil, &rate
}

func (db *DB) DeleteVideoRate(actorId, videoId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteRate, actorId, videoId)
		return err
	})
}

func (db *DB) CountVideoRates(videoId uuid.UUID, rateType domain.VideoRateType) (error, int) {
	var total int
	err := db.db.QueryRow(sqlCountRatesByType, videoId, string(rateType)).Scan(&total)
	return err, total
}

func (db *DB) ReadVideoRatesPage(videoId uuid.UUID, rateType domain.VideoRateType, limit, offset int) (error, *[]domain.VideoRate) {
	rows, err := db.db.Query(sqlSelectRatesPage, videoId, string(rateType), limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var rates []domain.VideoRate
	for rows.Next() {
		var rate domain.VideoRate
		var rateType string
		if err := rows.Scan(&rate.Id, &rate.ActorId, &rate.VideoId, &rateType,
			&rate.URI, &rate.CreatedAt); err != nil {
			return err, &rates
		}
		rate.Type = domain.VideoRateType(rateType)
		rates = append(rates, rate)
	}
	if err = rows.Err(); err != nil {
		return err, &rates
	}
	return nil, &rates
}

// CreateOrRefreshVideoShare inserts the share or, when it already
// exists, bumps updated_at so crawl cleanup keeps it.
func (db *DB) CreateOrRefreshVideoShare(share *domain.VideoShare) error {
	err, existing := db.ReadVideoShareByURI(share.URI)
	if err == nil && existing != nil {
		return db.wrapTransaction(func(tx *sql.Tx) error {
			_, err := tx.Exec(sqlRefreshShare, time.Now(), share.URI)
			return err
		})
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertShare, share.Id, share.ActorId, share.VideoId,
			share.URI, share.CreatedAt, share.UpdatedAt)
		return err
	})
}

func (db *DB) ReadVideoShareByURI(uri string) (error, *domain.VideoShare) {
	var share domain.VideoShare
	err := db.db.QueryRow(sqlSelectShareByURI, uri).Scan(
		&share.Id, &share.ActorId, &share.VideoId, &share.URI, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return err, nil
	}
	return nil, &share
}

func (db *DB) DeleteVideoShareByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteShareByURI, uri)
		return err
	})
}

func (db *DB) CountVideoShares(videoId uuid.UUID) (error, int) {
	var total int
	err := db.db.QueryRow(sqlCountSharesByVideo, videoId).Scan(&total)
	return err, total
}

func (db *DB) ReadVideoSharesPage(videoId uuid.UUID, limit, offset int) (error, *[]domain.VideoShare) {
	rows, err := db.db.Query(sqlSelectSharesPage, videoId, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var shares []domain.VideoShare
	for rows.Next() {
		var share domain.VideoShare
		if err := rows.Scan(&share.Id, &share.ActorId, &share.VideoId, &share.URI,
			&share.CreatedAt, &share.UpdatedAt); err != nil {
			return err, &shares
		}
		shares = append(shares, share)
	}
	if err = rows.Err(); err != nil {
		return err, &shares
	}
	return nil, &shares
}

// DeleteStaleVideoShares removes shares not refreshed since a full
// crawl started, converging the local copy on the remote collection.
func (db *DB) DeleteStaleVideoShares(videoId uuid.UUID, since time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteStaleShares, videoId, since)
		return err
	})
}
