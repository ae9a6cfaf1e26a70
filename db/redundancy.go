package db

import (
	"database/sql"
	"time"

	"github.com/tubefed/tubefed/domain"
)

const (
	sqlInsertCacheFile = `INSERT INTO video_cache_files(id, uri, actor_id, video_id, streaming_playlist_id,
		file_url, expires_on, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateCacheFile = `UPDATE video_cache_files SET file_url = ?, expires_on = ?, updated_at = ? WHERE uri = ?`

	sqlSelectCacheFileByURI = `SELECT id, uri, actor_id, video_id, streaming_playlist_id, file_url,
		expires_on, created_at, updated_at FROM video_cache_files WHERE uri = ?`

	sqlDeleteCacheFileByURI = `DELETE FROM video_cache_files WHERE uri = ?`
)

func (db *DB) CreateCacheFile(cacheFile *domain.VideoCacheFile) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertCacheFile,
			cacheFile.Id,
			cacheFile.URI,
			cacheFile.ActorId,
			cacheFile.VideoId,
			cacheFile.StreamingPlaylistId,
			cacheFile.FileURL,
			cacheFile.ExpiresOn,
			cacheFile.CreatedAt,
			cacheFile.UpdatedAt,
		)
		return err
	})
}

func (db *DB) UpdateCacheFile(cacheFile *domain.VideoCacheFile) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateCacheFile,
			cacheFile.FileURL,
			cacheFile.ExpiresOn,
			time.Now(),
			cacheFile.URI,
		)
		return err
	})
}

func (db *DB) ReadCacheFileByURI(uri string) (error, *domain.VideoCacheFile) {
	var cacheFile domain.VideoCacheFile
	err := db.db.QueryRow(sqlSelectCacheFileByURI, uri).Scan(
		&cacheFile.Id,
		&cacheFile.URI,
		&cacheFile.ActorId,
		&cacheFile.VideoId,
		&cacheFile.StreamingPlaylistId,
		&cacheFile.FileURL,
		&cacheFile.ExpiresOn,
		&cacheFile.CreatedAt,
		&cacheFile.UpdatedAt,
	)
	if err != nil {
		return err, nil
	}
	return nil, &cacheFile
}

func (db *DB) DeleteCacheFileByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteCacheFileByURI, uri)
		return err
	})
}
