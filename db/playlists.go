package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlPlaylistColumns = `id, uri, uuid, owner_actor_id, name, description, privacy,
		last_refreshed_at, created_at, updated_at`

	sqlInsertPlaylist = `INSERT INTO video_playlists(id, uri, uuid, owner_actor_id, name, description,
		privacy, last_refreshed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdatePlaylist = `UPDATE video_playlists SET name = ?, description = ?, privacy = ?,
		last_refreshed_at = ?, updated_at = ? WHERE uri = ?`

	sqlSelectPlaylistByURI = `SELECT ` + sqlPlaylistColumns + ` FROM video_playlists WHERE uri = ?`
	sqlSelectPlaylistById  = `SELECT ` + sqlPlaylistColumns + ` FROM video_playlists WHERE id = ?`
	sqlDeletePlaylist      = `DELETE FROM video_playlists WHERE id = ?`

	sqlDeletePlaylistElements = `DELETE FROM video_playlist_elements WHERE playlist_id = ?`
	sqlInsertPlaylistElement  = `INSERT INTO video_playlist_elements(id, playlist_id, video_id, position,
		start_timestamp, stop_timestamp, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectPlaylistElements = `SELECT id, playlist_id, video_id, position, start_timestamp, stop_timestamp, created_at
		FROM video_playlist_elements WHERE playlist_id = ? ORDER BY position ASC`
)

func (db *DB) CreatePlaylist(playlist *domain.VideoPlaylist) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPlaylist,
			playlist.Id,
			playlist.URI,
			playlist.UUID,
			playlist.OwnerActorId,
			playlist.Name,
			playlist.Description,
			int(playlist.Privacy),
			playlist.LastRefreshedAt,
			playlist.CreatedAt,
			playlist.UpdatedAt,
		)
		return err
	})
}

func (db *DB) UpdatePlaylist(playlist *domain.VideoPlaylist) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdatePlaylist,
			playlist.Name,
			playlist.Description,
			int(playlist.Privacy),
			playlist.LastRefreshedAt,
			time.Now(),
			playlist.URI,
		)
		return err
	})
}

func (db *DB) ReadPlaylistByURI(uri string) (error, *domain.VideoPlaylist) {
	return scanPlaylist(db.db.QueryRow(sqlSelectPlaylistByURI, uri))
}

func (db *DB) ReadPlaylistById(id uuid.UUID) (error, *domain.VideoPlaylist) {
	return scanPlaylist(db.db.QueryRow(sqlSelectPlaylistById, id))
}

// DeletePlaylist removes the playlist and its elements.
func (db *DB) DeletePlaylist(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeletePlaylistElements, id); err != nil {
			return err
		}
		_, err := tx.Exec(sqlDeletePlaylist, id)
		return err
	})
}

// ReplacePlaylistElements rebuilds the element list wholesale in one
// transaction. Remote playlists are not append-only, so no diffing.
func (db *DB) ReplacePlaylistElements(playlistId uuid.UUID, elements []domain.VideoPlaylistElement) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeletePlaylistElements, playlistId); err != nil {
			return err
		}
		for _, element := range elements {
			if _, err := tx.Exec(sqlInsertPlaylistElement,
				element.Id,
				playlistId,
				element.VideoId,
				element.Position,
				element.StartTimestamp,
				element.StopTimestamp,
				element.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *DB) ReadPlaylistElements(playlistId uuid.UUID) (error, *[]domain.VideoPlaylistElement) {
	rows, err := db.db.Query(sqlSelectPlaylistElements, playlistId)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var elements []domain.VideoPlaylistElement
	for rows.Next() {
		var element domain.VideoPlaylistElement
		if err := rows.Scan(&element.Id, &element.PlaylistId, &element.VideoId,
			&element.Position, &element.StartTimestamp, &element.StopTimestamp,
			&element.CreatedAt); err != nil {
			return err, &elements
		}
		elements = append(elements, element)
	}
	if err = rows.Err(); err != nil {
		return err, &elements
	}
	return nil, &elements
}

func scanPlaylist(row *sql.Row) (error, *domain.VideoPlaylist) {
	var playlist domain.VideoPlaylist
	var privacy int
	err := row.Scan(&playlist.Id, &playlist.URI, &playlist.UUID, &playlist.OwnerActorId,
		&playlist.Name, &playlist.Description, &privacy, &playlist.LastRefreshedAt,
		&playlist.CreatedAt, &playlist.UpdatedAt)
	if err != nil {
		return err, nil
	}
	playlist.Privacy = domain.VideoPrivacy(privacy)
	return nil, &playlist
}
