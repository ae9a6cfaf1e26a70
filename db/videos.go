package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlVideoColumns = `id, uri, uuid, channel_actor_id, name, description, privacy, state,
		duration, views, tags_json, published_at, last_refreshed_at, created_at, updated_at`

	sqlInsertVideo = `INSERT INTO videos(id, uri, uuid, channel_actor_id, name, description, privacy, state,
		duration, views, tags_json, published_at, last_refreshed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateVideo = `UPDATE videos SET name = ?, description = ?, privacy = ?, state = ?,
		duration = ?, tags_json = ?, last_refreshed_at = ?, updated_at = ? WHERE uri = ?`

	sqlSelectVideoByURI  = `SELECT ` + sqlVideoColumns + ` FROM videos WHERE uri = ?`
	sqlSelectVideoById   = `SELECT ` + sqlVideoColumns + ` FROM videos WHERE id = ?`
	sqlSelectVideoByUUID = `SELECT ` + sqlVideoColumns + ` FROM videos WHERE uuid = ?`
	sqlDeleteVideo       = `DELETE FROM videos WHERE id = ?`
	sqlIncrementViews    = `UPDATE videos SET views = views + ? WHERE id = ?`

	sqlCountVideosByChannel  = `SELECT COUNT(*) FROM videos WHERE channel_actor_id = ? AND privacy = 1`
	sqlSelectVideosByChannel = `SELECT ` + sqlVideoColumns + ` FROM videos
		WHERE channel_actor_id = ? AND privacy = 1
		ORDER BY published_at DESC LIMIT ? OFFSET ?`

	sqlInsertStreamingPlaylist = `INSERT INTO video_streaming_playlists(id, video_id, type, playlist_url, created_at)
		VALUES (?, ?, ?, ?, ?)`
	sqlSelectStreamingPlaylist = `SELECT id, video_id, type, playlist_url, created_at
		FROM video_streaming_playlists WHERE video_id = ? AND type = ?`
)

func (db *DB) CreateVideo(video *domain.Video) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertVideo,
			video.Id,
			video.URI,
			video.UUID,
			video.ChannelActorId,
			video.Name,
			video.Description,
			int(video.Privacy),
			int(video.State),
			video.Duration,
			video.Views,
			video.TagsJSON,
			video.PublishedAt,
			video.LastRefreshedAt,
			video.CreatedAt,
			video.UpdatedAt,
		)
		return err
	})
}

func (db *DB) UpdateVideo(video *domain.Video) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateVideo,
			video.Name,
			video.Description,
			int(video.Privacy),
			int(video.State),
			video.Duration,
			video.TagsJSON,
			video.LastRefreshedAt,
			time.Now(),
			video.URI,
		)
		return err
	})
}

func (db *DB) ReadVideoByURI(uri string) (error, *domain.Video) {
	return scanVideo(db.db.QueryRow(sqlSelectVideoByURI, uri))
}

func (db *DB) ReadVideoById(id uuid.UUID) (error, *domain.Video) {
	return scanVideo(db.db.QueryRow(sqlSelectVideoById, id))
}

func (db *DB) ReadVideoByUUID(videoUUID uuid.UUID) (error, *domain.Video) {
	return scanVideo(db.db.QueryRow(sqlSelectVideoByUUID, videoUUID))
}

func (db *DB) DeleteVideo(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteVideo, id)
		return err
	})
}

func (db *DB) IncrementVideoViews(id uuid.UUID, by int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlIncrementViews, by, id)
		return err
	})
}

func (db *DB) CountVideosByChannel(channelActorId uuid.UUID) (error, int) {
	var total int
	err := db.db.QueryRow(sqlCountVideosByChannel, channelActorId).Scan(&total)
	return err, total
}

// ReadVideosByChannelPage returns a channel's public videos, newest first.
func (db *DB) ReadVideosByChannelPage(channelActorId uuid.UUID, limit, offset int) (error, *[]domain.Video) {
	rows, err := db.db.Query(sqlSelectVideosByChannel, channelActorId, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		video, err := scanVideoRow(rows)
		if err != nil {
			return err, &videos
		}
		videos = append(videos, *video)
	}
	if err = rows.Err(); err != nil {
		return err, &videos
	}
	return nil, &videos
}

func (db *DB) CreateStreamingPlaylist(playlist *domain.StreamingPlaylist) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertStreamingPlaylist,
			playlist.Id,
			playlist.VideoId,
			int(playlist.Type),
			playlist.PlaylistURL,
			playlist.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadStreamingPlaylist(videoId uuid.UUID, playlistType domain.StreamingPlaylistType) (error, *domain.StreamingPlaylist) {
	var playlist domain.StreamingPlaylist
	var pType int
	err := db.db.QueryRow(sqlSelectStreamingPlaylist, videoId, int(playlistType)).Scan(
		&playlist.Id, &playlist.VideoId, &pType, &playlist.PlaylistURL, &playlist.CreatedAt)
	if err != nil {
		return err, nil
	}
	playlist.Type = domain.StreamingPlaylistType(pType)
	return nil, &playlist
}

func scanVideo(row *sql.Row) (error, *domain.Video) {
	var video domain.Video
	var privacy, state int
	err := row.Scan(
		&video.Id, &video.URI, &video.UUID, &video.ChannelActorId, &video.Name,
		&video.Description, &privacy, &state, &video.Duration, &video.Views,
		&video.TagsJSON, &video.PublishedAt, &video.LastRefreshedAt,
		&video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return err, nil
	}
	video.Privacy = domain.VideoPrivacy(privacy)
	video.State = domain.VideoState(state)
	return nil, &video
}

func scanVideoRow(rows *sql.Rows) (*domain.Video, error) {
	var video domain.Video
	var privacy, state int
	err := rows.Scan(
		&video.Id, &video.URI, &video.UUID, &video.ChannelActorId, &video.Name,
		&video.Description, &privacy, &state, &video.Duration, &video.Views,
		&video.TagsJSON, &video.PublishedAt, &video.LastRefreshedAt,
		&video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return nil, err
	}
	video.Privacy = domain.VideoPrivacy(privacy)
	video.State = domain.VideoState(state)
	return &video, nil
}
