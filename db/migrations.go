package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateActorsTable = `CREATE TABLE IF NOT EXISTS actors (
		id TEXT NOT NULL PRIMARY KEY,
		uri TEXT UNIQUE NOT NULL,
		type TEXT NOT NULL,
		preferred_username TEXT NOT NULL,
		host TEXT NOT NULL DEFAULT '',
		display_name TEXT,
		summary TEXT,
		inbox_uri TEXT NOT NULL,
		outbox_uri TEXT,
		followers_uri TEXT,
		following_uri TEXT,
		shared_inbox_uri TEXT,
		public_key_pem TEXT NOT NULL,
		private_key_pem TEXT NOT NULL DEFAULT '',
		last_fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(preferred_username, host, type)
	)`

	sqlCreateActorsIndices = `
		CREATE INDEX IF NOT EXISTS idx_actors_uri ON actors(uri);
		CREATE INDEX IF NOT EXISTS idx_actors_host ON actors(host);
	`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		actor_id TEXT NOT NULL,
		target_actor_id TEXT NOT NULL,
		uri TEXT UNIQUE NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_id, target_actor_id)
	)`

	sqlCreateFollowsIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_actor_id ON follows(actor_id);
		CREATE INDEX IF NOT EXISTS idx_follows_target_actor_id ON follows(target_actor_id);
	`

	sqlCreateVideosTable = `CREATE TABLE IF NOT EXISTS videos (
		id TEXT NOT NULL PRIMARY KEY,
		uri TEXT UNIQUE NOT NULL,
		uuid TEXT UNIQUE NOT NULL,
		channel_actor_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		privacy INTEGER NOT NULL DEFAULT 1,
		state INTEGER NOT NULL DEFAULT 1,
		duration INTEGER NOT NULL DEFAULT 0,
		views INTEGER NOT NULL DEFAULT 0,
		tags_json TEXT NOT NULL DEFAULT '[]',
		published_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_refreshed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateVideosIndices = `
		CREATE INDEX IF NOT EXISTS idx_videos_uri ON videos(uri);
		CREATE INDEX IF NOT EXISTS idx_videos_channel ON videos(channel_actor_id);
	`

	sqlCreateStreamingPlaylistsTable = `CREATE TABLE IF NOT EXISTS video_streaming_playlists (
		id TEXT NOT NULL PRIMARY KEY,
		video_id TEXT NOT NULL,
		type INTEGER NOT NULL DEFAULT 1,
		playlist_url TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(video_id, type)
	)`

	sqlCreateCommentsTable = `CREATE TABLE IF NOT EXISTS video_comments (
		id TEXT NOT NULL PRIMARY KEY,
		uri TEXT UNIQUE NOT NULL,
		video_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		in_reply_to_comment_id TEXT,
		content TEXT NOT NULL,
		held_for_review INTEGER NOT NULL DEFAULT 0,
		deleted_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateCommentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_video_comments_video ON video_comments(video_id);
		CREATE INDEX IF NOT EXISTS idx_video_comments_reply ON video_comments(in_reply_to_comment_id);
	`

	sqlCreatePlaylistsTable = `CREATE TABLE IF NOT EXISTS video_playlists (
		id TEXT NOT NULL PRIMARY KEY,
		uri TEXT UNIQUE NOT NULL,
		uuid TEXT UNIQUE NOT NULL,
		owner_actor_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		privacy INTEGER NOT NULL DEFAULT 1,
		last_refreshed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreatePlaylistElementsTable = `CREATE TABLE IF NOT EXISTS video_playlist_elements (
		id TEXT NOT NULL PRIMARY KEY,
		playlist_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		start_timestamp INTEGER NOT NULL DEFAULT 0,
		stop_timestamp INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreatePlaylistElementsIndices = `
		CREATE INDEX IF NOT EXISTS idx_playlist_elements_playlist ON video_playlist_elements(playlist_id);
	`

	sqlCreateCacheFilesTable = `CREATE TABLE IF NOT EXISTS video_cache_files (
		id TEXT NOT NULL PRIMARY KEY,
		uri TEXT UNIQUE NOT NULL,
		actor_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		streaming_playlist_id TEXT NOT NULL,
		file_url TEXT NOT NULL,
		expires_on TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateRatesTable = `CREATE TABLE IF NOT EXISTS video_rates (
		id TEXT NOT NULL PRIMARY KEY,
		actor_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		type TEXT NOT NULL,
		uri TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_id, video_id)
	)`

	sqlCreateRatesIndices = `
		CREATE INDEX IF NOT EXISTS idx_video_rates_video ON video_rates(video_id, type);
	`

	sqlCreateSharesTable = `CREATE TABLE IF NOT EXISTS video_shares (
		id TEXT NOT NULL PRIMARY KEY,
		actor_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		uri TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(actor_id, video_id)
	)`

	sqlCreateSharesIndices = `
		CREATE INDEX IF NOT EXISTS idx_video_shares_video ON video_shares(video_id);
	`

	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities (
		id TEXT NOT NULL PRIMARY KEY,
		activity_uri TEXT UNIQUE NOT NULL,
		activity_type TEXT NOT NULL,
		actor_uri TEXT NOT NULL,
		object_uri TEXT,
		raw_json TEXT NOT NULL,
		processed INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		local INTEGER DEFAULT 0
	)`

	sqlCreateActivitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_activities_uri ON activities(activity_uri);
		CREATE INDEX IF NOT EXISTS idx_activities_object_uri ON activities(object_uri);
	`

	sqlCreateDeliveryQueueTable = `CREATE TABLE IF NOT EXISTS delivery_queue (
		id TEXT NOT NULL PRIMARY KEY,
		inbox_uri TEXT NOT NULL,
		sender_actor_id TEXT NOT NULL,
		activity_json TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		next_retry_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateDeliveryQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_delivery_queue_retry ON delivery_queue(next_retry_at);
	`
)

// Migrate creates all tables and indices. Statements are idempotent so
// this runs on every startup.
func (db *DB) Migrate() error {
	stmts := []string{
		sqlCreateActorsTable,
		sqlCreateActorsIndices,
		sqlCreateFollowsTable,
		sqlCreateFollowsIndices,
		sqlCreateVideosTable,
		sqlCreateVideosIndices,
		sqlCreateStreamingPlaylistsTable,
		sqlCreateCommentsTable,
		sqlCreateCommentsIndices,
		sqlCreatePlaylistsTable,
		sqlCreatePlaylistElementsTable,
		sqlCreatePlaylistElementsIndices,
		sqlCreateCacheFilesTable,
		sqlCreateRatesTable,
		sqlCreateRatesIndices,
		sqlCreateSharesTable,
		sqlCreateSharesIndices,
		sqlCreateActivitiesTable,
		sqlCreateActivitiesIndices,
		sqlCreateDeliveryQueueTable,
		sqlCreateDeliveryQueueIndices,
	}

	return db.wrapTransaction(func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(stmt); err != nil {
				log.Printf("Migration failed: %v", err)
				return err
			}
		}
		return nil
	})
}
