package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tubefed/tubefed/domain"
)

const (
	sqlCommentColumns = `id, uri, video_id, actor_id, in_reply_to_comment_id, content,
		held_for_review, deleted_at, created_at, updated_at`

	sqlInsertComment = `INSERT INTO video_comments(id, uri, video_id, actor_id, in_reply_to_comment_id,
		content, held_for_review, deleted_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlUpdateComment = `UPDATE video_comments SET content = ?, held_for_review = ?, updated_at = ? WHERE uri = ?`

	sqlSelectCommentByURI = `SELECT ` + sqlCommentColumns + ` FROM video_comments WHERE uri = ?`
	sqlSelectCommentById  = `SELECT ` + sqlCommentColumns + ` FROM video_comments WHERE id = ?`

	sqlTombstoneComment = `UPDATE video_comments SET deleted_at = ?, content = '', updated_at = ? WHERE id = ?`

	sqlCountCommentsByVideo = `SELECT COUNT(*) FROM video_comments
		WHERE video_id = ? AND deleted_at IS NULL AND held_for_review = 0`
	sqlSelectCommentsPage = `SELECT ` + sqlCommentColumns + ` FROM video_comments
		WHERE video_id = ? AND deleted_at IS NULL AND held_for_review = 0
		ORDER BY created_at DESC LIMIT ? OFFSET ?`

	sqlTombstoneStaleComments = `UPDATE video_comments SET deleted_at = ?, content = ''
		WHERE video_id = ? AND updated_at < ? AND deleted_at IS NULL`
)

func (db *DB) CreateComment(comment *domain.VideoComment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		var replyTo interface{}
		if comment.InReplyToCommentId != nil {
			replyTo = *comment.InReplyToCommentId
		}
		var deletedAt interface{}
		if comment.DeletedAt != nil {
			deletedAt = *comment.DeletedAt
		}
		_, err := tx.Exec(sqlInsertComment,
			comment.Id,
			comment.URI,
			comment.VideoId,
			comment.ActorId,
			replyTo,
			comment.Content,
			comment.HeldForReview,
			deletedAt,
			comment.CreatedAt,
			comment.UpdatedAt,
		)
		return err
	})
}

func (db *DB) UpdateComment(comment *domain.VideoComment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateComment, comment.Content, comment.HeldForReview, time.Now(), comment.URI)
		return err
	})
}

func (db *DB) ReadCommentByURI(uri string) (error, *domain.VideoComment) {
	return scanComment(db.db.QueryRow(sqlSelectCommentByURI, uri))
}

func (db *DB) ReadCommentById(id uuid.UUID) (error, *domain.VideoComment) {
	return scanComment(db.db.QueryRow(sqlSelectCommentById, id))
}

// TombstoneComment marks a comment deleted without removing the row, so
// replies keep a valid parent.
func (db *DB) TombstoneComment(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		now := time.Now()
		_, err := tx.Exec(sqlTombstoneComment, now, now, id)
		return err
	})
}

func (db *DB) CountCommentsByVideo(videoId uuid.UUID) (error, int) {
	var total int
	err := db.db.QueryRow(sqlCountCommentsByVideo, videoId).Scan(&total)
	return err, total
}

func (db *DB) ReadCommentsPage(videoId uuid.UUID, limit, offset int) (error, *[]domain.VideoComment) {
	rows, err := db.db.Query(sqlSelectCommentsPage, videoId, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var comments []domain.VideoComment
	for rows.Next() {
		comment, err := scanCommentRow(rows)
		if err != nil {
			return err, &comments
		}
		comments = append(comments, *comment)
	}
	if err = rows.Err(); err != nil {
		return err, &comments
	}
	return nil, &comments
}

// TombstoneStaleComments marks comments not refreshed since a full
// crawl started as deleted.
func (db *DB) TombstoneStaleComments(videoId uuid.UUID, since time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlTombstoneStaleComments, time.Now(), videoId, since)
		return err
	})
}

func scanComment(row *sql.Row) (error, *domain.VideoComment) {
	var comment domain.VideoComment
	var replyTo sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&comment.Id, &comment.URI, &comment.VideoId, &comment.ActorId,
		&replyTo, &comment.Content, &comment.HeldForReview, &deletedAt,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return err, nil
	}
	fillCommentNullables(&comment, replyTo, deletedAt)
	return nil, &comment
}

func scanCommentRow(rows *sql.Rows) (*domain.VideoComment, error) {
	var comment domain.VideoComment
	var replyTo sql.NullString
	var deletedAt sql.NullTime
	err := rows.Scan(&comment.Id, &comment.URI, &comment.VideoId, &comment.ActorId,
		&replyTo, &comment.Content, &comment.HeldForReview, &deletedAt,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	fillCommentNullables(&comment, replyTo, deletedAt)
	return &comment, nil
}

func fillCommentNullables(comment *domain.VideoComment, replyTo sql.NullString, deletedAt sql.NullTime) {
	if replyTo.Valid {
		if id, err := uuid.Parse(replyTo.String); err == nil {
			comment.InReplyToCommentId = &id
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		comment.DeletedAt = &t
	}
}
