package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"github.com/google/uuid"
)

const postColumns = `id, user_id, connection_id, title, content, category, tags, visibility, status, published_url, external_post_id, published_at, scheduled_at, retry_count, error_message, created_at, updated_at`

// PostRepository persists posts. Every status write is conditional on the
// current status so concurrent callers cannot skip a transition.
type PostRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPostRepository(db *sql.DB, dialect Dialect) repository.IPost {
	return &PostRepository{db: db, dialect: dialect}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.Status == "" {
		post.Status = model.PostStatusGenerated
	}
	if post.Visibility == "" {
		post.Visibility = model.VisibilityPublic
	}
	post.CreatedAt, post.UpdatedAt = now, now
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return err
	}

	q := r.dialect.Rebind(`INSERT INTO blog_posts (` + postColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	_, err = r.db.ExecContext(ctx, q,
		post.ID, post.UserID, post.ConnectionID, post.Title, post.Content, nullString(post.Category), tags,
		string(post.Visibility), string(post.Status), nullString(post.PublishedURL), nullString(post.ExternalPostID),
		nullTime(post.PublishedAt), nullTime(post.ScheduledAt), post.RetryCount, nullString(post.ErrorMessage),
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":   err,
			"user_id": post.UserID,
		}).Error("create post failed")
	}
	return err
}

func (r *PostRepository) GetByID(ctx context.Context, userID, postID string) (*model.Post, error) {
	q := r.dialect.Rebind(`SELECT ` + postColumns + ` FROM blog_posts WHERE id=? AND user_id=?`)
	post, err := scanPost(r.db.QueryRowContext(ctx, q, postID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	return post, err
}

func (r *PostRepository) MarkPublishing(ctx context.Context, userID, postID string) (bool, error) {
	if err := mustTransition(model.PostStatusGenerated, model.PostStatusPublishing); err != nil {
		return false, err
	}
	if err := mustTransition(model.PostStatusScheduled, model.PostStatusPublishing); err != nil {
		return false, err
	}
	q := r.dialect.Rebind(`UPDATE blog_posts SET status=?, updated_at=? WHERE id=? AND user_id=? AND status IN (?,?)`)
	res, err := r.db.ExecContext(ctx, q, string(model.PostStatusPublishing), time.Now().UTC(), postID, userID,
		string(model.PostStatusGenerated), string(model.PostStatusScheduled))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepository) MarkPublished(ctx context.Context, userID, postID, publishedURL, externalPostID string, publishedAt time.Time) error {
	if err := mustTransition(model.PostStatusPublishing, model.PostStatusPublished); err != nil {
		return err
	}
	q := r.dialect.Rebind(`UPDATE blog_posts SET status=?, published_url=?, external_post_id=?, published_at=?, error_message=NULL, updated_at=? WHERE id=? AND user_id=? AND status=?`)
	res, err := r.db.ExecContext(ctx, q, string(model.PostStatusPublished), publishedURL, externalPostID, publishedAt,
		time.Now().UTC(), postID, userID, string(model.PostStatusPublishing))
	if err != nil {
		return err
	}
	return expectOne(res, postID, model.PostStatusPublishing, model.PostStatusPublished)
}

// MarkAttemptFailed records a failed attempt and moves the post out of
// publishing, either back to generated or to failed.
func (r *PostRepository) MarkAttemptFailed(ctx context.Context, userID, postID string, status model.PostStatus, retryCount int, errMsg string) error {
	if status == model.PostStatusPublished {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, model.PostStatusPublishing, status)
	}
	if err := mustTransition(model.PostStatusPublishing, status); err != nil {
		return err
	}
	q := r.dialect.Rebind(`UPDATE blog_posts SET status=?, retry_count=?, error_message=?, updated_at=? WHERE id=? AND user_id=? AND status=?`)
	res, err := r.db.ExecContext(ctx, q, string(status), retryCount, errMsg, time.Now().UTC(), postID, userID,
		string(model.PostStatusPublishing))
	if err != nil {
		return err
	}
	return expectOne(res, postID, model.PostStatusPublishing, status)
}

// ResetFailed moves a failed post back to generated with a fresh retry budget.
func (r *PostRepository) ResetFailed(ctx context.Context, userID, postID string) (bool, error) {
	if err := mustTransition(model.PostStatusFailed, model.PostStatusGenerated); err != nil {
		return false, err
	}
	q := r.dialect.Rebind(`UPDATE blog_posts SET status=?, retry_count=0, error_message=NULL, updated_at=? WHERE id=? AND user_id=? AND status=?`)
	res, err := r.db.ExecContext(ctx, q, string(model.PostStatusGenerated), time.Now().UTC(), postID, userID,
		string(model.PostStatusFailed))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostRepository) FindDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*model.Post, error) {
	top, suffix := r.dialect.Limit(limit)
	// Posts published on demand have no schedule; after a soft failure they
	// are due as soon as they are back in generated.
	q := r.dialect.Rebind(`SELECT ` + top + postColumns + ` FROM blog_posts WHERE status IN (?,?) AND retry_count < ?` +
		` AND (scheduled_at <= ? OR (scheduled_at IS NULL AND status = ? AND retry_count > 0))` +
		` ORDER BY COALESCE(scheduled_at, updated_at) ASC` + suffix)
	rows, err := r.db.QueryContext(ctx, q, string(model.PostStatusScheduled), string(model.PostStatusGenerated), maxRetries,
		now, string(model.PostStatusGenerated))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// mustTransition checks a status change against the post state machine
// before the guarded UPDATE is issued.
func mustTransition(from, to model.PostStatus) error {
	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
	}
	return nil
}

func expectOne(res sql.Result, postID string, from, to model.PostStatus) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: post %s is not %s, cannot move to %s", model.ErrInvalidTransition, postID, from, to)
	}
	return nil
}

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{}
	var category, publishedURL, externalID, errMsg sql.NullString
	var publishedAt, scheduledAt sql.NullTime
	var tags, visibility, status string
	if err := row.Scan(&p.ID, &p.UserID, &p.ConnectionID, &p.Title, &p.Content, &category, &tags, &visibility, &status,
		&publishedURL, &externalID, &publishedAt, &scheduledAt, &p.RetryCount, &errMsg, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Visibility = model.Visibility(visibility)
	p.Status = model.PostStatus(status)
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil && tags != "" {
		return nil, fmt.Errorf("decode tags of post %s: %w", p.ID, err)
	}
	if category.Valid {
		v := category.String
		p.Category = &v
	}
	if publishedURL.Valid {
		v := publishedURL.String
		p.PublishedURL = &v
	}
	if externalID.Valid {
		v := externalID.String
		p.ExternalPostID = &v
	}
	if errMsg.Valid {
		v := errMsg.String
		p.ErrorMessage = &v
	}
	if publishedAt.Valid {
		v := publishedAt.Time
		p.PublishedAt = &v
	}
	if scheduledAt.Valid {
		v := scheduledAt.Time
		p.ScheduledAt = &v
	}
	return p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
