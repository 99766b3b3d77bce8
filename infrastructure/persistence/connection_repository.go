package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"github.com/google/uuid"
)

const connectionColumns = `id, user_id, platform, blog_url, external_blog_id, username, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at`

// ConnectionRepository stores blog connections. Token columns hold ciphertext
// produced by the credential store.
type ConnectionRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewConnectionRepository(db *sql.DB, dialect Dialect) repository.IConnection {
	return &ConnectionRepository{db: db, dialect: dialect}
}

func (r *ConnectionRepository) Create(ctx context.Context, conn *model.Connection) error {
	now := time.Now().UTC()
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	conn.IsActive = true

	q := r.dialect.Rebind(`INSERT INTO blog_connections (` + connectionColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	_, err := r.db.ExecContext(ctx, q,
		conn.ID, conn.UserID, conn.Platform, conn.BlogURL,
		nullString(conn.ExternalBlogID), nullString(conn.Username),
		conn.AccessToken, nullString(conn.RefreshToken), nullTime(conn.TokenExpiresAt),
		conn.IsActive, conn.CreatedAt, conn.UpdatedAt,
	)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"error":    err,
			"user_id":  conn.UserID,
			"platform": conn.Platform,
		}).Error("create connection failed")
	}
	return err
}

func (r *ConnectionRepository) GetByID(ctx context.Context, userID, connectionID string) (*model.Connection, error) {
	q := r.dialect.Rebind(`SELECT ` + connectionColumns + ` FROM blog_connections WHERE id=? AND user_id=?`)
	conn, err := scanConnection(r.db.QueryRowContext(ctx, q, connectionID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrConnectionNotFound
	}
	return conn, err
}

func (r *ConnectionRepository) ListActive(ctx context.Context, userID string) ([]*model.Connection, error) {
	q := r.dialect.Rebind(`SELECT ` + connectionColumns + ` FROM blog_connections WHERE user_id=? AND is_active=? ORDER BY created_at ASC`)
	rows, err := r.db.QueryContext(ctx, q, userID, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, conn)
	}
	return list, rows.Err()
}

// UpdateToken replaces the access token and expiry. A nil refreshToken keeps
// the stored one.
func (r *ConnectionRepository) UpdateToken(ctx context.Context, connectionID, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	q := r.dialect.Rebind(`UPDATE blog_connections SET access_token=?, refresh_token=COALESCE(?, refresh_token), token_expires_at=?, updated_at=? WHERE id=?`)
	res, err := r.db.ExecContext(ctx, q, accessToken, nullString(refreshToken), nullTime(expiresAt), time.Now().UTC(), connectionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrConnectionNotFound
	}
	return nil
}

func (r *ConnectionRepository) Deactivate(ctx context.Context, userID, connectionID string) error {
	q := r.dialect.Rebind(`UPDATE blog_connections SET is_active=?, updated_at=? WHERE id=? AND user_id=?`)
	res, err := r.db.ExecContext(ctx, q, false, time.Now().UTC(), connectionID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrConnectionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	conn := &model.Connection{}
	var blogID, username, refresh sql.NullString
	var expires sql.NullTime
	if err := row.Scan(&conn.ID, &conn.UserID, &conn.Platform, &conn.BlogURL, &blogID, &username,
		&conn.AccessToken, &refresh, &expires, &conn.IsActive, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
		return nil, err
	}
	if blogID.Valid {
		v := blogID.String
		conn.ExternalBlogID = &v
	}
	if username.Valid {
		v := username.String
		conn.Username = &v
	}
	if refresh.Valid {
		v := refresh.String
		conn.RefreshToken = &v
	}
	if expires.Valid {
		v := expires.Time
		conn.TokenExpiresAt = &v
	}
	return conn, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
