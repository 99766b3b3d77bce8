package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS blog_connections (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		platform VARCHAR(32) NOT NULL,
		blog_url TEXT NOT NULL,
		external_blog_id TEXT NULL,
		username TEXT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NULL,
		token_expires_at TIMESTAMPTZ NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_blog_connections_user ON blog_connections (user_id, is_active)`,
	`CREATE TABLE IF NOT EXISTS blog_posts (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		connection_id VARCHAR(64) NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		visibility VARCHAR(16) NOT NULL DEFAULT 'public',
		status VARCHAR(16) NOT NULL,
		published_url TEXT NULL,
		published_at TIMESTAMPTZ NULL,
		scheduled_at TIMESTAMPTZ NULL,
		retry_count INT NOT NULL DEFAULT 0,
		error_message TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ix_blog_posts_due ON blog_posts (status, scheduled_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS blog_connections (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		platform VARCHAR(32) NOT NULL,
		blog_url TEXT NOT NULL,
		external_blog_id TEXT NULL,
		username TEXT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NULL,
		token_expires_at DATETIME(6) NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX ix_blog_connections_user (user_id, is_active)
	)`,
	`CREATE TABLE IF NOT EXISTS blog_posts (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		connection_id VARCHAR(64) NOT NULL,
		title TEXT NOT NULL,
		content LONGTEXT NOT NULL,
		category TEXT NULL,
		tags TEXT NOT NULL,
		visibility VARCHAR(16) NOT NULL DEFAULT 'public',
		status VARCHAR(16) NOT NULL,
		published_url TEXT NULL,
		published_at DATETIME(6) NULL,
		scheduled_at DATETIME(6) NULL,
		retry_count INT NOT NULL DEFAULT 0,
		error_message TEXT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX ix_blog_posts_due (status, scheduled_at)
	)`,
}

var mssqlSchema = []string{
	`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.blog_connections') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[blog_connections] (
        id NVARCHAR(64) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(32) NOT NULL,
        blog_url NVARCHAR(1024) NOT NULL,
        external_blog_id NVARCHAR(255) NULL,
        username NVARCHAR(255) NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        token_expires_at DATETIME2 NULL,
        is_active BIT NOT NULL DEFAULT 1,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_blog_connections_user ON dbo.[blog_connections](user_id, is_active);
END`,
	`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.blog_posts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[blog_posts] (
        id NVARCHAR(64) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        connection_id NVARCHAR(64) NOT NULL,
        title NVARCHAR(1024) NOT NULL,
        content NVARCHAR(MAX) NOT NULL,
        category NVARCHAR(255) NULL,
        tags NVARCHAR(MAX) NOT NULL,
        visibility NVARCHAR(16) NOT NULL DEFAULT 'public',
        status NVARCHAR(16) NOT NULL,
        published_url NVARCHAR(1024) NULL,
        published_at DATETIME2 NULL,
        scheduled_at DATETIME2 NULL,
        retry_count INT NOT NULL DEFAULT 0,
        error_message NVARCHAR(MAX) NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE INDEX IX_blog_posts_due ON dbo.[blog_posts](status, scheduled_at);
END`,
}

// EnsureSchema creates the connection and post tables and adds newer columns
// to tables created by earlier releases. Safe to call at startup.
func EnsureSchema(db *sql.DB, dialect Dialect) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := postgresSchema
	switch dialect {
	case DialectMSSQL:
		stmts = mssqlSchema
	case DialectMySQL:
		stmts = mysqlSchema
	}
	for _, ddl := range stmts {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema (%s): %w", dialect, err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    map[Dialect]string
	}{
		{"blog_posts", "external_post_id", map[Dialect]string{
			DialectPostgres: "ALTER TABLE blog_posts ADD COLUMN external_post_id TEXT",
			DialectMySQL:    "ALTER TABLE blog_posts ADD COLUMN external_post_id VARCHAR(255) NULL",
			DialectMSSQL:    "ALTER TABLE dbo.[blog_posts] ADD external_post_id NVARCHAR(255) NULL",
		}},
	}
	for _, c := range checks {
		if dialect == DialectMSSQL {
			// COL_LENGTH returns NULL for a missing column
			q := fmt.Sprintf(`IF COL_LENGTH('dbo.%s', '%s') IS NULL BEGIN %s END`, c.table, c.column, c.ddl[dialect])
			if _, err := db.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("ensure column %s.%s: %w", c.table, c.column, err)
			}
			continue
		}
		exists, err := columnExists(ctx, db, dialect, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl[dialect]); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, dialect Dialect, table, column string) (bool, error) {
	q := dialect.Rebind(`SELECT 1 FROM information_schema.columns WHERE table_name=? AND column_name=?`)
	row := db.QueryRowContext(ctx, q, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
