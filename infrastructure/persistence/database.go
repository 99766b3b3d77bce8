package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"blog-publisher/infrastructure/configuration"
	"blog-publisher/infrastructure/logger"

	mysqldriver "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// OpenDatabase connects to the vendor selected by Database.Vendor.
func OpenDatabase(cfg configuration.Database) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(cfg.Vendor)
	if err != nil {
		return nil, "", err
	}
	var db *sql.DB
	switch dialect {
	case DialectMSSQL:
		db, err = NewMSSQLDB(cfg.Mssql)
	case DialectMySQL:
		db, err = NewMySQLDB(cfg.MySql)
	default:
		db, err = NewPostgreSQLDB(cfg.Psql)
	}
	if err != nil {
		return nil, "", err
	}
	logger.GetLogger().WithField("vendor", string(dialect)).Info("Database connected")
	return db, dialect, nil
}

func NewPostgreSQLDB(cfg configuration.Db) (*sql.DB, error) {
	q := url.Values{}
	q.Set("sslmode", "disable")
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return open("postgres", u.String())
}

// NewMSSQLDB creates a sql.DB for Azure SQL / SQL Server using native database/sql.
func NewMSSQLDB(cfg configuration.Db) (*sql.DB, error) {
	q := url.Values{}
	if cfg.Name != "" {
		q.Set("database", cfg.Name)
	}
	// Azure SQL requires encrypt=true
	q.Set("encrypt", "true")
	// Local containers use a self-signed certificate
	if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
		q.Set("TrustServerCertificate", "true")
	}

	u := &url.URL{Scheme: "sqlserver", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	u.RawQuery = q.Encode()
	return open("sqlserver", u.String())
}

func NewMySQLDB(cfg configuration.Db) (*sql.DB, error) {
	mc := mysqldriver.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	return open("mysql", mc.FormatDSN())
}

func open(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(time.Minute)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewMongoDb connects the publish audit store. An empty host disables it.
func NewMongoDb(cfg configuration.Db) (*mongo.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mongo host not configured")
	}
	u := &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	opts := options.Client().ApplyURI(u.String()).SetConnectTimeout(5 * time.Second)
	return mongo.Connect(opts)
}
