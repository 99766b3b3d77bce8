package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// NewGormDB wraps an already opened connection pool for the gorm-backed
// repositories so both layers share one pool.
func NewGormDB(db *sql.DB, dialect Dialect) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectMSSQL:
		dialector = sqlserver.New(sqlserver.Config{Conn: db})
	case DialectMySQL:
		dialector = mysql.New(mysql.Config{Conn: db, SkipInitializeWithVersion: true})
	default:
		dialector = postgres.New(postgres.Config{Conn: db})
	}
	return gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

func EnsureQuotaSchema(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&model.UsageQuota{}, &model.UsageQuotaEvent{}); err != nil {
		return fmt.Errorf("migrate usage quota tables: %w", err)
	}
	return nil
}

// UsageQuotaRepository keeps per-user publish counters. Each post id is
// recorded in usage_quota_events so the counter moves at most once per post.
type UsageQuotaRepository struct {
	db           *gorm.DB
	defaultLimit int
	now          func() time.Time
}

func NewUsageQuotaRepository(db *gorm.DB, defaultLimit int) repository.IUsageQuota {
	return &UsageQuotaRepository{db: db, defaultLimit: defaultLimit, now: time.Now}
}

// Get returns the user's quota, creating it with the default limit on first
// use and starting a new period once the current one has ended.
func (r *UsageQuotaRepository) Get(ctx context.Context, userID string) (*model.UsageQuota, error) {
	now := r.now().UTC()
	var q model.UsageQuota
	err := r.db.WithContext(ctx).
		Where(&model.UsageQuota{UserID: userID}).
		Attrs(model.UsageQuota{UserID: userID, MonthlyLimit: r.defaultLimit, PeriodEnd: periodEnd(now)}).
		FirstOrCreate(&q).Error
	if err != nil {
		return nil, fmt.Errorf("load usage quota: %w", err)
	}
	if !q.PeriodEnd.After(now) {
		next := periodEnd(now)
		err := r.db.WithContext(ctx).Model(&q).Updates(map[string]interface{}{
			"usage_count": 0,
			"period_end":  next,
		}).Error
		if err != nil {
			return nil, fmt.Errorf("roll over usage quota: %w", err)
		}
		q.UsageCount = 0
		q.PeriodEnd = next
	}
	return &q, nil
}

func (r *UsageQuotaRepository) Increment(ctx context.Context, userID, postID string) (*model.UsageQuota, bool, error) {
	if _, err := r.Get(ctx, userID); err != nil {
		return nil, false, err
	}
	var q model.UsageQuota
	counted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.UsageQuotaEvent{PostID: postID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		counted = res.RowsAffected == 1
		if counted {
			err := tx.Model(&model.UsageQuota{}).
				Where("user_id = ?", userID).
				UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
			if err != nil {
				return err
			}
		}
		return tx.Where("user_id = ?", userID).First(&q).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("usage quota for %s vanished during increment", userID)
		}
		return nil, false, fmt.Errorf("increment usage quota: %w", err)
	}
	return &q, counted, nil
}

// periodEnd is the first instant of the month after now.
func periodEnd(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}
