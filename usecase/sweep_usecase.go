package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ISweepUsecase interface {
	PublishScheduledPosts(ctx context.Context) (model.SweepReport, error)
}

type SweepConfig struct {
	BatchSize   int
	MaxRetries  int
	Concurrency int
	LockTTL     time.Duration
}

type sweepUsecase struct {
	posts      repository.IPost
	controller IPostUsecase
	lock       repository.ISweepLock
	cfg        SweepConfig
	now        func() time.Time
}

// NewSweepUsecase builds the scheduled sweep. A nil lock runs unlocked.
func NewSweepUsecase(posts repository.IPost, controller IPostUsecase, lock repository.ISweepLock, cfg SweepConfig) ISweepUsecase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &sweepUsecase{posts: posts, controller: controller, lock: lock, cfg: cfg, now: time.Now}
}

// PublishScheduledPosts publishes one batch of due posts. Per-post failures
// end up in the report; only the due query fails the sweep.
func (u *sweepUsecase) PublishScheduledPosts(ctx context.Context) (model.SweepReport, error) {
	report := model.SweepReport{Errors: []string{}}
	start := time.Now()
	log := logger.GetLogger()

	if u.lock != nil {
		release, ok, err := u.lock.Acquire(ctx, u.cfg.LockTTL)
		switch {
		case err != nil:
			log.WithField("error", err).Warn("Sweep lock unavailable, running unlocked")
		case !ok:
			log.Info("Another sweep holds the lock, skipping")
			return report, nil
		default:
			defer release()
		}
	}

	due, err := u.posts.FindDue(ctx, u.now().UTC(), u.cfg.MaxRetries, u.cfg.BatchSize)
	if err != nil {
		log.WithField("error", err).Error("Failed to query due posts")
		return report, fmt.Errorf("find due posts: %w", err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(u.cfg.Concurrency)
	for _, post := range due {
		if ctx.Err() != nil {
			break
		}
		post := post
		g.Go(func() error {
			out := u.controller.PublishAndUpdate(ctx, post.UserID, post.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case out.Success:
				report.Published++
			case out.Kind == model.ErrorKindQuota:
				report.Skipped++
				report.Errors = append(report.Errors, fmt.Sprintf("post %s: %s", post.ID, out.Error))
			default:
				report.Failed++
				report.Errors = append(report.Errors, fmt.Sprintf("post %s: %s", post.ID, out.Error))
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	metrics.ObserveSweep(report, elapsed)
	log.WithFields(logrus.Fields{
		"due":       len(due),
		"published": report.Published,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"elapsed":   elapsed.String(),
	}).Info("Scheduled sweep finished")
	return report, nil
}
