package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blog-publisher/domain/dto"
	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"github.com/sirupsen/logrus"
)

const historyLimit = 50

type IPostUsecase interface {
	CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.Post, error)
	GetPost(ctx context.Context, userID, postID string) (*model.Post, error)
	History(ctx context.Context, userID, postID string) ([]model.PublishAudit, error)
	PublishAndUpdate(ctx context.Context, userID, postID string) model.Outcome
	RetryFailedPost(ctx context.Context, userID, postID string) model.Outcome
	UpdatePublishedPost(ctx context.Context, userID, postID string, req dto.UpdateRemotePostRequest) model.Outcome
}

type PostUsecaseConfig struct {
	MaxRetries     int
	QuotaThreshold float64
}

type postUsecase struct {
	posts       repository.IPost
	connections repository.IConnection
	quotas      repository.IUsageQuota
	engine      IPublishUsecase
	notifier    repository.INotifier
	audit       repository.IPublishAudit
	cfg         PostUsecaseConfig
}

// NewPostUsecase builds the post lifecycle controller. notifier and audit may
// be nil.
func NewPostUsecase(posts repository.IPost, connections repository.IConnection, quotas repository.IUsageQuota,
	engine IPublishUsecase, notifier repository.INotifier, audit repository.IPublishAudit, cfg PostUsecaseConfig) IPostUsecase {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &postUsecase{
		posts:       posts,
		connections: connections,
		quotas:      quotas,
		engine:      engine,
		notifier:    notifier,
		audit:       audit,
		cfg:         cfg,
	}
}

func (u *postUsecase) CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.Post, error) {
	visibility := model.Visibility(strings.ToLower(strings.TrimSpace(req.Visibility)))
	switch visibility {
	case "":
		visibility = model.VisibilityPublic
	case model.VisibilityPublic, model.VisibilityPrivate, model.VisibilityDraft:
	default:
		return nil, model.ErrInvalidVisibility
	}

	conn, err := u.connections.GetByID(ctx, userID, req.ConnectionID)
	if err != nil {
		return nil, err
	}
	if !conn.IsActive {
		return nil, model.ErrConnectionNotFound
	}

	post := &model.Post{
		UserID:       userID,
		ConnectionID: req.ConnectionID,
		Title:        req.Title,
		Content:      req.Content,
		Category:     req.Category,
		Tags:         req.Tags,
		Visibility:   visibility,
		Status:       model.PostStatusGenerated,
	}
	if req.ScheduledAt != nil {
		at := req.ScheduledAt.UTC()
		post.ScheduledAt = &at
		post.Status = model.PostStatusScheduled
	}
	if err := u.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (u *postUsecase) GetPost(ctx context.Context, userID, postID string) (*model.Post, error) {
	return u.posts.GetByID(ctx, userID, postID)
}

func (u *postUsecase) History(ctx context.Context, userID, postID string) ([]model.PublishAudit, error) {
	if _, err := u.posts.GetByID(ctx, userID, postID); err != nil {
		return nil, err
	}
	if u.audit == nil {
		return []model.PublishAudit{}, nil
	}
	return u.audit.History(ctx, postID, historyLimit)
}

// PublishAndUpdate publishes a post and records the outcome on it. Expected
// failures come back as an Outcome; datastore errors and panics are logged and
// reported as an internal failure.
func (u *postUsecase) PublishAndUpdate(ctx context.Context, userID, postID string) (out model.Outcome) {
	defer recoverOutcome(&out, postID)
	return u.publishAndUpdate(ctx, userID, postID)
}

func (u *postUsecase) RetryFailedPost(ctx context.Context, userID, postID string) (out model.Outcome) {
	defer recoverOutcome(&out, postID)

	post, err := u.posts.GetByID(ctx, userID, postID)
	if err != nil {
		return u.loadFailed(postID, err)
	}
	if post.Status != model.PostStatusFailed {
		return model.OutcomeFailed(model.ErrorKindPermanent, model.ErrNotFailed.Error())
	}
	reset, err := u.posts.ResetFailed(ctx, userID, postID)
	if err != nil {
		return internalOutcome(postID, "reset failed post", err)
	}
	if !reset {
		return model.OutcomeFailed(model.ErrorKindPermanent, model.ErrNotFailed.Error())
	}
	logger.GetLogger().WithField("post_id", postID).Info("Retrying failed post")
	return u.publishAndUpdate(ctx, userID, postID)
}

// UpdatePublishedPost pushes edits of an already published post to its
// platform. Status and quota are left alone.
func (u *postUsecase) UpdatePublishedPost(ctx context.Context, userID, postID string, req dto.UpdateRemotePostRequest) (out model.Outcome) {
	defer recoverOutcome(&out, postID)

	post, err := u.posts.GetByID(ctx, userID, postID)
	if err != nil {
		return u.loadFailed(postID, err)
	}
	if post.Status != model.PostStatusPublished || post.ExternalPostID == nil || *post.ExternalPostID == "" {
		return model.OutcomeFailed(model.ErrorKindPermanent, model.ErrNotPublished.Error())
	}

	params := post.PublishParams()
	if req.Title != "" {
		params.Title = req.Title
	}
	if req.Content != "" {
		params.Content = req.Content
	}
	if req.Category != nil {
		params.Category = *req.Category
	}
	if req.Tags != nil {
		params.Tags = req.Tags
	}
	if req.Visibility != "" {
		params.Visibility = model.Visibility(strings.ToLower(req.Visibility))
	}

	res := u.engine.UpdatePost(ctx, userID, post.ConnectionID, *post.ExternalPostID, params)
	u.recordAudit(ctx, post, res)
	if !res.Success {
		return model.OutcomeFailed(res.Kind, res.Error)
	}
	url := res.PostURL
	if url == "" && post.PublishedURL != nil {
		url = *post.PublishedURL
	}
	return model.Outcome{Success: true, PostURL: url}
}

func (u *postUsecase) publishAndUpdate(ctx context.Context, userID, postID string) model.Outcome {
	quota, err := u.quotas.Get(ctx, userID)
	if err != nil {
		return internalOutcome(postID, "load usage quota", err)
	}
	if quota.Exhausted() {
		return model.OutcomeFailed(model.ErrorKindQuota, model.ErrQuotaExceeded.Error())
	}

	post, err := u.posts.GetByID(ctx, userID, postID)
	if err != nil {
		return u.loadFailed(postID, err)
	}
	if post.Status == model.PostStatusPublished {
		return model.OutcomeFailed(model.ErrorKindPermanent, model.ErrAlreadyPublished.Error())
	}
	if !post.Status.Publishable() {
		return model.OutcomeFailed(model.ErrorKindPermanent,
			fmt.Sprintf("%s: post is %s", model.ErrInvalidTransition, post.Status))
	}

	won, err := u.posts.MarkPublishing(ctx, userID, postID)
	if err != nil {
		return internalOutcome(postID, "mark post publishing", err)
	}
	if !won {
		return model.OutcomeFailed(model.ErrorKindPermanent, "post is already being published")
	}

	res := u.engine.PublishPost(ctx, userID, post.ConnectionID, post.PublishParams())
	u.recordAudit(ctx, post, res)
	if res.Success {
		return u.succeeded(ctx, post, res)
	}
	return u.failed(ctx, post, res)
}

func (u *postUsecase) succeeded(ctx context.Context, post *model.Post, res model.PublishResult) model.Outcome {
	log := logger.GetLogger().WithFields(logrus.Fields{
		"post_id":  post.ID,
		"user_id":  post.UserID,
		"platform": res.Platform,
	})

	publishedAt := time.Now().UTC()
	if res.PublishedAt != nil {
		publishedAt = *res.PublishedAt
	}
	if err := u.posts.MarkPublished(ctx, post.UserID, post.ID, res.PostURL, res.PostID, publishedAt); err != nil {
		log.WithFields(logrus.Fields{"error": err, "post_url": res.PostURL}).Error("Published remotely but failed to record it")
		return internalOutcome(post.ID, "mark post published", err)
	}

	quota, counted, err := u.quotas.Increment(ctx, post.UserID, post.ID)
	switch {
	case err != nil:
		log.WithField("error", err).Error("Failed to increment usage quota")
	case counted && quota.CrossedThreshold(u.cfg.QuotaThreshold):
		u.notify(ctx, model.Event{
			Type:       model.EventQuotaThreshold,
			UserID:     post.UserID,
			UsageCount: quota.UsageCount,
			Limit:      quota.MonthlyLimit,
		})
	}

	u.notify(ctx, model.Event{
		Type:     model.EventPublishSucceeded,
		UserID:   post.UserID,
		PostID:   post.ID,
		Platform: res.Platform,
		PostURL:  res.PostURL,
	})
	log.WithField("post_url", res.PostURL).Info("Post published")
	return model.Outcome{Success: true, PostURL: res.PostURL}
}

func (u *postUsecase) failed(ctx context.Context, post *model.Post, res model.PublishResult) model.Outcome {
	retryCount := post.RetryCount + 1
	status := model.PostStatusGenerated
	if retryCount >= u.cfg.MaxRetries {
		status = model.PostStatusFailed
	}

	log := logger.GetLogger().WithFields(logrus.Fields{
		"post_id":     post.ID,
		"user_id":     post.UserID,
		"platform":    res.Platform,
		"kind":        res.Kind,
		"retry_count": retryCount,
		"status":      status,
	})

	if err := u.posts.MarkAttemptFailed(ctx, post.UserID, post.ID, status, retryCount, res.Error); err != nil {
		return internalOutcome(post.ID, "record failed attempt", err)
	}
	if status == model.PostStatusFailed {
		u.notify(ctx, model.Event{
			Type:     model.EventPublishFailed,
			UserID:   post.UserID,
			PostID:   post.ID,
			Platform: res.Platform,
			Error:    res.Error,
		})
	}
	log.WithField("error", res.Error).Warn("Publish attempt failed")
	return model.OutcomeFailed(res.Kind, res.Error)
}

func (u *postUsecase) loadFailed(postID string, err error) model.Outcome {
	if errors.Is(err, model.ErrPostNotFound) {
		return model.OutcomeFailed(model.ErrorKindNotFound, model.ErrPostNotFound.Error())
	}
	return internalOutcome(postID, "load post", err)
}

func (u *postUsecase) recordAudit(ctx context.Context, post *model.Post, res model.PublishResult) {
	if u.audit == nil {
		return
	}
	err := u.audit.Record(ctx, &model.PublishAudit{
		PostID:     post.ID,
		UserID:     post.UserID,
		Platform:   res.Platform,
		Success:    res.Success,
		Kind:       string(res.Kind),
		Error:      res.Error,
		Retries:    res.Retries,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logger.GetLogger().WithFields(logrus.Fields{"error": err, "post_id": post.ID}).Warn("Failed to record publish audit")
	}
}

// notify never lets a sink failure reach the caller.
func (u *postUsecase) notify(ctx context.Context, evt model.Event) {
	if u.notifier == nil {
		return
	}
	if err := u.notifier.Notify(ctx, evt); err != nil {
		logger.GetLogger().WithFields(logrus.Fields{"error": err, "event": evt.Type}).Warn("Notification failed")
	}
}

func internalOutcome(postID, op string, err error) model.Outcome {
	logger.GetLogger().WithFields(logrus.Fields{"error": err, "post_id": postID}).Errorf("Failed to %s", op)
	return model.OutcomeFailed(model.ErrorKindInternal, fmt.Sprintf("%s: %v", op, err))
}

func recoverOutcome(out *model.Outcome, postID string) {
	if r := recover(); r != nil {
		logger.GetLogger().WithFields(logrus.Fields{"panic": r, "post_id": postID}).Error("Recovered from panic while publishing")
		*out = model.OutcomeFailed(model.ErrorKindInternal, fmt.Sprintf("internal error: %v", r))
	}
}
