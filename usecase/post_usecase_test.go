package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"blog-publisher/domain/dto"
	"blog-publisher/domain/model"
	"blog-publisher/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const maxRetries = 3

type controllerFixture struct {
	posts    *MockPostRepo
	conns    *MockConnectionRepo
	quotas   *MockQuotaRepo
	engine   *MockPublishUsecase
	notifier *MockNotifier
	audit    *MockAuditRepo
	uc       usecase.IPostUsecase
}

func newControllerFixture() *controllerFixture {
	f := &controllerFixture{
		posts:    new(MockPostRepo),
		conns:    new(MockConnectionRepo),
		quotas:   new(MockQuotaRepo),
		engine:   new(MockPublishUsecase),
		notifier: new(MockNotifier),
		audit:    new(MockAuditRepo),
	}
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.uc = usecase.NewPostUsecase(f.posts, f.conns, f.quotas, f.engine, f.notifier, f.audit,
		usecase.PostUsecaseConfig{MaxRetries: maxRetries, QuotaThreshold: 0.8})
	return f
}

func generatedPost(retries int) *model.Post {
	return &model.Post{
		ID:           "post-1",
		UserID:       "user-1",
		ConnectionID: "conn-1",
		Title:        "Hello",
		Content:      "Body",
		Visibility:   model.VisibilityPublic,
		Status:       model.PostStatusGenerated,
		RetryCount:   retries,
	}
}

func roomyQuota() *model.UsageQuota {
	return &model.UsageQuota{UserID: "user-1", UsageCount: 1, MonthlyLimit: 100}
}

func eventOfType(kind string) interface{} {
	return mock.MatchedBy(func(e model.Event) bool { return e.Type == kind })
}

func TestPublishAndUpdate_QuotaExhausted(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(&model.UsageQuota{UsageCount: 10, MonthlyLimit: 10}, nil)

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	assert.Equal(t, model.ErrorKindQuota, out.Kind)
	f.posts.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	f.posts.AssertNotCalled(t, "MarkPublishing", mock.Anything, mock.Anything, mock.Anything)
	f.engine.AssertNotCalled(t, "PublishPost", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishAndUpdate_UnlimitedPlanIgnoresCount(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(&model.UsageQuota{UsageCount: 500, MonthlyLimit: 10, Unlimited: true}, nil)
	f.quotas.On("Increment", mock.Anything, "user-1", "post-1").Return(&model.UsageQuota{UsageCount: 501, MonthlyLimit: 10, Unlimited: true}, true, nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).Return(model.PublishSucceeded("9", "https://x/9", 0))
	f.posts.On("MarkPublished", mock.Anything, "user-1", "post-1", "https://x/9", "9", mock.AnythingOfType("time.Time")).Return(nil)
	f.notifier.On("Notify", mock.Anything, eventOfType(model.EventPublishSucceeded)).Return(nil).Once()

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.True(t, out.Success)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestPublishAndUpdate_AlreadyPublished(t *testing.T) {
	f := newControllerFixture()
	post := generatedPost(0)
	post.Status = model.PostStatusPublished
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(post, nil)

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	assert.Equal(t, "already published", out.Error)
	f.posts.AssertNotCalled(t, "MarkPublishing", mock.Anything, mock.Anything, mock.Anything)
	f.quotas.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishAndUpdate_PostNotFound(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(nil, model.ErrPostNotFound)

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.Equal(t, model.ErrorKindNotFound, out.Kind)
}

func TestPublishAndUpdate_LostPublishingRace(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(false, nil)

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	f.engine.AssertNotCalled(t, "PublishPost", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishAndUpdate_Success(t *testing.T) {
	f := newControllerFixture()
	post := generatedPost(1)
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(post, nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil).Once()
	res := model.PublishSucceeded("42", "https://blog.example.com/42", 1)
	res.Platform = model.PlatformTistory
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", post.PublishParams()).Return(res).Once()
	f.posts.On("MarkPublished", mock.Anything, "user-1", "post-1", "https://blog.example.com/42", "42", *res.PublishedAt).Return(nil).Once()
	f.quotas.On("Increment", mock.Anything, "user-1", "post-1").Return(&model.UsageQuota{UsageCount: 2, MonthlyLimit: 100}, true, nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e model.Event) bool {
		return e.Type == model.EventPublishSucceeded && e.PostURL == "https://blog.example.com/42" && e.Platform == model.PlatformTistory
	})).Return(nil).Once()

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	require.True(t, out.Success)
	assert.Equal(t, "https://blog.example.com/42", out.PostURL)
	f.posts.AssertExpectations(t)
	f.quotas.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.audit.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(a *model.PublishAudit) bool {
		return a.PostID == "post-1" && a.Success && a.Retries == 1
	}))
	f.posts.AssertNotCalled(t, "MarkAttemptFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishAndUpdate_QuotaIncrementFailureStillSucceeds(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).Return(model.PublishSucceeded("42", "https://b/42", 0))
	f.posts.On("MarkPublished", mock.Anything, "user-1", "post-1", "https://b/42", "42", mock.AnythingOfType("time.Time")).Return(nil)
	f.quotas.On("Increment", mock.Anything, "user-1", "post-1").Return(nil, false, errors.New("deadlock detected"))
	f.notifier.On("Notify", mock.Anything, eventOfType(model.EventPublishSucceeded)).Return(nil)

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.True(t, out.Success)
	assert.Empty(t, out.Error)
}

func TestPublishAndUpdate_NotificationFailureIgnored(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).Return(model.PublishSucceeded("42", "https://b/42", 0))
	f.posts.On("MarkPublished", mock.Anything, "user-1", "post-1", "https://b/42", "42", mock.AnythingOfType("time.Time")).Return(nil)
	f.quotas.On("Increment", mock.Anything, "user-1", "post-1").Return(roomyQuota(), true, nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("webhook down"))

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.True(t, out.Success)
}

func TestPublishAndUpdate_QuotaThresholdEvent(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(&model.UsageQuota{UsageCount: 7, MonthlyLimit: 10}, nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).Return(model.PublishSucceeded("42", "https://b/42", 0))
	f.posts.On("MarkPublished", mock.Anything, "user-1", "post-1", "https://b/42", "42", mock.AnythingOfType("time.Time")).Return(nil)
	f.quotas.On("Increment", mock.Anything, "user-1", "post-1").Return(&model.UsageQuota{UsageCount: 8, MonthlyLimit: 10}, true, nil)
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e model.Event) bool {
		return e.Type == model.EventQuotaThreshold && e.UsageCount == 8 && e.Limit == 10
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, eventOfType(model.EventPublishSucceeded)).Return(nil).Once()

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.True(t, out.Success)
	f.notifier.AssertExpectations(t)
}

func TestPublishAndUpdate_FailureBelowMaxReturnsToGenerated(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).
		Return(model.PublishResult{Kind: model.ErrorKindTransient, Error: "tistory: status 503"})
	f.posts.On("MarkAttemptFailed", mock.Anything, "user-1", "post-1", model.PostStatusGenerated, 1, "tistory: status 503").Return(nil).Once()

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	assert.Equal(t, "tistory: status 503", out.Error)
	f.posts.AssertExpectations(t)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	f.quotas.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishAndUpdate_FinalFailureMarksFailedAndNotifiesOnce(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(maxRetries-1), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).
		Return(model.PublishResult{Kind: model.ErrorKindPermanent, Error: "wordpress: rest_forbidden", Platform: model.PlatformWordPress})
	f.posts.On("MarkAttemptFailed", mock.Anything, "user-1", "post-1", model.PostStatusFailed, maxRetries, "wordpress: rest_forbidden").Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e model.Event) bool {
		return e.Type == model.EventPublishFailed && e.PostID == "post-1" && e.Error == "wordpress: rest_forbidden"
	})).Return(nil).Once()

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	assert.Equal(t, model.ErrorKindPermanent, out.Kind)
	f.posts.AssertExpectations(t)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestPublishAndUpdate_RecoversFromPanic(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("nil map write") }).
		Return(model.PublishResult{})

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	assert.Equal(t, model.ErrorKindInternal, out.Kind)
	assert.Contains(t, out.Error, "nil map write")
}

func TestPublishAndUpdate_QuotaLookupError(t *testing.T) {
	f := newControllerFixture()
	f.quotas.On("Get", mock.Anything, "user-1").Return(nil, errors.New("too many connections"))

	out := f.uc.PublishAndUpdate(context.Background(), "user-1", "post-1")

	assert.Equal(t, model.ErrorKindInternal, out.Kind)
	assert.Contains(t, out.Error, "too many connections")
}

func TestRetryFailedPost_RejectsNonFailed(t *testing.T) {
	f := newControllerFixture()
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(1), nil)

	out := f.uc.RetryFailedPost(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	assert.Equal(t, model.ErrNotFailed.Error(), out.Error)
	f.posts.AssertNotCalled(t, "ResetFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetryFailedPost_ResetsAndPublishes(t *testing.T) {
	f := newControllerFixture()
	failed := generatedPost(maxRetries)
	failed.Status = model.PostStatusFailed
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(failed, nil).Once()
	f.posts.On("ResetFailed", mock.Anything, "user-1", "post-1").Return(true, nil).Once()
	f.quotas.On("Get", mock.Anything, "user-1").Return(roomyQuota(), nil)
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil).Once()
	f.posts.On("MarkPublishing", mock.Anything, "user-1", "post-1").Return(true, nil)
	f.engine.On("PublishPost", mock.Anything, "user-1", "conn-1", mock.Anything).
		Return(model.PublishResult{Kind: model.ErrorKindTransient, Error: "timeout"})
	f.posts.On("MarkAttemptFailed", mock.Anything, "user-1", "post-1", model.PostStatusGenerated, 1, "timeout").Return(nil).Once()

	out := f.uc.RetryFailedPost(context.Background(), "user-1", "post-1")

	assert.False(t, out.Success)
	f.posts.AssertExpectations(t)
}

func TestCreatePost(t *testing.T) {
	f := newControllerFixture()
	f.conns.On("GetByID", mock.Anything, "user-1", "conn-1").Return(wpConn(), nil)
	f.posts.On("Create", mock.Anything, mock.AnythingOfType("*model.Post")).Return(nil)
	at := time.Date(2026, 11, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))

	post, err := f.uc.CreatePost(context.Background(), "user-1", dto.CreatePostRequest{
		ConnectionID: "conn-1",
		Title:        "Hello",
		Content:      "Body",
		Visibility:   "Private",
		ScheduledAt:  &at,
	})

	require.NoError(t, err)
	assert.Equal(t, model.PostStatusScheduled, post.Status)
	assert.Equal(t, model.VisibilityPrivate, post.Visibility)
	assert.Equal(t, time.UTC, post.ScheduledAt.Location())
	assert.True(t, post.ScheduledAt.Equal(at))
}

func TestCreatePost_Rejects(t *testing.T) {
	f := newControllerFixture()
	_, err := f.uc.CreatePost(context.Background(), "user-1", dto.CreatePostRequest{ConnectionID: "conn-1", Visibility: "friends"})
	assert.ErrorIs(t, err, model.ErrInvalidVisibility)

	inactive := wpConn()
	inactive.IsActive = false
	f.conns.On("GetByID", mock.Anything, "user-1", "conn-1").Return(inactive, nil)
	_, err = f.uc.CreatePost(context.Background(), "user-1", dto.CreatePostRequest{ConnectionID: "conn-1"})
	assert.ErrorIs(t, err, model.ErrConnectionNotFound)
	f.posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdatePublishedPost(t *testing.T) {
	f := newControllerFixture()
	post := generatedPost(0)
	post.Status = model.PostStatusPublished
	ext := "42"
	url := "https://b/42"
	post.ExternalPostID, post.PublishedURL = &ext, &url
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(post, nil)
	f.engine.On("UpdatePost", mock.Anything, "user-1", "conn-1", "42", mock.MatchedBy(func(p model.PublishParams) bool {
		return p.Title == "New title" && p.Content == "Body"
	})).Return(model.PublishSucceeded("42", "", 0)).Once()

	out := f.uc.UpdatePublishedPost(context.Background(), "user-1", "post-1", dto.UpdateRemotePostRequest{Title: "New title"})

	require.True(t, out.Success)
	assert.Equal(t, "https://b/42", out.PostURL)
	f.engine.AssertExpectations(t)
	f.quotas.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePublishedPost_NotPublished(t *testing.T) {
	f := newControllerFixture()
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)

	out := f.uc.UpdatePublishedPost(context.Background(), "user-1", "post-1", dto.UpdateRemotePostRequest{})

	assert.Equal(t, model.ErrNotPublished.Error(), out.Error)
}

func TestHistory(t *testing.T) {
	f := newControllerFixture()
	f.posts.On("GetByID", mock.Anything, "user-1", "post-1").Return(generatedPost(0), nil)
	f.audit.On("History", mock.Anything, "post-1", int64(50)).Return([]model.PublishAudit{{PostID: "post-1"}}, nil)

	got, err := f.uc.History(context.Background(), "user-1", "post-1")

	require.NoError(t, err)
	assert.Len(t, got, 1)
}
