package usecase_test

import (
	"context"
	"time"

	"blog-publisher/domain/dto"
	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"

	"github.com/stretchr/testify/mock"
)

type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) Create(ctx context.Context, conn *model.Connection) error {
	args := m.Called(ctx, conn)
	if conn.ID == "" {
		conn.ID = "conn-new"
	}
	conn.IsActive = true
	return args.Error(0)
}

func (m *MockConnectionRepo) GetByID(ctx context.Context, userID, connectionID string) (*model.Connection, error) {
	args := m.Called(ctx, userID, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *MockConnectionRepo) ListActive(ctx context.Context, userID string) ([]*model.Connection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Connection), args.Error(1)
}

func (m *MockConnectionRepo) UpdateToken(ctx context.Context, connectionID, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	args := m.Called(ctx, connectionID, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

func (m *MockConnectionRepo) Deactivate(ctx context.Context, userID, connectionID string) error {
	args := m.Called(ctx, userID, connectionID)
	return args.Error(0)
}

type MockRefresher struct {
	mock.Mock
}

func (m *MockRefresher) Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

type MockTokenUsecase struct {
	mock.Mock
}

func (m *MockTokenUsecase) EnsureValidToken(ctx context.Context, userID, connectionID string) (string, error) {
	args := m.Called(ctx, userID, connectionID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenUsecase) ValidToken(ctx context.Context, conn *model.Connection) (string, error) {
	args := m.Called(ctx, conn)
	return args.String(0), args.Error(1)
}

type MockPlatform struct {
	mock.Mock
	tag string
}

func (m *MockPlatform) Platform() string { return m.tag }

func (m *MockPlatform) Publish(ctx context.Context, params model.PublishParams, creds model.Credentials) model.PublishResult {
	args := m.Called(ctx, params, creds)
	return args.Get(0).(model.PublishResult)
}

func (m *MockPlatform) Update(ctx context.Context, externalPostID string, params model.PublishParams, creds model.Credentials) model.PublishResult {
	args := m.Called(ctx, externalPostID, params, creds)
	return args.Get(0).(model.PublishResult)
}

type MockPostRepo struct {
	mock.Mock
}

func (m *MockPostRepo) Create(ctx context.Context, post *model.Post) error {
	args := m.Called(ctx, post)
	if post.ID == "" {
		post.ID = "post-new"
	}
	return args.Error(0)
}

func (m *MockPostRepo) GetByID(ctx context.Context, userID, postID string) (*model.Post, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostRepo) MarkPublishing(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepo) MarkPublished(ctx context.Context, userID, postID, publishedURL, externalPostID string, publishedAt time.Time) error {
	args := m.Called(ctx, userID, postID, publishedURL, externalPostID, publishedAt)
	return args.Error(0)
}

func (m *MockPostRepo) MarkAttemptFailed(ctx context.Context, userID, postID string, status model.PostStatus, retryCount int, errMsg string) error {
	args := m.Called(ctx, userID, postID, status, retryCount, errMsg)
	return args.Error(0)
}

func (m *MockPostRepo) ResetFailed(ctx context.Context, userID, postID string) (bool, error) {
	args := m.Called(ctx, userID, postID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepo) FindDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*model.Post, error) {
	args := m.Called(ctx, now, maxRetries, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Post), args.Error(1)
}

type MockQuotaRepo struct {
	mock.Mock
}

func (m *MockQuotaRepo) Get(ctx context.Context, userID string) (*model.UsageQuota, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UsageQuota), args.Error(1)
}

func (m *MockQuotaRepo) Increment(ctx context.Context, userID, postID string) (*model.UsageQuota, bool, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.UsageQuota), args.Bool(1), args.Error(2)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Record(ctx context.Context, audit *model.PublishAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

func (m *MockAuditRepo) History(ctx context.Context, postID string, limit int64) ([]model.PublishAudit, error) {
	args := m.Called(ctx, postID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublishAudit), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, evt model.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

type MockPublishUsecase struct {
	mock.Mock
}

func (m *MockPublishUsecase) PublishPost(ctx context.Context, userID, connectionID string, params model.PublishParams) model.PublishResult {
	args := m.Called(ctx, userID, connectionID, params)
	return args.Get(0).(model.PublishResult)
}

func (m *MockPublishUsecase) UpdatePost(ctx context.Context, userID, connectionID, externalPostID string, params model.PublishParams) model.PublishResult {
	args := m.Called(ctx, userID, connectionID, externalPostID, params)
	return args.Get(0).(model.PublishResult)
}

type MockPostUsecase struct {
	mock.Mock
}

func (m *MockPostUsecase) CreatePost(ctx context.Context, userID string, req dto.CreatePostRequest) (*model.Post, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostUsecase) GetPost(ctx context.Context, userID, postID string) (*model.Post, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostUsecase) History(ctx context.Context, userID, postID string) ([]model.PublishAudit, error) {
	args := m.Called(ctx, userID, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PublishAudit), args.Error(1)
}

func (m *MockPostUsecase) PublishAndUpdate(ctx context.Context, userID, postID string) model.Outcome {
	args := m.Called(ctx, userID, postID)
	return args.Get(0).(model.Outcome)
}

func (m *MockPostUsecase) RetryFailedPost(ctx context.Context, userID, postID string) model.Outcome {
	args := m.Called(ctx, userID, postID)
	return args.Get(0).(model.Outcome)
}

func (m *MockPostUsecase) UpdatePublishedPost(ctx context.Context, userID, postID string, req dto.UpdateRemotePostRequest) model.Outcome {
	args := m.Called(ctx, userID, postID, req)
	return args.Get(0).(model.Outcome)
}

type MockSweepLock struct {
	mock.Mock
	released int
}

func (m *MockSweepLock) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, ttl)
	return func() { m.released++ }, args.Bool(0), args.Error(1)
}

type MockOAuthState struct {
	mock.Mock
}

func (m *MockOAuthState) Save(ctx context.Context, state, userID string, ttl time.Duration) error {
	args := m.Called(ctx, state, userID, ttl)
	return args.Error(0)
}

func (m *MockOAuthState) Consume(ctx context.Context, state string) (string, error) {
	args := m.Called(ctx, state)
	return args.String(0), args.Error(1)
}

type MockOAuthProvider struct {
	mock.Mock
}

func (m *MockOAuthProvider) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockOAuthProvider) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockOAuthProvider) Exchange(ctx context.Context, code string) (*model.TokenGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TokenGrant), args.Error(1)
}

type MockBlogDirectory struct {
	mock.Mock
}

func (m *MockBlogDirectory) PrimaryBlog(ctx context.Context, accessToken string) (*model.Blog, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Blog), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyCredentials(ctx context.Context, creds model.Credentials) error {
	return m.Called(ctx, creds).Error(0)
}

var (
	_ repository.IConnection         = (*MockConnectionRepo)(nil)
	_ repository.IPost               = (*MockPostRepo)(nil)
	_ repository.IUsageQuota         = (*MockQuotaRepo)(nil)
	_ repository.IPublishAudit       = (*MockAuditRepo)(nil)
	_ repository.INotifier           = (*MockNotifier)(nil)
	_ repository.ISweepLock          = (*MockSweepLock)(nil)
	_ repository.IOAuthState         = (*MockOAuthState)(nil)
	_ repository.IOAuthProvider      = (*MockOAuthProvider)(nil)
	_ repository.IBlogDirectory      = (*MockBlogDirectory)(nil)
	_ repository.ICredentialVerifier = (*MockVerifier)(nil)
	_ repository.IBlogPlatform       = (*MockPlatform)(nil)
)
