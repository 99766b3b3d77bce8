// Package blogger publishes through the Blogger v3 API with a bearer token
// resolved by the token lifecycle manager.
package blogger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/clients/platform"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/markup"

	"golang.org/x/oauth2"
	bloggerapi "google.golang.org/api/blogger/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type Client struct {
	endpoint string
	timeout  time.Duration
	runner   *platform.Runner
}

// NewClient builds the adapter. An empty endpoint uses the public API.
func NewClient(endpoint string, timeout time.Duration, runner *platform.Runner) *Client {
	return &Client{endpoint: endpoint, timeout: timeout, runner: runner}
}

func (c *Client) Platform() string { return model.PlatformBlogger }

func (c *Client) Publish(ctx context.Context, params model.PublishParams, creds model.Credentials) model.PublishResult {
	if res, ok := validate(creds); !ok {
		return res
	}
	svc, err := c.service(ctx, creds.AccessToken)
	if err != nil {
		return model.PublishFailed(model.ErrorKindInternal, "%s: %v", model.PlatformBlogger, err)
	}

	post := toPost(params)
	draft := params.Visibility == model.VisibilityDraft || params.Visibility == model.VisibilityPrivate
	var created *bloggerapi.Post
	retries, err := c.runner.Do(ctx, func(ctx context.Context) error {
		var callErr error
		created, callErr = svc.Posts.Insert(creds.ExternalBlogID, post).IsDraft(draft).Context(ctx).Do()
		return translate(callErr)
	})
	if err != nil {
		logFailure(creds, retries, err)
		return platform.Result(model.PlatformBlogger, retries, err)
	}
	return model.PublishSucceeded(created.Id, created.Url, retries)
}

func (c *Client) Update(ctx context.Context, postID string, params model.PublishParams, creds model.Credentials) model.PublishResult {
	if res, ok := validate(creds); !ok {
		return res
	}
	if postID == "" {
		return model.PublishFailed(model.ErrorKindConfiguration, "%s: missing post id for update", model.PlatformBlogger)
	}
	svc, err := c.service(ctx, creds.AccessToken)
	if err != nil {
		return model.PublishFailed(model.ErrorKindInternal, "%s: %v", model.PlatformBlogger, err)
	}

	post := toPost(params)
	post.Id = postID
	var updated *bloggerapi.Post
	retries, err := c.runner.Do(ctx, func(ctx context.Context) error {
		var callErr error
		updated, callErr = svc.Posts.Update(creds.ExternalBlogID, postID, post).Context(ctx).Do()
		return translate(callErr)
	})
	if err != nil {
		logFailure(creds, retries, err)
		return platform.Result(model.PlatformBlogger, retries, err)
	}
	return model.PublishSucceeded(updated.Id, updated.Url, retries)
}

func (c *Client) service(ctx context.Context, accessToken string) (*bloggerapi.Service, error) {
	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   http.DefaultTransport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	svc, err := bloggerapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create blogger service: %w", err)
	}
	return svc, nil
}

func validate(creds model.Credentials) (model.PublishResult, bool) {
	var missing []string
	if creds.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if creds.ExternalBlogID == "" {
		missing = append(missing, "blog_id")
	}
	if len(missing) > 0 {
		return platform.MissingCredentials(model.PlatformBlogger, missing...), false
	}
	return model.PublishResult{}, true
}

func toPost(params model.PublishParams) *bloggerapi.Post {
	labels := append([]string(nil), params.Tags...)
	if params.Category != "" {
		labels = append(labels, params.Category)
	}
	return &bloggerapi.Post{
		Kind:    "blogger#post",
		Title:   params.Title,
		Content: markup.ToHTML(params.Content),
		Labels:  labels,
	}
}

// translate keeps the API's status and message so the runner can classify it.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &platform.CallError{Status: gerr.Code, Message: msg}
	}
	return err
}

func logFailure(creds model.Credentials, retries int, err error) {
	logger.GetLogger().WithFields(map[string]interface{}{
		"platform": model.PlatformBlogger,
		"blog_id":  creds.ExternalBlogID,
		"retries":  retries,
		"error":    err.Error(),
	}).Error("blogger publish failed")
}

// PrimaryBlog returns the first blog owned by the token's account.
func (c *Client) PrimaryBlog(ctx context.Context, accessToken string) (*model.Blog, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	list, err := svc.Blogs.ListByUser("self").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list blogger blogs: %w", translate(err))
	}
	if len(list.Items) == 0 {
		return nil, errors.New("blogger account has no blogs")
	}
	return &model.Blog{ID: list.Items[0].Id, URL: list.Items[0].Url}, nil
}
