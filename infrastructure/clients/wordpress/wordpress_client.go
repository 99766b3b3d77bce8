// Package wordpress publishes through the WordPress REST API using an
// application password over Basic auth.
package wordpress

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/clients/platform"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/markup"

	"github.com/go-resty/resty/v2"
)

const apiPrefix = "/wp-json/wp/v2"

type postBody struct {
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Status     string  `json:"status"`
	Categories []int64 `json:"categories,omitempty"`
}

type wpPost struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

type wpTag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type wpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Client struct {
	http   *resty.Client
	runner *platform.Runner
}

func NewClient(timeout time.Duration, runner *platform.Runner) *Client {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("Accept", "application/json")
	return &Client{http: c, runner: runner}
}

func (c *Client) Platform() string { return model.PlatformWordPress }

func (c *Client) Publish(ctx context.Context, params model.PublishParams, creds model.Credentials) model.PublishResult {
	return c.save(ctx, "", params, creds)
}

func (c *Client) Update(ctx context.Context, postID string, params model.PublishParams, creds model.Credentials) model.PublishResult {
	if postID == "" {
		return model.PublishFailed(model.ErrorKindConfiguration, "%s: missing post id for update", model.PlatformWordPress)
	}
	return c.save(ctx, postID, params, creds)
}

// VerifyCredentials checks an application password against /users/me.
func (c *Client) VerifyCredentials(ctx context.Context, creds model.Credentials) error {
	if res, ok := validate(creds); !ok {
		return fmt.Errorf("%s", res.Error)
	}
	var apiErr wpError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.Username, creds.AccessToken).
		SetError(&apiErr).
		Get(apiBase(creds.BlogURL) + "/users/me")
	if err != nil {
		return fmt.Errorf("wordpress: verify credentials: %w", err)
	}
	if resp.IsError() {
		return &platform.CallError{Status: resp.StatusCode(), Message: message(apiErr, resp)}
	}
	return nil
}

func (c *Client) save(ctx context.Context, postID string, params model.PublishParams, creds model.Credentials) model.PublishResult {
	if res, ok := validate(creds); !ok {
		return res
	}
	body := postBody{
		Title:   params.Title,
		Content: markup.ToHTML(params.Content),
		Status:  status(params.Visibility),
	}
	if id, err := strconv.ParseInt(params.Category, 10, 64); err == nil && id > 0 {
		body.Categories = []int64{id}
	}
	endpoint := apiBase(creds.BlogURL) + "/posts"
	if postID != "" {
		endpoint += "/" + url.PathEscape(postID)
	}

	var saved wpPost
	retries, err := c.runner.Do(ctx, func(ctx context.Context) error {
		var apiErr wpError
		resp, err := c.http.R().
			SetContext(ctx).
			SetBasicAuth(creds.Username, creds.AccessToken).
			SetBody(body).
			SetResult(&saved).
			SetError(&apiErr).
			Post(endpoint)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return &platform.CallError{Status: resp.StatusCode(), Message: message(apiErr, resp)}
		}
		return nil
	})
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": model.PlatformWordPress,
			"blog_url": creds.BlogURL,
			"retries":  retries,
			"error":    err.Error(),
		}).Error("wordpress publish failed")
		return platform.Result(model.PlatformWordPress, retries, err)
	}

	id := strconv.FormatInt(saved.ID, 10)
	if len(params.Tags) > 0 {
		c.attachTags(ctx, id, params.Tags, creds)
	}
	link := saved.Link
	if link == "" {
		link = strings.TrimRight(creds.BlogURL, "/") + "/?p=" + id
	}
	return model.PublishSucceeded(id, link, retries)
}

// attachTags resolves or creates each tag and sets them on the post. It is
// best-effort: failures are logged and never fail the publish.
func (c *Client) attachTags(ctx context.Context, postID string, tags []string, creds model.Credentials) {
	lg := logger.GetLogger().WithField("platform", model.PlatformWordPress).WithField("post_id", postID)
	ids := make([]int64, 0, len(tags))
	for _, name := range tags {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := c.tagID(ctx, name, creds)
		if err != nil {
			lg.WithField("tag", name).WithField("error", err.Error()).Warn("wordpress tag lookup failed")
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	var apiErr wpError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.Username, creds.AccessToken).
		SetBody(map[string]interface{}{"tags": ids}).
		SetError(&apiErr).
		Post(apiBase(creds.BlogURL) + "/posts/" + url.PathEscape(postID))
	if err != nil {
		lg.WithField("error", err.Error()).Warn("wordpress tag attachment failed")
		return
	}
	if resp.IsError() {
		lg.WithField("status", resp.StatusCode()).WithField("error", message(apiErr, resp)).Warn("wordpress tag attachment rejected")
	}
}

func (c *Client) tagID(ctx context.Context, name string, creds model.Credentials) (int64, error) {
	var found []wpTag
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.Username, creds.AccessToken).
		SetQueryParam("search", name).
		SetResult(&found).
		Get(apiBase(creds.BlogURL) + "/tags")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, &platform.CallError{Status: resp.StatusCode(), Message: resp.Status()}
	}
	for _, t := range found {
		if strings.EqualFold(t.Name, name) {
			return t.ID, nil
		}
	}

	var created wpTag
	var apiErr wpError
	resp, err = c.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.Username, creds.AccessToken).
		SetBody(map[string]string{"name": name}).
		SetResult(&created).
		SetError(&apiErr).
		Post(apiBase(creds.BlogURL) + "/tags")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, &platform.CallError{Status: resp.StatusCode(), Message: message(apiErr, resp)}
	}
	return created.ID, nil
}

func validate(creds model.Credentials) (model.PublishResult, bool) {
	var missing []string
	if creds.BlogURL == "" {
		missing = append(missing, "blog_url")
	}
	if creds.Username == "" {
		missing = append(missing, "username")
	}
	if creds.AccessToken == "" {
		missing = append(missing, "application_password")
	}
	if len(missing) > 0 {
		return platform.MissingCredentials(model.PlatformWordPress, missing...), false
	}
	return model.PublishResult{}, true
}

func apiBase(blogURL string) string {
	return strings.TrimRight(blogURL, "/") + apiPrefix
}

func status(v model.Visibility) string {
	switch v {
	case model.VisibilityPrivate:
		return "private"
	case model.VisibilityDraft:
		return "draft"
	default:
		return "publish"
	}
}

func message(apiErr wpError, resp *resty.Response) string {
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return resp.Status()
}
