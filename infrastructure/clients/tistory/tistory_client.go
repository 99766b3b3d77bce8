// Package tistory publishes to the token-keyed Tistory Open API. Requests are
// form-encoded with an access_token field and replies nest a string status
// under a "tistory" key.
package tistory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/infrastructure/clients/platform"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/markup"

	"github.com/go-resty/resty/v2"
	"github.com/google/go-querystring/query"
)

const (
	DefaultBaseURL = "https://www.tistory.com"

	writePath  = "/apis/post/write"
	modifyPath = "/apis/post/modify"
)

type postForm struct {
	AccessToken string `url:"access_token"`
	Output      string `url:"output"`
	BlogName    string `url:"blogName"`
	PostID      string `url:"postId,omitempty"`
	Title       string `url:"title"`
	Content     string `url:"content"`
	Visibility  int    `url:"visibility"`
	Category    string `url:"category,omitempty"`
	Tag         string `url:"tag,omitempty"`
}

type envelope struct {
	Tistory struct {
		Status       string `json:"status"`
		PostID       string `json:"postId"`
		URL          string `json:"url"`
		ErrorMessage string `json:"error_message"`
	} `json:"tistory"`
}

type Client struct {
	http    *resty.Client
	baseURL string
	runner  *platform.Runner
}

func NewClient(baseURL string, timeout time.Duration, runner *platform.Runner) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New()
	c.SetTimeout(timeout)
	return &Client{http: c, baseURL: strings.TrimRight(baseURL, "/"), runner: runner}
}

func (c *Client) Platform() string { return model.PlatformTistory }

func (c *Client) Publish(ctx context.Context, params model.PublishParams, creds model.Credentials) model.PublishResult {
	return c.send(ctx, writePath, "", params, creds)
}

func (c *Client) Update(ctx context.Context, postID string, params model.PublishParams, creds model.Credentials) model.PublishResult {
	if postID == "" {
		return model.PublishFailed(model.ErrorKindConfiguration, "%s: missing post id for update", model.PlatformTistory)
	}
	return c.send(ctx, modifyPath, postID, params, creds)
}

func (c *Client) send(ctx context.Context, path, postID string, params model.PublishParams, creds model.Credentials) model.PublishResult {
	var missing []string
	if creds.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if creds.ExternalBlogID == "" {
		missing = append(missing, "blog_name")
	}
	if len(missing) > 0 {
		return platform.MissingCredentials(model.PlatformTistory, missing...)
	}

	form, err := query.Values(postForm{
		AccessToken: creds.AccessToken,
		Output:      "json",
		BlogName:    creds.ExternalBlogID,
		PostID:      postID,
		Title:       params.Title,
		Content:     markup.ToHTML(params.Content),
		Visibility:  visibility(params.Visibility),
		Category:    params.Category,
		Tag:         strings.Join(params.Tags, ","),
	})
	if err != nil {
		return model.PublishFailed(model.ErrorKindInternal, "%s: encode form: %v", model.PlatformTistory, err)
	}

	var out envelope
	retries, err := c.runner.Do(ctx, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetFormDataFromValues(form).
			Post(c.baseURL + path)
		if err != nil {
			return err
		}
		out = envelope{}
		_ = json.Unmarshal(resp.Body(), &out)
		if resp.IsError() {
			return &platform.CallError{Status: resp.StatusCode(), Message: errorMessage(out, resp.Status())}
		}
		if out.Tistory.Status != "200" {
			return &platform.CallError{
				Status:   resp.StatusCode(),
				Message:  errorMessage(out, fmt.Sprintf("unexpected status %q", out.Tistory.Status)),
				Business: true,
			}
		}
		return nil
	})
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": model.PlatformTistory,
			"blog":     creds.ExternalBlogID,
			"retries":  retries,
			"error":    err.Error(),
		}).Error("tistory publish failed")
		return platform.Result(model.PlatformTistory, retries, err)
	}

	id := out.Tistory.PostID
	if id == "" {
		id = postID
	}
	postURL := out.Tistory.URL
	if postURL == "" {
		postURL = PostURL(creds.ExternalBlogID, id)
	}
	return model.PublishSucceeded(id, postURL, retries)
}

// PostURL is the canonical address of a post when the API omits it.
func PostURL(blogName, postID string) string {
	return fmt.Sprintf("https://%s.tistory.com/%s", blogName, postID)
}

// Tistory visibility codes: 0 private, 3 published.
func visibility(v model.Visibility) int {
	switch v {
	case model.VisibilityPrivate, model.VisibilityDraft:
		return 0
	default:
		return 3
	}
}

func errorMessage(out envelope, fallback string) string {
	if out.Tistory.ErrorMessage != "" {
		return out.Tistory.ErrorMessage
	}
	return fallback
}
