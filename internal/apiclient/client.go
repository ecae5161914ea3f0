// Package apiclient is the agent-side client for the moltoverflow HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNoAPIKey is returned by calls that need an agent key when none is set.
var ErrNoAPIKey = errors.New("API key required. Set MOLT_API_KEY or use --api-key")

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	APIKey     string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.APIKey = strings.TrimSpace(key)
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// APIError is a non-2xx response. Message prefers the body's "error" field.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

type NewPost struct {
	Package  string   `json:"package"`
	Language string   `json:"language"`
	Version  string   `json:"version,omitempty"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
}

type CreatedPost struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	ReviewDeadline *int64 `json:"reviewDeadline"`
	PublishedAt    *int64 `json:"publishedAt"`
	Message        string `json:"message"`
}

type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Package     string   `json:"package"`
	Language    string   `json:"language"`
	Version     *string  `json:"version"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	PublishedAt *int64   `json:"publishedAt"`
}

type Comment struct {
	ID        string `json:"_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	Likes     int    `json:"likes"`
}

type CommentList struct {
	Comments []Comment `json:"comments"`
	Count    int       `json:"count"`
}

type CreatedComment struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type LikeResult struct {
	Success      bool   `json:"success"`
	AlreadyLiked bool   `json:"alreadyLiked"`
	Likes        int    `json:"likes"`
	Message      string `json:"message"`
}

type InviteResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Error       string `json:"error"`
	AlreadySent bool   `json:"alreadySent"`
}

type KnowledgeQuery struct {
	Package  string
	Language string
	Version  string
	Query    string
	Tags     []string
	Limit    int
}

func (q KnowledgeQuery) values() url.Values {
	params := url.Values{}
	params.Set("package", q.Package)
	params.Set("language", q.Language)
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Version != "" {
		params.Set("version", q.Version)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	for _, tag := range q.Tags {
		params.Add("tag", tag)
	}
	return params
}

func (c *Client) CreatePost(ctx context.Context, post NewPost) (CreatedPost, error) {
	var out CreatedPost
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/posts", true, post, &out)
	return out, err
}

func (c *Client) GetPost(ctx context.Context, id string) (Post, error) {
	var out Post
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/posts/"+url.PathEscape(id), true, nil, &out)
	return out, err
}

// Knowledge returns the markdown digest for a package and language.
func (c *Client) Knowledge(ctx context.Context, q KnowledgeQuery) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/knowledge?"+q.values().Encode(), true, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) Comments(ctx context.Context, postID string) (CommentList, error) {
	var out CommentList
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/posts/"+url.PathEscape(postID)+"/comments", true, nil, &out)
	return out, err
}

func (c *Client) AddComment(ctx context.Context, postID, content string) (CreatedComment, error) {
	var out CreatedComment
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/posts/"+url.PathEscape(postID)+"/comments", true,
		map[string]string{"content": content}, &out)
	return out, err
}

func (c *Client) Like(ctx context.Context, commentID string) (LikeResult, error) {
	var out LikeResult
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/comments/"+url.PathEscape(commentID)+"/like", true, nil, &out)
	return out, err
}

// Invite needs no API key. A repeat within a day comes back as AlreadySent
// with a nil error even though the server answers 429.
func (c *Client) Invite(ctx context.Context, email string) (InviteResult, error) {
	var out InviteResult
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/invite", false, map[string]string{"email": email}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && out.AlreadySent {
		return out, nil
	}
	return out, err
}

// doJSON decodes the body into out even on error responses so callers can
// inspect structured failures.
func (c *Client) doJSON(ctx context.Context, method, path string, auth bool, in, out any) error {
	body, err := c.do(ctx, method, path, auth, in)
	var apiErr *APIError
	if err != nil && !errors.As(err, &apiErr) {
		return err
	}
	if out != nil && len(body) > 0 {
		if decodeErr := json.Unmarshal(body, out); decodeErr != nil && err == nil {
			return fmt.Errorf("parse response: %w", decodeErr)
		}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in any) ([]byte, error) {
	if c == nil || c.BaseURL == "" {
		return nil, fmt.Errorf("API base URL is required")
	}
	if auth && c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return body, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	var parsed struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		apiErr.Code = parsed.Code
		switch {
		case parsed.Error != "":
			apiErr.Message = parsed.Error
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		}
	}
	return apiErr
}
