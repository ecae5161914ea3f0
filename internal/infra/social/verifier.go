// Package social checks that a public post on X or Moltbook contains a signup
// verification code.
package social

import (
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

	"moltoverflow/internal/domain"
)

const (
	DefaultXOEmbedURL     = "https://publish.twitter.com/oembed"
	DefaultMoltbookAPIURL = "https://www.moltbook.com/api/v1"

	maxAttempts       = 3
	attemptTimeout    = 10 * time.Second
	defaultRetryAfter = 30 * time.Second
	maxBodyBytes      = 1 << 20
)

var backoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

var errPostNotFound = errors.New("post not found")

type retryableError struct {
	status     int
	retryAfter time.Duration
	err        error
}

func (e *retryableError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("upstream status %d", e.status)
}

type Verifier struct {
	xOEmbedURL     string
	moltbookAPIURL string
	moltbookAPIKey string
	httpClient     *http.Client
	now            func() time.Time
	sleep          func(ctx context.Context, d time.Duration) error
}

func New(xOEmbedURL, moltbookAPIURL, moltbookAPIKey string) *Verifier {
	if xOEmbedURL == "" {
		xOEmbedURL = DefaultXOEmbedURL
	}
	if moltbookAPIURL == "" {
		moltbookAPIURL = DefaultMoltbookAPIURL
	}
	return &Verifier{
		xOEmbedURL:     xOEmbedURL,
		moltbookAPIURL: strings.TrimRight(moltbookAPIURL, "/"),
		moltbookAPIKey: moltbookAPIKey,
		httpClient:     &http.Client{},
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// Verify never runs past deadline: attempts are cut to the remaining budget
// and a backoff that would cross it ends the check as timeout_approaching.
func (v *Verifier) Verify(ctx context.Context, platform domain.Platform, postURL, code string, deadline time.Time) domain.SocialVerification {
	fetch, err := v.fetcher(platform, postURL)
	if err != nil {
		return domain.SocialVerification{Failure: domain.SocialInvalidURL, Message: err.Error()}
	}
	code = strings.TrimSpace(code)

	var last *retryableError
	for attempt := 0; attempt < maxAttempts; attempt++ {
		remaining := deadline.Sub(v.now())
		if remaining <= 0 {
			return timeoutApproaching()
		}
		timeout := attemptTimeout
		if remaining < timeout {
			timeout = remaining
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		content, err := fetch(attemptCtx)
		cancel()

		switch {
		case err == nil:
			if strings.Contains(content, code) {
				return domain.SocialVerification{Verified: true}
			}
			return domain.SocialVerification{
				Failure: domain.SocialCodeNotFound,
				Message: "the post does not contain the verification code",
			}
		case errors.Is(err, errPostNotFound):
			return domain.SocialVerification{Failure: domain.SocialPostNotFound, Message: "post not found or not public"}
		}
		if ctx.Err() != nil {
			return timeoutApproaching()
		}
		if !errors.As(err, &last) {
			last = &retryableError{err: err}
		}
		if attempt == maxAttempts-1 {
			break
		}
		wait := backoff[attempt]
		if !v.now().Add(wait).Before(deadline) {
			return timeoutApproaching()
		}
		if err := v.sleep(ctx, wait); err != nil {
			return timeoutApproaching()
		}
	}

	retryAfter := defaultRetryAfter
	if last != nil && last.retryAfter > 0 {
		retryAfter = last.retryAfter
	}
	return domain.SocialVerification{
		Failure:    domain.SocialServiceUnavailable,
		Message:    "social platform did not respond",
		RetryAfter: retryAfter,
	}
}

func timeoutApproaching() domain.SocialVerification {
	return domain.SocialVerification{Failure: domain.SocialTimeoutApproaching, Message: "verification budget exhausted"}
}

func (v *Verifier) fetcher(platform domain.Platform, postURL string) (func(context.Context) (string, error), error) {
	switch platform {
	case domain.PlatformX:
		return func(ctx context.Context) (string, error) { return v.fetchX(ctx, postURL) }, nil
	case domain.PlatformMoltbook:
		id, err := moltbookPostID(postURL)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (string, error) { return v.fetchMoltbook(ctx, id) }, nil
	}
	return nil, fmt.Errorf("unsupported platform %q", platform)
}

func (v *Verifier) fetchX(ctx context.Context, postURL string) (string, error) {
	endpoint := v.xOEmbedURL + "?omit_script=true&url=" + url.QueryEscape(postURL)
	body, err := v.get(ctx, endpoint, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		HTML string `json:"html"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &retryableError{err: fmt.Errorf("decode oembed: %w", err)}
	}
	return resp.HTML, nil
}

func (v *Verifier) fetchMoltbook(ctx context.Context, id string) (string, error) {
	headers := map[string]string{}
	if v.moltbookAPIKey != "" {
		headers["Authorization"] = "Bearer " + v.moltbookAPIKey
	}
	body, err := v.get(ctx, v.moltbookAPIURL+"/posts/"+url.PathEscape(id), headers)
	if err != nil {
		return "", err
	}
	type moltbookPost struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	var resp struct {
		moltbookPost
		Post *moltbookPost `json:"post"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &retryableError{err: fmt.Errorf("decode moltbook post: %w", err)}
	}
	post := resp.moltbookPost
	if resp.Post != nil {
		post = *resp.Post
	}
	return post.Title + "\n" + post.Content, nil
}

func (v *Verifier) get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, val := range headers {
		req.Header.Set(k, val)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errPostNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{status: resp.StatusCode, retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode != http.StatusOK:
		// oEmbed answers 403 for protected or deleted tweets.
		return nil, errPostNotFound
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &retryableError{err: err}
	}
	return body, nil
}

// moltbookPostID takes the last non-empty path segment of a post URL.
func moltbookPostID(postURL string) (string, error) {
	parsed, err := url.Parse(postURL)
	if err != nil {
		return "", errors.New("post URL is not a valid URL")
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 || segments[len(segments)-1] == "" {
		return "", errors.New("post URL has no post id")
	}
	return segments[len(segments)-1], nil
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
