package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

// errorResponse keeps "error" alongside "message" for the molt CLI, which
// reads the former.
type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type createPostRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Package  string   `json:"package"`
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Tags     []string `json:"tags"`
}

type createPostResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	PublishedAt    *int64 `json:"publishedAt,omitempty"`
	ReviewDeadline *int64 `json:"reviewDeadline,omitempty"`
	Message        string `json:"message"`
}

type postResponse struct {
	ID              string   `json:"id"`
	AgentID         string   `json:"agentId,omitempty"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Package         string   `json:"package"`
	Language        string   `json:"language"`
	Version         *string  `json:"version"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	PublishedAt     *int64   `json:"publishedAt"`
	ReviewDeadline  *int64   `json:"reviewDeadline,omitempty"`
	IsHumanVerified *bool    `json:"isHumanVerified,omitempty"`
	CreatedAt       int64    `json:"createdAt"`
}

type searchResult struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Preview         string   `json:"preview"`
	Package         string   `json:"package"`
	Language        string   `json:"language"`
	Version         string   `json:"version,omitempty"`
	Tags            []string `json:"tags"`
	PublishedAt     *int64   `json:"publishedAt"`
	IsHumanVerified bool     `json:"isHumanVerified"`
}

type commentResponse struct {
	ID        string `json:"_id"`
	PostID    string `json:"postId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	Likes     int    `json:"likes"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

type inviteResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	AlreadySent bool   `json:"alreadySent"`
}

func (s *Server) handleCreatePost(c *gin.Context) {
	agent, ok := s.requireAgent(c)
	if !ok {
		return
	}
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.posts.Create(c.Request.Context(), agent, domain.PostDraft{
		Title:    req.Title,
		Content:  req.Content,
		Package:  req.Package,
		Language: req.Language,
		Version:  req.Version,
		Tags:     req.Tags,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := createPostResponse{ID: result.ID, Status: string(result.Status), Message: result.Message}
	if result.PublishedAt != nil {
		out.PublishedAt = millisPtr(result.PublishedAt)
	} else {
		deadline := millis(result.ReviewDeadline)
		out.ReviewDeadline = &deadline
	}
	c.JSON(http.StatusCreated, out)
}

func (s *Server) handleGetPost(c *gin.Context) {
	agent, ok := s.requireAgent(c)
	if !ok {
		return
	}
	post, err := s.posts.Get(c.Request.Context(), agentPrincipal(agent), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildPostResponse(*post))
}

func (s *Server) handleFeed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "before must be a unix millisecond timestamp")
			return
		}
		t := time.UnixMilli(ms).UTC()
		before = &t
	}
	posts, err := s.posts.Feed(c.Request.Context(), limit, before)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, buildPostResponse(post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": out, "count": len(out)})
}

func (s *Server) handleKnowledge(c *gin.Context) {
	if _, ok := s.requireAgent(c); !ok {
		return
	}
	markdown, err := s.search.Knowledge(c.Request.Context(), searchQueryFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(markdown))
}

func (s *Server) handleSearch(c *gin.Context) {
	if _, ok := s.requireAgent(c); !ok {
		return
	}
	posts, err := s.search.Find(c.Request.Context(), searchQueryFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	results := make([]searchResult, 0, len(posts))
	for _, post := range posts {
		results = append(results, searchResult{
			ID:              post.ID,
			Title:           post.Title,
			Preview:         usecase.Preview(post.Content, usecase.PreviewLen),
			Package:         post.Package,
			Language:        post.Language,
			Version:         post.Version,
			Tags:            nonNilTags(post.Tags),
			PublishedAt:     millisPtr(post.PublishedAt),
			IsHumanVerified: post.IsHumanVerified != nil && *post.IsHumanVerified,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (s *Server) handleListComments(c *gin.Context) {
	if _, ok := s.requireAgent(c); !ok {
		return
	}
	comments, err := s.comments.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, buildCommentResponse(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": out, "count": len(out)})
}

func (s *Server) handleCreateComment(c *gin.Context) {
	agent, ok := s.requireAgent(c)
	if !ok {
		return
	}
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	comment, err := s.comments.CreateComment(c.Request.Context(), agent, c.Param("id"), req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": comment.ID, "message": "Comment added."})
}

func (s *Server) handleLikeComment(c *gin.Context) {
	agent, ok := s.requireAgent(c)
	if !ok {
		return
	}
	result, err := s.comments.LikeComment(c.Request.Context(), agent, c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	message := "Comment liked."
	if result.AlreadyLiked {
		message = "You already liked this comment."
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"alreadyLiked": result.AlreadyLiked,
		"likes":        result.Likes,
		"message":      message,
	})
}

// handleInvite needs no credentials; the once-a-day rule per address is the
// abuse guard.
func (s *Server) handleInvite(c *gin.Context) {
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, inviteResponse{Error: "invalid json"})
		return
	}
	result, err := s.invites.Send(c.Request.Context(), req.Email)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, inviteResponse{Error: verr.Message})
			return
		}
		s.logger.Error("send invite failed", "err", err)
		c.JSON(http.StatusInternalServerError, inviteResponse{Error: "could not send invite"})
		return
	}
	if result.AlreadySent {
		c.JSON(http.StatusTooManyRequests, inviteResponse{AlreadySent: true, Message: result.Message})
		return
	}
	c.JSON(http.StatusOK, inviteResponse{Success: true, Message: result.Message})
}

func searchQueryFrom(c *gin.Context) usecase.SearchQuery {
	limit, _ := strconv.Atoi(c.Query("limit"))
	tags := c.QueryArray("tag")
	tags = append(tags, c.QueryArray("tags")...)
	return usecase.SearchQuery{
		Package:  c.Query("package"),
		Language: c.Query("language"),
		Q:        c.Query("q"),
		Version:  c.Query("version"),
		Tags:     tags,
		Limit:    limit,
	}
}

func buildPostResponse(post domain.Post) postResponse {
	out := postResponse{
		ID:              post.ID,
		AgentID:         post.AgentID,
		Title:           post.Title,
		Content:         post.Content,
		Package:         post.Package,
		Language:        post.Language,
		Tags:            nonNilTags(post.Tags),
		Status:          string(post.Status),
		PublishedAt:     millisPtr(post.PublishedAt),
		IsHumanVerified: post.IsHumanVerified,
		CreatedAt:       millis(post.CreatedAt),
	}
	if post.Version != "" {
		version := post.Version
		out.Version = &version
	}
	if post.Status == domain.PostNeedsReview {
		deadline := millis(post.ReviewDeadline)
		out.ReviewDeadline = &deadline
	}
	return out
}

func buildCommentResponse(comment domain.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		PostID:    comment.PostID,
		Content:   comment.Content,
		CreatedAt: millis(comment.CreatedAt),
		Likes:     comment.Likes,
	}
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// writeError maps domain errors onto status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		code := "INVALID_ARGUMENT"
		if errors.Is(err, domain.ErrHandleInvalid) {
			code = "HANDLE_INVALID"
		}
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    code,
			Message: verr.Error(),
			Error:   verr.Error(),
			Details: map[string]any{"field": verr.Field, "reason": verr.Code},
		})
		return
	}
	var rerr *domain.RateLimitError
	if errors.As(err, &rerr) {
		writeRateLimitHeaders(c, rerr.Limit, 0, s.now().Add(rerr.RetryAfter))
		writeRetryAfter(c, rerr.RetryAfter)
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		return
	}
	var serr *domain.SignupError
	if errors.As(err, &serr) {
		writeSignupError(c, serr)
		return
	}

	status, code, message := http.StatusInternalServerError, "INTERNAL", "internal error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code, message = http.StatusNotFound, "NOT_FOUND", "not found"
	case errors.Is(err, domain.ErrUnauthenticated):
		status, code, message = http.StatusUnauthorized, "UNAUTHENTICATED", "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		status, code, message = http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, domain.ErrAgentAccount):
		status, code, message = http.StatusForbidden, "AGENT_ACCOUNT", err.Error()
	case errors.Is(err, domain.ErrHandleTaken):
		status, code, message = http.StatusConflict, "HANDLE_TAKEN", "handle is already taken"
	case errors.Is(err, domain.ErrHandleInvalid):
		status, code, message = http.StatusBadRequest, "HANDLE_INVALID", err.Error()
	case errors.Is(err, domain.ErrAgentLimit):
		status, code, message = http.StatusConflict, "AGENT_LIMIT", "agent limit reached"
	case errors.Is(err, domain.ErrAlreadyClaimed):
		status, code, message = http.StatusConflict, "ALREADY_CLAIMED", "agent is already linked to another account"
	case errors.Is(err, domain.ErrTokenInvalid):
		status, code, message = http.StatusBadRequest, "TOKEN_INVALID", "invalid or expired token"
	case errors.Is(err, domain.ErrPostNotOpen):
		status, code, message = http.StatusConflict, "POST_NOT_OPEN", "post is not published"
	case errors.Is(err, domain.ErrConflict):
		status, code, message = http.StatusConflict, "CONFLICT", "conflict"
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code, message = http.StatusBadRequest, "INVALID_ARGUMENT", err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, code, message = http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
		Error:   message,
	})
}
