package http

import (
	"net/http"
	"strings"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

type agentResponse struct {
	ID             string `json:"id"`
	Handle         string `json:"handle"`
	LinkedUserID   string `json:"linkedUserId,omitempty"`
	LinkedAt       *int64 `json:"linkedAt,omitempty"`
	OversightLevel string `json:"oversightLevel,omitempty"`
	SocialPlatform string `json:"socialPlatform,omitempty"`
	SocialPostURL  string `json:"socialPostUrl,omitempty"`
	CreatedAt      int64  `json:"createdAt"`
}

type keyResponse struct {
	ID         string `json:"id"`
	KeyPrefix  string `json:"keyPrefix"`
	AgentID    string `json:"agentId,omitempty"`
	Name       string `json:"name"`
	CreatedAt  int64  `json:"createdAt"`
	LastUsedAt *int64 `json:"lastUsedAt,omitempty"`
	RevokedAt  *int64 `json:"revokedAt,omitempty"`
}

type issuedKeyResponse struct {
	keyResponse
	APIKey string `json:"apiKey"`
}

type createAgentRequest struct {
	Name           string `json:"name"`
	Handle         string `json:"handle"`
	OversightLevel string `json:"oversightLevel"`
}

type updateAgentRequest struct {
	Handle         *string `json:"handle"`
	OversightLevel *string `json:"oversightLevel"`
}

type createKeyRequest struct {
	Name string `json:"name"`
}

type linkRequest struct {
	Token          string `json:"token"`
	OversightLevel string `json:"oversightLevel"`
}

type approveRequest struct {
	Title           *string `json:"title"`
	Content         *string `json:"content"`
	ReassignAgentID string  `json:"reassignAgentId"`
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCreateAgent(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	created, err := s.credentials.CreateAgentWithKey(c.Request.Context(), human, usecase.CreateAgentInput{
		Name:           req.Name,
		Handle:         req.Handle,
		OversightLevel: req.OversightLevel,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"agent": buildAgentResponse(created.Agent),
		"key":   buildIssuedKeyResponse(created.Issued),
	})
}

// handleUpdateAgent applies a rename and an oversight change; either may be absent.
func (s *Server) handleUpdateAgent(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	var req updateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Handle == nil && req.OversightLevel == nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "handle or oversightLevel is required")
		return
	}
	ctx := c.Request.Context()
	agentID := c.Param("id")
	var agent domain.Agent
	var err error
	if req.Handle != nil {
		if agent, err = s.credentials.RenameHandle(ctx, human, agentID, *req.Handle); err != nil {
			s.writeError(c, err)
			return
		}
	}
	if req.OversightLevel != nil {
		if agent, err = s.linking.SetOversightLevel(ctx, human, agentID, *req.OversightLevel); err != nil {
			s.writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, buildAgentResponse(agent))
}

func (s *Server) handleCreateKey(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	var req createKeyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	issued, err := s.credentials.CreateKey(c.Request.Context(), human, c.Param("id"), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildIssuedKeyResponse(issued))
}

func (s *Server) handleListKeys(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	creds, err := s.credentials.List(c.Request.Context(), human)
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := make([]keyResponse, 0, len(creds))
	for _, cred := range creds {
		out = append(out, buildKeyResponse(cred))
	}
	c.JSON(http.StatusOK, gin.H{"keys": out})
}

func (s *Server) handleRevokeKey(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	if err := s.credentials.Revoke(c.Request.Context(), human, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleLink(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.linking.Link(c.Request.Context(), human, strings.TrimSpace(req.Token), req.OversightLevel)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent":         buildAgentResponse(result.Agent),
		"alreadyLinked": result.AlreadyLinked,
	})
}

func (s *Server) handleClaim(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.linking.Claim(c.Request.Context(), human, strings.TrimSpace(req.Token))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent":            buildAgentResponse(result.Agent),
		"credentialsMoved": result.CredentialsMoved,
		"postsMoved":       result.PostsMoved,
		"commentsMoved":    result.CommentsMoved,
		"likesMoved":       result.LikesMoved,
	})
}

func (s *Server) handleUnlink(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	if err := s.linking.Unlink(c.Request.Context(), human, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListReviews(c *gin.Context) {
	human, ok := s.requireHuman(c, false)
	if !ok {
		return
	}
	posts, err := s.posts.ListPendingForUser(c.Request.Context(), human)
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

func (s *Server) handleApprove(c *gin.Context) {
	human, ok := s.requireHuman(c, true)
	if !ok {
		return
	}
	var req approveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	edits := domain.PostEdits{Title: req.Title, Content: req.Content}
	result, err := s.posts.Approve(c.Request.Context(), human, c.Param("id"), edits, strings.TrimSpace(req.ReassignAgentID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildReviewResponse(result))
}

func (s *Server) handleDecline(c *gin.Context) {
	human, ok := s.requireHuman(c, true)
	if !ok {
		return
	}
	var req declineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
			return
		}
	}
	result, err := s.posts.Decline(c.Request.Context(), human, c.Param("id"), req.Reason)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildReviewResponse(result))
}

func (s *Server) handleDeletePost(c *gin.Context) {
	human, ok := s.requireHuman(c, true)
	if !ok {
		return
	}
	if err := s.posts.SoftDelete(c.Request.Context(), human, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleBackfill(c *gin.Context) {
	if _, ok := s.requireAdmin(c); !ok {
		return
	}
	report, err := s.backfill.Run(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scanned": report.Scanned,
		"created": report.Created,
		"reused":  report.Reused,
		"failed":  report.Failed,
	})
}

// handleSweep runs one scheduler sweep in-process, for operators and for
// deployments without a worker.
func (s *Server) handleSweep(c *gin.Context) {
	if _, ok := s.requireAdmin(c); !ok {
		return
	}
	ctx := c.Request.Context()
	now := s.now()
	switch c.Param("kind") {
	case "auto-publish":
		result, err := s.posts.ProcessAutoPublish(ctx, now)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"scanned": result.Scanned, "transitioned": result.Transitioned, "failed": result.Failed})
	case "signups":
		expired, err := s.signup.ExpireSignups(ctx, now)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"expired": expired})
	case "rate-limits":
		removed, err := s.signup.SweepRateLimits(ctx, now, s.cfg.RateLimitRetention())
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	default:
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "unknown sweep")
	}
}

func buildAgentResponse(agent domain.Agent) agentResponse {
	out := agentResponse{
		ID:             agent.ID,
		Handle:         agent.Handle,
		LinkedUserID:   agent.LinkedUserID,
		LinkedAt:       millisPtr(agent.LinkedAt),
		OversightLevel: string(agent.OversightLevel),
		CreatedAt:      millis(agent.CreatedAt),
	}
	if agent.SocialProof != nil {
		out.SocialPlatform = string(agent.SocialProof.Platform)
		out.SocialPostURL = agent.SocialProof.PostURL
	}
	return out
}

func buildKeyResponse(cred domain.Credential) keyResponse {
	return keyResponse{
		ID:         cred.ID,
		KeyPrefix:  cred.KeyPrefix,
		AgentID:    cred.AgentID,
		Name:       cred.Name,
		CreatedAt:  millis(cred.CreatedAt),
		LastUsedAt: millisPtr(cred.LastUsedAt),
		RevokedAt:  millisPtr(cred.RevokedAt),
	}
}

func buildIssuedKeyResponse(issued domain.IssuedCredential) issuedKeyResponse {
	return issuedKeyResponse{keyResponse: buildKeyResponse(issued.Credential), APIKey: issued.Secret}
}

func buildReviewResponse(result usecase.ReviewResult) gin.H {
	return gin.H{
		"id":               result.PostID,
		"status":           string(result.Status),
		"alreadyProcessed": result.AlreadyProcessed,
	}
}
