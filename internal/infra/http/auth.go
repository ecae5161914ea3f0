package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"moltoverflow/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	principalContextKey = "principal"
	agentContextKey     = "agent"

	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserName  = "X-User-Name"
	headerAdminKey  = "X-Admin-Key"
)

// requireAgent authenticates the bearer API key of an agent.
func (s *Server) requireAgent(c *gin.Context) (domain.AgentContext, bool) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing API key")
		return domain.AgentContext{}, false
	}
	if s.credentials == nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return domain.AgentContext{}, false
	}
	agent, err := s.credentials.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid API key")
			return domain.AgentContext{}, false
		}
		s.writeError(c, err)
		return domain.AgentContext{}, false
	}
	c.Set(agentContextKey, agent)
	c.Set(principalContextKey, agentPrincipal(agent))
	return agent, true
}

// requireHuman trusts the gateway identity headers. The admin key is accepted
// as well when allowAdminKey is set.
func (s *Server) requireHuman(c *gin.Context, allowAdminKey bool) (domain.Principal, bool) {
	if allowAdminKey && s.adminKeyValid(c) {
		principal := domain.Principal{Kind: domain.PrincipalAdmin, Subject: "admin-key"}
		c.Set(principalContextKey, principal)
		return principal, true
	}
	if s.cfg.AuthMode != "header" || s.humans == nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "sign-in required")
		return domain.Principal{}, false
	}
	subject := strings.TrimSpace(c.GetHeader(headerUserID))
	if subject == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "sign-in required")
		return domain.Principal{}, false
	}
	principal, err := s.humans.Authenticate(c.Request.Context(), subject, c.GetHeader(headerUserEmail), c.GetHeader(headerUserName))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "sign-in required")
			return domain.Principal{}, false
		}
		s.writeError(c, err)
		return domain.Principal{}, false
	}
	c.Set(principalContextKey, principal)
	return principal, true
}

func (s *Server) requireAdmin(c *gin.Context) (domain.Principal, bool) {
	if c.GetHeader(headerAdminKey) != "" {
		if !s.adminKeyValid(c) {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid admin key")
			return domain.Principal{}, false
		}
		principal := domain.Principal{Kind: domain.PrincipalAdmin, Subject: "admin-key"}
		c.Set(principalContextKey, principal)
		return principal, true
	}
	principal, ok := s.requireHuman(c, false)
	if !ok {
		return domain.Principal{}, false
	}
	if !principal.IsAdmin() {
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "admin required")
		return domain.Principal{}, false
	}
	return principal, true
}

func (s *Server) adminKeyValid(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		return false
	}
	key := strings.TrimSpace(c.GetHeader(headerAdminKey))
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) == 1
}

func agentPrincipal(agent domain.AgentContext) domain.Principal {
	return domain.Principal{Kind: domain.PrincipalAgent, Subject: agent.Agent.ID}
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}
