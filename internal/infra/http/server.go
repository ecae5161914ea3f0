package http

import (
	"log/slog"
	"net/http"
	"time"

	"moltoverflow/internal/config"
	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	logger *slog.Logger
	mode   string

	posts       *usecase.PostService
	comments    *usecase.CommentService
	search      *usecase.SearchService
	credentials *usecase.CredentialService
	signup      *usecase.SignupService
	linking     *usecase.LinkingService
	invites     *usecase.InviteService
	backfill    *usecase.BackfillService

	humans      domain.HumanAuthenticator
	adminAPIKey string
	now         func() time.Time
}

type ServerDeps struct {
	Posts       *usecase.PostService
	Comments    *usecase.CommentService
	Search      *usecase.SearchService
	Credentials *usecase.CredentialService
	Signup      *usecase.SignupService
	Linking     *usecase.LinkingService
	Invites     *usecase.InviteService
	Backfill    *usecase.BackfillService
	Humans      domain.HumanAuthenticator
	Logger      *slog.Logger
	// Mode is reported by /healthz: "db" or "memory".
	Mode string
	Now  func() time.Time
}

func NewServer(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		logger:      deps.Logger,
		mode:        deps.Mode,
		posts:       deps.Posts,
		comments:    deps.Comments,
		search:      deps.Search,
		credentials: deps.Credentials,
		signup:      deps.Signup,
		linking:     deps.Linking,
		invites:     deps.Invites,
		backfill:    deps.Backfill,
		humans:      deps.Humans,
		adminAPIKey: cfg.AdminAPIKey,
		now:         deps.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.mode == "" {
		s.mode = "memory"
	}
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		s.logger.Warn("ignoring invalid trusted proxies", "proxies", cfg.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.mode})
	})

	v1 := s.r.Group("/api/v1")
	{
		v1.POST("/posts", s.handleCreatePost)
		v1.GET("/posts/:id", s.handleGetPost)
		v1.GET("/posts/:id/comments", s.handleListComments)
		v1.POST("/posts/:id/comments", s.handleCreateComment)
		v1.POST("/comments/:id/like", s.handleLikeComment)
		v1.GET("/feed", s.handleFeed)
		v1.GET("/knowledge", s.handleKnowledge)
		v1.GET("/search", s.handleSearch)
		v1.POST("/invite", s.handleInvite)

		v1.GET("/email-actions/:action", s.handleEmailAction)

		v1.POST("/agent-signup/init", s.handleSignupInit)
		v1.POST("/agent-signup/verify", s.handleSignupVerify)
		v1.GET("/agent-signup/claim", s.handleSignupClaim)

		me := v1.Group("/me")
		me.POST("/agents", s.handleCreateAgent)
		me.PATCH("/agents/:id", s.handleUpdateAgent)
		me.POST("/agents/:id/keys", s.handleCreateKey)
		me.DELETE("/agents/:id/link", s.handleUnlink)
		me.GET("/keys", s.handleListKeys)
		me.DELETE("/keys/:id", s.handleRevokeKey)
		me.POST("/link", s.handleLink)
		me.POST("/claim", s.handleClaim)
		me.GET("/reviews", s.handleListReviews)
		me.POST("/posts/:id/approve", s.handleApprove)
		me.POST("/posts/:id/decline", s.handleDecline)
		me.DELETE("/posts/:id", s.handleDeletePost)

		admin := v1.Group("/admin")
		admin.POST("/migrations/legacy-agents", s.handleBackfill)
		admin.POST("/sweeps/:kind", s.handleSweep)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.r
}

func (s *Server) Run() error {
	return s.r.Run(s.cfg.HTTPAddr)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if raw, ok := c.Get(principalContextKey); ok {
			if principal, ok := raw.(domain.Principal); ok {
				attrs = append(attrs, "principal_kind", string(principal.Kind), "subject", principal.Subject)
			}
		}
		s.logger.Info("http request", attrs...)
	}
}
