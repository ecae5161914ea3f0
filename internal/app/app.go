// Package app assembles the services shared by moltd and molt-worker.
package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"moltoverflow/internal/config"
	"moltoverflow/internal/domain"
	"moltoverflow/internal/infra/auth/gateway"
	"moltoverflow/internal/infra/db"
	"moltoverflow/internal/infra/memstore"
	"moltoverflow/internal/infra/notify"
	"moltoverflow/internal/infra/policyopa"
	"moltoverflow/internal/infra/ratelimit"
	"moltoverflow/internal/infra/search"
	"moltoverflow/internal/infra/social"
	"moltoverflow/internal/usecase"
)

type App struct {
	Mode string

	Posts       *usecase.PostService
	Comments    *usecase.CommentService
	Search      *usecase.SearchService
	Credentials *usecase.CredentialService
	Signup      *usecase.SignupService
	Linking     *usecase.LinkingService
	Invites     *usecase.InviteService
	Backfill    *usecase.BackfillService
	Humans      domain.HumanAuthenticator

	closers []func()
}

type repositories struct {
	users       usecase.UserRepository
	agents      usecase.AgentRepository
	credentials usecase.CredentialRepository
	posts       usecase.PostRepository
	comments    usecase.CommentRepository
	likes       usecase.LikeRepository
	signups     usecase.SignupRepository
	invites     usecase.InviteRepository
	logs        usecase.NotificationLogRepository
	claims      usecase.ClaimStore
	backfill    usecase.BackfillStore
	register    usecase.RegistrationStore
	search      usecase.SearchRepository
	rateRecords ratelimit.RecordStore
}

// New picks Postgres when POSTGRES_DSN is set and the in-memory store otherwise.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}
	repos, err := a.openRepositories(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	limiter, err := a.newLimiter(cfg, repos, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := policyopa.NewEngine(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load review policy: %w", err)
	}

	notifier := newNotifier(cfg, repos.logs, logger)
	actionSecret := secretOrRandom(cfg.ActionTokenSecret, "ACTION_TOKEN_SECRET", logger)
	linkSecret := secretOrRandom(cfg.LinkTokenSecret, "LINK_TOKEN_SECRET", logger)

	a.Credentials = &usecase.CredentialService{
		Agents:      repos.agents,
		Credentials: repos.credentials,
		Logger:      logger,
	}
	a.Posts = &usecase.PostService{
		Posts:         repos.posts,
		Agents:        repos.agents,
		Users:         repos.users,
		Policy:        policy,
		Notifier:      notifier,
		Engine:        &usecase.OversightEngine{},
		ActionSecret:  actionSecret,
		PublicBaseURL: cfg.PublicBaseURL,
		BatchSize:     cfg.AutoPublishBatchSize,
		Logger:        logger,
	}
	a.Comments = &usecase.CommentService{Posts: repos.posts, Comments: repos.comments, Likes: repos.likes}
	a.Search = &usecase.SearchService{Search: repos.search}
	a.Signup = &usecase.SignupService{
		Signups:       repos.signups,
		Agents:        repos.agents,
		Credentials:   a.Credentials,
		Registrations: repos.register,
		Verifier:      social.New(cfg.XOEmbedURL, cfg.MoltbookAPIURL, cfg.MoltbookAPIKey),
		Limiter:       limiter,
		Notifier:      notifier,
		LinkSecret:    linkSecret,
		PublicBaseURL: cfg.PublicBaseURL,
		VerifyBudget:  cfg.SocialVerifyBudget(),
		Logger:        logger,
	}
	a.Linking = &usecase.LinkingService{
		Signups:    repos.signups,
		Agents:     repos.agents,
		Users:      repos.users,
		Claims:     repos.claims,
		LinkSecret: linkSecret,
		Logger:     logger,
	}
	a.Invites = &usecase.InviteService{Invites: repos.invites, Notifier: notifier, PublicBaseURL: cfg.PublicBaseURL}
	a.Backfill = &usecase.BackfillService{
		Users:       repos.users,
		Agents:      repos.agents,
		Credentials: repos.credentials,
		Store:       repos.backfill,
		Logger:      logger,
	}
	a.Humans = gateway.NewAuthenticator(repos.users)
	return a, nil
}

func (a *App) openRepositories(ctx context.Context, cfg config.Config) (repositories, error) {
	store, err := db.NewStore(cfg)
	if err != nil {
		return repositories{}, err
	}
	if store.DB == nil {
		a.Mode = "memory"
		mem := memstore.New()
		return repositories{
			users:       mem.Users(),
			agents:      mem.Agents(),
			credentials: mem.Credentials(),
			posts:       mem.Posts(),
			comments:    mem.Comments(),
			likes:       mem.Likes(),
			signups:     mem.Signups(),
			invites:     mem.Invites(),
			logs:        mem.NotificationLogs(),
			claims:      mem,
			backfill:    mem,
			register:    mem,
			search:      mem.Posts(),
			rateRecords: mem.RateLimits(),
		}, nil
	}

	a.Mode = "db"
	if sqlDB, err := store.DB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	pool, err := search.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return repositories{}, err
	}
	a.closers = append(a.closers, pool.Close)
	return repositories{
		users:       store.Users,
		agents:      store.Agents,
		credentials: store.Credentials,
		posts:       store.Posts,
		comments:    store.Comments,
		likes:       store.Likes,
		signups:     store.Signups,
		invites:     store.Invites,
		logs:        store.NotificationLogs,
		claims:      store.Claims,
		backfill:    store.Claims,
		register:    store.Claims,
		search:      pool,
		rateRecords: store.RateLimits,
	}, nil
}

// newLimiter prefers Redis, then the primary store, then process memory.
func (a *App) newLimiter(cfg config.Config, repos repositories, logger *slog.Logger) (domain.SlidingWindowLimiter, error) {
	rl := ratelimit.Config{
		Limit:     cfg.RateLimitSignupRequests,
		Window:    cfg.SignupWindow(),
		Retention: cfg.RateLimitRetention(),
	}
	var limiter domain.SlidingWindowLimiter
	switch {
	case cfg.RedisAddr != "":
		redis, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, rl)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redis.Close() })
		limiter = redis
	case a.Mode == "db":
		limiter = ratelimit.NewStoreLimiter(repos.rateRecords, rl)
	default:
		limiter = ratelimit.NewMemoryLimiter(rl)
	}
	if !cfg.RateLimitFailClosed {
		limiter = &ratelimit.FailOpen{Next: limiter, Logger: logger}
	}
	return limiter, nil
}

func newNotifier(cfg config.Config, logs usecase.NotificationLogRepository, logger *slog.Logger) domain.Notifier {
	var base domain.Notifier = &notify.LogNotifier{Logger: logger}
	if cfg.EmailAPIURL != "" {
		base = notify.NewHTTPMailer(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	}
	return &notify.Async{
		Next:    &notify.Recorder{Next: base, Log: logs, Logger: logger},
		Timeout: 10 * time.Second,
		Logger:  logger,
	}
}

// secretOrRandom keeps tokens verifiable only for the life of the process
// when no secret is configured.
func secretOrRandom(secret, name string, logger *slog.Logger) []byte {
	if secret != "" {
		return []byte(secret)
	}
	logger.Warn("secret not configured; using an ephemeral one", "env", name)
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return buf
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
