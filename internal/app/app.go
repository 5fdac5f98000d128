// Package app wires configuration, stores and handlers into a gin engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"oahushop/internal/catalog"
	"oahushop/internal/config"
	"oahushop/internal/database"
	"oahushop/internal/handlers"
	"oahushop/internal/logx"
	"oahushop/internal/services"
	"oahushop/internal/session"
	"oahushop/web"
)

// App is a fully wired shop.
type App struct {
	cfg      config.Config
	engine   *gin.Engine
	security *services.SecurityLogger
	rdb      *redis.Client
}

// New builds the shop from cfg. Redis is only dialed when REDIS_URL is set.
func New(cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	auth, err := services.NewAuthenticator(cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("admin credentials: %w", err)
	}

	sessions, err := a.sessionStore()
	if err != nil {
		return nil, err
	}

	renderer, err := handlers.NewHTMLRenderer(web.Templates())
	if err != nil {
		return nil, err
	}

	a.security = services.NewSecurityLogger(cfg.SecurityLog)

	reader := catalog.NewReader(catalog.Options{
		FeedURL:   cfg.Feed.ExportURL(),
		ImageRoot: cfg.ImageRoot,
		Timeout:   cfg.Feed.Timeout,
		Retries:   cfg.Feed.Retries,
	})

	h := handlers.NewHandler(handlers.Deps{
		Settings:  database.NewSettingsStore(cfg.SettingsPath()),
		Inquiries: database.NewInquiryStore(cfg.InquiriesPath()),
		Catalog:   reader,
		Sessions:  sessions,
		Auth:      auth,
		Pipeline:  services.NewPipeline(cfg.Pipeline, nil),
		Mailer:    services.NewEmailService(cfg.SMTP),
		Security:  a.security,
		Spam:      services.NewSpamDetector(),
		SheetURL:  cfg.Feed.EditURL(),
		Secure:    cfg.Session.Secure,
	})

	r := gin.New()
	r.Use(handlers.RequestLogger())
	r.Use(gin.Recovery())
	if err := r.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.HTMLRender = renderer
	r.StaticFS("/static", http.FS(web.Static()))
	h.Register(r)

	a.engine = r
	logx.Info().
		Str("env", string(cfg.Environment())).
		Str("data_dir", cfg.DataDir).
		Str("image_root", cfg.ImageRoot).
		Bool("redis_sessions", a.rdb != nil).
		Msg("shop initialised")
	return a, nil
}

func (a *App) sessionStore() (session.Store, error) {
	if a.cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(a.cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.rdb = client
		return session.NewRedisStore(client, a.cfg.Redis.TTL, a.cfg.Session.Secure), nil
	}

	if a.cfg.Session.HashKey == "" && a.cfg.Environment().IsProduction() {
		return nil, errors.New("SESSION_HASH_KEY is required in production; every instance must sign sessions with the same key")
	}
	var blockKey []byte
	if k := a.cfg.Session.BlockKey; k != "" {
		switch len(k) {
		case 16, 24, 32:
			blockKey = []byte(k)
		default:
			return nil, errors.New("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes")
		}
	}
	return session.NewCookieStore([]byte(a.cfg.Session.HashKey), blockKey, a.cfg.Session.Secure), nil
}

// Router returns the HTTP handler of the shop.
func (a *App) Router() *gin.Engine {
	return a.engine
}

// Close releases the security log and the Redis connection.
func (a *App) Close() error {
	var errs []error
	if a.security != nil {
		errs = append(errs, a.security.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	return errors.Join(errs...)
}
