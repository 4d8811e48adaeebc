package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"loadplan/internal/config"
	"loadplan/internal/integrations"
	"loadplan/internal/integrations/csvfeed"
	"loadplan/internal/store"
	"loadplan/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker
	Feed   integrations.DemandSource
	Cfg    config.Config
	Log    zerolog.Logger
}

// NewServer wires storage and the event broker from config. With no
// DATABASE_URL the server runs on the in-memory store, with no REDIS_URL
// plan events stay process-local.
func NewServer(cfg config.Config, log zerolog.Logger) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sp.MigrateDir(cfg.MigrationDir); err != nil {
				log.Warn().Err(err).Msg("migrations failed")
			}
		}
		s = sp
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis broker unavailable, falling back to in-memory")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	var feed integrations.DemandSource
	if cfg.DemandFeedDir != "" {
		feed = csvfeed.New(cfg.DemandFeedDir)
	}

	return &Server{
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Broker: broker,
		Feed:   feed,
		Cfg:    cfg,
		Log:    log,
	}, nil
}

// NewWebhookWorker creates the background webhook delivery worker.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.Log, s.Cfg.WebhookInterval, s.Cfg.WebhookMaxAttempts)
}

type ctxKeyTenant struct{}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	// Tenant comes from a header; production would decode it from auth.
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}
