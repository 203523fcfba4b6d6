package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/janisto/lostcat/internal/http/health"
	"github.com/janisto/lostcat/internal/platform/config"
	"github.com/janisto/lostcat/internal/platform/firebase"
	applog "github.com/janisto/lostcat/internal/platform/logging"
	sessionsvc "github.com/janisto/lostcat/internal/service/session"
)

// sessionStore is the selected backend with its health checks and cleanup.
type sessionStore struct {
	Store  sessionsvc.Store
	Checks []health.Check
	Close  func() error
}

// openStore connects the session store named by cfg.Session.Store.
func openStore(ctx context.Context, cfg config.Config) (*sessionStore, error) {
	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := sessionsvc.NewRedisStore(rdb, cfg.Redis.Prefix)
		if err := store.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		applog.LogInfo(ctx, "using redis session store")
		return &sessionStore{
			Store:  store,
			Checks: []health.Check{{Name: "redis", Ping: store.Ping}},
			Close:  rdb.Close,
		}, nil

	case config.StoreFirestore:
		clients, err := firebase.InitializeClients(ctx, firebase.Config{
			ProjectID:                    cfg.Firebase.ProjectID,
			GoogleApplicationCredentials: cfg.Firebase.Credentials,
		})
		if err != nil {
			return nil, err
		}
		applog.LogInfo(ctx, "using firestore session store")
		return &sessionStore{
			Store: sessionsvc.NewFirestoreStore(clients.Firestore),
			Close: clients.Close,
		}, nil

	default:
		store := sessionsvc.NewMemoryStore(cfg.Session.Sweep)
		return &sessionStore{Store: store, Close: store.Close}, nil
	}
}
