package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/fedibot/fedibot/config"
	"github.com/fedibot/fedibot/dispatch"
	"github.com/fedibot/fedibot/engine"
	"github.com/fedibot/fedibot/mastodon"
	"github.com/fedibot/fedibot/render"
	"github.com/fedibot/fedibot/store"
	"github.com/fedibot/fedibot/util"
)

type Server struct {
	logger     *slog.Logger
	dispatcher *dispatch.Dispatcher
}

type ServerConfig struct {
	APIHost      string
	AccessToken  string
	RedisURL     string
	APIRateLimit int
	Logger       *slog.Logger
}

func NewServer(ctx context.Context, cfg *config.Config, sc ServerConfig) (*Server, error) {
	logger := sc.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if sc.APIHost == "" {
		return nil, fmt.Errorf("no API host configured")
	}
	if sc.AccessToken == "" {
		return nil, fmt.Errorf("no access token configured")
	}

	client := &mastodon.Client{
		Client:      util.RobustHTTPClient(),
		Host:        sc.APIHost,
		AccessToken: sc.AccessToken,
	}
	if sc.APIRateLimit > 0 {
		client.Limiter = rate.NewLimiter(rate.Limit(sc.APIRateLimit), sc.APIRateLimit)
	}

	// verify credentials before starting the loop
	me, err := client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("verifying credentials: %w", err)
	}
	logger.Info("authenticated", "acct", me.Acct, "host", sc.APIHost)

	var st store.Store
	if sc.RedisURL != "" {
		rst, err := store.NewRedisStore(sc.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis store: %w", err)
		}
		st = rst
	} else {
		logger.Info("redis not configured, using in-memory store")
		st = store.NewMemStore()
	}

	renderer, err := render.NewRenderer(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	eng := &engine.Engine{
		Logger:     logger,
		Client:     client,
		Renderer:   renderer,
		Store:      st,
		Boosts:     cfg.Boosts,
		Favourites: cfg.Favourites,
		Welcome:    cfg.Welcome,
		Report:     cfg.Report,
	}

	d := &dispatch.Dispatcher{
		Logger: logger,
		Feed:   client,
		Handlers: map[mastodon.NotificationKind]dispatch.HandlerFunc{
			mastodon.KindMention:       eng.ProcessMention,
			mastodon.KindFollow:        eng.ProcessFollow,
			mastodon.KindReblog:        eng.ProcessReblog,
			mastodon.KindFavourite:     eng.ProcessFavourite,
			mastodon.KindPoll:          eng.ProcessPoll,
			mastodon.KindFollowRequest: eng.ProcessFollowRequest,
			mastodon.KindUpdate:        eng.ProcessUpdate,
		},
		Interval: cfg.RefreshInterval(),
	}

	return &Server{logger: logger, dispatcher: d}, nil
}

func (s *Server) Run(ctx context.Context) error {
	return s.dispatcher.Run(ctx)
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
