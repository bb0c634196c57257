package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"

	"github.com/fedibot/fedibot/config"
	"github.com/fedibot/fedibot/store"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "fedibot",
		Usage:   "automated account daemon for Mastodon-compatible servers",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "api-host",
			Usage:   "scheme, hostname, and port of the instance API",
			EnvVars: []string{"FEDIBOT_API_HOST"},
		},
		&cli.StringFlag{
			Name:    "access-token",
			Usage:   "OAuth access token for the bot account",
			EnvVars: []string{"FEDIBOT_ACCESS_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to the bot policy config file",
			Value:   "config.yml",
			EnvVars: []string{"FEDIBOT_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for bot bookkeeping; in-memory store when empty",
			EnvVars: []string{"FEDIBOT_REDIS_URL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		statsCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the bot daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3989",
			EnvVars: []string{"FEDIBOT_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "api-rate-limit",
			Usage:   "max number of requests per second to the instance API",
			Value:   4,
			EnvVars: []string{"FEDIBOT_API_RATE_LIMIT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		configOTEL("fedibot")

		cfg, err := config.Load(cctx.String("config"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv, err := NewServer(ctx, cfg, ServerConfig{
			APIHost:      cctx.String("api-host"),
			AccessToken:  cctx.String("access-token"),
			RedisURL:     cctx.String("redis-url"),
			APIRateLimit: cctx.Int("api-rate-limit"),
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.Run(ctx)
	},
}

var statsCmd = &cli.Command{
	Name:  "stats",
	Usage: "print bookkeeping counts from the local store",
	Action: func(cctx *cli.Context) error {
		redisURL := cctx.String("redis-url")
		if redisURL == "" {
			return fmt.Errorf("stats requires --redis-url")
		}
		st, err := store.NewRedisStore(redisURL)
		if err != nil {
			return err
		}

		ctx := context.Background()
		for _, ns := range []string{"mentions", "followers"} {
			ids, err := st.ListIDs(ctx, ns)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d\n", ns, len(ids))
		}

		mentions, err := st.ListAll(ctx, "mentions")
		if err != nil {
			return err
		}
		var boosted, favourited, notified int
		for _, doc := range mentions {
			if b, _ := doc["boosted"].(bool); b {
				boosted++
			}
			if f, _ := doc["favourited"].(bool); f {
				favourited++
			}
			if n, _ := doc["notified"].(bool); n {
				notified++
			}
		}
		fmt.Printf("boosted: %d\nfavourited: %d\nnotices posted: %d\n", boosted, favourited, notified)
		return nil
	},
}
