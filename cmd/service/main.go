package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tenkit/tenkit/internal/app"
	"github.com/tenkit/tenkit/internal/config"
	httpx "github.com/tenkit/tenkit/internal/http"
	"github.com/tenkit/tenkit/internal/http/handlers"
	"github.com/tenkit/tenkit/internal/jwt"
	"github.com/tenkit/tenkit/internal/oauth"
	"github.com/tenkit/tenkit/internal/observability/logger"
	"github.com/tenkit/tenkit/internal/rate"
	"github.com/tenkit/tenkit/internal/store"
	"github.com/tenkit/tenkit/internal/token"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "tenkit",
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	// Outbound proxy settings for schema owners behind corporate proxies.
	if cfg.Proxy.HTTPProxy != "" {
		os.Setenv("HTTP_PROXY", cfg.Proxy.HTTPProxy)
		os.Setenv("HTTPS_PROXY", cfg.Proxy.HTTPProxy)
	}
	if cfg.Proxy.NoProxy != "" {
		os.Setenv("NO_PROXY", cfg.Proxy.NoProxy)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		Mongo: store.MongoConfig{
			URI:      cfg.Storage.Mongo.URI,
			Database: cfg.Storage.Mongo.Database,
		},
	})
	if err != nil {
		lg.Fatal("store open failed", logger.Err(err))
	}
	defer func() { _ = repo.Close(context.Background()) }()

	signer, err := jwt.NewSigner(cfg.Identity.Alg, cfg.Identity.Secret)
	if err != nil {
		lg.Fatal("identity signer failed", logger.Err(err))
	}

	if span := cfg.AccountTokenSpan(); span > 0 {
		token.Account.Span = token.Seconds(span)
	}

	var limiter rate.Limiter = rate.NopLimiter{}
	if cfg.Rate.Enabled {
		switch cfg.Rate.Backend {
		case "redis":
			client := rdb.NewClient(&rdb.Options{
				Addr: cfg.Rate.Redis.Addr,
				DB:   cfg.Rate.Redis.DB,
			})
			defer func() { _ = client.Close() }()
			limiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.MaxRequests, cfg.RateWindow())
		default:
			limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	container := &app.Container{
		Cfg:   cfg,
		Store: repo,
		OAuth: &oauth.Service{
			Store:    repo,
			Signer:   signer,
			Homepage: cfg.Homepage,
			Log:      logger.Named("oauth"),
		},
		Limiter: limiter,
	}

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		lg.Fatal("metrics registration failed", logger.Err(err))
	}

	router := httpx.NewRouter(httpx.RouterConfig{
		BasePath: cfg.Server.BasePath,
		Schema:   handlers.Schema(container),
		Token:    handlers.Token(container),
		Readyz:   handlers.Readyz(container),
		Limiter:  limiter,
	})

	mainSrv := httpx.NewServer(cfg.Server.Addr, router)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)
	metricsSrv := httpx.NewServer(cfg.Server.MetricsAddr, metricsMux)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lg.Info("service listening", logger.Path(cfg.Server.BasePath), logger.Component("main"))
		if err := mainSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("metrics listening", logger.Component("metrics"))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		if err := httpx.Shutdown(mainSrv, 15*time.Second); err != nil {
			lg.Warn("main server shutdown", logger.Err(err))
		}
		return httpx.Shutdown(metricsSrv, 5*time.Second)
	})

	if err := g.Wait(); err != nil {
		lg.Fatal("service exited", logger.Err(err))
	}
}
