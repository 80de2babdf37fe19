// golfkitd serves the golfer app's billing backend: the RevenueCat webhook,
// the entitlements read API, and operational endpoints.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	authgin "github.com/daybeamapp/golfkit/adapters/gin"
	"github.com/daybeamapp/golfkit/adapters/ginutil"
	"github.com/daybeamapp/golfkit/billing"
	"github.com/daybeamapp/golfkit/config"
	"github.com/daybeamapp/golfkit/entitlements"
	"github.com/daybeamapp/golfkit/insights"
	jwtkit "github.com/daybeamapp/golfkit/jwt"
	memorylimiter "github.com/daybeamapp/golfkit/ratelimit/memory"
	redislimiter "github.com/daybeamapp/golfkit/ratelimit/redis"
	pgstore "github.com/daybeamapp/golfkit/storage/postgres"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	log.SetFormatter(&logrus.JSONFormatter{})
	log.WithFields(logrus.Fields{
		"addr": cfg.Server.Addr,
		"env":  cfg.Server.Env,
	}).Info("starting golfkitd")

	ctx := context.Background()
	pg, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("failed to open database pool")
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		log.WithError(err).Fatal("database unreachable")
	}

	store := pgstore.NewPermissionStore(pg, cfg.Database.Schema)
	eventLog := pgstore.NewEventLog(pg, cfg.Database.Schema)

	var trigger *insights.Trigger
	if cfg.Insights.URL != "" {
		client := &insights.Client{URL: cfg.Insights.URL, Token: cfg.Insights.Token}
		trigger = insights.NewTrigger(client, time.Duration(cfg.Insights.TimeoutSecs)*time.Second, log)
	} else {
		log.Warn("insights url not configured, purchase trigger disabled")
	}

	svcCfg := billing.ServiceConfig{
		Store:              store,
		EventLog:           eventLog,
		Provider:           cfg.Billing.Provider,
		PremiumEntitlement: cfg.Billing.PremiumEntitlement,
		DefaultEntitlement: cfg.Billing.DefaultEntitlement,
		Logger:             log,
	}
	if trigger != nil {
		svcCfg.Trigger = trigger
	}
	svc := billing.NewService(svcCfg)

	var verifier *jwtkit.Verifier
	if cfg.Auth.JWKSURL != "" {
		verifier = jwtkit.NewVerifier(jwtkit.VerifierConfig{
			JWKSURL:  cfg.Auth.JWKSURL,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		})
	} else {
		log.Warn("auth jwks url not configured, entitlements API will reject all callers")
	}

	limits := map[string]memorylimiter.Limit{
		ginutil.RLEntitlementsGet: {Limit: 60, Window: time.Minute},
	}
	var limiter ginutil.RateLimiter = memorylimiter.New(limits)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		redisLimits := map[string]redislimiter.Limit{
			ginutil.RLEntitlementsGet: {Limit: 60, Window: time.Minute},
		}
		limiter = redislimiter.New(rdb, redisLimits)
		defer rdb.Close()
	}

	var sweeper *entitlements.Sweeper
	if cfg.Sweeper.Spec != "" {
		sweeper, err = entitlements.NewSweeper(store, cfg.Sweeper.Spec, log)
		if err != nil {
			log.WithError(err).Fatal("invalid expiry sweep spec")
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	router := authgin.NewRouter(authgin.Deps{
		Billing:       svc,
		Store:         store,
		Verifier:      verifier,
		RateLimiter:   limiter,
		WebhookSecret: cfg.Billing.WebhookSecret,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("server shutdown failed")
		}
		if trigger != nil {
			// Let in-flight insight triggers settle before exiting.
			trigger.Wait()
		}
	}
	log.Info("golfkitd stopped")
}
