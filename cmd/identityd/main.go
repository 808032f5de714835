// identityd is the storefront identity service: authentication, session
// tokens, role-gated endpoints and the password-reset lifecycle, served over
// HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/championsworld/identity"
	"github.com/championsworld/identity/httpapi"
	"github.com/championsworld/identity/middleware"
	"github.com/championsworld/identity/notify"
	"github.com/championsworld/identity/oauth"
	"github.com/championsworld/identity/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "identityd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := identity.LoadConfig()
	if err != nil {
		return err
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.Open(cfg.Database.Type, cfg.Database.DSN, log)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	mailer := notify.NewSMTPMailer(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, log)
	sms := notify.NewMSG91Sender(cfg.SMS.AuthKey, cfg.SMS.CountryCode, log)
	google := oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)

	engine, err := identity.New().
		WithConfig(cfg).
		WithLogger(log).
		WithUserStore(st).
		WithRoleStore(st).
		WithResetTokenStore(st).
		WithAddressStore(st).
		WithRedis(rdb).
		WithMailer(mailer).
		WithSMSSender(sms).
		WithOAuthProvider(google).
		Build()
	if err != nil {
		return err
	}

	h := httpapi.NewHandler(engine, log)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpapi.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(middleware.Gate(engine.Tokens(), h.Policy(), log))
	h.Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil {
			log.Info("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
