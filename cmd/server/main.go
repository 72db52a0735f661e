// @title                       InsureX Auth API
// @version                     1.0
// @description                 Authentication and credential lifecycle service for the InsureX insurance backend.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "github.com/insurex/insurance-auth/docs"
	"github.com/insurex/insurance-auth/internal/api"
	"github.com/insurex/insurance-auth/internal/api/handler"
	"github.com/insurex/insurance-auth/internal/api/middleware"
	"github.com/insurex/insurance-auth/internal/core/ports"
	"github.com/insurex/insurance-auth/internal/core/service"
	"github.com/insurex/insurance-auth/internal/infrastructure/config"
	mongostore "github.com/insurex/insurance-auth/internal/infrastructure/db/mongo"
	pgstore "github.com/insurex/insurance-auth/internal/infrastructure/db/postgres"
	redisstore "github.com/insurex/insurance-auth/internal/infrastructure/db/redis"
	"github.com/insurex/insurance-auth/internal/infrastructure/mail"
	"github.com/insurex/insurance-auth/internal/infrastructure/security"
	"github.com/insurex/insurance-auth/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// stores is the persistence selected by configuration.
type stores struct {
	users     ports.UserRepository
	resets    ports.ResetTokenRepository
	readiness map[string]handler.PingFunc
	closers   []func(context.Context) error
}

func (s *stores) close(ctx context.Context, log zerolog.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}
}

func main() {
	envErr := godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "insurance-auth",
		Env:     cfg.Env,
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	codec, err := security.NewJWTCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, security.WithIssuer(cfg.Auth.JWTIssuer))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid JWT configuration")
	}
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.StoreDriver).Str("reset_store", cfg.ResetTokenStore).Msg("init stores")
	}

	var mailer ports.MailSender
	switch cfg.Mail.Driver {
	case config.MailSMTP:
		mailer = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	default:
		mailer = mail.NewLogSender(logger.Component("mail"))
	}

	authService := service.NewAuthService(st.users, hasher, codec, logger.Component("auth"))
	resetService := service.NewPasswordResetService(st.users, st.resets, hasher, mailer, service.ResetConfig{
		AppURL: cfg.AppURL,
		TTL:    cfg.Auth.ResetTokenTTL,
	}, logger.Component("password_reset"))

	e := api.NewRouter(api.Dependencies{
		Auth:          authService,
		Authenticator: authService,
		Reset:         resetService,
		TokenMode:     middleware.Mode(cfg.Auth.InvalidTokenMode),
		CORSOrigins:   cfg.CORSOrigins,
		Readiness:     st.readiness,
		Log:           log,
	})

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.StoreDriver).
			Str("reset_store", cfg.ResetTokenStore).
			Str("token_mode", cfg.Auth.InvalidTokenMode).
			Msg("insurance-auth listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	st.close(shutdownCtx, log)
	log.Info().Msg("shutdown complete")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{readiness: make(map[string]handler.PingFunc)}

	var (
		mongoDB *mongostore.Store
		pgDB    *pgstore.Store
	)
	if cfg.UsesDriver(config.DriverMongo) {
		s, err := mongostore.Open(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		mongoDB = s
		st.readiness["mongodb"] = s.Ping
		st.closers = append(st.closers, s.Close)
	}
	if cfg.UsesDriver(config.DriverPostgres) {
		s, err := pgstore.Open(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			st.close(ctx, zerolog.Nop())
			return nil, err
		}
		pgDB = s
		st.readiness["postgres"] = s.Ping
		st.closers = append(st.closers, func(context.Context) error { return s.Close() })
	}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		st.users = mongoDB.Users
	case config.DriverPostgres:
		st.users = pgDB.Users
	}

	switch cfg.ResetTokenStore {
	case config.DriverMongo:
		st.resets = mongoDB.ResetTokens
	case config.DriverPostgres:
		st.resets = pgDB.ResetTokens
	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			st.close(ctx, zerolog.Nop())
			return nil, err
		}
		st.resets = redisstore.NewResetTokenRepository(client)
		st.readiness["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		st.closers = append(st.closers, func(context.Context) error { return client.Close() })
	}

	return st, nil
}
