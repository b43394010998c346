package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agiworkforce/go-auth-client/auth"
	"github.com/agiworkforce/go-auth-client/flow"
	"github.com/agiworkforce/go-auth-client/internal/config"
	"github.com/agiworkforce/go-auth-client/internal/utils"
	"github.com/agiworkforce/go-auth-client/profile"
	"github.com/agiworkforce/go-auth-client/session"
	"github.com/agiworkforce/go-auth-client/storage"
	"github.com/agiworkforce/go-auth-client/storage/filestore"
	"github.com/agiworkforce/go-auth-client/storage/redisstore"
	"github.com/agiworkforce/go-auth-client/transport"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("authdemo failed")
	}
}

func run(logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx := context.Background()

	store, err := buildStorage(c)
	if err != nil {
		return fmt.Errorf("buildStorage: %w", err)
	}

	service, err := buildService(ctx, c, store, logger)
	if err != nil {
		return fmt.Errorf("buildService: %w", err)
	}

	if err := service.Initialize(ctx); err != nil {
		return fmt.Errorf("service.Initialize: %w", err)
	}

	if user := service.CurrentUser(); service.CheckSession() && user != nil {
		logger.Info().Str("email", user.Email).Msg("restored persisted session")
		return nil
	}

	email := config.GetEnv("DEMO_EMAIL", "")
	password := config.GetEnv("DEMO_PASSWORD", "")
	if email == "" || password == "" {
		logger.Info().Msg("no persisted session and no DEMO_EMAIL/DEMO_PASSWORD set; nothing to do")
		return nil
	}

	result := service.Login(ctx, email, password)
	if !result.Success {
		return fmt.Errorf("login failed: %s", result.Error)
	}

	user := service.CurrentUser()
	state := service.SessionState()
	logger.Info().
		Str("email", user.Email).
		Str("plan", string(user.Plan)).
		Time("expires_at", state.ExpiresAt).
		Time("period_end", utils.Value(user.Billing.CurrentPeriodEnd)).
		Msg("logged in; session persisted")
	return nil
}

func buildStorage(c config.Config) (storage.Store, error) {
	if addr := c.GetRedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		return redisstore.New(client, redisstore.WithPrefix("authdemo:"))
	}

	var options []filestore.Option
	if passphrase := c.GetStoragePassphrase(); passphrase != "" {
		options = append(options, filestore.WithPassphrase(passphrase))
	}
	return filestore.New(c.GetDataFolder(), options...)
}

func buildService(ctx context.Context, c config.Config, store storage.Store, logger zerolog.Logger) (*auth.Service, error) {
	sessionStore, err := session.NewStore(store,
		session.WithExtendWindow(c.GetSessionExtendWindow()),
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	profileStore, err := profile.NewStore(store, profile.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	t, err := transport.NewOIDCTransport(ctx, transport.OIDCConfig{
		IssuerURL:    c.GetIssuerURL(),
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		APIBaseURL:   c.GetAPIBaseURL(),
	})
	if err != nil {
		return nil, err
	}

	return auth.NewService(
		auth.Stores{Session: sessionStore, Profile: profileStore, Flow: flow.NewStore()},
		t,
		auth.WithLogger(logger),
		auth.WithTransportTimeout(c.GetTransportTimeout()),
	)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
