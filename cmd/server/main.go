package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/collection"
	"github.com/jrsteele09/go-catalog-link/credentials"
	"github.com/jrsteele09/go-catalog-link/credentials/redisrepo"
	"github.com/jrsteele09/go-catalog-link/credentials/repofake"
	"github.com/jrsteele09/go-catalog-link/internal/config"
	"github.com/jrsteele09/go-catalog-link/linking"
	"github.com/jrsteele09/go-catalog-link/linking/pending"
	"github.com/jrsteele09/go-catalog-link/oauth1"
	"github.com/jrsteele09/go-catalog-link/server"
	"github.com/jrsteele09/go-catalog-link/storage/sqlite"
	"github.com/jrsteele09/go-catalog-link/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	configureLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := sqlite.Open(c.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("sqlite.Open: %w", err)
	}
	defer store.Close()

	creds, closeCreds, err := credentialRepo(c, store)
	if err != nil {
		return err
	}
	defer closeCreds()

	pendingStore := pending.NewStore(
		pending.WithTTL(c.GetPendingTTL()),
		pending.WithSweepInterval(c.GetSweepInterval()),
	)
	pendingStore.Start(ctx)
	defer pendingStore.Stop()

	signer, err := oauth1.NewSigner(c.GetConsumerKey(), c.GetConsumerSecret())
	if err != nil {
		return fmt.Errorf("oauth1.NewSigner: %w", err)
	}
	limiter := catalog.NewLimiter(c.GetRequestsPerMinute())
	catalogs := catalogFactory(c, signer, limiter)
	checkAppToken(ctx, c, limiter)

	linker, err := linking.NewService(
		signer,
		linking.EndpointsFor(c.GetAPIBaseURL(), c.GetAuthorizeURL(), c.GetCallbackURL()),
		pendingStore,
		creds,
		linking.WithHTTPClient(&http.Client{Timeout: c.GetRequestTimeout()}),
		linking.WithIdentity(func(ctx context.Context, credential credentials.AccessCredential) (catalog.Identity, error) {
			client, err := catalogs(credential)
			if err != nil {
				return catalog.Identity{}, err
			}
			return client.Identity(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("linking.NewService: %w", err)
	}

	engine, err := collection.NewEngine(
		collection.Repos{Credentials: creds, Local: store},
		func(credential credentials.AccessCredential) (collection.Catalog, error) {
			return catalogs(credential)
		},
		collection.WithDefaultFolderID(c.GetDefaultFolderID()),
	)
	if err != nil {
		return fmt.Errorf("collection.NewEngine: %w", err)
	}

	verifier, err := token.NewHMACSigner(c.GetJWTSecret(), token.WithIssuer(c.GetJWTIssuer()))
	if err != nil {
		return fmt.Errorf("token.NewHMACSigner: %w", err)
	}

	handler, err := server.New(c, server.Services{
		Linking:    linker,
		Collection: engine,
		Identity:   verifier,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// catalogFactory builds per-user clients that share one application-wide limiter.
func catalogFactory(c config.Config, signer *oauth1.Signer, limiter *rate.Limiter) func(credentials.AccessCredential) (*catalog.Client, error) {
	cfg := catalog.Config{
		BaseURL:   c.GetAPIBaseURL(),
		UserAgent: c.GetUserAgent(),
		Timeout:   c.GetRequestTimeout(),
	}
	return func(credential credentials.AccessCredential) (*catalog.Client, error) {
		return catalog.New(cfg, catalog.OAuthAuthorizer{
			Signer:      signer,
			Token:       credential.AccessToken,
			TokenSecret: credential.AccessTokenSecret,
		}, catalog.WithLimiter(limiter))
	}
}

// checkAppToken resolves the application's own account when a personal token is
// configured. A failure is only logged.
func checkAppToken(ctx context.Context, c config.Config, limiter *rate.Limiter) {
	if c.GetAppToken() == "" {
		return
	}
	client, err := catalog.New(catalog.Config{
		BaseURL:   c.GetAPIBaseURL(),
		UserAgent: c.GetUserAgent(),
		Timeout:   c.GetRequestTimeout(),
	}, catalog.TokenAuthorizer{Token: c.GetAppToken()}, catalog.WithLimiter(limiter))
	if err != nil {
		log.Warn().Err(err).Msg("Catalog client not configured")
		return
	}
	identity, err := client.Identity(ctx)
	if err != nil {
		log.Warn().Err(err).Str("api", c.GetAPIBaseURL()).Msg("Catalog unreachable with app token")
		return
	}
	log.Info().Str("account", identity.Username).Msg("Catalog reachable")
}

func credentialRepo(c config.Config, store *sqlite.Store) (credentials.Repo, func(), error) {
	switch c.GetCredentialStore() {
	case config.CredentialStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Credentials stored in redis")
		return redisrepo.NewRedisCredentialRepo(client), func() { _ = client.Close() }, nil
	case config.CredentialStoreMemory:
		log.Warn().Msg("Credentials held in memory; links are lost on restart")
		return repofake.NewFakeCredentialRepo(), func() {}, nil
	default:
		return store, func() {}, nil
	}
}

func configureLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
