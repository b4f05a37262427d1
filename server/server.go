package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-catalog-link/catalog"
	"github.com/jrsteele09/go-catalog-link/collection"
	"github.com/jrsteele09/go-catalog-link/internal/config"
	"github.com/jrsteele09/go-catalog-link/linking"
	"github.com/jrsteele09/go-catalog-link/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Linker runs the catalog account handshake. *linking.Service implements it.
type Linker interface {
	StartHandshake(ctx context.Context, userID string) (string, error)
	HandleCallback(ctx context.Context, cb linking.Callback) (linking.Outcome, error)
	Status(ctx context.Context, userID string) (linking.Status, error)
	Disconnect(ctx context.Context, userID string) error
}

// Reconciler applies collection changes. *collection.Engine implements it.
type Reconciler interface {
	Upsert(ctx context.Context, user collection.User, item catalog.ItemID, change collection.Change) (collection.Entry, error)
	Remove(ctx context.Context, user collection.User, item catalog.ItemID) error
	Overview(ctx context.Context, user collection.User, item catalog.ItemID) (*collection.Entry, error)
}

// IdentityVerifier resolves a bearer token to the calling user.
type IdentityVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

var (
	_ Linker           = (*linking.Service)(nil)
	_ Reconciler       = (*collection.Engine)(nil)
	_ IdentityVerifier = (*token.HMACSigner)(nil)
)

// Services holds the domain services behind the HTTP routes.
type Services struct {
	Linking    Linker
	Collection Reconciler
	Identity   IdentityVerifier
}

type Server struct {
	env           string // Environment (e.g., "DEV", "PROD")
	mux           *http.ServeMux
	routes        []string
	completionURL string
	services      Services
}

func New(cfg config.Config, services Services) (*Server, error) {
	if services.Linking == nil {
		return nil, fmt.Errorf("[Server New] linking service is required")
	}
	if services.Collection == nil {
		return nil, fmt.Errorf("[Server New] collection service is required")
	}
	if services.Identity == nil {
		return nil, fmt.Errorf("[Server New] identity verifier is required")
	}

	s := &Server{
		env:           cfg.GetEnv(),
		mux:           http.NewServeMux(),
		completionURL: cfg.GetCompletionURL(),
		services:      services,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(log.Logger, parts[0], parts[1])
		} else {
			logRoute(log.Logger, "", parts[0])
		}
	}
}

var methodColors = map[string]string{
	"GET":    "\033[32m",
	"POST":   "\033[34m",
	"PUT":    "\033[36m",
	"DELETE": "\033[33m",
	"PATCH":  "\033[35m",
}

const (
	gray       = "\033[90m"
	resetColor = "\033[0m"
)

func logRoute(logger zerolog.Logger, method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	logger.Info().Msgf("[%s] %s", color+paddedMethod+resetColor, path)
}
