package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	// The provider redirects the browser here, so there is no bearer token; the user
	// comes from the pending authorization.
	s.RegisterRouteHandler("GET "+RouteCatalogCallback, ChainMiddleware(s.CatalogCallbackHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteCatalogConnect, ChainMiddleware(s.CatalogConnectHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteCatalogConnect, ChainMiddleware(s.CatalogDisconnectHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteCatalogStatus, ChainMiddleware(s.CatalogStatusHandler(), s.APIMiddleware(s.RequireAuth())...))

	s.RegisterRouteHandler("GET "+RouteCollectionItem, ChainMiddleware(s.CollectionOverviewHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("PUT "+RouteCollectionItem, ChainMiddleware(s.CollectionUpsertHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteCollectionItem, ChainMiddleware(s.CollectionRemoveHandler(), s.APIMiddleware(s.RequireAuth())...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
