package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Catalog account linking
	RouteCatalogConnect  = "/api/catalog/connect"
	RouteCatalogCallback = "/api/catalog/callback"
	RouteCatalogStatus   = "/api/catalog/status"

	// Collection and wantlist entries
	RouteCollectionItem = "/api/collection/{itemID}"

	RouteHealth = "/health"
)
