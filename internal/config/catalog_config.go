package config

import "time"

type CatalogConfig interface {
	GetConsumerKey() string
	GetConsumerSecret() string
	GetAppToken() string
	GetAPIBaseURL() string
	GetAuthorizeURL() string
	GetUserAgent() string
	GetRequestTimeout() time.Duration
	GetRequestsPerMinute() int
	GetDefaultFolderID() int
}

// Catalog holds the upstream catalog provider settings. The defaults target the
// Discogs API.
type Catalog struct {
	ConsumerKey       string        `env:"CATALOG_CONSUMER_KEY"`
	ConsumerSecret    string        `env:"CATALOG_CONSUMER_SECRET"`
	AppToken          string        `env:"CATALOG_APP_TOKEN"`
	APIBaseURL        string        `env:"CATALOG_API_URL" envDefault:"https://api.discogs.com"`
	AuthorizeURL      string        `env:"CATALOG_AUTHORIZE_URL" envDefault:"https://www.discogs.com/oauth/authorize"`
	UserAgent         string        `env:"CATALOG_USER_AGENT" envDefault:"go-catalog-link/1.0"`
	RequestTimeout    time.Duration `env:"CATALOG_REQUEST_TIMEOUT" envDefault:"15s"`
	RequestsPerMinute int           `env:"CATALOG_REQUESTS_PER_MINUTE" envDefault:"60"`
	DefaultFolderID   int           `env:"CATALOG_DEFAULT_FOLDER_ID" envDefault:"1"`
}

var _ CatalogConfig = Catalog{}

func (c Catalog) GetConsumerKey() string    { return c.ConsumerKey }
func (c Catalog) GetConsumerSecret() string { return c.ConsumerSecret }
func (c Catalog) GetAppToken() string       { return c.AppToken }
func (c Catalog) GetAPIBaseURL() string     { return c.APIBaseURL }
func (c Catalog) GetAuthorizeURL() string   { return c.AuthorizeURL }
func (c Catalog) GetUserAgent() string      { return c.UserAgent }

func (c Catalog) GetRequestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return c.RequestTimeout
}

func (c Catalog) GetRequestsPerMinute() int {
	return c.RequestsPerMinute // 0 disables client-side limiting
}

func (c Catalog) GetDefaultFolderID() int {
	if c.DefaultFolderID <= 0 {
		return 1 // "Uncategorized"
	}
	return c.DefaultFolderID
}
