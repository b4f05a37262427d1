package config

type StorageConfig interface {
	GetDatabasePath() string
	GetCredentialStore() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

const (
	CredentialStoreSQLite = "sqlite"
	CredentialStoreRedis  = "redis"
	CredentialStoreMemory = "memory"
)

type Storage struct {
	DatabasePath    string `env:"DATABASE_PATH" envDefault:"./data/catalog.db"`
	CredentialStore string `env:"CREDENTIAL_STORE" envDefault:"sqlite"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetDatabasePath() string  { return s.DatabasePath }
func (s Storage) GetRedisAddr() string     { return s.RedisAddr }
func (s Storage) GetRedisPassword() string { return s.RedisPassword }
func (s Storage) GetRedisDB() int          { return s.RedisDB }

func (s Storage) GetCredentialStore() string {
	switch s.CredentialStore {
	case CredentialStoreRedis, CredentialStoreMemory:
		return s.CredentialStore
	default:
		return CredentialStoreSQLite
	}
}
