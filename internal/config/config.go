package config

import (
	"os"
	"strconv"

	"github.com/samber/lo"

	"fiber-cms-pg/internal/logx"
)

var configLogger = logx.GetScope("config")

// Config holds the application configuration
type Config struct {
	AppEnv string
	Server struct {
		Addr string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text, json
	}
	CMS struct {
		BasePath  string // mount point for the whole admin surface
		StaticDir string // extra candidate dir for admin shell assets
	}
	PG struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
	}
	SQLite struct {
		Path string // used when PG.URL is empty
	}
	DB struct {
		AutoMigrate bool
	}
	Storage struct {
		Endpoint        string
		Bucket          string
		AccessKeyID     string
		SecretAccessKey string
		Region          string
		PublicURL       string // overrides URL construction entirely when set
		PathPrefix      string
		URLStyle        string // path | virtual-hosted
	}
	Auth struct {
		Secret      string // HS256 signing secret
		Issuer      string
		AccessMin   int // access token TTL in minutes
		SessionDays int // session row / cookie TTL in days
	}
	Redis struct {
		Addr          string
		Password      string
		DB            int
		DialTimeoutMS int
	}
	MQ struct {
		URL      string // RabbitMQ URL
		Exchange string
	}
	ES struct {
		Addrs    string // comma separated
		Username string
		Password string
		Index    string
	}
	Apollo struct {
		Enable    bool
		AppID     string
		Cluster   string
		Namespace string
		Addrs     string
		AccessKey string
	}
}

// Load loads config from env, and if enabled, overrides with Apollo values.
// Returns config, the live store, an optional apollo closer, and error.
func Load() (*Config, *Store, func(), error) {
	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.Server.Addr = getEnv("SERVER_ADDR", ":8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "text")

	cfg.CMS.BasePath = getEnv("CMS_BASE_PATH", "/admin")
	cfg.CMS.StaticDir = getEnv("CMS_STATIC_DIR", "")

	cfg.PG.URL = getEnv("POSTGRES_URL", "")
	cfg.PG.MaxOpenConns = getInt("PG_MAX_OPEN", 10)
	cfg.PG.MaxIdleConns = getInt("PG_MAX_IDLE", 5)
	cfg.SQLite.Path = getEnv("SQLITE_PATH", "file:cms.db?_pragma=foreign_keys(1)")
	cfg.DB.AutoMigrate = getBool("DB_AUTO_MIGRATE", true)

	cfg.Storage.Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.Storage.Bucket = getEnv("S3_BUCKET", "")
	cfg.Storage.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", "")
	cfg.Storage.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", "")
	cfg.Storage.Region = getEnv("S3_REGION", "auto")
	cfg.Storage.PublicURL = getEnv("S3_PUBLIC_URL", "")
	cfg.Storage.PathPrefix = getEnv("S3_PATH_PREFIX", "cms")
	cfg.Storage.URLStyle = getEnv("S3_URL_STYLE", "path")

	cfg.Auth.Secret = getEnv("AUTH_SECRET", "")
	cfg.Auth.Issuer = getEnv("AUTH_ISSUER", "fiber-cms-pg")
	cfg.Auth.AccessMin = getInt("AUTH_ACCESS_MIN", 15)
	cfg.Auth.SessionDays = getInt("AUTH_SESSION_DAYS", 7)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)
	cfg.Redis.DialTimeoutMS = getInt("REDIS_DIAL_TIMEOUT_MS", 2000)

	cfg.MQ.URL = getEnv("RABBITMQ_URL", "")
	cfg.MQ.Exchange = getEnv("RABBITMQ_EXCHANGE", "cms.events")

	cfg.ES.Addrs = getEnv("ES_ADDRS", "")
	cfg.ES.Username = getEnv("ES_USERNAME", "")
	cfg.ES.Password = getEnv("ES_PASSWORD", "")
	cfg.ES.Index = getEnv("ES_INDEX", "cms-entries")

	cfg.Apollo.Enable = getBool("APOLLO_ENABLE", false)
	cfg.Apollo.AppID = getEnv("APOLLO_APP_ID", "")
	cfg.Apollo.Cluster = getEnv("APOLLO_CLUSTER", "default")
	cfg.Apollo.Namespace = getEnv("APOLLO_NAMESPACE", "application")
	cfg.Apollo.Addrs = getEnv("APOLLO_ADDRS", "")
	cfg.Apollo.AccessKey = getEnv("APOLLO_ACCESS_KEY", "")

	store := NewStore(cfg)

	if cfg.Apollo.Enable {
		closer, err := overrideFromApollo(cfg, store)
		if err != nil {
			configLogger.Sugar().Errorf("apollo override failed: %v", err)
			return cfg, store, closer, err
		}
		return cfg, store, closer, nil
	}

	return cfg, store, nil, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
