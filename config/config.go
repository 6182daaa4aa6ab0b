// Package config loads the service configuration from defaults, an optional
// YAML file and ACCOUNTS_ prefixed environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/goliatone/go-accounts/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. ACCOUNTS_DATABASE_DSN.
const EnvPrefix = "ACCOUNTS"

// Search backends.
const (
	SearchMemory   = "memory"
	SearchMongo    = "mongo"
	SearchDisabled = "disabled"
)

// Config aggregates the configuration of every component.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       logging.Config  `mapstructure:"log"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type CacheConfig struct {
	Backend            string        `mapstructure:"backend"`
	Capacity           int           `mapstructure:"capacity"`
	NumShards          int           `mapstructure:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage"`
}

type SearchConfig struct {
	Backend    string        `mapstructure:"backend"`
	QueueSize  int           `mapstructure:"queue_size"`
	Workers    int           `mapstructure:"workers"`
	JobTimeout time.Duration `mapstructure:"job_timeout"`
	Mongo      MongoConfig   `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	Collection     string        `mapstructure:"collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CandidateLimit int           `mapstructure:"candidate_limit"`
}

type BootstrapConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	AdminPassword      string `mapstructure:"admin_password"`
	DefaultPassword    string `mapstructure:"default_password"`
	ResetAdminPassword bool   `mapstructure:"reset_admin_password"`
	SeedSampleData     bool   `mapstructure:"seed_sample_data"`
}

type AuthConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	Realm         string `mapstructure:"realm"`
}

// Default returns the configuration of a single-node install: a sqlite file,
// the sturdyc cache and the in-memory search index.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "accounts.db",
			MaxOpenConns: 10,
		},
		Cache: CacheConfig{
			Backend:            "sturdyc",
			Capacity:           10000,
			NumShards:          256,
			TTL:                24 * time.Hour,
			EvictionPercentage: 10,
		},
		Search: SearchConfig{
			Backend:    SearchMemory,
			QueueSize:  1024,
			Workers:    2,
			JobTimeout: 5 * time.Second,
			Mongo: MongoConfig{
				URI:            "mongodb://localhost:27017",
				Database:       "accounts",
				Collection:     "account_documents",
				ConnectTimeout: 10 * time.Second,
				CandidateLimit: 500,
			},
		},
		Bootstrap: BootstrapConfig{
			Enabled:            true,
			AdminPassword:      "admin123",
			DefaultPassword:    "password123",
			ResetAdminPassword: true,
			SeedSampleData:     true,
		},
		Auth: AuthConfig{
			AdminUsername: "admin",
			BcryptCost:    10,
			Realm:         "accounts",
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads the configuration. When path is empty an "accounts.yaml" in the
// working directory is used if present; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("accounts")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	return validation.Errors{
		"http": validation.ValidateStruct(&c.HTTP,
			validation.Field(&c.HTTP.Addr, validation.Required),
			validation.Field(&c.HTTP.ShutdownTimeout, validation.Required),
		),
		"database": validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required, validation.In("sqlite", "postgres")),
			validation.Field(&c.Database.DSN, validation.Required),
			validation.Field(&c.Database.MaxOpenConns, validation.Min(0)),
		),
		"cache": validation.ValidateStruct(&c.Cache,
			validation.Field(&c.Cache.Backend, validation.In("sturdyc", "ttlcache")),
			validation.Field(&c.Cache.Capacity, validation.Required, validation.Min(1)),
			validation.Field(&c.Cache.TTL, validation.Required),
		),
		"search": validation.ValidateStruct(&c.Search,
			validation.Field(&c.Search.Backend, validation.Required, validation.In(SearchMemory, SearchMongo, SearchDisabled)),
			validation.Field(&c.Search.Workers, validation.Min(0)),
			validation.Field(&c.Search.QueueSize, validation.Min(0)),
		),
		"bootstrap": validation.ValidateStruct(&c.Bootstrap,
			validation.Field(&c.Bootstrap.AdminPassword, validation.When(c.Bootstrap.Enabled, validation.Required)),
			validation.Field(&c.Bootstrap.DefaultPassword, validation.When(c.Bootstrap.Enabled, validation.Required)),
		),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.AdminUsername, validation.Required),
			validation.Field(&c.Auth.BcryptCost, validation.Min(4), validation.Max(31)),
		),
	}.Filter()
}

// bindEnvs registers every key of cfg so that environment variables are
// honoured by Unmarshal even when the key is absent from the file.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string(nil), parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
