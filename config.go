package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported primary storage drivers.
const (
	StorageRedis    = "redis"
	StorageBoltDB   = "bolt"
	StoragePostgres = "postgres"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string          `yaml:"git_commit" envconfig:"BOOKS_GIT_COMMIT"`
	GitTag                  string          `yaml:"git_tag" envconfig:"BOOKS_GIT_TAG"`
	BuildTime               string          `yaml:"build_time" envconfig:"BOOKS_BUILD_TIME"`
	IsProduction            bool            `yaml:"is_production" envconfig:"BOOKS_IS_PRODUCTION"`
	LogLevel                zapcore.Level   `yaml:"log_level" envconfig:"BOOKS_LOG_LEVEL"`
	LogFolder               string          `yaml:"log_folder" envconfig:"BOOKS_LOG_FOLDER"`
	LogMaxSize              int             `yaml:"log_max_size" envconfig:"BOOKS_LOG_MAX_SIZE"`
	OpsEndpointsEnable      bool            `yaml:"ops_endpoints_enable" envconfig:"BOOKS_OPS_ENDPOINTS_ENABLE"`
	ProfilerEndpointsEnable bool            `yaml:"profiler_endpoints_enable" envconfig:"BOOKS_PROFILER_ENDPOINTS_ENABLE"`
	Server                  ServerConfig    `yaml:"server"`
	Storage                 StorageConfig   `yaml:"storage"`
	Redis                   RedisConfig     `yaml:"redis"`
	BoltDB                  BoltDBConfig    `yaml:"boltdb"`
	Postgres                PostgresConfig  `yaml:"postgres"`
	RateLimit               RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"BOOKS_SERVER_HOST"`
	Port                    string        `yaml:"port" envconfig:"BOOKS_SERVER_PORT"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"BOOKS_SERVER_READ_TIMEOUT"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"BOOKS_SERVER_WRITE_TIMEOUT"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"BOOKS_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"BOOKS_SERVER_LONG_REQUEST_WRITE_TIMEOUT"`
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"BOOKS_SERVER_SHUTDOWN_TIMEOUT"`
	MaxPageSize             int           `yaml:"max_page_size" envconfig:"BOOKS_SERVER_MAX_PAGE_SIZE"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BOOKS_STORAGE_DRIVER"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BOOKS_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BOOKS_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BOOKS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BOOKS_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BOOKS_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BOOKS_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BOOKS_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BOOKS_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BOOKS_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BOOKS_REDIS_DATABASE_INDEX"`
}

// BoltDBConfig configures the embedded store. With Replica set and redis as
// the primary driver, every mutation is mirrored into this store.
type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BOOKS_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BOOKS_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BOOKS_BOLTDB_BUCKET_NAME"`
	Replica    bool          `yaml:"replica" envconfig:"BOOKS_BOLTDB_REPLICA"`
}

type PostgresConfig struct {
	DSN           string        `yaml:"dsn" envconfig:"BOOKS_POSTGRES_DSN" json:"-"`
	MaxConns      int32         `yaml:"max_conns" envconfig:"BOOKS_POSTGRES_MAX_CONNS"`
	ConnTimeout   time.Duration `yaml:"conn_timeout" envconfig:"BOOKS_POSTGRES_CONN_TIMEOUT"`
	RunMigrations bool          `yaml:"run_migrations" envconfig:"BOOKS_POSTGRES_RUN_MIGRATIONS"`
}

type RateLimitConfig struct {
	Enable bool    `yaml:"enable" envconfig:"BOOKS_RATELIMIT_ENABLE"`
	RPS    float64 `yaml:"rps" envconfig:"BOOKS_RATELIMIT_RPS"`
	Burst  int     `yaml:"burst" envconfig:"BOOKS_RATELIMIT_BURST"`

	// TrustProxy keys the buckets on X-Real-IP / X-Forwarded-For. Enable it
	// only when a reverse proxy in front of the service sets those headers.
	TrustProxy bool `yaml:"trust_proxy" envconfig:"BOOKS_RATELIMIT_TRUST_PROXY"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.Server.MaxPageSize <= 0 {
		config.Server.MaxPageSize = MaxPageSize
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 100
	}

	if len(config.Storage.Driver) == 0 {
		config.Storage.Driver = StorageRedis
	}

	switch config.Storage.Driver {
	case StorageRedis:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	case StorageBoltDB:
		if len(config.BoltDB.FilePath) == 0 || len(config.BoltDB.BucketName) == 0 {
			return errors.New("make sure to set valid boltdb file path and bucket name in configuration file")
		}
	case StoragePostgres:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a valid postgres dsn in configuration file")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if config.BoltDB.Replica && config.Storage.Driver != StorageRedis {
		return errors.New("boltdb replica requires redis as storage driver")
	}

	if config.RateLimit.Enable && (config.RateLimit.RPS <= 0 || config.RateLimit.Burst <= 0) {
		return errors.New("make sure to set positive rate limit rps and burst in configuration file")
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration. The file is optional.
	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BOOKS`.
	err = LoadConfigEnvs("BOOKS", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
