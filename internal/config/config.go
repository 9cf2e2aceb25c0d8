package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Name           string `mapstructure:"name"`
	Port           int    `mapstructure:"port"`
	ReadSeconds    int    `mapstructure:"read_timeout_seconds"`
	WriteSeconds   int    `mapstructure:"write_timeout_seconds"`
	IdleSeconds    int    `mapstructure:"idle_timeout_seconds"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
	BodyLimitMB    int    `mapstructure:"body_limit_mb"`
	CORSOrigins    string `mapstructure:"cors_origins"`
}

type MongoConf struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
	Users    string `mapstructure:"users_collection"`
	Albums   string `mapstructure:"albums_collection"`
	Images   string `mapstructure:"images_collection"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConf struct {
	Secret       string `mapstructure:"secret"`
	Issuer       string `mapstructure:"issuer"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
	BcryptCost   int    `mapstructure:"bcrypt_cost"`
}

type MediaConf struct {
	Driver            string `mapstructure:"driver"` // s3 | minio | memory
	Folder            string `mapstructure:"folder"`
	MaxUploadMB       int    `mapstructure:"max_upload_mb"`
	PresignTTLSeconds int    `mapstructure:"presign_ttl_seconds"`
	PublicBaseURL     string `mapstructure:"public_base_url"`
}

type AWSConf struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type MinioConf struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type BreakerConf struct {
	MaxFailures uint32 `mapstructure:"max_failures"`
	IntervalSec int    `mapstructure:"interval_seconds"`
	TimeoutSec  int    `mapstructure:"timeout_seconds"`
}

type OrchestratorConf struct {
	CompensationSeconds int    `mapstructure:"compensation_timeout_seconds"`
	DeleteRetries       uint64 `mapstructure:"delete_retries"`
	RetryIntervalMillis int    `mapstructure:"retry_interval_millis"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RateLimitConf struct {
	AuthPerMinute int `mapstructure:"auth_per_minute"`
}

type ConsulConf struct {
	Addr           string `mapstructure:"addr"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceAddress string `mapstructure:"service_address"`
}

type Config struct {
	App          AppConf          `mapstructure:"app"`
	Mongo        MongoConf        `mapstructure:"mongodb"`
	Redis        RedisConf        `mapstructure:"redis"`
	JWT          JWTConf          `mapstructure:"jwt"`
	Media        MediaConf        `mapstructure:"media"`
	AWS          AWSConf          `mapstructure:"aws"`
	Minio        MinioConf        `mapstructure:"minio"`
	Breaker      BreakerConf      `mapstructure:"breaker"`
	Orchestrator OrchestratorConf `mapstructure:"orchestrator"`
	Kafka        KafkaConf        `mapstructure:"kafka"`
	RateLimit    RateLimitConf    `mapstructure:"ratelimit"`
	Consul       ConsulConf       `mapstructure:"consul"`
	Log          struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	ShutdownTimeout     time.Duration
	SessionTTL          time.Duration
	PresignTTL          time.Duration
	CompensationTimeout time.Duration
	RetryInterval       time.Duration
	MaxUploadBytes      int64
}

func (c *Config) Development() bool { return c.App.Env == "development" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "kaviospix")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.read_timeout_seconds", 30)
	v.SetDefault("app.write_timeout_seconds", 30)
	v.SetDefault("app.idle_timeout_seconds", 60)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.body_limit_mb", 12)
	v.SetDefault("app.cors_origins", "*")
	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "kaviospix")
	v.SetDefault("mongodb.users_collection", "users")
	v.SetDefault("mongodb.albums_collection", "albums")
	v.SetDefault("mongodb.images_collection", "images")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "kaviospix")
	v.SetDefault("jwt.ttl_hours", 24)
	v.SetDefault("jwt.cookie_name", "authToken")
	v.SetDefault("jwt.cookie_secure", true)
	v.SetDefault("jwt.bcrypt_cost", 10)
	v.SetDefault("media.driver", "memory")
	v.SetDefault("media.folder", "imageAlbum")
	v.SetDefault("media.max_upload_mb", 10)
	v.SetDefault("media.presign_ttl_seconds", 600)
	v.SetDefault("media.public_base_url", "")
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.bucket", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.interval_seconds", 60)
	v.SetDefault("breaker.timeout_seconds", 30)
	v.SetDefault("orchestrator.compensation_timeout_seconds", 10)
	v.SetDefault("orchestrator.delete_retries", 3)
	v.SetDefault("orchestrator.retry_interval_millis", 200)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "kaviospix.images")
	v.SetDefault("ratelimit.auth_per_minute", 30)
	v.SetDefault("consul.addr", "")
	v.SetDefault("consul.service_name", "kaviospix")
	v.SetDefault("consul.service_address", "")
	v.SetDefault("log.level", "info")
}

// Load reads the yaml file at path, then lets environment variables override
// any key (jwt.secret -> JWT_SECRET). A .env file in the working directory is
// loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.derive()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derive() {
	c.ReadTimeout = time.Duration(c.App.ReadSeconds) * time.Second
	c.WriteTimeout = time.Duration(c.App.WriteSeconds) * time.Second
	c.IdleTimeout = time.Duration(c.App.IdleSeconds) * time.Second
	c.ShutdownTimeout = time.Duration(c.App.ShutdownSecond) * time.Second
	c.SessionTTL = time.Duration(c.JWT.TTLHours) * time.Hour
	c.PresignTTL = time.Duration(c.Media.PresignTTLSeconds) * time.Second
	c.CompensationTimeout = time.Duration(c.Orchestrator.CompensationSeconds) * time.Second
	c.RetryInterval = time.Duration(c.Orchestrator.RetryIntervalMillis) * time.Millisecond
	c.MaxUploadBytes = int64(c.Media.MaxUploadMB) << 20

	// env overrides arrive as a single comma separated string
	var brokers []string
	for _, b := range c.Kafka.Brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	c.Kafka.Brokers = brokers
}

func (c *Config) validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl_hours must be positive"))
	}
	switch c.Media.Driver {
	case "memory":
	case "s3":
		if c.AWS.Bucket == "" || c.AWS.Region == "" {
			errs = append(errs, errors.New("aws.bucket and aws.region are required for the s3 media driver"))
		}
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			errs = append(errs, errors.New("minio.endpoint and minio.bucket are required for the minio media driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown media.driver %q", c.Media.Driver))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("media.max_upload_mb must be positive"))
	}
	return errors.Join(errs...)
}
