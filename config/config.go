package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	SQLite    SQLiteConfig
	Catalog   CatalogConfig
	Feed      FeedConfig
	Inventory InventoryConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Elastic   ElasticsearchConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type SQLiteConfig struct {
	Path string
}

// CatalogConfig holds the remote catalog API credentials and paging knobs.
type CatalogConfig struct {
	StoreURL        string
	ConsumerKey     string
	ConsumerSecret  string
	APIVersion      string
	PerPage         int
	VariablePerPage int
	Timeout         time.Duration
	ProbeTimeout    time.Duration
}

type FeedConfig struct {
	DefaultURL string
	Timeout    time.Duration
	// SKU prefix the catalog applies to items the supplier also carries.
	// A feed item whose prefixed SKU already exists locally is never imported.
	CatalogSKUPrefix string
}

type InventoryConfig struct {
	DefaultLowStockThreshold int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type ElasticsearchConfig struct {
	Enabled   bool
	Addresses []string
	Username  string
	Password  string
	Index     string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "development"),
			HTTPPort: getEnv("HTTP_PORT", ":8080"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "stockroom.db"),
		},
		Catalog: CatalogConfig{
			StoreURL:        getEnv("CATALOG_STORE_URL", ""),
			ConsumerKey:     getEnv("CATALOG_CONSUMER_KEY", ""),
			ConsumerSecret:  getEnv("CATALOG_CONSUMER_SECRET", ""),
			APIVersion:      getEnv("CATALOG_API_VERSION", "wc/v3"),
			PerPage:         getEnvInt("CATALOG_PER_PAGE", 50),
			VariablePerPage: getEnvInt("CATALOG_VARIABLE_PER_PAGE", 20),
			Timeout:         getEnvDuration("CATALOG_TIMEOUT", 30*time.Second),
			ProbeTimeout:    getEnvDuration("CATALOG_PROBE_TIMEOUT", 10*time.Second),
		},
		Feed: FeedConfig{
			DefaultURL:       getEnv("FEED_DEFAULT_URL", ""),
			Timeout:          getEnvDuration("FEED_TIMEOUT", 120*time.Second),
			CatalogSKUPrefix: getEnv("FEED_CATALOG_SKU_PREFIX", "VLT-"),
		},
		Inventory: InventoryConfig{
			DefaultLowStockThreshold: getEnvInt("DEFAULT_LOW_STOCK_THRESHOLD", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
			GroupID: getEnv("KAFKA_GROUP_INVENTORY", "stockroom"),
		},
		Elastic: ElasticsearchConfig{
			Enabled:   getEnvBool("ELASTICSEARCH_ENABLED", false),
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:     getEnv("ELASTICSEARCH_INDEX", "inventory"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
