package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Lock      LockConfig
	Redis     RedisConfig
	ZooKeeper ZooKeeperConfig
	Kafka     KafkaConfig

	Draw           DrawConfig
	DrawConfigPath string

	Bootstrap BootstrapConfig
}

type LockConfig struct {
	// Backend is one of memory, redis or zookeeper.
	Backend   string
	KeyPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ZooKeeperConfig struct {
	Servers        []string
	SessionTimeout time.Duration
	Root           string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type BootstrapConfig struct {
	SeedDemoData bool
}

const (
	LockBackendMemory    = "memory"
	LockBackendRedis     = "redis"
	LockBackendZooKeeper = "zookeeper"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "lottery"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "lottery"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Lock: LockConfig{
			Backend:   normalizeLockBackend(getenv("LOCK_BACKEND", LockBackendMemory)),
			KeyPrefix: strings.TrimSpace(getenv("LOCK_KEY_PREFIX", "lottery:draw")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		ZooKeeper: ZooKeeperConfig{
			Servers:        parseList(getenv("ZOOKEEPER_SERVERS", "")),
			SessionTimeout: getenvDuration("ZOOKEEPER_SESSION_TIMEOUT", 10*time.Second),
			Root:           getenv("ZOOKEEPER_LOCK_ROOT", "/lottery_locks"),
		},
		Kafka: KafkaConfig{
			Brokers: parseList(getenv("KAFKA_BROKERS", "")),
			Topic:   getenv("KAFKA_DRAW_TOPIC", "lottery.draws"),
		},
		Draw: DrawConfig{
			LockWait:     getenvDuration("DRAW_LOCK_WAIT", DefaultLockWait),
			LockLease:    getenvDuration("DRAW_LOCK_LEASE", DefaultLockLease),
			Timezone:     getenv("DRAW_TIMEZONE", DefaultTimezone),
			MaxDrawCount: getenvInt("DRAW_MAX_COUNT", DefaultMaxDrawCount),
			NoPrizeName:  getenv("DRAW_NO_PRIZE_NAME", DefaultNoPrizeName),
		},
		DrawConfigPath: strings.TrimSpace(getenv("DRAW_CONFIG_PATH", "")),
		Bootstrap: BootstrapConfig{
			SeedDemoData: getenvBool("BOOTSTRAP_SEED_DEMO", environment != "production"),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeLockBackend(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case LockBackendRedis:
		return LockBackendRedis
	case LockBackendZooKeeper, "zk":
		return LockBackendZooKeeper
	default:
		return LockBackendMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
