package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/database"

	"go.uber.org/zap"
)

type Config struct {
	Env      string
	Port     string
	GRPCPort string

	DB          DB
	Redis       Redis
	Kafka       Kafka
	Reservation Reservation
	Idempotency Idempotency

	// DemandConfigFile: yaml с порогами спроса, пусто = значения по умолчанию.
	DemandConfigFile string
	CommitTimeout    time.Duration
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Kafka struct {
	Enabled             bool
	Brokers             []string
	TopicOrderCreated   string
	TopicOrderCancelled string
	// GroupID уникален на инстанс: каждый инстанс должен увидеть каждый заказ.
	GroupID string
}

type Reservation struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type Idempotency struct {
	CacheTTL      time.Duration
	Retention     time.Duration
	PurgeInterval time.Duration
}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		Env:      getEnvDefault("ENV", "production"),
		Port:     getEnvDefault("APP_PORT", ":8080"),
		GRPCPort: getEnvDefault("GRPC_PORT", ":9090"),
		DB:       DB{Config: loadDB(log)},
		Redis: Redis{
			Enabled:  getEnvDefault("REDIS_ENABLED", "false") == "true",
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       atoiDefault(os.Getenv("REDIS_DB"), 0),
		},
		Kafka: Kafka{
			Enabled:             getEnvDefault("KAFKA_ENABLED", "false") == "true",
			TopicOrderCreated:   getEnvDefault("KAFKA_TOPIC_ORDER_CREATED", "order.created"),
			TopicOrderCancelled: getEnvDefault("KAFKA_TOPIC_ORDER_CANCELLED", "order.cancelled"),
			GroupID:             getEnvDefault("KAFKA_GROUP_ID", defaultGroupID()),
		},
		Reservation: Reservation{
			TTL:           durationDefault(os.Getenv("RESERVATION_TTL"), 30*time.Minute),
			SweepInterval: durationDefault(os.Getenv("RESERVATION_SWEEP_INTERVAL"), time.Minute),
		},
		Idempotency: Idempotency{
			CacheTTL:      durationDefault(os.Getenv("IDEMPOTENCY_CACHE_TTL"), 24*time.Hour),
			Retention:     durationDefault(os.Getenv("IDEMPOTENCY_RETENTION"), 7*24*time.Hour),
			PurgeInterval: durationDefault(os.Getenv("IDEMPOTENCY_PURGE_INTERVAL"), time.Hour),
		},
		DemandConfigFile: os.Getenv("DEMAND_CONFIG_FILE"),
		CommitTimeout:    durationDefault(os.Getenv("COMMIT_TIMEOUT"), 10*time.Second),
	}

	if cfg.Redis.Enabled {
		cfg.Redis.Addr = getEnv("REDIS_ADDR", log)
	}
	if cfg.Kafka.Enabled {
		cfg.Kafka.Brokers = splitAndTrim(getEnv("KAFKA_BROKERS", log))
	}
	return cfg
}

func (c *Config) IsDev() bool { return c.Env == "development" }

func loadDB(log *zap.Logger) database.Config {
	driver := getEnvDefault("DB_DRIVER", database.DriverPostgres)
	if driver == database.DriverSQLite {
		return database.Config{
			Driver: driver,
			Path:   getEnv("SQLITE_PATH", log),
		}
	}

	return database.Config{
		Driver:          driver,
		Host:            getEnv("DB_HOST", log),
		Port:            getEnv("DB_PORT", log),
		User:            getEnv("DB_USER", log),
		Password:        getEnv("DB_PASSWORD", log),
		Name:            getEnv("DB_NAME", log),
		SSLMode:         getEnvDefault("DB_SSLMODE", "disable"),
		MaxOpenConns:    atoiDefault(os.Getenv("DB_MAX_OPEN_CONNS"), 20),
		MaxIdleConns:    atoiDefault(os.Getenv("DB_MAX_IDLE_CONNS"), 10),
		ConnMaxLifetime: durationDefault(os.Getenv("DB_CONN_MAX_LIFETIME"), 30*time.Minute),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// durationDefault понимает "0" как явное отключение.
func durationDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}

func defaultGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "checkout-holds-" + host
}
