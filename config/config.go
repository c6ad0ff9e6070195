package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API       APIConfig
	Session   SessionConfig
	Engine    EngineConfig
	Dashboard DashboardConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RabbitMQ  RabbitMQConfig
	SMTP      SMTPConfig
}

type APIConfig struct {
	BaseURL        string
	SocketURL      string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

type SessionConfig struct {
	Email    string
	Password string
	// ReconnectDelay is the pause before the session redials a dropped socket.
	ReconnectDelay time.Duration
}

type EngineConfig struct {
	PollInterval   time.Duration
	CommissionRate float64
	DeliveryFee    float64
}

type DashboardConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RabbitMQConfig struct {
	URL       string
	QueueName string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		API: APIConfig{
			BaseURL:        getEnv("FASTBITE_API_URL", "http://localhost:5000/api"),
			SocketURL:      getEnv("FASTBITE_SOCKET_URL", "ws://localhost:5000/ws"),
			RequestTimeout: getDuration("FASTBITE_REQUEST_TIMEOUT", 10*time.Second),
			MaxRetries:     getInt("FASTBITE_MAX_RETRIES", 2),
			RetryBackoff:   getDuration("FASTBITE_RETRY_BACKOFF", 500*time.Millisecond),
		},
		Session: SessionConfig{
			Email:          getEnv("FASTBITE_EMAIL", ""),
			Password:       getEnv("FASTBITE_PASSWORD", ""),
			ReconnectDelay: getDuration("FASTBITE_RECONNECT_DELAY", 5*time.Second),
		},
		Engine: EngineConfig{
			PollInterval:   getDuration("FASTBITE_POLL_INTERVAL", 5*time.Second),
			CommissionRate: getFloat("FASTBITE_COMMISSION_RATE", 0.2),
			DeliveryFee:    getFloat("FASTBITE_DELIVERY_FEE", 5),
		},
		Dashboard: DashboardConfig{
			Port:         getEnv("DASHBOARD_PORT", "8080"),
			ReadTimeout:  time.Second * 10,
			WriteTimeout: time.Second * 10,
			JWTSecret:    getEnv("DASHBOARD_JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			TTL:      getDuration("REDIS_SNAPSHOT_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKER", "")),
			Topic:   getEnv("KAFKA_TOPIC", "food_notifications"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:       getEnv("RABBITMQ_URL", ""),
			QueueName: getEnv("RABBITMQ_QUEUE", "notifications"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "FastBite <no-reply@fastbite.com>"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
