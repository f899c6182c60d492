package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded once at startup from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"cafeteriadb"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	KafkaBroker string `envconfig:"KAFKA_BROKER" default:"localhost:9092"`
	KafkaTopic  string `envconfig:"KAFKA_TOPIC" default:"cafeteria_order_events"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"change-me-in-production"`

	// Razorpay credentials. The key secret must never be sent to clients;
	// it is used server-side for order creation auth and signature checks.
	RazorpayKeyID     string `envconfig:"RAZORPAY_KEY_ID" default:""`
	RazorpayKeySecret string `envconfig:"RAZORPAY_KEY_SECRET" default:""`
	RazorpayBaseURL   string `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`

	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
