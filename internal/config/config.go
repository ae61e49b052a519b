package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Address  string `yaml:"address" env:"ADDRESS" env-default:":8080"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	DBHost     string `yaml:"db_host" env:"DB_HOST" env-default:"localhost"`
	DBPort     int    `yaml:"db_port" env:"DB_PORT" env-default:"5432"`
	DBUser     string `yaml:"db_user" env:"DB_USER" env-required:"true"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD" env-required:"true"`
	DBName     string `yaml:"db_name" env:"DB_NAME" env-required:"true"`

	RedisAddr string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`

	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`

	// n8n webhook endpoints. Empty values disable the corresponding feature:
	// task creation still succeeds without the improve_title trigger, and the
	// chat agent answers with the classifier's canned reply.
	TaskWebhookURL string `yaml:"task_webhook_url" env:"TASK_WEBHOOK_URL"`
	ChatWebhookURL string `yaml:"chat_webhook_url" env:"CHAT_WEBHOOK_URL"`
}

// MustLoad reads configuration from the given file, falling back to plain
// environment variables when the path is empty or missing.
func MustLoad(configPath string) Config {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			log.Fatalf("cannot read env: %s", err)
		}
		return cfg
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				log.Fatalf("cannot read env: %s", err)
			}
			return cfg
		}
		log.Fatalf("cannot read config %q: %s", configPath, err)
	}

	return cfg
}

func (c Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
