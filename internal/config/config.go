package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string        `env:"DB_DSN,required"`
	DBMaxConns    int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	Environment   string        `env:"ENV" envDefault:"development"`
	LogLevel      string        `env:"LOG_LEVEL"`
	TxIsolation   string        `env:"TX_ISOLATION" envDefault:"serializable"`
	AuditInterval time.Duration `env:"AUDIT_INTERVAL" envDefault:"1m"`
	ConflictRetry uint64        `env:"CONFLICT_RETRIES" envDefault:"3"`
}

// Load читает конфигурацию из .env (если файл есть) и переменных окружения
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	// Отсутствие .env не ошибка, переменные могут прийти из окружения
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := cfg.IsoLevel(); err != nil {
		return nil, err
	}

	if cfg.AuditInterval <= 0 {
		return nil, fmt.Errorf("AUDIT_INTERVAL must be positive, got %s", cfg.AuditInterval)
	}

	return cfg, nil
}

// IsoLevel уровень изоляции транзакций координатора
func (c *Config) IsoLevel() (pgx.TxIsoLevel, error) {
	switch c.TxIsolation {
	case "serializable", "":
		return pgx.Serializable, nil
	case "repeatable_read":
		return pgx.RepeatableRead, nil
	case "read_committed":
		return pgx.ReadCommitted, nil
	}
	return "", fmt.Errorf("unsupported TX_ISOLATION %q", c.TxIsolation)
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
