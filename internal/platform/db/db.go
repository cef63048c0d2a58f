package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty = idempotency middleware disabled
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // empty = activity fanout disabled
	Topic   string   `yaml:"topic"`
}

type Config struct {
	Version      string            `yaml:"version"`
	Mode         string            `yaml:"mode"` // dev | release
	Listen       string            `yaml:"listen"`
	JWTSecret    string            `yaml:"jwt_secret"`
	DB           DatabaseConfig    `yaml:"database"`
	Redis        RedisConfig       `yaml:"redis"`
	Kafka        KafkaConfig       `yaml:"kafka"`
	CreditPolicy map[string]string `yaml:"credit_policy"` // inspection status -> full|none
}

// LoadConfig reads the yaml config with a .env overlay for secrets.
// Environment wins over the file so deployments can keep credentials out of it.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is fine

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := os.Getenv("CRIMS_DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("CRIMS_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("CRIMS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	return &cfg, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// pool sizing: keep the sum across instances under MySQL max_connections
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
