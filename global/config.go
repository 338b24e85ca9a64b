package global

import (
	"os"

	"github.com/go-redis/redis_rate/v10"
	"gopkg.in/yaml.v3"
)

// Conf global config
var Conf Config

// Global flood-guard rate limiter (per-connection, sits in front of the policy limiter)
var FloodLimiter *redis_rate.Limiter

type Config struct {
	Version    string           `yaml:"version"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	Scheme     string           `yaml:"scheme"`
	Mode       string           `yaml:"mode"`
	CouchDB    CouchDBConfig    `yaml:"couchdb"`
	Redis      RedisConfig      `yaml:"redis"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Queue      QueueConfig      `yaml:"queue"`
	Storage    StorageConfig    `yaml:"storage"`
	Jwt        JwtConfig        `yaml:"jwt"`
	Wallet     WalletConfig     `yaml:"wallet"`
}

type CouchDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type StorageConfig struct {
	Type   string `yaml:"type"`
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
}

type JwtConfig struct {
	SigningKey  string `yaml:"signingKey"`
	ExpiryHours int    `yaml:"expiryHours"`
}

// Withdrawal ceilings in USD. Zero values fall back to built-in defaults.
type WalletConfig struct {
	PerTransactionLimitUSD float64 `yaml:"perTransactionLimitUsd"`
	DailyLimitUSD          float64 `yaml:"dailyLimitUsd"`
	WeeklyLimitUSD         float64 `yaml:"weeklyLimitUsd"`
}

// MasterKeyEnv is the environment variable holding the version 0 fallback
// encryption key (base64). Keys provisioned in CouchDB take precedence over it.
const MasterKeyEnv = "MINTBAY_MASTER_KEY"

// MasterKeyFromEnv returns the fallback master key, empty when not set
func MasterKeyFromEnv() string {
	return os.Getenv(MasterKeyEnv)
}

// LoadConfig reads the yaml configuration file into conf
func LoadConfig(path string, conf *Config) error {
	confBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(confBytes, conf)
}
