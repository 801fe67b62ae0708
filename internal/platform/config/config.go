package config

import (
	"net"
	"os"
	"strings"
)

// Config carries everything main needs to wire the daemon. Values come from
// the environment so container deployments stay drop-in; defaults match the
// compose service names the stores run under.
type Config struct {
	PolicyAddr      string
	SessionMode     string
	OpsAddr         string
	DatabaseURL     string
	RedisURL        string
	PoolBindAddress string
	KafkaBrokers    []string
	AuditTopic      string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		PolicyAddr:      net.JoinHostPort("0.0.0.0", getenv("POLICY_SERVER_PORT", "10030")),
		SessionMode:     getenv("POLICY_SESSION_MODE", "persistent"),
		OpsAddr:         getenv("POLICY_OPS_ADDR", ":9090"),
		DatabaseURL:     getenv("DATABASE_URL", "postgres://mail_admin:default_password@db:5432/relay_db?sslmode=disable"),
		RedisURL:        getenv("REDIS_URL", "redis://redis:6379/0"),
		PoolBindAddress: getenv("POOL_BIND_ADDRESS", "dynamic_pool_ip"),
		AuditTopic:      getenv("AUDIT_TOPIC", "policy-verdicts"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
